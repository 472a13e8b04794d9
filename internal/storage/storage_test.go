// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Strikerman10/gptAPI/internal/model"
)

// =============================================================================
// BACKEND CONFORMANCE
// =============================================================================

func backends(t *testing.T) map[string]func() KV {
	return map[string]func() KV{
		BackendSQLite: func() KV {
			kv, err := OpenSQLite(filepath.Join(t.TempDir(), SQLiteFileName))
			if err != nil {
				t.Fatalf("OpenSQLite() error = %v", err)
			}
			t.Cleanup(func() { kv.Close() })
			return kv
		},
		BackendFile: func() KV {
			kv, err := OpenFile(filepath.Join(t.TempDir(), JSONFileName))
			if err != nil {
				t.Fatalf("OpenFile() error = %v", err)
			}
			t.Cleanup(func() { kv.Close() })
			return kv
		},
	}
}

func TestKV_Conformance(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			kv := open()

			if _, ok, err := kv.Get("missing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
			}

			if err := kv.Set("a", "1"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := kv.SetMany(map[string]string{"a": "2", "b": "3"}); err != nil {
				t.Fatalf("SetMany() error = %v", err)
			}

			if v, ok, _ := kv.Get("a"); !ok || v != "2" {
				t.Errorf("Get(a) = %q, %v", v, ok)
			}
			if v, ok, _ := kv.Get("b"); !ok || v != "3" {
				t.Errorf("Get(b) = %q, %v", v, ok)
			}

			if err := kv.Delete("a"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := kv.Delete("never-set"); err != nil {
				t.Errorf("Delete(missing) error = %v", err)
			}
			if _, ok, _ := kv.Get("a"); ok {
				t.Error("a still present after Delete")
			}

			if err := kv.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if _, _, err := kv.Get("b"); !errors.Is(err, ErrClosed) {
				t.Errorf("Get after Close error = %v, want ErrClosed", err)
			}
		})
	}
}

func TestKV_Durable(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{BackendSQLite, BackendFile} {
		t.Run(backend, func(t *testing.T) {
			opts := Options{Backend: backend, Dir: filepath.Join(dir, backend)}
			kv, err := OpenKV(opts)
			if err != nil {
				t.Fatalf("OpenKV() error = %v", err)
			}
			if err := kv.Set("k", "v"); err != nil {
				t.Fatal(err)
			}
			kv.Close()

			reopened, err := OpenKV(opts)
			if err != nil {
				t.Fatalf("reopen error = %v", err)
			}
			defer reopened.Close()
			if v, ok, _ := reopened.Get("k"); !ok || v != "v" {
				t.Errorf("after reopen Get(k) = %q, %v", v, ok)
			}
		})
	}
}

func TestOpenKV_UnknownBackend(t *testing.T) {
	_, err := OpenKV(Options{Backend: "redis", Dir: t.TempDir()})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("error = %v, want ErrUnknownBackend", err)
	}
}

func TestOpenFile_CorruptFileMovedAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, JSONFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	kv, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if _, ok, _ := kv.Get("anything"); ok {
		t.Error("corrupt store should start empty")
	}

	entries, _ := os.ReadDir(dir)
	found := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), JSONFileName+".corrupt-") {
			found = true
		}
	}
	if !found {
		t.Error("corrupt file was not moved aside")
	}
}

// =============================================================================
// CACHE
// =============================================================================

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(Options{Backend: BackendSQLite, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_Conversations(t *testing.T) {
	c := newTestCache(t)

	convs, err := c.LoadConversations()
	if err != nil || convs != nil {
		t.Fatalf("empty cache = %v, %v", convs, err)
	}

	in := []model.Conversation{
		{ID: "b", Title: "B", Messages: []model.Message{model.NewUserMessage("hi"), model.NewPendingMessage()}},
		{ID: "a", Title: "A", Messages: []model.Message{}},
	}
	if err := c.SaveConversations(in, "a"); err != nil {
		t.Fatalf("SaveConversations() error = %v", err)
	}

	out, err := c.LoadConversations()
	if err != nil {
		t.Fatalf("LoadConversations() error = %v", err)
	}
	if len(out) != 2 || out[0].ID != "b" || out[1].ID != "a" {
		t.Fatalf("order not preserved: %+v", out)
	}
	if !out[0].Messages[1].IsPending() {
		t.Error("pending status lost")
	}
	if id, _ := c.ActiveID(); id != "a" {
		t.Errorf("ActiveID() = %q, want a", id)
	}
}

func TestCache_CorruptConversations(t *testing.T) {
	c := newTestCache(t)
	if err := c.KV().Set(KeyChats, "[{"); err != nil {
		t.Fatal(err)
	}
	_, err := c.LoadConversations()
	var ce *CorruptError
	if !errors.As(err, &ce) || ce.Key != KeyChats {
		t.Fatalf("error = %v, want CorruptError for %s", err, KeyChats)
	}
	if !errors.Is(err, ErrCorrupt) {
		t.Error("CorruptError should match ErrCorrupt")
	}
}

func TestCache_Settings(t *testing.T) {
	c := newTestCache(t)

	if err := c.SetUserID("alice"); err != nil {
		t.Fatal(err)
	}
	if id, _ := c.UserID(); id != "alice" {
		t.Errorf("UserID() = %q", id)
	}
	if err := c.ClearUserID(); err != nil {
		t.Fatal(err)
	}
	if id, _ := c.UserID(); id != "" {
		t.Errorf("UserID() after clear = %q", id)
	}

	if err := c.SetModel("gpt-5-chat-latest"); err != nil {
		t.Fatal(err)
	}
	if m, _ := c.Model(); m != "gpt-5-chat-latest" {
		t.Errorf("Model() = %q", m)
	}

	if err := c.SetTheme("Teal", "dark"); err != nil {
		t.Fatal(err)
	}
	p, mode, err := c.Theme()
	if err != nil || p != "Teal" || mode != "dark" {
		t.Errorf("Theme() = %q, %q, %v", p, mode, err)
	}
}
