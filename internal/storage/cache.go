// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"

	"github.com/Strikerman10/gptAPI/internal/model"
)

// Durable keys.
const (
	KeyChats    = "secure_chat_chats"
	KeyActiveID = "secure_chat_current_id"
	KeyUserID   = "chat_user_id"
	KeyModel    = "chat_model"
	KeyPalette  = "palette"
	KeyMode     = "mode"
)

// =============================================================================
// CACHE
// =============================================================================

// Cache provides typed access to the durable keys on top of a KV backend.
type Cache struct {
	kv KV
}

// NewCache wraps an open backend.
func NewCache(kv KV) *Cache {
	return &Cache{kv: kv}
}

// Open opens the backend named in opts and wraps it.
func Open(opts Options) (*Cache, error) {
	kv, err := OpenKV(opts)
	if err != nil {
		return nil, err
	}
	return NewCache(kv), nil
}

// KV returns the underlying backend.
func (c *Cache) KV() KV {
	return c.kv
}

// Close closes the backend.
func (c *Cache) Close() error {
	return c.kv.Close()
}

// LoadConversations returns the cached conversation list. A missing key
// yields nil with no error; an undecodable value yields a *CorruptError.
func (c *Cache) LoadConversations() ([]model.Conversation, error) {
	raw, ok, err := c.kv.Get(KeyChats)
	if err != nil || !ok || raw == "" {
		return nil, err
	}
	var convs []model.Conversation
	if err := json.Unmarshal([]byte(raw), &convs); err != nil {
		return nil, &CorruptError{Key: KeyChats, Err: err}
	}
	return convs, nil
}

// SaveConversations writes the conversation list and the active ID in one
// atomic update.
func (c *Cache) SaveConversations(convs []model.Conversation, activeID string) error {
	if convs == nil {
		convs = []model.Conversation{}
	}
	data, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("encode conversations: %w", err)
	}
	return c.kv.SetMany(map[string]string{
		KeyChats:    string(data),
		KeyActiveID: activeID,
	})
}

// ActiveID returns the remembered active conversation ID, or "".
func (c *Cache) ActiveID() (string, error) {
	return c.get(KeyActiveID)
}

// UserID returns the durable user ID, or "".
func (c *Cache) UserID() (string, error) {
	return c.get(KeyUserID)
}

// SetUserID stores the durable user ID.
func (c *Cache) SetUserID(id string) error {
	return c.kv.Set(KeyUserID, id)
}

// ClearUserID forgets the durable user ID.
func (c *Cache) ClearUserID() error {
	return c.kv.Delete(KeyUserID)
}

// Model returns the stored model name, or "".
func (c *Cache) Model() (string, error) {
	return c.get(KeyModel)
}

// SetModel stores the model name.
func (c *Cache) SetModel(name string) error {
	return c.kv.Set(KeyModel, name)
}

// Theme returns the stored palette and mode. Missing values are "".
func (c *Cache) Theme() (palette, mode string, err error) {
	if palette, err = c.get(KeyPalette); err != nil {
		return "", "", err
	}
	if mode, err = c.get(KeyMode); err != nil {
		return "", "", err
	}
	return palette, mode, nil
}

// SetTheme stores palette and mode together.
func (c *Cache) SetTheme(palette, mode string) error {
	return c.kv.SetMany(map[string]string{KeyPalette: palette, KeyMode: mode})
}

func (c *Cache) get(key string) (string, error) {
	v, _, err := c.kv.Get(key)
	return v, err
}
