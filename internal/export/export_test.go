// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Strikerman10/gptAPI/internal/model"
)

var fixedNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func testOptions(dir string) *Options {
	return &Options{
		OutputDir:         dir,
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Now:               func() time.Time { return fixedNow },
	}
}

func sampleConversation() model.Conversation {
	stamp := "09:30\n14/10/2026"
	user := model.NewUserMessage("Plan a trip to Paris")
	user.Time = stamp
	reply := model.NewAssistantMessage("Day 1:\n- Louvre\n- Seine walk")
	reply.Time = stamp
	failed := model.NewErrorMessage("boom")
	failed.Time = stamp
	return model.Conversation{
		ID:       "c-1",
		Title:    "Trip: Paris #1",
		Messages: []model.Message{user, reply, failed},
	}
}

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"markdown", ".md"},
		{"md", ".md"},
		{"JSON", ".json"},
		{"yaml", ".yaml"},
		{".yml", ".yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exp, err := New(tt.format, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.ext, exp.FileExtension())
			assert.NotEmpty(t, exp.MimeType())
		})
	}

	_, err := New("html", nil)
	assert.ErrorContains(t, err, "unknown export format")
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions("")).Export(sampleConversation())
	require.NoError(t, err)
	md := string(out)

	require.True(t, strings.HasPrefix(md, "---\n"))
	parts := strings.SplitN(md, "---\n", 3)
	require.Len(t, parts, 3)

	var fm frontMatter
	require.NoError(t, yaml.Unmarshal([]byte(parts[1]), &fm))
	assert.Equal(t, "Trip: Paris #1", fm.Title)
	assert.Equal(t, "c-1", fm.ID)
	assert.Equal(t, 3, fm.Messages)
	assert.Equal(t, "2026-10-14T09:30:00Z", fm.Exported)

	assert.Contains(t, md, "# Trip: Paris \\#1\n")
	assert.Contains(t, md, "### You <sub>09:30 14/10/2026</sub>")
	assert.Contains(t, md, "### Assistant <sub>09:30 14/10/2026</sub>")
	assert.Contains(t, md, "- Louvre\n- Seine walk")
	assert.Contains(t, md, "> Error: boom")
	assert.Contains(t, md, "*Exported from gptapi on October 14, 2026 at 9:30 AM*")
}

func TestMarkdownExporter_WithoutMetadata(t *testing.T) {
	opts := testOptions("")
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false

	conv := sampleConversation()
	conv.Messages = append(conv.Messages, model.NewPendingMessage())

	out, err := NewMarkdownExporter(opts).Export(conv)
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# "))
	assert.Contains(t, md, "### You\n\n")
	assert.NotContains(t, md, "<sub>")
	assert.Contains(t, md, "*(waiting for a response)*")
}

func TestMarkdownExporter_EmptyConversation(t *testing.T) {
	_, err := NewMarkdownExporter(nil).Export(model.NewConversation())
	assert.ErrorIs(t, err, ErrEmptyConversation)
}

func TestJSONExporter_RoundTrip(t *testing.T) {
	conv := sampleConversation()
	conv.Messages = append(conv.Messages, model.NewPendingMessage())

	out, err := NewJSONExporter(nil).Export(conv)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"content": "__TYPING__"`)
	assert.Contains(t, string(out), `"status": "error"`)

	decoded, err := DecodeJSON(out)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, conv, decoded[0])
}

func TestDecodeJSON_Array(t *testing.T) {
	data := `[
		{"id": "a", "title": "First", "messages": [{"role": "user", "content": "hi"}]},
		{"messages": []}
	]`

	convs, err := DecodeJSON([]byte(data))
	require.NoError(t, err)
	require.Len(t, convs, 2)

	assert.Equal(t, "a", convs[0].ID)
	assert.Equal(t, "hi", convs[0].Messages[0].Content)
	assert.NotEmpty(t, convs[1].ID)
	assert.Equal(t, model.DefaultTitle, convs[1].Title)

	_, err = DecodeJSON([]byte("  "))
	assert.Error(t, err)
	_, err = DecodeJSON([]byte("{oops"))
	assert.Error(t, err)
}

func TestYAMLExporter(t *testing.T) {
	out, err := NewYAMLExporter(testOptions("")).Export(sampleConversation())
	require.NoError(t, err)
	assert.Contains(t, string(out), "content: |-")

	var doc yamlConversation
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "c-1", doc.ID)
	assert.Equal(t, "2026-10-14T09:30:00Z", doc.Exported)
	require.Len(t, doc.Messages, 3)
	assert.Equal(t, "Day 1:\n- Louvre\n- Seine walk", doc.Messages[1].Content)
	assert.Empty(t, doc.Messages[1].Status)
	assert.Equal(t, "error", doc.Messages[2].Status)
	assert.Equal(t, "09:30 14/10/2026", doc.Messages[0].Time)
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()

	path, err := ExportToFile(sampleConversation(), NewMarkdownExporter(nil), testOptions(dir))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "conversation_Trip-_Paris_#1_20261014_093000.md"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "### You")
}

func TestExportToFile_PropagatesExportError(t *testing.T) {
	_, err := ExportToFile(model.NewConversation(), NewMarkdownExporter(nil), testOptions(t.TempDir()))
	assert.ErrorIs(t, err, ErrEmptyConversation)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"simple", "simple"},
		{"a/b\\c", "a-b-c"},
		{"two words", "two_words"},
		{"long title…", "long_title"},
		{"", "conversation"},
		{"\x01", "-"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}
