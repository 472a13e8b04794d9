// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Strikerman10/gptAPI/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes a conversation in the same wire format used by the cloud
// save and the local cache, so the output can be imported again.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a conversation to indented JSON.
func (e *JSONExporter) Export(conv model.Conversation) ([]byte, error) {
	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}
	return json.MarshalIndent(conv, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

// DecodeJSON reads conversations written by JSONExporter. Both a single object
// and an array of conversations are accepted. Conversations without an ID get
// a fresh one.
func DecodeJSON(data []byte) ([]model.Conversation, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("decode conversations: empty input")
	}

	var convs []model.Conversation
	if data[0] == '[' {
		if err := json.Unmarshal(data, &convs); err != nil {
			return nil, fmt.Errorf("decode conversations: %w", err)
		}
	} else {
		var conv model.Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			return nil, fmt.Errorf("decode conversation: %w", err)
		}
		convs = []model.Conversation{conv}
	}

	for i := range convs {
		if convs[i].ID == "" {
			convs[i].ID = model.NewConversationID()
		}
		if convs[i].Title == "" {
			convs[i].Title = model.DefaultTitle
		}
		if convs[i].Messages == nil {
			convs[i].Messages = []model.Message{}
		}
	}
	return convs, nil
}
