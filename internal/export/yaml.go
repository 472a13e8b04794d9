// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Strikerman10/gptAPI/internal/model"
)

// =============================================================================
// YAML EXPORTER
// =============================================================================

// YAMLExporter exports conversations as a YAML document. Multi-line message
// content is emitted as literal blocks so it stays readable.
type YAMLExporter struct {
	options *Options
}

type yamlMessage struct {
	Role    string `yaml:"role"`
	Status  string `yaml:"status,omitempty"`
	Time    string `yaml:"time,omitempty"`
	Content string `yaml:"content"`
}

type yamlConversation struct {
	ID       string        `yaml:"id"`
	Title    string        `yaml:"title"`
	Exported string        `yaml:"exported,omitempty"`
	Messages []yamlMessage `yaml:"messages"`
}

// NewYAMLExporter creates a new YAML exporter.
func NewYAMLExporter(opts *Options) *YAMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &YAMLExporter{options: opts}
}

// Export converts a conversation to YAML.
func (e *YAMLExporter) Export(conv model.Conversation) ([]byte, error) {
	doc := yamlConversation{
		ID:       conv.ID,
		Title:    conv.DisplayTitle(),
		Messages: make([]yamlMessage, 0, len(conv.Messages)),
	}
	if e.options.IncludeMetadata {
		doc.Exported = e.options.now().Format(time.RFC3339)
	}

	for _, msg := range conv.Messages {
		ym := yamlMessage{Role: string(msg.Role), Content: msg.Content}
		if msg.Status != model.StatusFinal {
			ym.Status = msg.Status.String()
		}
		if e.options.IncludeTimestamps {
			ym.Time = displayTime(msg.Time)
		}
		doc.Messages = append(doc.Messages, ym)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for YAML.
func (e *YAMLExporter) FileExtension() string {
	return ".yaml"
}

// MimeType returns the MIME type for YAML.
func (e *YAMLExporter) MimeType() string {
	return "application/yaml"
}
