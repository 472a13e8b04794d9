// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Strikerman10/gptAPI/internal/model"
	"github.com/Strikerman10/gptAPI/internal/storage"
)

// =============================================================================
// INTERFACES
// =============================================================================

// CloudStore is the remote half of persistence.
type CloudStore interface {
	Load(ctx context.Context, userID string) ([]model.Conversation, error)
	Save(ctx context.Context, userID string, convs []model.Conversation) error
}

// LocalStore is the durable local cache.
type LocalStore interface {
	LoadConversations() ([]model.Conversation, error)
	SaveConversations(convs []model.Conversation, activeID string) error
	ActiveID() (string, error)
}

// Identity reports who is logged in.
type Identity interface {
	CurrentUserID() string
	IsAuthenticated() bool
}

// Source says where LoadInitial found its data.
type Source string

const (
	SourceCloud Source = "cloud"
	SourceLocal Source = "local"
	SourceEmpty Source = "empty"
)

// Result is the outcome of LoadInitial.
type Result struct {
	Conversations []model.Conversation
	ActiveID      string
	Source        Source
	// Repaired counts conversations whose stale placeholder was replaced.
	Repaired int
	// CloudErr is the cloud failure that caused a local fallback, if any.
	CloudErr error
}

// =============================================================================
// COORDINATOR
// =============================================================================

// Coordinator decides where conversations are loaded from and makes sure
// every mutation reaches the local cache and, eventually, the cloud.
type Coordinator struct {
	local    LocalStore
	cloud    CloudStore
	identity Identity
	writer   *CloudWriter
	logger   *slog.Logger
}

// NewCoordinator creates a coordinator. cloud and identity may be nil. A
// coordinator missing either one never reads from or writes to the cloud.
func NewCoordinator(local LocalStore, cloud CloudStore, identity Identity, opts WriterOptions) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Coordinator{
		local:    local,
		cloud:    cloud,
		identity: identity,
		logger:   opts.Logger,
	}
	if cloud != nil {
		c.writer = NewCloudWriter(cloud.Save, opts)
	}
	return c
}

// Writer returns the cloud writer, or nil for local-only coordinators.
func (c *Coordinator) Writer() *CloudWriter {
	return c.writer
}

// LoadInitial loads the conversation list for userID. A non-empty cloud
// list wins and refreshes the local cache. Otherwise the local cache is
// used, and pushed to the cloud when it is non-empty. When both are empty
// the result is empty and the caller creates the first conversation.
//
// Errors from either side are logged, never returned; only a cancelled ctx
// is reported.
func (c *Coordinator) LoadInitial(ctx context.Context, userID string) (Result, error) {
	remembered, err := c.local.ActiveID()
	if err != nil {
		c.logger.Warn("could not read remembered conversation", "error", err)
	}

	var cloudErr error
	if c.cloudUsable(userID) {
		convs, err := c.cloud.Load(ctx, userID)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			cloudErr = err
			c.logger.Warn("cloud load failed, using local cache", "user", userID, "error", err)
		case len(convs) > 0:
			res := c.finish(convs, remembered, SourceCloud)
			if err := c.local.SaveConversations(res.Conversations, res.ActiveID); err != nil {
				c.logger.Warn("could not refresh local cache from cloud", "error", err)
			}
			return res, nil
		default:
			c.logger.Info("cloud has no conversations, using local cache", "user", userID)
		}
	}

	convs, err := c.local.LoadConversations()
	if err != nil {
		if errors.Is(err, storage.ErrCorrupt) {
			c.logger.Warn("local cache is corrupt, starting empty", "error", err)
		} else {
			c.logger.Warn("could not read local cache", "error", err)
		}
		convs = nil
	}
	if len(convs) == 0 {
		return Result{Conversations: []model.Conversation{}, Source: SourceEmpty, CloudErr: cloudErr}, nil
	}

	res := c.finish(convs, remembered, SourceLocal)
	res.CloudErr = cloudErr
	if c.writer != nil && userID != "" && c.authenticated() {
		c.writer.Enqueue(userID, res.Conversations)
	}
	return res, nil
}

// Persist writes convs to the local cache synchronously and schedules a
// cloud save for the current user. A local write failure is returned; cloud
// failures are only logged.
func (c *Coordinator) Persist(convs []model.Conversation, activeID string) error {
	if err := c.local.SaveConversations(convs, activeID); err != nil {
		return fmt.Errorf("save local cache: %w", err)
	}
	if c.writer == nil || !c.authenticated() {
		return nil
	}
	userID := c.identity.CurrentUserID()
	if userID == "" {
		return nil
	}
	c.writer.Enqueue(userID, convs)
	return nil
}

// Flush waits for any pending cloud save.
func (c *Coordinator) Flush(ctx context.Context) error {
	if c.writer == nil {
		return nil
	}
	return c.writer.Flush(ctx)
}

// Close flushes and stops the cloud writer.
func (c *Coordinator) Close(ctx context.Context) error {
	if c.writer == nil {
		return nil
	}
	return c.writer.Close(ctx)
}

func (c *Coordinator) cloudUsable(userID string) bool {
	return c.cloud != nil && userID != "" && c.authenticated()
}

func (c *Coordinator) authenticated() bool {
	return c.identity != nil && c.identity.IsAuthenticated()
}

func (c *Coordinator) finish(convs []model.Conversation, remembered string, src Source) Result {
	convs = model.CloneAll(convs)
	repaired := model.RepairInterrupted(convs)
	if repaired > 0 {
		c.logger.Info("repaired interrupted conversations", "count", repaired, "source", src)
	}
	ordered, active := Reconcile(convs, remembered)
	return Result{Conversations: ordered, ActiveID: active, Source: src, Repaired: repaired}
}

// Reconcile picks the active conversation after a load. If remembered names
// one of convs it is moved to the front and made active; otherwise the order
// is unchanged and the front conversation is active. The input slice is not
// modified.
func Reconcile(convs []model.Conversation, remembered string) ([]model.Conversation, string) {
	if len(convs) == 0 {
		return []model.Conversation{}, ""
	}
	out := make([]model.Conversation, 0, len(convs))
	idx := -1
	for i := range convs {
		if remembered != "" && convs[i].ID == remembered {
			idx = i
			break
		}
	}
	if idx < 0 {
		out = append(out, convs...)
		return out, out[0].ID
	}
	out = append(out, convs[idx])
	out = append(out, convs[:idx]...)
	out = append(out, convs[idx+1:]...)
	return out, remembered
}
