// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Strikerman10/gptAPI/internal/model"
	"github.com/Strikerman10/gptAPI/internal/store"
	"github.com/Strikerman10/gptAPI/internal/worker"
)

// Defaults for a Controller.
const (
	DefaultModel         = "gpt-5-chat-latest"
	DefaultContextWindow = 10
	// EmptyReply replaces a successful completion with no content.
	EmptyReply = "No response"
)

// Errors returned by the Controller.
var (
	ErrEmptyPrompt   = errors.New("message is empty")
	ErrTurnInFlight  = errors.New("a reply is already pending in this conversation")
	ErrStaleTurn     = errors.New("conversation changed before the reply arrived")
	ErrNotRetryable  = errors.New("only assistant replies can be retried")
	ErrNoPrompt      = errors.New("no user message precedes this reply")
	ErrNoActiveReply = errors.New("no assistant reply to retry")
)

// Completer produces assistant replies.
type Completer interface {
	Chat(ctx context.Context, model string, msgs []worker.ChatMessage) (string, error)
}

// Persister receives a snapshot after every mutation.
type Persister interface {
	Persist(convs []model.Conversation, activeID string) error
}

// ModelStore remembers the selected model.
type ModelStore interface {
	SetModel(name string) error
}

// Options configures a Controller.
type Options struct {
	Model         string
	ContextWindow int
	TitleLength   int
	ModelStore    ModelStore
	Logger        *slog.Logger
}

// Turn is one request/response exchange in flight.
type Turn struct {
	ConversationID string
	Generation     uint64
	Model          string
	Prompt         string
	Request        []worker.ChatMessage
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller applies user intents to the store and persists the result.
type Controller struct {
	// mu serialises Begin/Complete and the intent handlers so the
	// generation check and the store mutation are atomic.
	mu sync.Mutex

	store     *store.Store
	completer Completer
	persister Persister
	models    ModelStore
	logger    *slog.Logger

	model         string
	contextWindow int
	titleLength   int

	generations map[string]uint64
	inFlight    map[string]uint64
}

// NewController wires a controller. persister may be nil for tests that do
// not care about persistence.
func NewController(s *store.Store, completer Completer, persister Persister, opts Options) *Controller {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = DefaultContextWindow
	}
	if opts.TitleLength <= 0 {
		opts.TitleLength = store.DefaultTitleLength
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		store:         s,
		completer:     completer,
		persister:     persister,
		models:        opts.ModelStore,
		logger:        opts.Logger,
		model:         opts.Model,
		contextWindow: opts.ContextWindow,
		titleLength:   opts.TitleLength,
		generations:   make(map[string]uint64),
		inFlight:      make(map[string]uint64),
	}
}

// Store returns the underlying store for read access.
func (c *Controller) Store() *store.Store {
	return c.store
}

// Model returns the model used for new turns.
func (c *Controller) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// SetModel changes the model for new turns and remembers it.
func (c *Controller) SetModel(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("model name is empty")
	}
	c.mu.Lock()
	c.model = name
	c.mu.Unlock()

	if c.models != nil {
		if err := c.models.SetModel(name); err != nil {
			return fmt.Errorf("remember model: %w", err)
		}
	}
	return nil
}

// Busy reports whether conversation id has a turn in flight.
func (c *Controller) Busy(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[id]
	return ok
}

// =============================================================================
// TURNS
// =============================================================================

// Begin starts a turn in the active conversation, creating one if none is
// active. The user message and a pending placeholder are appended and the
// state is persisted before the returned Turn is run.
func (c *Controller) Begin(text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyPrompt
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.store.Active()
	if !ok {
		conv = c.store.Create()
	}
	return c.beginLocked(conv.ID, text)
}

// BeginRetry starts a turn that regenerates the assistant reply at index in
// conversation id. The reply is removed, and the nearest preceding user
// message is sent again as a new user message.
func (c *Controller) BeginRetry(id string, index int) (*Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inFlight[id]; busy {
		return nil, ErrTurnInFlight
	}
	conv, err := c.store.Get(id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(conv.Messages) {
		return nil, store.ErrIndexOutOfRange
	}
	target := conv.Messages[index]
	if !target.IsAssistant() || target.IsPending() {
		return nil, ErrNotRetryable
	}

	prompt := ""
	for i := index - 1; i >= 0; i-- {
		if conv.Messages[i].IsUser() {
			prompt = conv.Messages[i].Content
			break
		}
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrNoPrompt
	}

	if _, err := c.store.RemoveMessage(id, index); err != nil {
		return nil, err
	}
	return c.beginLocked(id, prompt)
}

// LastReplyIndex returns the index of the last settled assistant message in
// conversation id.
func (c *Controller) LastReplyIndex(id string) (int, error) {
	conv, err := c.store.Get(id)
	if err != nil {
		return -1, err
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		m := conv.Messages[i]
		if m.IsAssistant() && !m.IsPending() {
			return i, nil
		}
	}
	return -1, ErrNoActiveReply
}

func (c *Controller) beginLocked(id, text string) (*Turn, error) {
	if _, busy := c.inFlight[id]; busy {
		return nil, ErrTurnInFlight
	}

	if err := c.store.Append(id, model.NewUserMessage(text)); err != nil {
		return nil, err
	}
	if _, err := c.store.SetTitleIfDefault(id, store.DeriveTitle(text, c.titleLength)); err != nil {
		return nil, err
	}

	conv, err := c.store.Get(id)
	if err != nil {
		return nil, err
	}
	// Built before the placeholder is appended; ContextWindow would drop it
	// anyway.
	request := worker.ChatMessagesFrom(model.ContextWindow(conv.Messages, c.contextWindow))

	if err := c.store.Append(id, model.NewPendingMessage()); err != nil {
		return nil, err
	}

	c.generations[id]++
	gen := c.generations[id]
	c.inFlight[id] = gen
	c.persistLocked()

	return &Turn{
		ConversationID: id,
		Generation:     gen,
		Model:          c.model,
		Prompt:         text,
		Request:        request,
	}, nil
}

// Run performs the completion call for turn. It does not touch the store.
func (c *Controller) Run(ctx context.Context, turn *Turn) (string, error) {
	if c.completer == nil {
		return "", errors.New("no completion backend configured")
	}
	return c.completer.Chat(ctx, turn.Model, turn.Request)
}

// Complete settles turn with the completion result. A nil runErr records
// content (or EmptyReply when content is blank) as the reply; otherwise an
// error message carrying runErr is recorded. Stale turns are dropped and
// reported with ErrStaleTurn.
func (c *Controller) Complete(turn *Turn, content string, runErr error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := turn.ConversationID
	if c.inFlight[id] == turn.Generation {
		delete(c.inFlight, id)
	}
	if c.generations[id] != turn.Generation {
		c.logger.Debug("dropping superseded reply", "conversation", id, "generation", turn.Generation)
		return ErrStaleTurn
	}

	var msg model.Message
	if runErr != nil {
		msg = model.NewErrorMessage(errorReason(runErr))
	} else {
		if strings.TrimSpace(content) == "" {
			content = EmptyReply
		}
		msg = model.NewAssistantMessage(content)
	}

	resolved, err := c.store.ResolvePending(id, msg)
	if errors.Is(err, store.ErrNotFound) {
		c.logger.Debug("dropping reply for deleted conversation", "conversation", id)
		return ErrStaleTurn
	}
	if err != nil {
		return err
	}
	if !resolved {
		c.logger.Debug("dropping reply, placeholder gone", "conversation", id)
		return ErrStaleTurn
	}

	if runErr != nil {
		c.logger.Warn("completion failed", "conversation", id, "error", runErr)
	}
	c.persistLocked()
	return nil
}

// AbandonInFlight settles every unfinished turn with an interrupted error
// so no placeholder outlives the process. Results that arrive afterwards
// are stale. It returns the number of conversations settled.
func (c *Controller) AbandonInFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	settled := 0
	for id := range c.inFlight {
		delete(c.inFlight, id)
		c.generations[id]++
		resolved, err := c.store.ResolvePending(id, model.NewErrorMessage(model.InterruptedReason))
		if err != nil || !resolved {
			continue
		}
		settled++
	}
	if settled > 0 {
		c.logger.Info("abandoned unfinished replies", "count", settled)
		c.persistLocked()
	}
	return settled
}

// Send runs a whole turn synchronously. The returned error reports why the
// turn could not start or settle; a failed completion is recorded in the
// conversation and returned as well.
func (c *Controller) Send(ctx context.Context, text string) error {
	turn, err := c.Begin(text)
	if err != nil {
		return err
	}
	return c.finish(ctx, turn)
}

// Retry regenerates the assistant reply at index synchronously.
func (c *Controller) Retry(ctx context.Context, id string, index int) error {
	turn, err := c.BeginRetry(id, index)
	if err != nil {
		return err
	}
	return c.finish(ctx, turn)
}

func (c *Controller) finish(ctx context.Context, turn *Turn) error {
	content, runErr := c.Run(ctx, turn)
	if err := c.Complete(turn, content, runErr); err != nil {
		return err
	}
	return runErr
}

// =============================================================================
// INTENTS
// =============================================================================

// NewChat creates a conversation and makes it active.
func (c *Controller) NewChat() model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv := c.store.Create()
	c.persistLocked()
	return conv
}

// DeleteChat removes a conversation. A pending reply for it is discarded
// when it arrives.
func (c *Controller) DeleteChat(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(id); err != nil {
		return err
	}
	c.generations[id]++
	delete(c.inFlight, id)
	c.persistLocked()
	return nil
}

// SelectChat makes a conversation active.
func (c *Controller) SelectChat(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Select(id); err != nil {
		return err
	}
	c.persistLocked()
	return nil
}

// RenameChat sets a conversation title.
func (c *Controller) RenameChat(id, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Rename(id, strings.TrimSpace(title)); err != nil {
		return err
	}
	c.persistLocked()
	return nil
}

// Load replaces the store contents, typically with the result of the
// initial load. Turns started before the reload are discarded on arrival.
func (c *Controller) Load(convs []model.Conversation, activeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id := range c.generations {
		c.generations[id]++
	}
	c.inFlight = make(map[string]uint64)
	c.store.Replace(convs, activeID)
}

// Import merges convs into the store. A conversation whose ID already
// exists replaces it in place and any reply pending for it is discarded; the
// others are added at the top in input order. Interrupted placeholders in
// the input are repaired. The active conversation is kept.
func (c *Controller) Import(convs []model.Conversation) (added, replaced int) {
	incoming := model.CloneAll(convs)
	model.RepairInterrupted(incoming)

	c.mu.Lock()
	defer c.mu.Unlock()

	current, active := c.store.Snapshot()
	index := make(map[string]int, len(current))
	for i, conv := range current {
		index[conv.ID] = i
	}

	seen := make(map[string]bool, len(incoming))
	var fresh []model.Conversation
	for _, conv := range incoming {
		if conv.ID == "" {
			conv.ID = model.NewConversationID()
		}
		if seen[conv.ID] {
			continue
		}
		seen[conv.ID] = true

		if i, ok := index[conv.ID]; ok {
			current[i] = conv
			c.generations[conv.ID]++
			delete(c.inFlight, conv.ID)
			replaced++
			continue
		}
		fresh = append(fresh, conv)
		added++
	}

	c.store.Replace(append(fresh, current...), active)
	c.persistLocked()
	return added, replaced
}

func (c *Controller) persistLocked() {
	if c.persister == nil {
		return
	}
	convs, active := c.store.Snapshot()
	if err := c.persister.Persist(convs, active); err != nil {
		c.logger.Error("could not save conversations locally", "error", err)
	}
}

// errorReason renders an error for display inside a conversation.
func errorReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	}
	return err.Error()
}
