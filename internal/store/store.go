// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"

	"github.com/Strikerman10/gptAPI/internal/model"
)

// =============================================================================
// STORE
// =============================================================================

// Store is the single owner of conversation state. All methods are safe for
// concurrent use; every read returns a deep copy.
type Store struct {
	mu       sync.RWMutex
	convs    []model.Conversation
	activeID string
}

// New creates an empty store.
func New() *Store {
	return &Store{convs: make([]model.Conversation, 0)}
}

// NewWithConversations creates a store pre-populated with convs. activeID is
// kept if it names one of convs, otherwise the front conversation is active.
func NewWithConversations(convs []model.Conversation, activeID string) *Store {
	s := New()
	s.Replace(convs, activeID)
	return s
}

// Create prepends a new conversation with the default title, makes it active
// and returns a copy of it.
func (s *Store) Create() model.Conversation {
	conv := model.NewConversation()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.convs = append([]model.Conversation{conv}, s.convs...)
	s.activeID = conv.ID
	return conv.Clone()
}

// Delete removes a conversation. If it was active, the new front conversation
// becomes active, or none if the list is now empty.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return &NotFoundError{ID: id}
	}
	s.convs = append(s.convs[:idx], s.convs[idx+1:]...)

	if s.activeID == id {
		s.activeID = ""
		if len(s.convs) > 0 {
			s.activeID = s.convs[0].ID
		}
	}
	return nil
}

// Select makes a conversation active and moves it to the front.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return &NotFoundError{ID: id}
	}
	s.moveToFrontLocked(idx)
	s.activeID = id
	return nil
}

// Append adds msg to the end of a conversation.
func (s *Store) Append(id string, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return &NotFoundError{ID: id}
	}
	s.convs[idx].Messages = append(s.convs[idx].Messages, msg)
	return nil
}

// ReplaceLast overwrites the final message of a conversation.
func (s *Store) ReplaceLast(id string, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return &NotFoundError{ID: id}
	}
	n := len(s.convs[idx].Messages)
	if n == 0 {
		return ErrEmptyConversation
	}
	s.convs[idx].Messages[n-1] = msg
	return nil
}

// ResolvePending replaces the final message only if it is still a pending
// placeholder. It returns false, with no error, if the conversation exists
// but no longer ends with a placeholder.
func (s *Store) ResolvePending(id string, msg model.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return false, &NotFoundError{ID: id}
	}
	if !s.convs[idx].HasPending() {
		return false, nil
	}
	s.convs[idx].Messages[len(s.convs[idx].Messages)-1] = msg
	return true, nil
}

// RemoveMessage deletes the message at index and returns it.
func (s *Store) RemoveMessage(id string, index int) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return model.Message{}, &NotFoundError{ID: id}
	}
	msgs := s.convs[idx].Messages
	if index < 0 || index >= len(msgs) {
		return model.Message{}, ErrIndexOutOfRange
	}
	removed := msgs[index]
	s.convs[idx].Messages = append(msgs[:index], msgs[index+1:]...)
	return removed, nil
}

// SetTitleIfDefault sets the title only while the conversation still has the
// default title. It reports whether the title changed.
func (s *Store) SetTitleIfDefault(id, title string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return false, &NotFoundError{ID: id}
	}
	if title == "" || !s.convs[idx].HasDefaultTitle() {
		return false, nil
	}
	s.convs[idx].Title = title
	return true, nil
}

// Rename sets the title unconditionally.
func (s *Store) Rename(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return &NotFoundError{ID: id}
	}
	if title == "" {
		title = model.DefaultTitle
	}
	s.convs[idx].Title = title
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns a copy of a conversation.
func (s *Store) Get(id string) (model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return model.Conversation{}, &NotFoundError{ID: id}
	}
	return s.convs[idx].Clone(), nil
}

// Active returns a copy of the active conversation, or false if none.
func (s *Store) Active() (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(s.activeID)
	if idx < 0 {
		return model.Conversation{}, false
	}
	return s.convs[idx].Clone(), true
}

// ActiveID returns the active conversation ID, or "" if none.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// List returns copies of all conversations in recency order.
func (s *Store) List() []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneAll(s.convs)
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}

// Snapshot returns a consistent copy of the list and the active ID.
func (s *Store) Snapshot() ([]model.Conversation, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneAll(s.convs), s.activeID
}

// Replace swaps in a new conversation list, typically the result of an
// initial load. activeID is kept only if it names one of convs; otherwise the
// front conversation becomes active.
func (s *Store) Replace(convs []model.Conversation, activeID string) {
	cp := model.CloneAll(convs)
	if cp == nil {
		cp = make([]model.Conversation, 0)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.convs = cp
	s.activeID = ""
	if s.indexLocked(activeID) >= 0 {
		s.activeID = activeID
	} else if len(s.convs) > 0 {
		s.activeID = s.convs[0].ID
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.convs {
		if s.convs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) moveToFrontLocked(idx int) {
	if idx <= 0 {
		return
	}
	conv := s.convs[idx]
	copy(s.convs[1:idx+1], s.convs[:idx])
	s.convs[0] = conv
}
