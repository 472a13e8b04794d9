// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package workertest provides an in-memory Worker API for tests.
package workertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/Strikerman10/gptAPI/internal/model"
	"github.com/Strikerman10/gptAPI/internal/worker"
)

// ChatFunc produces the assistant reply for a /chat request. Returning a
// non-zero status makes the server respond with that status instead.
type ChatFunc func(model string, msgs []worker.ChatMessage) (content string, status int)

// SaveRecord captures one accepted /save call.
type SaveRecord struct {
	UserID string
	Chats  []model.Conversation
}

// Server is a fake Worker backed by maps. The zero value is not usable; use
// NewServer.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	users     map[string]string
	tokens    map[string]string
	chats     map[string][]model.Conversation
	saves     []SaveRecord
	chatCalls [][]worker.ChatMessage
	calls     map[string]int

	// Failure injection, keyed by path ("/load", "/chat", ...).
	statusOverride map[string]int
	chatFn         ChatFunc
}

// NewServer starts a fake Worker. Call Close when done.
func NewServer() *Server {
	s := &Server{
		users:          make(map[string]string),
		tokens:         make(map[string]string),
		chats:          make(map[string][]model.Conversation),
		calls:          make(map[string]int),
		statusOverride: make(map[string]int),
		chatFn: func(string, []worker.ChatMessage) (string, int) {
			return "ok", 0
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/load", s.handleLoad)
	mux.HandleFunc("/save", s.handleSave)
	mux.HandleFunc("/chat", s.handleChat)
	s.Server = httptest.NewServer(s.count(mux))
	return s
}

// AddUser registers credentials directly.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// SetChats seeds the cloud partition of userID.
func (s *Server) SetChats(userID string, convs []model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[userID] = model.CloneAll(convs)
}

// Chats returns the cloud partition of userID.
func (s *Server) Chats(userID string) []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneAll(s.chats[userID])
}

// SetChatFunc replaces the completion behaviour.
func (s *Server) SetChatFunc(fn ChatFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatFn = fn
}

// FailPath makes every request to path answer with status. Zero clears it.
func (s *Server) FailPath(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.statusOverride, path)
		return
	}
	s.statusOverride[path] = status
}

// Saves returns every accepted /save call in order.
func (s *Server) Saves() []SaveRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SaveRecord, len(s.saves))
	copy(out, s.saves)
	return out
}

// ChatRequests returns the message payload of every /chat call.
func (s *Server) ChatRequests() [][]worker.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]worker.ChatMessage, len(s.chatCalls))
	copy(out, s.chatCalls)
	return out
}

// Calls returns how many requests reached path, including failed ones.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		status := s.statusOverride[r.URL.Path]
		s.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var c struct{ Username, Password string }
	if r.Method != http.MethodPost || json.NewDecoder(r.Body).Decode(&c) != nil || c.Username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[c.Username]; exists {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "user exists"})
		return
	}
	s.users[c.Username] = c.Password
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c struct{ Username, Password string }
	if r.Method != http.MethodPost || json.NewDecoder(r.Body).Decode(&c) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pw, ok := s.users[c.Username]; !ok || pw != c.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	token := fmt.Sprintf("token-%s-%d", c.Username, len(s.tokens)+1)
	s.tokens[token] = c.Username
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if id := r.URL.Query().Get("userId"); id != user {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}
	s.mu.Lock()
	convs := s.chats[user]
	if convs == nil {
		convs = []model.Conversation{}
	}
	data, _ := json.Marshal(convs)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var req struct {
		UserID string               `json:"userId"`
		Chats  []model.Conversation `json:"chats"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID != user {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	s.mu.Lock()
	s.chats[user] = req.Chats
	s.saves = append(s.saves, SaveRecord{UserID: user, Chats: model.CloneAll(req.Chats)})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var req struct {
		Model    string               `json:"model"`
		Messages []worker.ChatMessage `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	s.mu.Lock()
	s.chatCalls = append(s.chatCalls, req.Messages)
	fn := s.chatFn
	s.mu.Unlock()

	content, status := fn(req.Model, req.Messages)
	if status != 0 {
		writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
}

func (s *Server) authorize(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.tokens[token]
	return user, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
