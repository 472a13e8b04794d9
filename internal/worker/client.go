// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Strikerman10/gptAPI/internal/model"
	"github.com/Strikerman10/gptAPI/internal/transport"
)

// Configuration constants for the Worker API.
const (
	// DefaultBaseURL is the public Worker deployment.
	DefaultBaseURL = "https://gptapiv2.barney-willis2.workers.dev"

	// DefaultTimeout bounds a single HTTP attempt.
	DefaultTimeout = 120 * time.Second

	// MaxResponseSize is the maximum response body size (10MB). Larger
	// bodies are truncated and fail to decode.
	MaxResponseSize = 10 * 1024 * 1024
)

// Endpoint paths.
const (
	pathRegister = "/register"
	pathLogin    = "/login"
	pathLoad     = "/load"
	pathSave     = "/save"
	pathChat     = "/chat"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage is a single entry of a /chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatMessagesFrom converts conversation messages to request entries.
func ChatMessagesFrom(msgs []model.Message) []ChatMessage {
	out := make([]ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = ChatMessage{Role: m.Role.String(), Content: m.Content}
	}
	return out
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type saveRequest struct {
	UserID string               `json:"userId"`
	Chats  []model.Conversation `json:"chats"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Authorizer supplies bearer credentials for authenticated calls.
type Authorizer interface {
	AuthHeaders(extra http.Header) http.Header
	IsAuthenticated() bool
}

// Client talks to the Worker API.
type Client struct {
	baseURL   string
	transport *transport.Client
	policy    transport.Policy
	auth      Authorizer
	logger    *slog.Logger
}

// NewClient creates a client for the Worker at baseURL using the default
// retry policy. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		transport: transport.NewClient(&http.Client{Timeout: DefaultTimeout}),
		policy:    transport.DefaultPolicy(),
		logger:    slog.Default(),
	}
}

// WithTransport sets the retrying transport used for every call.
func (c *Client) WithTransport(t *transport.Client) *Client {
	if t != nil {
		c.transport = t
	}
	return c
}

// WithPolicy sets the retry policy for idempotent and authenticated calls.
func (c *Client) WithPolicy(p transport.Policy) *Client {
	c.policy = p
	return c
}

// WithAuthorizer sets the source of bearer credentials.
func (c *Client) WithAuthorizer(a Authorizer) *Client {
	c.auth = a
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// BaseURL returns the Worker base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Register creates an account. It is sent exactly once and does not log in.
func (c *Client) Register(ctx context.Context, username, password string) error {
	resp, body, err := c.send(ctx, http.MethodPost, pathRegister, credentials{username, password}, false, transport.SingleAttempt())
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if !isSuccess(resp.StatusCode) {
		return &RemoteStatusError{Endpoint: pathRegister, Status: resp.StatusCode, Message: errorBody(body)}
	}
	return nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	resp, body, err := c.send(ctx, http.MethodPost, pathLogin, credentials{username, password}, false, c.policy)
	if err != nil {
		return "", err
	}
	if !isSuccess(resp.StatusCode) {
		return "", &AuthError{Status: resp.StatusCode, Message: errorBody(body)}
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil || lr.Token == "" {
		return "", &AuthError{Status: resp.StatusCode, Err: ErrNoToken}
	}
	return lr.Token, nil
}

// Load fetches the cloud conversation list for userID. A 2xx response whose
// body is not a list yields an empty result.
func (c *Client) Load(ctx context.Context, userID string) ([]model.Conversation, error) {
	path := pathLoad + "?userId=" + url.QueryEscape(userID)
	resp, body, err := c.send(ctx, http.MethodGet, path, nil, true, c.policy)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if !isSuccess(resp.StatusCode) {
		return nil, &RemoteStatusError{Endpoint: pathLoad, Status: resp.StatusCode, Message: errorBody(body)}
	}

	var convs []model.Conversation
	if err := json.Unmarshal(body, &convs); err != nil {
		c.logger.Warn("cloud load returned a non-list body", "error", err)
		return []model.Conversation{}, nil
	}
	return convs, nil
}

// Save replaces the cloud conversation list for userID.
func (c *Client) Save(ctx context.Context, userID string, convs []model.Conversation) error {
	if convs == nil {
		convs = []model.Conversation{}
	}
	resp, body, err := c.send(ctx, http.MethodPost, pathSave, saveRequest{UserID: userID, Chats: convs}, true, c.policy)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if !isSuccess(resp.StatusCode) {
		return &RemoteStatusError{Endpoint: pathSave, Status: resp.StatusCode, Message: errorBody(body)}
	}
	return nil
}

// Chat requests a completion and returns the first choice's content, which
// may be empty.
func (c *Client) Chat(ctx context.Context, modelName string, msgs []ChatMessage) (string, error) {
	if msgs == nil {
		msgs = []ChatMessage{}
	}
	resp, body, err := c.send(ctx, http.MethodPost, pathChat, chatRequest{Model: modelName, Messages: msgs}, true, c.policy)
	if err != nil {
		return "", err
	}
	if !isSuccess(resp.StatusCode) {
		return "", &RemoteStatusError{Endpoint: pathChat, Status: resp.StatusCode}
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", nil
	}
	return cr.Choices[0].Message.Content, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// send encodes payload, executes the request and reads the bounded body.
// The returned response body is already closed.
func (c *Client) send(ctx context.Context, method, path string, payload any, authenticated bool, policy transport.Policy) (*http.Response, []byte, error) {
	header := http.Header{}
	if authenticated {
		if c.auth == nil || !c.auth.IsAuthenticated() {
			return nil, nil, ErrNotAuthenticated
		}
		header = c.auth.AuthHeaders(header)
	}

	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s request: %w", path, err)
		}
		header.Set("Content-Type", "application/json")
	}
	header.Set("Accept", "application/json")

	resp, err := c.transport.Execute(ctx, transport.Request{
		Method: method,
		URL:    c.baseURL + path,
		Header: header,
		Body:   data,
	}, policy)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

// readResponse reads a response body with the MaxResponseSize limit.
func readResponse(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, MaxResponseSize)); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return buf.Bytes(), nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
