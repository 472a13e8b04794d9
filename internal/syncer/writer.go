// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Strikerman10/gptAPI/internal/model"
)

// Default cloud writer settings.
const (
	DefaultDebounce    = 750 * time.Millisecond
	DefaultMinInterval = time.Second
	DefaultSaveTimeout = 30 * time.Second
)

// ErrWriterClosed is returned by Flush after Close.
var ErrWriterClosed = errors.New("cloud writer is closed")

// SaveFunc performs one cloud save.
type SaveFunc func(ctx context.Context, userID string, convs []model.Conversation) error

// WriterOptions tunes a CloudWriter. Zero values select the defaults; a
// negative MinInterval disables pacing.
type WriterOptions struct {
	Debounce    time.Duration
	MinInterval time.Duration
	SaveTimeout time.Duration
	Logger      *slog.Logger
}

// WriterStats counts completed cloud saves.
type WriterStats struct {
	Saved  int
	Failed int
}

type snapshot struct {
	userID string
	convs  []model.Conversation
}

// CloudWriter sends conversation snapshots to the cloud in the background.
// Enqueue never blocks on the network.
type CloudWriter struct {
	save     SaveFunc
	debounce time.Duration
	timeout  time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger

	mu      sync.Mutex
	pending *snapshot
	closed  bool
	stats   WriterStats

	ctx      context.Context
	cancel   context.CancelFunc
	kick     chan struct{}
	flushReq chan chan struct{}
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewCloudWriter starts the writer goroutine. Call Close to stop it.
func NewCloudWriter(save SaveFunc, opts WriterOptions) *CloudWriter {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = DefaultSaveTimeout
	}
	if opts.MinInterval == 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &CloudWriter{
		save:     save,
		debounce: opts.Debounce,
		timeout:  opts.SaveTimeout,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		kick:     make(chan struct{}, 1),
		flushReq: make(chan chan struct{}),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// Enqueue replaces any unsent snapshot with convs and restarts the debounce
// timer. The slice is copied.
func (w *CloudWriter) Enqueue(userID string, convs []model.Conversation) {
	snap := &snapshot{userID: userID, convs: model.CloneAll(convs)}
	if snap.convs == nil {
		snap.convs = []model.Conversation{}
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Debug("cloud writer closed, dropping snapshot")
		return
	}
	w.pending = snap
	w.mu.Unlock()

	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Pending reports whether a snapshot is waiting to be sent.
func (w *CloudWriter) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != nil
}

// Stats returns save counters.
func (w *CloudWriter) Stats() WriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Flush sends the pending snapshot now, skipping the debounce, and waits for
// it to finish.
func (w *CloudWriter) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case w.flushReq <- ack:
	case <-w.done:
		return ErrWriterClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close sends any pending snapshot and stops the writer. If ctx expires
// first the in-flight save is cancelled.
func (w *CloudWriter) Close(ctx context.Context) error {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.quit)
	})
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.cancel()
		<-w.done
		return ctx.Err()
	}
}

func (w *CloudWriter) run() {
	defer close(w.done)
	defer w.cancel()

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-w.kick:
			timer.Reset(w.debounce)
		case <-timer.C:
			w.drain()
		case ack := <-w.flushReq:
			timer.Stop()
			w.drain()
			close(ack)
		case <-w.quit:
			timer.Stop()
			w.drain()
			return
		}
	}
}

// drain sends the newest snapshot, if any. Only run calls it, so saves never
// overlap and a newer snapshot is always sent after an older one.
func (w *CloudWriter) drain() {
	w.mu.Lock()
	snap := w.pending
	w.pending = nil
	w.mu.Unlock()
	if snap == nil {
		return
	}

	if err := w.limiter.Wait(w.ctx); err != nil {
		w.logger.Warn("cloud save skipped", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	start := time.Now()
	err := w.save(ctx, snap.userID, snap.convs)
	cancel()

	w.mu.Lock()
	if err != nil {
		w.stats.Failed++
	} else {
		w.stats.Saved++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("cloud save failed, local copy kept", "user", snap.userID, "error", err)
		return
	}
	w.logger.Debug("cloud save completed",
		"user", snap.userID, "conversations", len(snap.convs), "duration", time.Since(start))
}
