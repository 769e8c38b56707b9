// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package suggest implements the compose-box suggestion client: it debounces
// edits, asks the server for a rephrased version of the text, shows it above
// the input and records usage when the user accepts it.
package suggest

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/polite/internal/model"
)

// DefaultDebounce is the quiet period after the last edit before a
// rephrase request is issued.
const DefaultDebounce = 500 * time.Millisecond

// Composer is the host input box. Its methods are called with the client
// lock held and must not call back into the Client.
type Composer interface {
	Text() string
	SetText(text string)
	MoveCursorToEnd()
	ShowSuggestion(text string)
	HideSuggestion()
}

// State is the client state.
type State int

const (
	Idle State = iota
	Pending
	Showing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Showing:
		return "showing"
	default:
		return "unknown"
	}
}

// Options configures a Client.
type Options struct {
	Debounce time.Duration
	Clock    Clock
	Logger   *slog.Logger
}

// Client is the suggestion state machine. It is safe for concurrent use.
type Client struct {
	composer Composer
	api      API
	ids      IDStore
	debounce time.Duration
	clock    Clock
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	timer    Timer
	timerGen uint64
	seq      uint64
	visible  bool
	cache    model.Suggestion

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient creates a client bound to a composer.
func NewClient(composer Composer, api API, ids IDStore, opts Options) *Client {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		composer: composer,
		api:      api,
		ids:      ids,
		debounce: opts.Debounce,
		clock:    opts.Clock,
		logger:   opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnInput handles an edit of the input box.
func (c *Client) OnInput() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.TrimSpace(c.composer.Text()) == "" {
		c.resetLocked()
		return
	}

	c.stopTimerLocked()
	gen := c.timerGen
	c.timer = c.clock.AfterFunc(c.debounce, func() { c.fire(gen) })
	c.state = Pending
}

// OnSubmit handles the host sending the message. The suggestion is
// dismissed, never applied.
func (c *Client) OnSubmit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// Accept replaces the input text with the visible suggestion and reports
// the usage in the background. It returns false when nothing is visible.
func (c *Client) Accept() bool {
	c.mu.Lock()
	if !c.visible {
		c.mu.Unlock()
		return false
	}

	s := c.cache
	c.composer.SetText(s.Rephrased)
	c.composer.MoveCursorToEnd()
	c.resetLocked()
	ts := c.clock.Now().UnixMilli()

	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.recordUsage(ts, s)
	}()
	return true
}

// State returns the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Suggestion returns the last cached suggestion.
func (c *Client) Suggestion() model.Suggestion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache
}

// Wait blocks until in-flight requests and usage reports have finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Close drops the pending debounce, aborts in-flight rephrase requests and
// waits for them and for usage reports to finish.
func (c *Client) Close() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.seq++
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Client) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.timerGen || c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.seq++
	seq := c.seq
	text := c.composer.Text()
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		res, err := c.api.Rephrase(c.ctx, text)
		c.complete(seq, text, res, err)
	}()
}

func (c *Client) complete(seq uint64, text string, res RephraseResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		c.logger.Debug("discarding stale suggestion", "seq", seq, "latest", c.seq)
		return
	}
	if err != nil || res.Rephrased == "" {
		if err != nil {
			c.logger.Debug("rephrase request failed", "error", err)
		}
		c.hideLocked()
		if c.timer == nil {
			c.state = Idle
		} else {
			c.state = Pending
		}
		return
	}

	tone := res.Tone
	if tone == "" {
		tone = model.ToneNeutral
	}
	original := res.Original
	if original == "" {
		original = text
	}
	c.cache = model.Suggestion{Tone: tone, Original: original, Rephrased: res.Rephrased}
	c.composer.ShowSuggestion(res.Rephrased)
	c.visible = true
	if c.timer == nil {
		c.state = Showing
	} else {
		c.state = Pending
	}
}

func (c *Client) recordUsage(ts int64, s model.Suggestion) {
	user, err := c.ids.ID()
	if err != nil {
		c.logger.Debug("anonymous id unavailable, usage not recorded", "error", err)
		return
	}

	payload := UsagePayload{
		TS:        ts,
		User:      user,
		Tone:      s.Tone,
		Original:  s.Original,
		Rephrased: s.Rephrased,
	}
	// Reports already accepted are delivered even when the client closes.
	if err := c.api.RecordUsage(context.WithoutCancel(c.ctx), payload); err != nil {
		c.logger.Debug("usage report failed", "error", err)
	}
}

// resetLocked hides the suggestion, drops the pending debounce and
// invalidates in-flight responses.
func (c *Client) resetLocked() {
	c.hideLocked()
	c.stopTimerLocked()
	c.seq++
	c.state = Idle
}

func (c *Client) hideLocked() {
	if c.visible {
		c.composer.HideSuggestion()
		c.visible = false
	}
}

func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	// A callback already past Stop sees a newer generation and returns.
	c.timerGen++
}
