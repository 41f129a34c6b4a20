package session

import (
	"context"
	"log/slog"
	"sync"
	"unicode/utf8"

	"codeberg.org/snonux/ankify/internal"
	"codeberg.org/snonux/ankify/internal/capture"
	"codeberg.org/snonux/ankify/internal/logging"
	"codeberg.org/snonux/ankify/internal/suggest"
)

// State of the suggestion list
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Generator produces suggestions; *suggest.Generator implements it
type Generator interface {
	Generate(ctx context.Context, req suggest.Request) (suggest.Response, error)
}

// Snapshot is a copy of the controller state handed to observers
type Snapshot struct {
	State       State
	Suggestions []suggest.CardSuggestion
	Err         error
	Context     capture.Context
	ElapsedMs   int64
	Seq         uint64
}

// ErrorMessage returns the failure text, or "" when there is none
func (s Snapshot) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// SuggestionController runs generation for new input and applies only the
// result belonging to the most recent input.
type SuggestionController struct {
	generator Generator
	logger    *slog.Logger

	// notifyMu keeps observer callbacks in the order the state changed
	notifyMu sync.Mutex
	onChange func(Snapshot)

	mu          sync.Mutex
	seq         uint64
	evaluated   bool
	lastText    string
	state       State
	suggestions []suggest.CardSuggestion
	err         error
	context     capture.Context
	elapsedMs   int64

	wg sync.WaitGroup
}

// NewSuggestionController creates an idle controller
func NewSuggestionController(generator Generator, logger *slog.Logger) *SuggestionController {
	return &SuggestionController{
		generator: generator,
		logger:    logging.OrDefault(logger),
	}
}

// OnChange registers the observer called after every state change. It must
// not call Update or DismissError synchronously.
func (c *SuggestionController) OnChange(fn func(Snapshot)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.onChange = fn
}

// Update evaluates a newly captured context. Text identical to the last
// evaluated text is ignored. Text too short to generate from clears the list
// and supersedes any request still in flight.
func (c *SuggestionController) Update(ctx context.Context, cc capture.Context) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.evaluated && cc.ClipboardText == c.lastText {
		c.mu.Unlock()
		return
	}

	c.evaluated = true
	c.lastText = cc.ClipboardText
	c.seq++
	seq := c.seq
	c.context = cc
	c.err = nil
	c.suggestions = nil
	c.elapsedMs = 0

	if utf8.RuneCountInString(cc.ClipboardText) < suggest.MinSourceLength {
		c.state = StateIdle
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return
	}

	c.state = StateLoading
	snap := c.snapshotLocked()
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Debug("Generating suggestions",
		"seq", seq,
		"app", cc.SourceAppName,
		"text", internal.Preview(cc.ClipboardText, 40))
	c.notify(snap)

	go c.run(ctx, seq, suggest.NewRequest(cc))
}

func (c *SuggestionController) run(ctx context.Context, seq uint64, req suggest.Request) {
	defer c.wg.Done()

	resp, err := c.generator.Generate(ctx, req)

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if seq != c.seq {
		current := c.seq
		c.mu.Unlock()
		c.logger.Debug("Discarding stale suggestions", "seq", seq, "current", current)
		return
	}

	c.elapsedMs = resp.ElapsedMs
	if err != nil {
		c.state = StateFailed
		c.err = err
		c.suggestions = nil
	} else {
		c.state = StateReady
		c.err = nil
		c.suggestions = resp.Suggestions
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Reset ends the current editing session. The captured context and any
// result are discarded, a generation still in flight is superseded, and the
// next Update evaluates its text even if it equals the previous one.
func (c *SuggestionController) Reset() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.seq++
	c.evaluated = false
	c.lastText = ""
	c.state = StateIdle
	c.context = capture.Context{}
	c.err = nil
	c.suggestions = nil
	c.elapsedMs = 0
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// DismissError clears a failure so the inline message disappears. Manual
// entry is never blocked by it.
func (c *SuggestionController) DismissError() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.state != StateFailed {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.err = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Snapshot returns the current state
func (c *SuggestionController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Select returns the n-th suggestion, counting from 1
func (c *SuggestionController) Select(n int) (suggest.CardSuggestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady || n < 1 || n > len(c.suggestions) {
		return suggest.CardSuggestion{}, false
	}
	return c.suggestions[n-1], true
}

// Wait blocks until all started generations have returned
func (c *SuggestionController) Wait() {
	c.wg.Wait()
}

func (c *SuggestionController) snapshotLocked() Snapshot {
	return Snapshot{
		State:       c.state,
		Suggestions: append([]suggest.CardSuggestion(nil), c.suggestions...),
		Err:         c.err,
		Context:     c.context,
		ElapsedMs:   c.elapsedMs,
		Seq:         c.seq,
	}
}

// notify must be called with notifyMu held
func (c *SuggestionController) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
