package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"codeberg.org/snonux/ankify/internal/capture"
	"codeberg.org/snonux/ankify/internal/logging"
	"codeberg.org/snonux/ankify/internal/suggest"
)

// gatedGenerator blocks each request until its text is released
type gatedGenerator struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	calls   []string
	started chan string
	errs    map[string]error
}

func newGatedGenerator() *gatedGenerator {
	return &gatedGenerator{
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 16),
		errs:    make(map[string]error),
	}
}

func (g *gatedGenerator) gate(text string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.gates[text]; !ok {
		g.gates[text] = make(chan struct{})
	}
	return g.gates[text]
}

func (g *gatedGenerator) release(text string) {
	close(g.gate(text))
}

func (g *gatedGenerator) Generate(ctx context.Context, req suggest.Request) (suggest.Response, error) {
	gate := g.gate(req.SourceText)

	g.mu.Lock()
	g.calls = append(g.calls, req.SourceText)
	err := g.errs[req.SourceText]
	g.mu.Unlock()

	g.started <- req.SourceText
	<-gate

	resp := suggest.Response{SourceText: req.SourceText, ElapsedMs: 5}
	if err != nil {
		return resp, err
	}
	resp.Suggestions = []suggest.CardSuggestion{{Front: "Q for " + req.SourceText, Back: "A", Confidence: 0.9}}
	return resp, nil
}

func (g *gatedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func waitStarted(t *testing.T, g *gatedGenerator, text string) {
	t.Helper()
	select {
	case got := <-g.started:
		if got != text {
			t.Fatalf("Expected generation for %q to start, got %q", text, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Generation for %q did not start", text)
	}
}

const (
	textA = "The mitochondria is the powerhouse of the cell."
	textB = "Ribosomes synthesise proteins from messenger RNA."
)

func TestSuggestionController_Ready(t *testing.T) {
	gen := newGatedGenerator()
	c := NewSuggestionController(gen, logging.Discard())

	var states []State
	var mu sync.Mutex
	c.OnChange(func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	c.Update(context.Background(), capture.Context{ClipboardText: textA})
	waitStarted(t, gen, textA)
	if s := c.Snapshot(); s.State != StateLoading {
		t.Errorf("Expected loading, got %s", s.State)
	}

	gen.release(textA)
	c.Wait()

	s := c.Snapshot()
	if s.State != StateReady || len(s.Suggestions) != 1 || s.Suggestions[0].Front != "Q for "+textA {
		t.Errorf("Unexpected snapshot: %+v", s)
	}
	if s.ElapsedMs != 5 {
		t.Errorf("Expected elapsed 5, got %d", s.ElapsedMs)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || states[0] != StateLoading || states[1] != StateReady {
		t.Errorf("Expected loading then ready notifications, got %v", states)
	}
}

func TestSuggestionController_StaleResultDiscarded(t *testing.T) {
	gen := newGatedGenerator()
	c := NewSuggestionController(gen, logging.Discard())

	var applied []string
	var mu sync.Mutex
	c.OnChange(func(s Snapshot) {
		if s.State == StateReady {
			mu.Lock()
			applied = append(applied, s.Suggestions[0].Front)
			mu.Unlock()
		}
	})

	c.Update(context.Background(), capture.Context{ClipboardText: textA})
	waitStarted(t, gen, textA)
	c.Update(context.Background(), capture.Context{ClipboardText: textB})
	waitStarted(t, gen, textB)

	// B answers first, A arrives late
	gen.release(textB)
	gen.release(textA)
	c.Wait()

	s := c.Snapshot()
	if s.State != StateReady {
		t.Fatalf("Expected ready, got %s", s.State)
	}
	if got := s.Suggestions[0].Front; got != "Q for "+textB {
		t.Errorf("Expected suggestions for B, got %q", got)
	}
	if s.Context.ClipboardText != textB {
		t.Errorf("Expected context B, got %q", s.Context.ClipboardText)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(applied) != 1 || applied[0] != "Q for "+textB {
		t.Errorf("Expected exactly B's result to be applied, got %v", applied)
	}
}

func TestSuggestionController_StaleResultArrivingFirst(t *testing.T) {
	gen := newGatedGenerator()
	c := NewSuggestionController(gen, logging.Discard())

	c.Update(context.Background(), capture.Context{ClipboardText: textA})
	waitStarted(t, gen, textA)
	c.Update(context.Background(), capture.Context{ClipboardText: textB})
	waitStarted(t, gen, textB)

	gen.release(textA)
	time.Sleep(20 * time.Millisecond)
	if s := c.Snapshot(); s.State != StateLoading {
		t.Errorf("Stale result must not leave loading state, got %s", s.State)
	}

	gen.release(textB)
	c.Wait()

	if got := c.Snapshot().Suggestions[0].Front; got != "Q for "+textB {
		t.Errorf("Expected suggestions for B, got %q", got)
	}
}

func TestSuggestionController_SameTextIsNoop(t *testing.T) {
	gen := newGatedGenerator()
	c := NewSuggestionController(gen, logging.Discard())

	c.Update(context.Background(), capture.Context{ClipboardText: textA})
	waitStarted(t, gen, textA)
	gen.release(textA)
	c.Wait()

	before := c.Snapshot()
	c.Update(context.Background(), capture.Context{ClipboardText: textA, SourceAppName: "Other"})
	c.Wait()

	if gen.callCount() != 1 {
		t.Errorf("Expected a single generation, got %d", gen.callCount())
	}
	if after := c.Snapshot(); after.Seq != before.Seq || after.State != StateReady {
		t.Errorf("Same text must not change state: before %+v after %+v", before, after)
	}
}

func TestSuggestionController_ShortTextSupersedes(t *testing.T) {
	gen := newGatedGenerator()
	c := NewSuggestionController(gen, logging.Discard())

	c.Update(context.Background(), capture.Context{ClipboardText: textA})
	waitStarted(t, gen, textA)

	c.Update(context.Background(), capture.Context{ClipboardText: "short"})
	if s := c.Snapshot(); s.State != StateIdle || len(s.Suggestions) != 0 {
		t.Errorf("Expected idle with no suggestions, got %+v", s)
	}

	gen.release(textA)
	c.Wait()

	if s := c.Snapshot(); s.State != StateIdle || len(s.Suggestions) != 0 {
		t.Errorf("Superseded result must be discarded, got %+v", s)
	}
	if gen.callCount() != 1 {
		t.Errorf("Short text must not be generated, got %d calls", gen.callCount())
	}
}

func TestSuggestionController_FailureAndDismiss(t *testing.T) {
	gen := newGatedGenerator()
	gen.errs[textA] = suggest.ErrMalformedReply
	c := NewSuggestionController(gen, logging.Discard())

	c.Update(context.Background(), capture.Context{ClipboardText: textA})
	waitStarted(t, gen, textA)
	gen.release(textA)
	c.Wait()

	s := c.Snapshot()
	if s.State != StateFailed || len(s.Suggestions) != 0 {
		t.Fatalf("Expected failed with no suggestions, got %+v", s)
	}
	if !errors.Is(s.Err, suggest.ErrGenerationFailed) || s.ErrorMessage() == "" {
		t.Errorf("Expected generation failure, got %v", s.Err)
	}

	c.DismissError()
	if s := c.Snapshot(); s.State != StateIdle || s.Err != nil {
		t.Errorf("Expected idle after dismiss, got %+v", s)
	}
}

func TestSuggestionController_ResetStartsFreshSession(t *testing.T) {
	gen := newGatedGenerator()
	gen.errs[textA] = suggest.ErrProviderCall
	c := NewSuggestionController(gen, logging.Discard())

	c.Update(context.Background(), capture.Context{ClipboardText: textA, SourceAppName: "Preview"})
	waitStarted(t, gen, textA)
	gen.release(textA)
	c.Wait()
	if s := c.Snapshot(); s.State != StateFailed {
		t.Fatalf("Expected failed first session, got %s", s.State)
	}

	gen.mu.Lock()
	delete(gen.errs, textA)
	gen.mu.Unlock()

	c.Reset()
	if s := c.Snapshot(); s.State != StateIdle || s.Err != nil || s.Context.SourceAppName != "" {
		t.Fatalf("Expected a cleared idle snapshot after reset, got %+v", s)
	}

	c.Update(context.Background(), capture.Context{ClipboardText: textA, SourceAppName: "Safari"})
	waitStarted(t, gen, textA)
	c.Wait()

	s := c.Snapshot()
	if s.State != StateReady || len(s.Suggestions) != 1 {
		t.Fatalf("Expected ready in the new session, got %+v", s)
	}
	if s.Context.SourceAppName != "Safari" {
		t.Errorf("Expected the new session's context, got %q", s.Context.SourceAppName)
	}
	if gen.callCount() != 2 {
		t.Errorf("Expected 2 generator calls, got %d", gen.callCount())
	}
}

func TestSuggestionController_ResetSupersedesInFlight(t *testing.T) {
	gen := newGatedGenerator()
	c := NewSuggestionController(gen, logging.Discard())

	c.Update(context.Background(), capture.Context{ClipboardText: textA})
	waitStarted(t, gen, textA)

	c.Reset()
	gen.release(textA)
	c.Wait()

	if s := c.Snapshot(); s.State != StateIdle || len(s.Suggestions) != 0 {
		t.Errorf("Expected result from the ended session to be discarded, got %+v", s)
	}
}

func TestSuggestionController_Select(t *testing.T) {
	gen := newGatedGenerator()
	c := NewSuggestionController(gen, logging.Discard())

	if _, ok := c.Select(1); ok {
		t.Error("Select must fail before any suggestions exist")
	}

	c.Update(context.Background(), capture.Context{ClipboardText: textA})
	waitStarted(t, gen, textA)
	gen.release(textA)
	c.Wait()

	s, ok := c.Select(1)
	if !ok || s.Front != "Q for "+textA {
		t.Errorf("Select(1) = %+v, %v", s, ok)
	}
	for _, n := range []int{0, 2, 3, -1} {
		if _, ok := c.Select(n); ok {
			t.Errorf("Select(%d) must fail with one suggestion", n)
		}
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateIdle:    "idle",
		StateLoading: "loading",
		StateReady:   "ready",
		StateFailed:  "failed",
		State(42):    "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
