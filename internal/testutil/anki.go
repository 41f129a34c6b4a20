package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// AnkiCall is one request received by FakeAnki
type AnkiCall struct {
	Action  string          `json:"action"`
	Version int             `json:"version"`
	Params  json.RawMessage `json:"params"`
}

// AnkiHandler answers one action. A non-empty errMsg is sent as the reply's
// error field with a null result.
type AnkiHandler func(params json.RawMessage) (result any, errMsg string)

// FakeAnki is an in-process AnkiConnect endpoint
type FakeAnki struct {
	Server *httptest.Server

	mu       sync.Mutex
	calls    []AnkiCall
	handlers map[string]AnkiHandler
	nextID   int64
}

// NewFakeAnki starts a fake endpoint that knows version, deckNames,
// modelNames, addNote and findNotes. It is closed with the test.
func NewFakeAnki(t *testing.T) *FakeAnki {
	t.Helper()

	f := &FakeAnki{nextID: 1700000000000}
	f.handlers = map[string]AnkiHandler{
		"version": func(json.RawMessage) (any, string) {
			return 6, ""
		},
		"deckNames": func(json.RawMessage) (any, string) {
			return []string{"Default", "Test"}, ""
		},
		"modelNames": func(json.RawMessage) (any, string) {
			return []string{"Basic", "Cloze"}, ""
		},
		"addNote": func(json.RawMessage) (any, string) {
			f.nextID++
			return f.nextID, ""
		},
		"findNotes": func(json.RawMessage) (any, string) {
			return []int64{}, ""
		},
	}

	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the endpoint URL
func (f *FakeAnki) URL() string {
	return f.Server.URL
}

// Handle replaces the handler for an action
func (f *FakeAnki) Handle(action string, h AnkiHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[action] = h
}

// Calls returns a copy of all received requests
func (f *FakeAnki) Calls() []AnkiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]AnkiCall{}, f.calls...)
}

// CallCount returns how often an action was requested
func (f *FakeAnki) CallCount(action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if c.Action == action {
			n++
		}
	}
	return n
}

func (f *FakeAnki) serve(w http.ResponseWriter, r *http.Request) {
	var call AnkiCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	h, ok := f.handlers[call.Action]
	var (
		result any
		errMsg string
	)
	if ok {
		result, errMsg = h(call.Params)
	} else {
		errMsg = "unsupported action"
	}
	f.mu.Unlock()

	reply := map[string]any{"result": result, "error": nil}
	if errMsg != "" {
		reply["result"] = nil
		reply["error"] = errMsg
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reply)
}

// UnreachableURL returns the URL of a server that has already been shut
// down, so connecting to it is refused.
func UnreachableURL(t *testing.T) string {
	t.Helper()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}
