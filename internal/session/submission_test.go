package session

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"codeberg.org/snonux/ankify/internal/ankiconnect"
	"codeberg.org/snonux/ankify/internal/capture"
	"codeberg.org/snonux/ankify/internal/journal"
	"codeberg.org/snonux/ankify/internal/logging"
	"codeberg.org/snonux/ankify/internal/testutil"
)

type memoryRecorder struct {
	mu      sync.Mutex
	entries []journal.Entry
	err     error
}

func (r *memoryRecorder) Record(ctx context.Context, e journal.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

func newTestSubmission(t *testing.T, url string, rec Recorder) *SubmissionController {
	t.Helper()
	client := ankiconnect.NewClient(url, ankiconnect.WithLogger(logging.Discard()))
	return NewSubmissionController(client, rec, logging.Discard())
}

func chromeForm() Form {
	return Form{
		Front:    "What is 2+2?",
		Back:     "4",
		DeckName: "Test",
		Context: capture.Context{
			ClipboardText: "Simple arithmetic facts",
			SourceAppName: "Google Chrome",
			SourceURL:     "https://example.com/page",
			CapturedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		SessionID: "session-1",
	}
}

func TestSubmit_Success(t *testing.T) {
	fake := testutil.NewFakeAnki(t)
	rec := &memoryRecorder{}
	c := newTestSubmission(t, fake.URL(), rec)

	out := c.Submit(context.Background(), chromeForm())
	if !out.OK() {
		t.Fatalf("Expected success, got %s: %s", out.Kind, out.Message)
	}
	if out.NoteID == 0 {
		t.Error("Expected a note id")
	}

	calls := fake.Calls()
	if len(calls) != 1 || calls[0].Action != "addNote" {
		t.Fatalf("Expected one addNote call, got %+v", calls)
	}

	var params struct {
		Note ankiconnect.Note `json:"note"`
	}
	if err := json.Unmarshal(calls[0].Params, &params); err != nil {
		t.Fatalf("Failed to decode params: %v", err)
	}
	note := params.Note

	wantTags := []string{"ankify", "source:Google-Chrome", "url:example-com"}
	if !reflect.DeepEqual(note.Tags, wantTags) {
		t.Errorf("Expected tags %v, got %v", wantTags, note.Tags)
	}
	if note.ModelName != "Basic" || note.DeckName != "Test" {
		t.Errorf("Unexpected model/deck: %s/%s", note.ModelName, note.DeckName)
	}
	if note.Fields.Front != "What is 2+2?" || note.Fields.Back != "4" {
		t.Errorf("Unexpected fields: %+v", note.Fields)
	}
	if note.Options.AllowDuplicate || note.Options.DuplicateScope != ankiconnect.ScopeDeck {
		t.Errorf("Duplicates must be refused within the deck: %+v", note.Options)
	}

	if len(rec.entries) != 1 {
		t.Fatalf("Expected one journal entry, got %d", len(rec.entries))
	}
	e := rec.entries[0]
	if e.NoteID != out.NoteID || e.SessionID != "session-1" || e.SourceURL != "https://example.com/page" {
		t.Errorf("Unexpected journal entry: %+v", e)
	}
}

func TestSubmit_SendsFieldsAsTyped(t *testing.T) {
	fake := testutil.NewFakeAnki(t)
	c := newTestSubmission(t, fake.URL(), nil)

	f := chromeForm()
	f.Front = "What does this print?\n"
	f.Back = "    fmt.Println(x)\n"
	if out := c.Submit(context.Background(), f); !out.OK() {
		t.Fatalf("Expected success, got %s: %s", out.Kind, out.Message)
	}

	var params struct {
		Note ankiconnect.Note `json:"note"`
	}
	if err := json.Unmarshal(fake.Calls()[0].Params, &params); err != nil {
		t.Fatalf("Failed to decode params: %v", err)
	}
	if params.Note.Fields.Front != f.Front || params.Note.Fields.Back != f.Back {
		t.Errorf("Expected fields unchanged, got %q / %q", params.Note.Fields.Front, params.Note.Fields.Back)
	}
}

func TestSubmit_BlankFieldsNeverContactAnki(t *testing.T) {
	fake := testutil.NewFakeAnki(t)
	c := newTestSubmission(t, fake.URL(), nil)

	tests := []struct {
		name  string
		front string
		back  string
		want  []string
	}{
		{"both empty", "", "", []string{FieldFront, FieldBack}},
		{"front whitespace", "  \n\t", "4", []string{FieldFront}},
		{"back whitespace", "What is 2+2?", "   ", []string{FieldBack}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := chromeForm()
			form.Front, form.Back = tt.front, tt.back

			out := c.Submit(context.Background(), form)
			if out.Kind != KindValidationFailed {
				t.Fatalf("Expected validation failure, got %s", out.Kind)
			}
			if len(out.FieldErrors) != len(tt.want) {
				t.Errorf("Expected field errors for %v, got %v", tt.want, out.FieldErrors)
			}
			for _, f := range tt.want {
				if out.FieldErrors[f] == "" {
					t.Errorf("Missing field error for %s", f)
				}
			}
		})
	}

	if n := len(fake.Calls()); n != 0 {
		t.Errorf("Expected no requests to Anki, got %d", n)
	}
}

func TestSubmit_FieldMessages(t *testing.T) {
	c := NewSubmissionController(nil, nil, logging.Discard())

	out := c.Submit(context.Background(), Form{Front: " ", Back: "", DeckName: ""})
	want := map[string]string{
		FieldFront: "Front side cannot be empty",
		FieldBack:  "Back side cannot be empty",
		FieldDeck:  "Deck cannot be empty",
	}
	if !reflect.DeepEqual(out.FieldErrors, want) {
		t.Errorf("Got %v, want %v", out.FieldErrors, want)
	}

	var verr *ValidationError
	if !errors.As(out.Err, &verr) {
		t.Errorf("Expected ValidationError, got %T", out.Err)
	}
}

func TestSubmit_UnreachableKeepsForm(t *testing.T) {
	c := newTestSubmission(t, testutil.UnreachableURL(t), nil)

	var changes []bool
	c.OnConnectionChange(func(ok bool) { changes = append(changes, ok) })

	form := Form{Front: "What is 2+2?", Back: "4", DeckName: "Test"}
	original := form

	out := c.Submit(context.Background(), form)
	if out.Kind != KindConnectionUnavailable {
		t.Fatalf("Expected ConnectionUnavailable, got %s (%s)", out.Kind, out.Message)
	}
	if out.Message != ankiconnect.UnreachableMessage {
		t.Errorf("Unexpected message: %q", out.Message)
	}
	if form != original || form.Front != "What is 2+2?" || form.Back != "4" {
		t.Errorf("Form must be unchanged, got %+v", form)
	}
	if c.Connected() {
		t.Error("Expected connection flag to be cleared")
	}
	if !reflect.DeepEqual(changes, []bool{false}) {
		t.Errorf("Expected one connection change to false, got %v", changes)
	}
}

func TestSubmit_RemoteRejection(t *testing.T) {
	fake := testutil.NewFakeAnki(t)
	fake.Handle("addNote", func(json.RawMessage) (any, string) {
		return nil, "cannot create note because it is a duplicate"
	})
	rec := &memoryRecorder{}
	c := newTestSubmission(t, fake.URL(), rec)

	out := c.Submit(context.Background(), chromeForm())
	if out.Kind != KindRemoteRejection {
		t.Fatalf("Expected RemoteRejection, got %s", out.Kind)
	}
	if out.Message != "cannot create note because it is a duplicate" {
		t.Errorf("Expected remote message verbatim, got %q", out.Message)
	}
	if !c.Connected() {
		t.Error("A remote rejection must not clear the connection flag")
	}
	if len(rec.entries) != 0 {
		t.Error("Rejected notes must not be journaled")
	}
}

func TestSubmit_JournalFailureIsNotFatal(t *testing.T) {
	fake := testutil.NewFakeAnki(t)
	rec := &memoryRecorder{err: errors.New("disk full")}
	c := newTestSubmission(t, fake.URL(), rec)

	if out := c.Submit(context.Background(), chromeForm()); !out.OK() {
		t.Errorf("Expected success despite journal failure, got %s", out.Kind)
	}
}

// blockingStore holds AddNote until released
type blockingStore struct {
	entered chan struct{}
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (s *blockingStore) AddNote(ctx context.Context, note ankiconnect.Note) (int64, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	s.entered <- struct{}{}
	<-s.release
	return 42, nil
}

func (s *blockingStore) Version(ctx context.Context) (int, error) {
	return 6, nil
}

func TestSubmit_BusyWhileInProgress(t *testing.T) {
	store := &blockingStore{entered: make(chan struct{}, 1), release: make(chan struct{})}
	c := NewSubmissionController(store, nil, logging.Discard())

	done := make(chan Outcome)
	go func() { done <- c.Submit(context.Background(), chromeForm()) }()
	<-store.entered

	if !c.InProgress() {
		t.Error("Expected InProgress while submitting")
	}
	if out := c.Submit(context.Background(), chromeForm()); out.Kind != KindBusy {
		t.Errorf("Expected Busy, got %s", out.Kind)
	}

	close(store.release)
	if out := <-done; !out.OK() || out.NoteID != 42 {
		t.Errorf("Expected first submission to succeed, got %+v", out)
	}
	if c.InProgress() {
		t.Error("Expected InProgress to be cleared")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.calls != 1 {
		t.Errorf("Expected one AddNote call, got %d", store.calls)
	}
}

func TestCheckConnection(t *testing.T) {
	fake := testutil.NewFakeAnki(t)
	c := newTestSubmission(t, testutil.UnreachableURL(t), nil)

	if err := c.CheckConnection(context.Background()); !errors.Is(err, ankiconnect.ErrUnreachable) {
		t.Errorf("Expected ErrUnreachable, got %v", err)
	}
	if c.Connected() {
		t.Error("Expected disconnected")
	}

	c = newTestSubmission(t, fake.URL(), nil)
	c.connected.Store(false)
	if err := c.CheckConnection(context.Background()); err != nil {
		t.Errorf("CheckConnection failed: %v", err)
	}
	if !c.Connected() {
		t.Error("Expected connection to be restored")
	}
}
