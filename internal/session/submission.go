package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/snonux/ankify/internal/ankiconnect"
	"codeberg.org/snonux/ankify/internal/capture"
	"codeberg.org/snonux/ankify/internal/journal"
	"codeberg.org/snonux/ankify/internal/logging"
)

// SuccessCloseDelay is how long the success message stays visible before the
// caller clears the form and hides the window
const SuccessCloseDelay = time.Second

// NoteStore is the part of *ankiconnect.Client the controller needs
type NoteStore interface {
	AddNote(ctx context.Context, note ankiconnect.Note) (int64, error)
	Version(ctx context.Context) (int, error)
}

// Recorder stores submitted notes; *journal.Store implements it
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Form is the user-edited card. Submit never modifies it.
type Form struct {
	Front     string
	Back      string
	DeckName  string
	Context   capture.Context
	SessionID string
}

// Kind classifies an Outcome
type Kind int

const (
	KindSuccess Kind = iota
	KindValidationFailed
	KindConnectionUnavailable
	KindRemoteRejection
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindValidationFailed:
		return "validation failed"
	case KindConnectionUnavailable:
		return "connection unavailable"
	case KindRemoteRejection:
		return "remote rejection"
	case KindBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Outcome is the result of one Submit
type Outcome struct {
	Kind        Kind
	NoteID      int64
	Tags        []string
	Message     string
	Err         error
	FieldErrors map[string]string
}

// OK reports whether the note was added
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// SubmissionController turns forms into notes, one submission at a time
type SubmissionController struct {
	store    NoteStore
	recorder Recorder
	logger   *slog.Logger

	inProgress atomic.Bool
	connected  atomic.Bool

	mu           sync.Mutex
	onConnection func(bool)
}

// NewSubmissionController creates a controller. recorder may be nil.
func NewSubmissionController(store NoteStore, recorder Recorder, logger *slog.Logger) *SubmissionController {
	c := &SubmissionController{
		store:    store,
		recorder: recorder,
		logger:   logging.OrDefault(logger),
	}
	c.connected.Store(true)
	return c
}

// OnConnectionChange registers a callback for connection flag changes
func (c *SubmissionController) OnConnectionChange(fn func(connected bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnection = fn
}

// InProgress reports whether a submission is running
func (c *SubmissionController) InProgress() bool {
	return c.inProgress.Load()
}

// Connected reports whether the last contact with Anki succeeded
func (c *SubmissionController) Connected() bool {
	return c.connected.Load()
}

// CheckConnection pings Anki and updates the connection flag
func (c *SubmissionController) CheckConnection(ctx context.Context) error {
	version, err := c.store.Version(ctx)
	if err != nil {
		if errors.Is(err, ankiconnect.ErrUnreachable) {
			c.setConnected(false)
		}
		c.logger.Warn("Anki connection check failed", "error", err)
		return err
	}

	c.setConnected(true)
	c.logger.Debug("Anki connection ok", "version", version)
	return nil
}

// Submit validates f and adds it as a note. A submission started while
// another one runs returns KindBusy without contacting Anki.
func (c *SubmissionController) Submit(ctx context.Context, f Form) Outcome {
	if !c.inProgress.CompareAndSwap(false, true) {
		return Outcome{Kind: KindBusy, Message: "A submission is already in progress"}
	}
	defer c.inProgress.Store(false)

	if err := ValidateForm(f); err != nil {
		out := Outcome{Kind: KindValidationFailed, Message: err.Error(), Err: err}
		var verr *ValidationError
		if errors.As(err, &verr) {
			out.FieldErrors = verr.Fields
		}
		return out
	}

	tags := DeriveTags(f.Context)
	deck := strings.TrimSpace(f.DeckName)
	note := ankiconnect.NewNote(deck, f.Front, f.Back, tags)

	id, err := c.store.AddNote(ctx, note)
	if err != nil {
		return c.failure(f, err)
	}
	c.setConnected(true)

	c.logger.Info("Note added",
		"note_id", id,
		"deck", deck,
		"tags", strings.Join(tags, " "),
		"session", f.SessionID)

	c.record(ctx, f, note, id)

	return Outcome{
		Kind:    KindSuccess,
		NoteID:  id,
		Tags:    tags,
		Message: fmt.Sprintf("Card added to %s", deck),
	}
}

func (c *SubmissionController) failure(f Form, err error) Outcome {
	var remote *ankiconnect.RemoteError

	switch {
	case errors.Is(err, ankiconnect.ErrUnreachable):
		c.setConnected(false)
		c.logger.Warn("Anki is unreachable", "error", err, "session", f.SessionID)
		return Outcome{Kind: KindConnectionUnavailable, Message: err.Error(), Err: err}
	case errors.As(err, &remote):
		c.logger.Warn("Anki rejected the note", "error", remote.Message, "session", f.SessionID)
		return Outcome{Kind: KindRemoteRejection, Message: remote.Message, Err: err}
	default:
		c.logger.Error("Adding note failed", "error", err, "session", f.SessionID)
		return Outcome{Kind: KindRemoteRejection, Message: err.Error(), Err: err}
	}
}

func (c *SubmissionController) record(ctx context.Context, f Form, note ankiconnect.Note, id int64) {
	if c.recorder == nil {
		return
	}

	err := c.recorder.Record(ctx, journal.Entry{
		NoteID:    id,
		DeckName:  note.DeckName,
		Front:     note.Fields.Front,
		Back:      note.Fields.Back,
		Tags:      note.Tags,
		SourceApp: f.Context.SourceAppName,
		SourceURL: f.Context.SourceURL,
		SessionID: f.SessionID,
	})
	if err != nil {
		c.logger.Warn("Failed to record note in journal", "note_id", id, "error", err)
	}
}

func (c *SubmissionController) setConnected(ok bool) {
	if c.connected.Swap(ok) == ok {
		return
	}

	c.mu.Lock()
	fn := c.onConnection
	c.mu.Unlock()

	if fn != nil {
		fn(ok)
	}
}
