package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"codeberg.org/snonux/ankify/internal"
	"codeberg.org/snonux/ankify/internal/ankiconnect"
	"codeberg.org/snonux/ankify/internal/capture"
	"codeberg.org/snonux/ankify/internal/cli"
	"codeberg.org/snonux/ankify/internal/gui"
	"codeberg.org/snonux/ankify/internal/journal"
	"codeberg.org/snonux/ankify/internal/logging"
	"codeberg.org/snonux/ankify/internal/models"
	"codeberg.org/snonux/ankify/internal/session"
	"codeberg.org/snonux/ankify/internal/suggest"
)

// ErrDuplicate is returned when the deck already holds a card with the same front
var ErrDuplicate = errors.New("card already exists in deck")

// Processor handles the command-line actions
type Processor struct {
	flags    *cli.Flags
	settings *cli.Settings
	logger   *slog.Logger
	out      io.Writer

	provider   capture.Provider
	generator  *suggest.Generator
	anki       *ankiconnect.Client
	journal    *journal.Store
	submission *session.SubmissionController
}

// NewProcessor creates the components described by settings. The journal is
// opened when enabled; a journal that cannot be opened is logged and skipped.
func NewProcessor(flags *cli.Flags, settings *cli.Settings, logger *slog.Logger) *Processor {
	logger = logging.OrDefault(logger)

	p := &Processor{
		flags:     flags,
		settings:  settings,
		logger:    logger,
		out:       os.Stdout,
		generator: suggest.NewGenerator(settings.GeneratorConfig(), logger),
		anki:      ankiconnect.NewClient(settings.AnkiURL, ankiconnect.WithLogger(logger)),
	}

	switch {
	case flags.ContextJSON != "":
		p.provider = capture.PayloadProvider{Path: flags.ContextJSON}
	case flags.Text != "":
		p.provider = capture.StaticProvider{Context: capture.Context{
			ClipboardText: flags.Text,
			SourceAppName: flags.App,
			SourceURL:     flags.URL,
		}}
	default:
		p.provider = capture.NewSystemProvider(logger)
	}

	if settings.JournalEnabled {
		store, err := journal.Open(settings.JournalPath)
		if err != nil {
			logger.Warn("Journal disabled", "path", settings.JournalPath, "error", err)
		} else {
			p.journal = store
		}
	}

	var recorder session.Recorder
	if p.journal != nil {
		recorder = p.journal
	}
	p.submission = session.NewSubmissionController(p.anki, recorder, logger)

	return p
}

// SetOutput redirects user-facing output, which goes to stdout by default
func (p *Processor) SetOutput(w io.Writer) {
	p.out = w
}

// Close releases the journal
func (p *Processor) Close() error {
	if p.journal != nil {
		return p.journal.Close()
	}
	return nil
}

// deck returns the resolved anki.deck setting, which already reflects --deck
func (p *Processor) deck() string {
	if p.settings.Deck != "" {
		return p.settings.Deck
	}
	return p.flags.Deck
}

// Suggest captures the current context, prints numbered suggestions and
// returns them
func (p *Processor) Suggest(ctx context.Context) ([]suggest.CardSuggestion, capture.Context, error) {
	cc, err := p.provider.Capture(ctx)
	if err != nil {
		return nil, cc, fmt.Errorf("failed to capture context: %w", err)
	}

	if strings.TrimSpace(cc.ClipboardText) == "" {
		return nil, cc, fmt.Errorf("nothing to generate from: clipboard is empty (use --text)")
	}

	fmt.Fprintf(p.out, "Source: %s", internal.Preview(cc.ClipboardText, 60))
	if cc.HasApp() {
		fmt.Fprintf(p.out, " (%s)", cc.SourceAppName)
	}
	fmt.Fprintln(p.out)

	resp, err := p.generator.Generate(ctx, suggest.NewRequest(cc))
	if err != nil {
		return nil, cc, err
	}

	if len(resp.Suggestions) == 0 {
		if utf8.RuneCountInString(cc.ClipboardText) < suggest.MinSourceLength {
			fmt.Fprintf(p.out, "No suggestions (text needs at least %d characters)\n", suggest.MinSourceLength)
		} else {
			fmt.Fprintln(p.out, "No suggestions for this text")
		}
		return nil, cc, nil
	}

	fmt.Fprintf(p.out, "Suggestions (%d ms):\n", resp.ElapsedMs)
	for i, s := range resp.Suggestions {
		fmt.Fprintf(p.out, "\n  %d. [%3.0f%%] %s\n", i+1, s.Confidence*100, s.Front)
		fmt.Fprintf(p.out, "     %s\n", s.Back)
		if s.Reasoning != "" {
			fmt.Fprintf(p.out, "     (%s)\n", s.Reasoning)
		}
	}

	return resp.Suggestions, cc, nil
}

// Pick generates suggestions and adds the n-th one
func (p *Processor) Pick(ctx context.Context, n int) error {
	suggestions, cc, err := p.Suggest(ctx)
	if err != nil {
		return err
	}

	if n < 1 || n > len(suggestions) {
		return fmt.Errorf("suggestion %d does not exist (got %d suggestions)", n, len(suggestions))
	}

	s := suggestions[n-1]
	fmt.Fprintf(p.out, "\nAdding suggestion %d\n", n)
	return p.add(ctx, s.Front, s.Back, cc)
}

// Add adds a card with the given front and back. The captured context only
// provides provenance tags.
func (p *Processor) Add(ctx context.Context, front, back string) error {
	cc, err := p.provider.Capture(ctx)
	if err != nil {
		p.logger.Warn("Failed to capture context, adding without provenance", "error", err)
		cc = capture.Context{}
	}
	return p.add(ctx, front, back, cc)
}

func (p *Processor) add(ctx context.Context, front, back string, cc capture.Context) error {
	deck := p.deck()

	form := session.Form{
		Front:     front,
		Back:      back,
		DeckName:  deck,
		Context:   cc,
		SessionID: internal.NewSessionID(),
	}
	if err := session.ValidateForm(form); err != nil {
		return fmt.Errorf("%s: %w", session.KindValidationFailed, err)
	}

	if ids, err := p.anki.FindDuplicates(ctx, deck, strings.TrimSpace(front)); err == nil && len(ids) > 0 {
		return fmt.Errorf("%w: %q (note %d)", ErrDuplicate, deck, ids[0])
	}

	out := p.submission.Submit(ctx, form)
	if !out.OK() {
		return fmt.Errorf("%s: %s", out.Kind, out.Message)
	}

	fmt.Fprintf(p.out, "%s (note %d, tags: %s)\n", out.Message, out.NoteID, strings.Join(out.Tags, " "))
	return nil
}

// ShowContext captures the current context and prints it as host payload JSON
func (p *Processor) ShowContext(ctx context.Context) error {
	cc, err := p.provider.Capture(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture context: %w", err)
	}

	data, err := capture.MarshalHostPayload(cc)
	if err != nil {
		return err
	}
	fmt.Fprintln(p.out, string(data))
	return nil
}

// CheckConnection pings AnkiConnect and verifies the Basic note type exists
func (p *Processor) CheckConnection(ctx context.Context) error {
	version, err := p.anki.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "AnkiConnect reachable at %s (API version %d)\n", p.anki.URL(), version)

	names, err := p.anki.ModelNames(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == ankiconnect.DefaultModel {
			return nil
		}
	}
	fmt.Fprintf(p.out, "Warning: note type %q not found, adding cards will fail\n", ankiconnect.DefaultModel)
	return nil
}

// ListDecks prints all decks, marking the target deck
func (p *Processor) ListDecks(ctx context.Context) error {
	decks, err := p.anki.DeckNames(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(p.out, "Anki decks:")
	for _, d := range decks {
		marker := " "
		if d == p.deck() {
			marker = "*"
		}
		fmt.Fprintf(p.out, " %s %s\n", marker, d)
	}
	return nil
}

// ListModels prints the chat models available to the API key
func (p *Processor) ListModels(ctx context.Context) error {
	lister := models.NewLister(p.settings.OpenAIKey, p.settings.BaseURL)
	return lister.ListAvailableModels(ctx, p.out, p.settings.Model)
}

// History prints the last n journal entries
func (p *Processor) History(ctx context.Context, n int) error {
	if p.journal == nil {
		return fmt.Errorf("journal is disabled")
	}

	entries, err := p.journal.Recent(ctx, n)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(p.out, "No cards added yet")
		return nil
	}

	for _, e := range entries {
		fmt.Fprintf(p.out, "%s  [%s]  %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.DeckName, internal.Preview(e.Front, 60))
		fmt.Fprintf(p.out, "                  -> %s\n", internal.Preview(e.Back, 60))
	}
	return nil
}

// ExportCSV writes the journal to an Anki-importable CSV file
func (p *Processor) ExportCSV(ctx context.Context, path string) error {
	if p.journal == nil {
		return fmt.Errorf("journal is disabled")
	}

	n, err := p.journal.ExportCSV(ctx, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "Exported %d cards to %s\n", n, path)
	return nil
}

// RunGUIMode launches the GUI application. logs, when not nil, feeds the
// log viewer.
func (p *Processor) RunGUIMode(logs *gui.LogBuffer) error {
	var recorder session.Recorder
	if p.journal != nil {
		recorder = p.journal
	}

	app := gui.New(&gui.Config{
		Provider:  p.provider,
		Generator: p.generator,
		Anki:      p.anki,
		Recorder:  recorder,
		Deck:      p.deck(),
		Logger:    p.logger,
		LogBuffer: logs,
		ModelName: p.generator.Model(),
		HasAPIKey: p.settings.OpenAIKey != "",
	})
	app.Run()

	return nil
}
