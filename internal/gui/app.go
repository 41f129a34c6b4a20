package gui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	fynetooltip "github.com/dweymouth/fyne-tooltip"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/ankify/internal"
	"codeberg.org/snonux/ankify/internal/ankiconnect"
	"codeberg.org/snonux/ankify/internal/capture"
	"codeberg.org/snonux/ankify/internal/logging"
	"codeberg.org/snonux/ankify/internal/session"
)

// WindowTitle is the title of the card window
const WindowTitle = "Ankify Your Life"

// maxSuggestionButtons is the number of suggestions reachable by shortcut
const maxSuggestionButtons = 3

// NoteStore is what the window needs from the Anki client
type NoteStore interface {
	session.NoteStore
	DeckNames(ctx context.Context) ([]string, error)
}

// Config holds GUI application configuration
type Config struct {
	Provider  capture.Provider
	Generator session.Generator
	Anki      NoteStore
	Recorder  session.Recorder // optional
	Deck      string
	Logger    *slog.Logger
	LogBuffer *LogBuffer // optional
	ModelName string
	HasAPIKey bool
}

// Application represents the main GUI application
type Application struct {
	// Fyne components
	app    fyne.App
	window fyne.Window
	tray   bool

	// Connection banner
	banner      *fyne.Container
	bannerLabel *widget.Label
	retryButton *ttwidget.Button

	// Suggestion list
	loading       *widget.ProgressBarInfinite
	hintLabel     *widget.Label
	errorBox      *fyne.Container
	errorLabel    *widget.Label
	dismissButton *ttwidget.Button
	suggestionBox *fyne.Container

	// Card form
	frontEntry  *CustomMultiLineEntry
	backEntry   *CustomMultiLineEntry
	deckEntry   *CustomSelectEntry
	frontError  *widget.Label
	backError   *widget.Label
	deckError   *widget.Label
	resultLabel *widget.Label

	// Context display
	contextApp  *widget.Label
	contextURL  *widget.Label
	contextTime *widget.Label
	contextText *widget.Label

	addButton    *ttwidget.Button
	cancelButton *ttwidget.Button
	logViewer    *LogViewer

	// Controllers
	suggestions *session.SuggestionController
	submission  *session.SubmissionController

	// State management
	mu        sync.Mutex
	current   capture.Context
	sessionID string
	hideTimer *time.Timer

	// Background processing
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	config *Config
	logger *slog.Logger
}

// New creates a new GUI application
func New(config *Config) *Application {
	if config == nil {
		config = &Config{}
	}
	if config.Provider == nil {
		config.Provider = capture.StaticProvider{}
	}

	logger := logging.OrDefault(config.Logger).With("component", "gui")
	ctx, cancel := context.WithCancel(context.Background())

	myApp := app.NewWithID("org.codeberg.snonux.ankify")
	myApp.SetIcon(theme.DocumentCreateIcon())

	a := &Application{
		app:         myApp,
		config:      config,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		suggestions: session.NewSuggestionController(config.Generator, logger),
		submission:  session.NewSubmissionController(config.Anki, config.Recorder, logger),
	}

	a.setupUI()

	a.suggestions.OnChange(func(s session.Snapshot) {
		fyne.Do(func() { a.renderSuggestions(s) })
	})
	a.submission.OnConnectionChange(func(bool) {
		fyne.Do(a.updateConnectionState)
	})

	return a
}

// setupUI creates the main user interface
func (a *Application) setupUI() {
	a.window = a.app.NewWindow(WindowTitle)
	a.window.SetIcon(theme.DocumentCreateIcon())
	a.window.Resize(fyne.NewSize(640, 720))

	// Connection banner, hidden while Anki answers
	a.bannerLabel = widget.NewLabel(ankiconnect.UnreachableMessage)
	a.bannerLabel.Importance = widget.DangerImportance
	a.bannerLabel.Wrapping = fyne.TextWrapWord
	a.retryButton = ttwidget.NewButtonWithIcon("Retry", theme.ViewRefreshIcon(), a.onRetryConnection)
	a.banner = container.NewBorder(nil, nil, nil, a.retryButton, a.bannerLabel)
	a.banner.Hide()

	// Suggestions
	a.loading = widget.NewProgressBarInfinite()
	a.loading.Stop()
	a.loading.Hide()

	a.hintLabel = widget.NewLabel("")
	a.hintLabel.TextStyle = fyne.TextStyle{Italic: true}
	a.hintLabel.Wrapping = fyne.TextWrapWord

	a.errorLabel = widget.NewLabel("")
	a.errorLabel.Importance = widget.DangerImportance
	a.errorLabel.Wrapping = fyne.TextWrapWord
	a.dismissButton = ttwidget.NewButtonWithIcon("", theme.CancelIcon(), a.suggestions.DismissError)
	a.errorBox = container.NewBorder(nil, nil, nil, a.dismissButton, a.errorLabel)
	a.errorBox.Hide()

	a.suggestionBox = container.NewVBox()

	suggestionSection := container.NewVBox(
		widget.NewLabelWithStyle(suggestionTitle(a.config.ModelName), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		a.loading,
		a.errorBox,
		a.hintLabel,
		a.suggestionBox,
	)

	// Card form
	a.frontEntry = NewCustomMultiLineEntry()
	a.frontEntry.SetPlaceHolder("Question...")
	a.frontEntry.SetMinRowsVisible(3)
	a.backEntry = NewCustomMultiLineEntry()
	a.backEntry.SetPlaceHolder("Answer...")
	a.backEntry.SetMinRowsVisible(3)
	a.deckEntry = NewCustomSelectEntry([]string{a.config.Deck})
	a.deckEntry.SetText(a.config.Deck)

	a.frontError = newFieldError()
	a.backError = newFieldError()
	a.deckError = newFieldError()

	for _, e := range []*CustomMultiLineEntry{a.frontEntry, a.backEntry} {
		e.SetOnEscape(a.hide)
		e.onShortcut = a.handleShortcut
	}
	a.deckEntry.SetOnEscape(a.hide)
	a.deckEntry.onShortcut = a.handleShortcut

	form := container.NewVBox(
		widget.NewLabel("Front:"),
		a.frontEntry,
		a.frontError,
		widget.NewLabel("Back:"),
		a.backEntry,
		a.backError,
		widget.NewLabel("Deck:"),
		a.deckEntry,
		a.deckError,
	)

	// Context display
	a.contextApp = widget.NewLabel("")
	a.contextURL = widget.NewLabel("")
	a.contextURL.Truncation = fyne.TextTruncateEllipsis
	a.contextTime = widget.NewLabel("")
	a.contextText = widget.NewLabel("")
	a.contextText.Wrapping = fyne.TextWrapWord
	contextDetails := widget.NewAccordion(widget.NewAccordionItem("Context",
		container.New(layout.NewFormLayout(),
			widget.NewLabel("App:"), a.contextApp,
			widget.NewLabel("URL:"), a.contextURL,
			widget.NewLabel("Captured:"), a.contextTime,
			widget.NewLabel("Text:"), a.contextText,
		),
	))

	// Result and buttons
	a.resultLabel = widget.NewLabel("")
	a.resultLabel.Wrapping = fyne.TextWrapWord

	a.addButton = ttwidget.NewButtonWithIcon("Add", theme.ConfirmIcon(), a.onSubmit)
	a.addButton.Importance = widget.HighImportance
	a.cancelButton = ttwidget.NewButtonWithIcon("Cancel", theme.CancelIcon(), a.hide)

	buttons := container.NewHBox(
		widget.NewLabel(fmt.Sprintf("v%s", internal.Version)),
		layout.NewSpacer(),
		a.cancelButton,
		a.addButton,
	)

	a.logViewer = NewLogViewer()
	a.logViewer.Attach(a.config.LogBuffer)

	body := container.NewVBox(
		a.banner,
		suggestionSection,
		widget.NewSeparator(),
		form,
		contextDetails,
		a.resultLabel,
	)

	content := container.NewBorder(
		nil,
		container.NewVBox(buttons, widget.NewSeparator(), a.logViewer),
		nil, nil,
		container.NewVScroll(body),
	)

	// Add the tooltip layer to enable tooltips
	a.window.SetContent(fynetooltip.AddWindowToolTipLayer(content, a.window.Canvas()))

	// Now that tooltip layer is created, set all tooltips
	a.setupTooltips()

	a.window.SetOnClosed(func() {
		a.cancel()
		a.wg.Wait()
		a.suggestions.Wait()
	})

	a.setupKeyboardShortcuts()
	a.renderSuggestions(a.suggestions.Snapshot())
}

// setupTooltips sets up all tooltips after the tooltip layer has been created
func (a *Application) setupTooltips() {
	a.addButton.SetToolTip("Add card to Anki (" + shortcutLabel("Enter") + ")")
	a.cancelButton.SetToolTip("Close without adding (Esc)")
	a.retryButton.SetToolTip("Check the Anki connection again")
	a.dismissButton.SetToolTip("Dismiss error")
}

// Run shows the window for a fresh capture and blocks until the app quits
func (a *Application) Run() {
	if desk, ok := a.app.(desktop.App); ok {
		a.tray = true
		desk.SetSystemTrayMenu(fyne.NewMenu("Ankify",
			fyne.NewMenuItem("New card", a.NewSession),
		))
		desk.SetSystemTrayIcon(theme.DocumentCreateIcon())
		a.window.SetCloseIntercept(a.hide)
	}

	a.NewSession()
	a.window.ShowAndRun()
}

// NewSession captures the current context, resets the form and shows the
// window. Suggestions are requested for the captured text.
func (a *Application) NewSession() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		cc, err := a.config.Provider.Capture(a.ctx)
		if err != nil {
			a.logger.Warn("Context capture failed", "error", err)
		}

		sessionID := internal.NewSessionID()
		a.mu.Lock()
		a.current = cc
		a.sessionID = sessionID
		a.mu.Unlock()

		a.logger.Info("New card session",
			"session", sessionID,
			"app", cc.SourceAppName,
			"url", cc.SourceURL,
			"text", internal.Preview(cc.ClipboardText, 60))

		fyne.Do(func() {
			a.resetForm()
			a.showContext(cc)
			a.window.Show()
			a.window.RequestFocus()
			a.window.Canvas().Focus(a.frontEntry)
		})

		a.suggestions.Reset()
		a.suggestions.Update(a.ctx, cc)
		a.refreshConnection()
	}()
}

// refreshConnection pings Anki and refreshes the deck list. Must not run on
// the UI goroutine.
func (a *Application) refreshConnection() {
	if a.config.Anki == nil {
		return
	}

	if err := a.submission.CheckConnection(a.ctx); err != nil {
		fyne.Do(a.updateConnectionState)
		return
	}

	decks, err := a.config.Anki.DeckNames(a.ctx)
	if err != nil {
		a.logger.Warn("Failed to load deck names", "error", err)
	}

	fyne.Do(func() {
		a.updateConnectionState()
		if len(decks) > 0 {
			a.deckEntry.SetOptions(decks)
		}
	})
}

func (a *Application) onRetryConnection() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.refreshConnection()
	}()
}

// onSubmit sends the form to Anki
func (a *Application) onSubmit() {
	if a.submission.InProgress() || !a.submission.Connected() {
		return
	}

	a.mu.Lock()
	form := session.Form{
		Front:     a.frontEntry.Text,
		Back:      a.backEntry.Text,
		DeckName:  a.deckEntry.Text,
		Context:   a.current,
		SessionID: a.sessionID,
	}
	a.mu.Unlock()

	a.addButton.Disable()
	a.setResult("Adding card...", widget.MediumImportance)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		outcome := a.submission.Submit(a.ctx, form)
		fyne.Do(func() { a.showOutcome(outcome) })
	}()
}

// showOutcome renders a submission result. The form is only cleared on success.
func (a *Application) showOutcome(out session.Outcome) {
	a.clearFieldErrors()

	switch out.Kind {
	case session.KindSuccess:
		a.setResult(out.Message, widget.SuccessImportance)
		a.frontEntry.SetText("")
		a.backEntry.SetText("")
		a.stopHideTimer()
		a.hideTimer = time.AfterFunc(session.SuccessCloseDelay, func() {
			fyne.Do(a.hide)
		})
	case session.KindValidationFailed:
		a.setFieldError(a.frontError, out.FieldErrors[session.FieldFront])
		a.setFieldError(a.backError, out.FieldErrors[session.FieldBack])
		a.setFieldError(a.deckError, out.FieldErrors[session.FieldDeck])
		a.setResult("", widget.MediumImportance)
	case session.KindBusy:
	default:
		a.setResult(out.Message, widget.DangerImportance)
	}

	a.updateConnectionState()
}

// renderSuggestions reflects a controller snapshot in the suggestion list
func (a *Application) renderSuggestions(s session.Snapshot) {
	if s.State == session.StateLoading {
		a.loading.Show()
		a.loading.Start()
	} else {
		a.loading.Stop()
		a.loading.Hide()
	}

	if msg := s.ErrorMessage(); msg != "" {
		a.errorLabel.SetText(msg)
		a.errorBox.Show()
	} else {
		a.errorBox.Hide()
	}

	switch {
	case !a.config.HasAPIKey:
		a.setHint("No OpenAI API key configured, suggestions are disabled")
	case s.State == session.StateIdle && len(s.Suggestions) == 0:
		a.setHint("Copy some text to get card suggestions")
	case s.State == session.StateReady && len(s.Suggestions) == 0:
		a.setHint("No suggestions for this text")
	default:
		a.setHint("")
	}

	objects := make([]fyne.CanvasObject, 0, len(s.Suggestions))
	for i, sg := range s.Suggestions {
		n := i + 1
		text := fmt.Sprintf("%d. %s (%.0f%%)", n, internal.Preview(sg.Front, 70), sg.Confidence*100)
		btn := ttwidget.NewButton(text, func() { a.applySuggestion(n) })
		btn.Alignment = widget.ButtonAlignLeading
		tip := internal.Preview(sg.Back, 120)
		if n <= maxSuggestionButtons {
			tip += " (" + shortcutLabel(fmt.Sprint(n)) + ")"
		}
		btn.SetToolTip(tip)
		objects = append(objects, btn)
	}
	a.suggestionBox.Objects = objects
	a.suggestionBox.Refresh()
}

// applySuggestion copies suggestion n into the form
func (a *Application) applySuggestion(n int) {
	sg, ok := a.suggestions.Select(n)
	if !ok {
		return
	}

	a.frontEntry.SetText(sg.Front)
	a.backEntry.SetText(sg.Back)
	a.clearFieldErrors()
	a.window.Canvas().Focus(a.frontEntry)
}

func (a *Application) showContext(cc capture.Context) {
	a.contextApp.SetText(cc.SourceAppName)
	if cc.HasURL() {
		a.contextURL.SetText(cc.SourceURL)
	} else {
		a.contextURL.SetText("-")
	}
	if cc.CapturedAt.IsZero() {
		a.contextTime.SetText("-")
	} else {
		a.contextTime.SetText(cc.CapturedAt.Local().Format("2006-01-02 15:04:05"))
	}
	a.contextText.SetText(internal.Preview(cc.ClipboardText, 300))
}

func (a *Application) resetForm() {
	a.stopHideTimer()
	a.frontEntry.SetText("")
	a.backEntry.SetText("")
	if strings.TrimSpace(a.deckEntry.Text) == "" {
		a.deckEntry.SetText(a.config.Deck)
	}
	a.clearFieldErrors()
	a.setResult("", widget.MediumImportance)
	a.updateConnectionState()
}

// updateConnectionState shows the banner and gates the Add button
func (a *Application) updateConnectionState() {
	if a.submission.Connected() {
		a.banner.Hide()
	} else {
		a.banner.Show()
	}

	if a.submission.Connected() && !a.submission.InProgress() {
		a.addButton.Enable()
	} else {
		a.addButton.Disable()
	}
}

// hide closes the window. With a system tray the app keeps running.
func (a *Application) hide() {
	a.stopHideTimer()
	if a.tray {
		a.window.Hide()
		return
	}
	a.window.Close()
}

func (a *Application) stopHideTimer() {
	if a.hideTimer != nil {
		a.hideTimer.Stop()
		a.hideTimer = nil
	}
}

func (a *Application) setHint(text string) {
	a.hintLabel.SetText(text)
	if text == "" {
		a.hintLabel.Hide()
	} else {
		a.hintLabel.Show()
	}
}

func (a *Application) setResult(text string, importance widget.Importance) {
	a.resultLabel.Importance = importance
	a.resultLabel.SetText(text)
}

func (a *Application) clearFieldErrors() {
	for _, l := range []*widget.Label{a.frontError, a.backError, a.deckError} {
		a.setFieldError(l, "")
	}
}

func (a *Application) setFieldError(l *widget.Label, msg string) {
	l.SetText(msg)
	if msg == "" {
		l.Hide()
	} else {
		l.Show()
	}
}

func newFieldError() *widget.Label {
	l := widget.NewLabel("")
	l.Importance = widget.DangerImportance
	l.Hide()
	return l
}

func suggestionTitle(model string) string {
	if model == "" {
		return "Suggestions"
	}
	return fmt.Sprintf("Suggestions (%s)", model)
}
