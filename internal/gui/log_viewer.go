package gui

import (
	"bytes"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// DefaultLogLines is the number of log lines kept for the viewer
const DefaultLogLines = 1000

// LogBuffer is an io.Writer that keeps the most recent log lines in memory
// and forwards each complete line to a listener. It is handed to the logger
// before the window exists, so lines written during start-up are not lost.
type LogBuffer struct {
	mu       sync.Mutex
	lines    []string
	max      int
	partial  []byte
	listener func(string)
}

// NewLogBuffer creates a buffer holding at most max lines
func NewLogBuffer(max int) *LogBuffer {
	if max <= 0 {
		max = DefaultLogLines
	}
	return &LogBuffer{max: max}
}

// Write implements io.Writer. Incomplete trailing lines are held until the
// next newline arrives.
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	b.partial = append(b.partial, p...)

	var complete []string
	for {
		i := bytes.IndexByte(b.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(b.partial[:i]), "\r")
		b.partial = b.partial[i+1:]
		if line == "" {
			continue
		}
		complete = append(complete, line)
	}

	b.lines = append(b.lines, complete...)
	if over := len(b.lines) - b.max; over > 0 {
		b.lines = append([]string(nil), b.lines[over:]...)
	}
	listener := b.listener
	b.mu.Unlock()

	if listener != nil {
		for _, line := range complete {
			listener(line)
		}
	}

	return len(p), nil
}

// Lines returns the buffered lines, oldest first
func (b *LogBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string(nil), b.lines...)
}

// Subscribe registers fn for every future line and returns the lines
// buffered so far.
func (b *LogBuffer) Subscribe(fn func(string)) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listener = fn
	return append([]string(nil), b.lines...)
}

// LogViewer is a widget that displays log messages
type LogViewer struct {
	widget.BaseWidget

	container  *fyne.Container
	logEntry   *widget.Entry
	scrollView *container.Scroll

	mu          sync.Mutex
	messages    []string
	maxMessages int
}

// NewLogViewer creates a new log viewer widget
func NewLogViewer() *LogViewer {
	v := &LogViewer{
		maxMessages: DefaultLogLines,
	}

	v.logEntry = widget.NewMultiLineEntry()
	v.logEntry.Disable()
	v.logEntry.Wrapping = fyne.TextWrapWord

	v.scrollView = container.NewScroll(v.logEntry)
	v.scrollView.SetMinSize(fyne.NewSize(0, 120))
	v.scrollView.Direction = container.ScrollBoth

	v.container = container.NewBorder(
		widget.NewLabel("Log messages (newest first):"),
		nil,
		nil,
		nil,
		v.scrollView,
	)

	v.ExtendBaseWidget(v)
	return v
}

// CreateRenderer implements fyne.Widget
func (v *LogViewer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.container)
}

// Attach shows the lines already in buf and follows new ones
func (v *LogViewer) Attach(buf *LogBuffer) {
	if buf == nil {
		return
	}
	for _, line := range buf.Subscribe(v.AddMessage) {
		v.AddMessage(line)
	}
}

// AddMessage adds a message to the log
func (v *LogViewer) AddMessage(message string) {
	v.mu.Lock()
	v.messages = append([]string{message}, v.messages...)
	if len(v.messages) > v.maxMessages {
		v.messages = v.messages[:v.maxMessages]
	}
	text := strings.Join(v.messages, "\n")
	v.mu.Unlock()

	fyne.Do(func() {
		v.logEntry.SetText(text)
		v.scrollView.Offset = fyne.NewPos(0, 0)
		v.scrollView.Refresh()
	})
}
