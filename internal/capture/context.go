package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ErrInvalidPayload is returned when a host context payload cannot be decoded
var ErrInvalidPayload = errors.New("invalid context payload")

// Context is an immutable snapshot taken once per capture event
type Context struct {
	ClipboardText string
	SourceAppName string
	SourceURL     string // empty when the source has no URL
	CapturedAt    time.Time
}

// HasURL reports whether the snapshot carries a source URL
func (c Context) HasURL() bool {
	return strings.TrimSpace(c.SourceURL) != ""
}

// HasApp reports whether the snapshot carries a source application name
func (c Context) HasApp() bool {
	return strings.TrimSpace(c.SourceAppName) != ""
}

// Provider returns the current context. Implementations are invoked once
// per editing session.
type Provider interface {
	Capture(ctx context.Context) (Context, error)
}

// hostPayload is the wire shape handed over by a host capture helper
type hostPayload struct {
	Clipboard string  `json:"clipboard"`
	AppName   string  `json:"app_name"`
	URL       *string `json:"url"`
	Timestamp string  `json:"timestamp"`
}

// ParseHostPayload decodes {clipboard, app_name, url|null, timestamp}
// where timestamp is ISO-8601.
func ParseHostPayload(data []byte) (Context, error) {
	var p hostPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Context{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	capturedAt, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return Context{}, fmt.Errorf("%w: timestamp %q: %v", ErrInvalidPayload, p.Timestamp, err)
	}

	c := Context{
		ClipboardText: p.Clipboard,
		SourceAppName: p.AppName,
		CapturedAt:    capturedAt,
	}
	if p.URL != nil {
		c.SourceURL = strings.TrimSpace(*p.URL)
	}
	return c, nil
}

// MarshalHostPayload encodes c in the host payload shape. An empty URL is
// written as null.
func MarshalHostPayload(c Context) ([]byte, error) {
	p := hostPayload{
		Clipboard: c.ClipboardText,
		AppName:   c.SourceAppName,
		Timestamp: c.CapturedAt.UTC().Format(time.RFC3339Nano),
	}
	if c.HasURL() {
		u := c.SourceURL
		p.URL = &u
	}
	return json.Marshal(p)
}

// StaticProvider always returns the same snapshot, stamped at capture time
// when CapturedAt is zero. The CLI uses it for --text/--app/--url.
type StaticProvider struct {
	Context Context
}

// Capture implements Provider
func (s StaticProvider) Capture(ctx context.Context) (Context, error) {
	c := s.Context
	if c.CapturedAt.IsZero() {
		c.CapturedAt = time.Now().UTC()
	}
	return c, nil
}

// PayloadProvider reads a host payload from a file, or from stdin when Path
// is "-". The file is read on every Capture.
type PayloadProvider struct {
	Path  string
	Stdin io.Reader // defaults to os.Stdin
}

// Capture implements Provider
func (p PayloadProvider) Capture(ctx context.Context) (Context, error) {
	var (
		data []byte
		err  error
	)
	if p.Path == "-" {
		in := p.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(p.Path)
	}
	if err != nil {
		return Context{}, fmt.Errorf("failed to read context payload: %w", err)
	}
	return ParseHostPayload(data)
}
