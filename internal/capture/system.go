package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"codeberg.org/snonux/ankify/internal/logging"
)

// UnknownApp is reported when the frontmost application cannot be determined
const UnknownApp = "Unknown"

const frontmostAppScript = `
tell application "System Events"
	set frontApp to name of first application process whose frontmost is true
	return frontApp
end tell`

const safariURLScript = `
tell application "Safari"
	if (count of windows) > 0 then
		return URL of current tab of front window
	end if
end tell`

const chromeURLScript = `
tell application "Google Chrome"
	if (count of windows) > 0 then
		return URL of active tab of front window
	end if
end tell`

// SystemProvider reads the real clipboard and, on macOS, asks System Events
// for the frontmost application and the browser for its active URL.
type SystemProvider struct {
	logger *slog.Logger

	// Overridable for tests
	goos          string
	readClipboard func() (string, error)
	runScript     func(ctx context.Context, script string) (string, error)
}

// NewSystemProvider creates a provider for the current host
func NewSystemProvider(logger *slog.Logger) *SystemProvider {
	return &SystemProvider{
		logger:        logging.OrDefault(logger),
		goos:          runtime.GOOS,
		readClipboard: clipboard.ReadAll,
		runScript:     runOSAScript,
	}
}

// Capture implements Provider. Clipboard failures yield empty text rather
// than an error, matching how an empty clipboard is treated.
func (p *SystemProvider) Capture(ctx context.Context) (Context, error) {
	text, err := p.readClipboard()
	if err != nil {
		p.logger.Warn("clipboard read failed", "error", err)
		text = ""
	}

	c := Context{
		ClipboardText: text,
		SourceAppName: UnknownApp,
		CapturedAt:    time.Now().UTC(),
	}

	if p.goos != "darwin" {
		return c, nil
	}

	if app, ok := p.script(ctx, frontmostAppScript); ok {
		c.SourceAppName = app
	}

	switch {
	case strings.Contains(c.SourceAppName, "Safari"):
		if u, ok := p.script(ctx, safariURLScript); ok {
			c.SourceURL = u
		}
	case strings.Contains(c.SourceAppName, "Chrome"):
		if u, ok := p.script(ctx, chromeURLScript); ok {
			c.SourceURL = u
		}
	}

	p.logger.Debug("context captured",
		"app", c.SourceAppName,
		"url", c.SourceURL,
		"clipboard_length", len([]rune(c.ClipboardText)))

	return c, nil
}

// script runs an AppleScript and reports its trimmed, non-empty output
func (p *SystemProvider) script(ctx context.Context, script string) (string, bool) {
	out, err := p.runScript(ctx, script)
	if err != nil {
		p.logger.Debug("osascript failed", "error", err)
		return "", false
	}
	out = strings.TrimSpace(out)
	return out, out != ""
}

func runOSAScript(ctx context.Context, script string) (string, error) {
	out, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		return "", fmt.Errorf("osascript: %w", err)
	}
	return string(out), nil
}
