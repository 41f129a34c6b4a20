package gui

import (
	"runtime"

	"fyne.io/fyne/v2"
)

var suggestionKeys = []fyne.KeyName{fyne.Key1, fyne.Key2, fyne.Key3}

// setupKeyboardShortcuts registers the window shortcuts. Focused entries
// forward the same shortcuts through handleShortcut.
func (a *Application) setupKeyboardShortcuts() {
	canvas := a.window.Canvas()

	for _, key := range []fyne.KeyName{fyne.KeyReturn, fyne.KeyEnter} {
		canvas.AddShortcut(primaryShortcut(key), func(fyne.Shortcut) {
			a.onSubmit()
		})
	}

	for i, key := range suggestionKeys {
		n := i + 1
		canvas.AddShortcut(primaryShortcut(key), func(fyne.Shortcut) {
			a.applySuggestion(n)
		})
	}

	canvas.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			a.hide()
		}
	})
}

// handleShortcut runs the window action bound to s, if any
func (a *Application) handleShortcut(s fyne.Shortcut) bool {
	if matchPrimary(s, fyne.KeyReturn) || matchPrimary(s, fyne.KeyEnter) {
		a.onSubmit()
		return true
	}

	for i, key := range suggestionKeys {
		if matchPrimary(s, key) {
			a.applySuggestion(i + 1)
			return true
		}
	}

	return false
}

// shortcutLabel renders the primary modifier plus key for tooltips
func shortcutLabel(key string) string {
	if runtime.GOOS == "darwin" {
		return "Cmd+" + key
	}
	return "Ctrl+" + key
}
