package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// shortcutHandler receives window shortcuts that a focused entry would
// otherwise swallow. It reports whether the shortcut was consumed.
type shortcutHandler func(fyne.Shortcut) bool

// CustomMultiLineEntry extends widget.Entry to handle Escape and the
// window shortcuts while focused
type CustomMultiLineEntry struct {
	widget.Entry
	onEscape   func()
	onShortcut shortcutHandler
}

// NewCustomMultiLineEntry creates a new custom multi-line entry
func NewCustomMultiLineEntry() *CustomMultiLineEntry {
	entry := &CustomMultiLineEntry{}
	entry.MultiLine = true
	entry.Wrapping = fyne.TextWrapWord
	entry.ExtendBaseWidget(entry)
	return entry
}

// TypedKey handles key events
func (e *CustomMultiLineEntry) TypedKey(key *fyne.KeyEvent) {
	if key.Name == fyne.KeyEscape && e.onEscape != nil {
		e.onEscape()
		return
	}
	e.Entry.TypedKey(key)
}

// TypedShortcut lets the window handle its own shortcuts first
func (e *CustomMultiLineEntry) TypedShortcut(s fyne.Shortcut) {
	if e.onShortcut != nil && e.onShortcut(s) {
		return
	}
	e.Entry.TypedShortcut(s)
}

// SetOnEscape sets the callback for when Escape is pressed
func (e *CustomMultiLineEntry) SetOnEscape(f func()) {
	e.onEscape = f
}

// CustomSelectEntry extends widget.SelectEntry the same way (deck picker)
type CustomSelectEntry struct {
	widget.SelectEntry
	onEscape   func()
	onShortcut shortcutHandler
}

// NewCustomSelectEntry creates a select entry offering options
func NewCustomSelectEntry(options []string) *CustomSelectEntry {
	entry := &CustomSelectEntry{}
	entry.ExtendBaseWidget(entry)
	entry.SetOptions(options)
	return entry
}

// TypedKey handles key events
func (e *CustomSelectEntry) TypedKey(key *fyne.KeyEvent) {
	if key.Name == fyne.KeyEscape && e.onEscape != nil {
		e.onEscape()
		return
	}
	e.SelectEntry.TypedKey(key)
}

// TypedShortcut lets the window handle its own shortcuts first
func (e *CustomSelectEntry) TypedShortcut(s fyne.Shortcut) {
	if e.onShortcut != nil && e.onShortcut(s) {
		return
	}
	e.SelectEntry.TypedShortcut(s)
}

// SetOnEscape sets the callback for when Escape is pressed
func (e *CustomSelectEntry) SetOnEscape(f func()) {
	e.onEscape = f
}

// primaryShortcut returns Cmd+key on macOS and Ctrl+key elsewhere
func primaryShortcut(key fyne.KeyName) *desktop.CustomShortcut {
	return &desktop.CustomShortcut{KeyName: key, Modifier: fyne.KeyModifierShortcutDefault}
}

// matchPrimary reports whether s is the primary-modifier shortcut for key
func matchPrimary(s fyne.Shortcut, key fyne.KeyName) bool {
	cs, ok := s.(*desktop.CustomShortcut)
	if !ok {
		return false
	}
	return cs.KeyName == key && cs.Modifier == fyne.KeyModifierShortcutDefault
}
