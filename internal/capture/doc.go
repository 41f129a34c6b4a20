// Package capture snapshots the user's working context: clipboard text, the
// frontmost application and, for supported browsers, the page URL. The
// snapshot seeds suggestion generation and the provenance tags of a note.
package capture
