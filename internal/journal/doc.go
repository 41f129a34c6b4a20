// Package journal keeps a local record of every note that was added to Anki.
//
// Only submitted notes are written; suggestions are never stored. The journal
// backs the --history listing and can be exported as an Anki-importable CSV
// file, which doubles as a backup of cards created with ankify.
package journal
