// Package processor wires configuration to the capture, suggestion, Anki
// and journal components and runs the command-line actions. Without an
// action it hands the same components to the desktop window.
package processor
