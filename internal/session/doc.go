// Package session sequences one card-editing session: it decides when
// suggestions are generated for a captured context, tracks their state for
// the presentation layer, and turns the edited form into an Anki note.
//
// SuggestionController applies at most one generation result per input; a
// result for text that has since been replaced is discarded on arrival.
// SubmissionController validates the form, derives provenance tags and
// reports every outcome as state instead of an error, so nothing that goes
// wrong on the network ends the session.
package session
