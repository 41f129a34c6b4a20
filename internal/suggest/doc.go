// Package suggest turns captured text into flashcard suggestions.
//
// A Generator composes a prompt from the text and its capture context, sends
// one chat completion request to an OpenAI-compatible endpoint, and parses
// the JSON reply. Entries that miss a front or back are dropped; all others
// are returned in reply order without modification.
//
// Generate never panics or leaves the caller without a usable Response. On
// failure the Response carries no suggestions and the returned error, which
// always matches ErrGenerationFailed, describes what went wrong. Text shorter
// than MinSourceLength is not sent anywhere.
package suggest
