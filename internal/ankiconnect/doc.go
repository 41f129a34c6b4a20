// Package ankiconnect is a thin client for the AnkiConnect add-on, the local
// HTTP automation endpoint of the Anki desktop application.
//
// Every operation is a single POST of {"action", "version", "params"} and a
// reply of {"result", "error"}. A non-null error field is a failure whatever
// the HTTP status. Refused connections are reported as ErrUnreachable and
// remote errors as *RemoteError. The client never retries; repeated refused
// connections open a circuit breaker that fails fast until it half-opens.
package ankiconnect
