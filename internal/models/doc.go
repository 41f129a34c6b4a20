// Package models lists the chat models an API key can use, so users can pick
// a value for llm.model.
package models
