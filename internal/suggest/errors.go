package suggest

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerationFailed matches every generation failure
	ErrGenerationFailed = errors.New("failed to generate card suggestions")

	// ErrMissingAPIKey is returned without any network call when no key is configured
	ErrMissingAPIKey = fmt.Errorf("%w: OpenAI API key not found", ErrGenerationFailed)

	// ErrProviderCall is returned when the request to the LLM service fails
	ErrProviderCall = fmt.Errorf("%w: LLM request failed", ErrGenerationFailed)

	// ErrNonTextReply is returned when the first content segment of the reply is not text
	ErrNonTextReply = fmt.Errorf("%w: reply contains no text", ErrGenerationFailed)

	// ErrMalformedReply is returned when the reply text is not the expected JSON object
	ErrMalformedReply = fmt.Errorf("%w: malformed reply", ErrGenerationFailed)
)
