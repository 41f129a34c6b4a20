package suggest

import (
	"time"

	"codeberg.org/snonux/ankify/internal/capture"
)

// MinSourceLength is the minimum number of characters worth generating from
const MinSourceLength = 10

// CardSuggestion is one proposed question/answer pair
type CardSuggestion struct {
	Front      string  `json:"front" validate:"notblank"`
	Back       string  `json:"back" validate:"notblank"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// ConfidenceInRange reports whether Confidence lies in [0,1]
func (s CardSuggestion) ConfidenceInRange() bool {
	return s.Confidence >= 0 && s.Confidence <= 1
}

// RequestContext holds the optional hints sent along with the text
type RequestContext struct {
	SourceURL     string
	SourceAppName string
	CapturedAt    time.Time
}

// Request asks for suggestions for SourceText
type Request struct {
	SourceText string
	Context    *RequestContext
}

// NewRequest builds a request from a captured context
func NewRequest(c capture.Context) Request {
	return Request{
		SourceText: c.ClipboardText,
		Context: &RequestContext{
			SourceURL:     c.SourceURL,
			SourceAppName: c.SourceAppName,
			CapturedAt:    c.CapturedAt,
		},
	}
}

// Response is the result of one generation. Suggestions is empty on failure.
type Response struct {
	Suggestions []CardSuggestion
	ElapsedMs   int64
	SourceText  string
}
