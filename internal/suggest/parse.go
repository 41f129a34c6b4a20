package suggest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fencePattern matches a reply wrapped in a markdown code fence with an
// optional language tag
var fencePattern = regexp.MustCompile("(?s)^```[A-Za-z0-9_+-]*[ \t]*\r?\n?(.*?)\r?\n?```$")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Rejection records a reply entry that was dropped
type Rejection struct {
	Index int
	Err   error
}

// StripCodeFence removes surrounding ``` or ```lang fences. Text without a
// fence is returned trimmed.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// ParseReply decodes {"suggestions": [...]} from the reply text. Entries that
// fail to decode or validate are returned as rejections; the rest keep their
// order. A missing suggestions key yields an empty list.
func ParseReply(text string) ([]CardSuggestion, []Rejection, error) {
	var envelope *struct {
		Suggestions []json.RawMessage `json:"suggestions"`
	}

	if err := json.Unmarshal([]byte(StripCodeFence(text)), &envelope); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if envelope == nil {
		return nil, nil, fmt.Errorf("%w: null reply", ErrMalformedReply)
	}

	suggestions := make([]CardSuggestion, 0, len(envelope.Suggestions))
	var rejected []Rejection

	for i, raw := range envelope.Suggestions {
		var s CardSuggestion
		if err := json.Unmarshal(raw, &s); err != nil {
			rejected = append(rejected, Rejection{Index: i, Err: err})
			continue
		}
		if err := validate.Struct(s); err != nil {
			rejected = append(rejected, Rejection{Index: i, Err: err})
			continue
		}
		suggestions = append(suggestions, s)
	}

	return suggestions, rejected, nil
}
