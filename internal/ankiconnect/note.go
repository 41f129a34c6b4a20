package ankiconnect

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultModel is the note type every card is created with
const DefaultModel = "Basic"

// DuplicateScope limits where Anki looks for duplicates
type DuplicateScope string

const (
	ScopeDeck       DuplicateScope = "deck"
	ScopeCollection DuplicateScope = "collection"
)

// Note is the addNote payload
type Note struct {
	DeckName  string   `json:"deckName" validate:"notblank"`
	ModelName string   `json:"modelName" validate:"required"`
	Fields    Fields   `json:"fields"`
	Tags      []string `json:"tags" validate:"dive,required"`
	Options   Options  `json:"options"`
}

// Fields holds the two fields of the Basic note type
type Fields struct {
	Front string `json:"Front" validate:"notblank"`
	Back  string `json:"Back" validate:"notblank"`
}

// Options controls duplicate handling
type Options struct {
	AllowDuplicate bool           `json:"allowDuplicate"`
	DuplicateScope DuplicateScope `json:"duplicateScope" validate:"oneof=deck collection"`
}

// NewNote builds a Basic note that refuses duplicates within its deck
func NewNote(deck, front, back string, tags []string) Note {
	return Note{
		DeckName:  deck,
		ModelName: DefaultModel,
		Fields:    Fields{Front: front, Back: back},
		Tags:      append([]string{}, tags...),
		Options: Options{
			AllowDuplicate: false,
			DuplicateScope: ScopeDeck,
		},
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}
