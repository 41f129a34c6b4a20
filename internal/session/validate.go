package session

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Form field names used in ValidationError
const (
	FieldFront = "front"
	FieldBack  = "back"
	FieldDeck  = "deck"
)

var fieldMessages = map[string]string{
	FieldFront: "Front side cannot be empty",
	FieldBack:  "Back side cannot be empty",
	FieldDeck:  "Deck cannot be empty",
}

// ValidationError lists the form fields that block a submission
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Fields[name])
	}
	return strings.Join(msgs, "; ")
}

type formFields struct {
	Front string `validate:"notblank"`
	Back  string `validate:"notblank"`
	Deck  string `validate:"notblank"`
}

var formValidator = func() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}()

// ValidateForm checks that front, back and deck are not blank
func ValidateForm(f Form) error {
	err := formValidator.Struct(formFields{Front: f.Front, Back: f.Back, Deck: f.DeckName})
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		fields[name] = fieldMessages[name]
	}
	return &ValidationError{Fields: fields}
}
