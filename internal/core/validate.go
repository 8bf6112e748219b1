package core

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxNameLength is the longest display name accepted, in runes.
	MaxNameLength = 50
	// MaxMessageLength is the longest message text accepted, in runes.
	MaxMessageLength = 4000
)

var validate = validator.New()

type joinInput struct {
	Name string `validate:"required,max=50"`
}

type messageInput struct {
	Text string `validate:"required,max=4000"`
}

// NormalizeName trims the display name and checks its length.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := validate.Struct(joinInput{Name: name}); err != nil {
		return "", ErrInvalidName
	}
	return name, nil
}

// validateText rejects blank or oversized text. The text itself is kept verbatim.
func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrInvalidMessage
	}
	if err := validate.Struct(messageInput{Text: text}); err != nil {
		return ErrInvalidMessage
	}
	return nil
}
