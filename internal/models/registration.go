package models

import (
	"strings"
	"unicode"
)

type Outcome int

const (
	OutcomeRegistered Outcome = iota + 1
	OutcomeAlreadyRegistered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRegistered:
		return "registered"
	case OutcomeAlreadyRegistered:
		return "already_registered"
	default:
		return "unknown"
	}
}

// ValidEventName reports whether name is non-empty and made only of letters
// and numeric characters.
func ValidEventName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

// ValidateIdentifier rejects identifiers that cannot safely name a file.
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return ErrNotAuthenticated
	}
	if identifier == "." || identifier == ".." || strings.ContainsAny(identifier, "/\\\x00\r\n") {
		return ErrInvalidIdentifier
	}
	return nil
}
