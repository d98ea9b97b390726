package security

import (
	"strings"
	"unicode/utf8"

	"github.com/kodecamp/lms/internal/core/domain"
)

const (
	MinPasswordLength = 8

	// PasswordSpecialChars is the set a password must draw at least one
	// character from.
	PasswordSpecialChars = "#?!@$%^&*+="
)

// ValidatePassword returns domain.ErrWeakPassword unless p has at least
// MinPasswordLength characters and contains an ASCII upper-case letter, an
// ASCII lower-case letter, an ASCII digit and one of PasswordSpecialChars.
func ValidatePassword(p string) error {
	if utf8.RuneCountInString(p) < MinPasswordLength {
		return domain.ErrWeakPassword
	}

	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSpecialChars, r):
			special = true
		}
	}

	if !upper || !lower || !digit || !special {
		return domain.ErrWeakPassword
	}
	return nil
}
