package auth

import (
	"strings"
	"unicode"
)

const (
	minPasswordLen = 12
	maxPasswordLen = 128

	specialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?/~`"
)

// Часто встречающиеся слабые подстроки; пароль с любой из них отклоняется.
var weakPatterns = []string{"password", "12345", "qwerty", "admin", "letmein"}

// ValidatePasswordStrength проверяет мастер-пароль при установке.
// Возвращает *WeakPasswordError со списком невыполненных требований.
func ValidatePasswordStrength(password string) error {
	var missing []string

	if len(password) < minPasswordLen {
		missing = append(missing, "at least 12 characters")
	}
	if len(password) > maxPasswordLen {
		missing = append(missing, "at most 128 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		case strings.ContainsRune(specialChars, c):
			hasSpecial = true
		}
	}
	if !hasUpper {
		missing = append(missing, "an uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "a lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "a digit")
	}
	if !hasSpecial {
		missing = append(missing, "a special character")
	}

	lower := strings.ToLower(password)
	for _, p := range weakPatterns {
		if strings.Contains(lower, p) {
			missing = append(missing, "no common weak pattern ("+p+")")
			break
		}
	}

	if len(missing) > 0 {
		return &WeakPasswordError{Requirements: missing}
	}
	return nil
}

// PasswordStrength — оценка стойкости 0..100 для индикатора в UI.
func PasswordStrength(password string) int {
	if password == "" {
		return 0
	}
	strength := 0
	for _, threshold := range []struct {
		length int
		score  int
	}{{8, 20}, {12, 20}, {16, 10}, {20, 10}} {
		if len(password) >= threshold.length {
			strength += threshold.score
		}
	}
	var hasUpper, hasLower, hasDigit, hasOther bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		default:
			hasOther = true
		}
	}
	for _, ok := range []bool{hasUpper, hasLower, hasDigit, hasOther} {
		if ok {
			strength += 10
		}
	}
	if strength > 100 {
		strength = 100
	}
	return strength
}
