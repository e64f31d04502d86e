package models

import (
	"strings"
	"unicode"
)

// MaxInputLength caps a single customer message
const MaxInputLength = 1000

// SanitizeInput trims the message, collapses whitespace and strips markup characters
func SanitizeInput(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'':
			return -1
		}
		return r
	}, input)

	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if runes := []rune(cleaned); len(runes) > MaxInputLength {
		cleaned = string(runes[:MaxInputLength])
	}
	return cleaned
}

// ValidatePhone accepts numbers with 10 or 11 digits once formatting is removed
func ValidatePhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.' || r == '+':
		default:
			return false
		}
	}
	return digits == 10 || digits == 11
}

// CheckDietary returns the names of items that do not satisfy every restriction
func CheckDietary(items []MenuItem, restrictions []string) []string {
	violations := make([]string, 0)
	for _, item := range items {
		for _, r := range restrictions {
			if !item.HasDietary(r) {
				violations = append(violations, item.Name)
				break
			}
		}
	}
	return violations
}
