package config

import (
	"fmt"
	"strings"
	"unicode"
)

const maxNameLen = 64

// NormalizeName trims and upper-cases a command name and checks its characters.
func NormalizeName(raw string) (string, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if name == "" {
		return "", fmt.Errorf("name must not be empty")
	}
	if len(name) > maxNameLen {
		return "", fmt.Errorf("name %q is too long (max %d characters)", name, maxNameLen)
	}
	for _, r := range name {
		if isAllowedNameRune(r) {
			continue
		}
		return "", fmt.Errorf("name %q contains invalid character %q (allowed: letters, digits, '.', '-', '_')", name, r)
	}
	return name, nil
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '-', '_', '.':
		return true
	default:
		return false
	}
}
