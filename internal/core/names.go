package core

import "strings"

// NormalizeName trims the raw handshake line into a candidate display name.
func NormalizeName(line string) string {
	return strings.TrimSpace(line)
}

// ValidName reports whether name is one or more ASCII letters or digits.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
