package service

import (
	"fmt"
	"regexp"
	"strings"
)

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidationError rejects user input before it reaches the monitor.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// NormalizeAddress checks the 0x + 40 hex format and lowercases it.
func NormalizeAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !addressRe.MatchString(s) {
		return "", &ValidationError{Field: "address", Value: s}
	}
	return strings.ToLower(s), nil
}
