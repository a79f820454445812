package utils

import "fmt"

// MaxSessionIDLength bounds client-chosen session identifiers
const MaxSessionIDLength = 128

// ValidateSessionID checks a client-supplied session identifier. Session ids
// appear in URL paths and Kafka keys, so only a conservative alphabet is allowed.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session_id cannot be empty")
	}
	if len(id) > MaxSessionIDLength {
		return fmt.Errorf("session_id exceeds %d characters", MaxSessionIDLength)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return fmt.Errorf("session_id contains invalid character %q", r)
		}
	}
	return nil
}
