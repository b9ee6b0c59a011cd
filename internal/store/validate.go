package store

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxUserIDLength is the maximum allowed length for user identifier strings
// (subject ids, requester ids, linked ids). Matches the link archive column width.
const MaxUserIDLength = 255

// MaxFactLength caps a single fact so the people document stays readable.
const MaxFactLength = 1000

// ValidateUserID checks that a user identifier does not exceed MaxUserIDLength.
func ValidateUserID(id string) error {
	if len(id) > MaxUserIDLength {
		return fmt.Errorf("user identifier too long: %d chars (max %d)", len(id), MaxUserIDLength)
	}
	return nil
}

// ValidateFactText rejects empty or oversized facts.
func ValidateFactText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("fact is empty")
	}
	if n := utf8.RuneCountInString(text); n > MaxFactLength {
		return fmt.Errorf("fact too long: %d chars (max %d)", n, MaxFactLength)
	}
	return nil
}
