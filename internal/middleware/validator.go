package middleware

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Input validation and sanitization utilities

var itemIDPattern = regexp.MustCompile(`^[A-Z]{3}\d{1,20}$`)

// ValidateItemID checks a marketplace listing id such as MLB123456.
func ValidateItemID(id string) error {
	if id == "" {
		return fmt.Errorf("product_id is required")
	}
	if !itemIDPattern.MatchString(id) {
		return fmt.Errorf("invalid product_id format: %s", id)
	}
	return nil
}

// ParseUserID parses a positive seller id. An empty string yields 0.
func ParseUserID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user_id: %s", raw)
	}
	return id, nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// QueryInt reads an integer query value, falling back to def.
func QueryInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}
