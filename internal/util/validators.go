package util

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	propertyIDPattern    = regexp.MustCompile(`^\d+$`)
	spreadsheetIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// SanitizeQuery collapses whitespace and strips non-printable characters.
func SanitizeQuery(query string) string {
	query = strings.Join(strings.Fields(query), " ")

	var b strings.Builder
	for _, r := range query {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// ValidateQueryLength checks the sanitized query meets the minimum length.
func ValidateQueryLength(query string) (bool, string) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return false, "Query cannot be empty"
	}
	if len(trimmed) < 3 {
		return false, "Query must contain at least 3 non-whitespace characters"
	}
	return true, ""
}

// ValidatePropertyID checks a GA4 property id: numeric, 5-15 digits.
func ValidatePropertyID(propertyID string) bool {
	if propertyID == "" {
		return false
	}
	if !propertyIDPattern.MatchString(propertyID) {
		return false
	}
	return len(propertyID) >= 5 && len(propertyID) <= 15
}

// ValidateSpreadsheetID checks a Sheets id: alphanumeric with hyphens and
// underscores, 20-100 characters.
func ValidateSpreadsheetID(spreadsheetID string) bool {
	if spreadsheetID == "" {
		return false
	}
	if !spreadsheetIDPattern.MatchString(spreadsheetID) {
		return false
	}
	return len(spreadsheetID) >= 20 && len(spreadsheetID) <= 100
}
