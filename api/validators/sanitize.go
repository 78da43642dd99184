package validators

import "strings"

// SanitizeText trims surrounding whitespace and clamps free-form input,
// such as plan descriptions and admin notes, to maxLen bytes.
func SanitizeText(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		trimmed = trimmed[:maxLen]
	}
	return trimmed
}
