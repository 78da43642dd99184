package types

import "github.com/sadhanapeeth/sadhana-backend/pkg/enums"

// Bilingual holds the English and Hindi variants of a user-facing string.
type Bilingual struct {
	En string `json:"en"`
	Hi string `json:"hi,omitempty"`
}

// In returns the variant for the locale, falling back to English when the
// Hindi variant is empty.
func (b Bilingual) In(locale enums.Locale) string {
	if locale == enums.LocaleHindi && b.Hi != "" {
		return b.Hi
	}
	return b.En
}

// IsZero reports whether both variants are empty.
func (b Bilingual) IsZero() bool {
	return b.En == "" && b.Hi == ""
}
