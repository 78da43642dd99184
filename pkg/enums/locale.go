package enums

import "fmt"

// Locale selects the language variant of a content item.
type Locale string

const (
	LocaleEnglish Locale = "en"
	LocaleHindi   Locale = "hi"
)

var validLocales = []Locale{
	LocaleEnglish,
	LocaleHindi,
}

// String implements fmt.Stringer.
func (l Locale) String() string {
	return string(l)
}

// IsValid reports whether the value is known.
func (l Locale) IsValid() bool {
	for _, candidate := range validLocales {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLocale converts raw input into a Locale, defaulting empty input to English.
func ParseLocale(value string) (Locale, error) {
	if value == "" {
		return LocaleEnglish, nil
	}
	for _, candidate := range validLocales {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid locale %q", value)
}
