package shared

import "strings"

const (
	DefaultSourceLanguage = "EN"
	DefaultTargetLanguage = "ES"
)

// NormalizeLanguage returns the upper-case language code the backend expects.
func NormalizeLanguage(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
