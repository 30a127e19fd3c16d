package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize drops control characters and collapses every whitespace run to a
// single space.
func TrimAndNormalize(s string) string {
	visible := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(visible), " ")
}

// NormalizeID trims identifiers; ids are opaque so case is preserved.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeNotes(notes string) string {
	return TrimAndNormalize(notes)
}

func NormalizeEmail(email string) string {
	return Pipeline{strings.TrimSpace, strings.ToLower}.Apply(email)
}

// NormalizeCurrency returns the lowercase ISO 4217 code the gateways expect.
func NormalizeCurrency(currency string) string {
	return Pipeline{strings.TrimSpace, strings.ToLower}.Apply(currency)
}
