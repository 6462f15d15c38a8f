// Package normalize canonicalizes raw invoice, PO and GRN payloads into the
// typed model used by the matching and scoring packages.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Text returns the comparison form of free text: NFKC, case folded, trimmed
// and with internal whitespace collapsed to single spaces.
func Text(s string) string {
	if s == "" {
		return ""
	}
	folded := cases.Fold().String(norm.NFKC.String(s))
	return strings.Join(strings.Fields(folded), " ")
}

// Tokens splits the comparison form of s on whitespace.
func Tokens(s string) []string {
	return strings.Fields(Text(s))
}

// Display trims the value for presentation while keeping its original case.
func Display(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Equal compares two strings in their comparison form.
func Equal(a, b string) bool {
	return Text(a) == Text(b)
}
