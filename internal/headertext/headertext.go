// Package headertext validates that a header value is valid single-line
// text before it enters the Params vector: a header whose value contains
// a newline, carriage return, or other control character is dropped
// rather than corrupting the positional argv layout a stage parses.
package headertext

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripControl removes Unicode control-category runes (which includes
// \n, \r, and friends) and applies NFC normalization so a header value
// survives a round trip through a child process's argv unmangled.
var stripControl = transform.Chain(norm.NFC, runes.Remove(runes.In(unicode.C)))

// Sanitize returns v with control characters removed and text normalized,
// plus whether v was already valid single-line text (i.e. Sanitize(v) == v).
func Sanitize(v string) (clean string, wasValid bool) {
	out, _, err := transform.String(stripControl, v)
	if err != nil {
		return "", false
	}
	return out, out == v
}

// IsValidSingleLine reports whether v may be used verbatim as a header
// value in the Params vector.
func IsValidSingleLine(v string) bool {
	_, ok := Sanitize(v)
	return ok
}
