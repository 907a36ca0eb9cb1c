package models

import (
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var (
	tagPattern      = regexp.MustCompile(`<[^>]*>`)
	nonNumericChars = regexp.MustCompile(`[^0-9.\-]`)

	// Control characters (including NUL) are stripped outright rather
	// than escaped.
	controlStripper = runes.Remove(runes.In(unicode.Cc))
)

// SanitizeTitle normalizes raw title input: control characters and null
// bytes are stripped, markup tags removed, remaining special characters
// HTML-escaped, and surrounding whitespace trimmed. It never rejects;
// rejection is the validator's job.
func SanitizeTitle(raw string) string {
	s, _, err := transform.String(controlStripper, raw)
	if err != nil {
		s = raw
	}
	s = tagPattern.ReplaceAllString(s, "")
	s = html.EscapeString(s)
	return strings.TrimSpace(s)
}

// CoercePrice extracts a decimal from arbitrary input by dropping every
// character except digits, '.' and '-'. Unparseable input coerces to 0.0,
// which the price validator then rejects.
func CoercePrice(raw string) float64 {
	cleaned := nonNumericChars.ReplaceAllString(raw, "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0.0
	}
	return v
}

// Round2 rounds to two decimal places, the precision prices are stored at.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
