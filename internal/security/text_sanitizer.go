// Package security cleans user-entered free text before it is stored
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer strips markup from plain-text fields
// (nearest town, blocked duration, display name)
type TextSanitizer interface {
	// Sanitize removes every HTML element, collapses whitespace and trims the result
	Sanitize(s string) string
}

// textSanitizer uses the bluemonday strict policy, which allows no elements at all
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer creates a TextSanitizer
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize returns unescaped plain text; templates escape it again on output
func (s *textSanitizer) Sanitize(in string) string {
	stripped := html.UnescapeString(s.policy.Sanitize(in))
	return strings.Join(strings.Fields(stripped), " ")
}
