package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// textSanitizer strips markup from free-text fields such as names and modules.
type textSanitizer struct {
	policy *bluemonday.Policy
}

func newTextSanitizer() textSanitizer {
	return textSanitizer{policy: bluemonday.StrictPolicy()}
}

// clean removes tags and collapses whitespace. Entities escaped by the policy
// are decoded again so names like "D'Amico" survive unchanged.
func (s textSanitizer) clean(value string) string {
	stripped := html.UnescapeString(s.policy.Sanitize(value))
	return strings.Join(strings.Fields(stripped), " ")
}

func (s textSanitizer) cleanCNE(value string) string {
	return strings.ToUpper(strings.TrimSpace(s.policy.Sanitize(value)))
}
