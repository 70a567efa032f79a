// Package sanitize strips markup from untrusted text before storage.
// Webhook bodies and inbound email are written into ticket threads that
// agents read in a browser, so markup never survives intake.
package sanitize

import (
	"regexp"
	"strings"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// StripHTML reduces a fragment to its text. Entities are decoded and the
// result re-stripped, so "&lt;script&gt;" cannot smuggle a tag through
// one pass.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes a user-provided field (message bodies, subjects, notes)
// for plain-text storage.
func Text(s string) string {
	return StripHTML(s)
}

// TextPtr applies Text to an optional field.
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	return &result
}
