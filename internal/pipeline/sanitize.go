package pipeline

import (
	"context"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy removes all HTML tags and attributes, leaving escaped
// plain text. Escaping already-escaped text yields the same output, so
// the stage can run both before and after validation.
var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips markup from free-text input and trims surrounding
// whitespace. Idempotent: SanitizeText(SanitizeText(x)) == SanitizeText(x).
func SanitizeText(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// Sanitize rewrites the named body fields through SanitizeText. It is a
// stage of the chain rather than a validator proper: it always runs,
// never reports errors, and appears both before and after the validation
// rules so loosened rules can never let injected markup through.
func Sanitize(fields ...string) Validator {
	return func(_ context.Context, rc *Context) []FieldError {
		for _, f := range fields {
			if v, ok := rc.BodyString(f); ok {
				rc.SetBodyString(f, SanitizeText(v))
			}
		}
		return nil
	}
}
