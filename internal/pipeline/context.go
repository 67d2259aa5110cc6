// Package pipeline implements the request validation pipeline: a
// per-request context threaded through an ordered chain of validators, a
// sanitization stage, a resource existence guard and a terminal checkpoint
// that turns accumulated field errors into a 400 response.
package pipeline

import (
	"net/url"

	"github.com/arnif/event-registry/internal/model"
)

// FieldError is a single structured validation failure tied to a request
// field. Validators append these to the request context; the checkpoint
// reports them all at once so a client sees every problem in one response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Context is the working unit of the pipeline. One is built per request,
// owned exclusively by that request and discarded at response time.
// Principal and Resource are populated by the guards and read by
// downstream stages and handlers.
type Context struct {
	Method    string
	Params    map[string]string
	Query     url.Values
	Body      map[string]any
	Principal *model.User
	Resource  any
	Errors    []FieldError

	// fatal holds a transport-level failure (store unreachable etc.).
	// It terminates the chain and surfaces as a 500, unlike field
	// errors which accumulate.
	fatal error
}

// AddError appends a structured validation failure.
func (rc *Context) AddError(field, message string) {
	rc.Errors = append(rc.Errors, FieldError{Field: field, Message: message})
}

// Fail records a transport-level failure. The chain stops after the
// current validator returns.
func (rc *Context) Fail(err error) { rc.fatal = err }

// BodyString returns the string value of a body field. The second return
// is false when the field is absent, null or not a string.
func (rc *Context) BodyString(field string) (string, bool) {
	if rc.Body == nil {
		return "", false
	}
	v, ok := rc.Body[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SetBodyString overwrites a body field, used by the sanitization stage.
func (rc *Context) SetBodyString(field, value string) {
	if rc.Body == nil {
		rc.Body = map[string]any{}
	}
	rc.Body[field] = value
}

// HasBodyField reports whether the field is present with a non-null value.
func (rc *Context) HasBodyField(field string) bool {
	if rc.Body == nil {
		return false
	}
	v, ok := rc.Body[field]
	return ok && v != nil
}
