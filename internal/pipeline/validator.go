package pipeline

import "context"

// Validator inspects the request context and returns zero or more field
// errors. Validators run strictly in declaration order and each one
// finishes (including any store lookups) before the next starts, because
// later validators may depend on earlier side effects such as sanitized
// fields or an attached resource. Validators never terminate the request
// themselves; that is the checkpoint's job.
type Validator func(ctx context.Context, rc *Context) []FieldError

// Run executes validators sequentially, accumulating their errors on the
// context. It stops early only on a transport-level failure recorded via
// Fail, which it returns so callers can surface a 500.
func Run(ctx context.Context, rc *Context, validators ...Validator) error {
	for _, v := range validators {
		rc.Errors = append(rc.Errors, v(ctx, rc)...)
		if rc.fatal != nil {
			return rc.fatal
		}
	}
	return nil
}
