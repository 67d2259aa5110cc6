package pipeline

import (
	"context"
	"strconv"
)

// Resolver turns a path identifier into a domain entity. Not-found is
// (nil, nil); a non-nil error means the store itself failed.
type Resolver func(ctx context.Context, id int64) (any, error)

// ResourceExists resolves the :id path parameter through the given
// resolver and attaches the entity to the context, so handlers never
// fetch it a second time. A missing or unresolvable id adds a single
// "not found" validation error, surfaced by the checkpoint as a 400 to
// keep one error-reporting path.
func ResourceExists(resolve Resolver) Validator {
	return func(ctx context.Context, rc *Context) []FieldError {
		notFound := []FieldError{{Field: "id", Message: "not found"}}

		id, err := strconv.ParseInt(rc.Params["id"], 10, 64)
		if err != nil || id < 1 {
			return notFound
		}
		entity, err := resolve(ctx, id)
		if err != nil {
			rc.Fail(err)
			return nil
		}
		if entity == nil {
			return notFound
		}
		rc.Resource = entity
		return nil
	}
}
