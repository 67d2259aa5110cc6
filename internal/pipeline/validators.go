package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/arnif/event-registry/internal/auth"
	"github.com/arnif/event-registry/internal/model"
)

// UserFinder is the narrow slice of the user store the async validators
// need. Not-found is reported as (nil, nil); errors are transport-level.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// Length requires a body field to be a string of min..max characters.
// On PATCH requests an absent field passes, so the same rule serves both
// create and partial update routes ("required unless patch").
func Length(field string, min, max int, message string) Validator {
	return func(_ context.Context, rc *Context) []FieldError {
		v, ok := rc.BodyString(field)
		if !ok {
			if rc.Method == http.MethodPatch {
				return nil
			}
			return []FieldError{{Field: field, Message: message}}
		}
		if n := len([]rune(v)); n < min || n > max {
			return []FieldError{{Field: field, Message: message}}
		}
		return nil
	}
}

// MaxLength bounds an optional free-text field. Absent fields pass.
func MaxLength(field string, max int, message string) Validator {
	return func(_ context.Context, rc *Context) []FieldError {
		v, ok := rc.BodyString(field)
		if !ok {
			return nil
		}
		if len([]rune(v)) > max {
			return []FieldError{{Field: field, Message: message}}
		}
		return nil
	}
}

// AtLeastOneOf requires at least one of the given body fields to be
// present with a non-null value, used for partial updates.
func AtLeastOneOf(fields ...string) Validator {
	message := fmt.Sprintf("require at least one value of: %s", strings.Join(fields, ", "))
	return func(_ context.Context, rc *Context) []FieldError {
		for _, f := range fields {
			if rc.HasBodyField(f) {
				return nil
			}
		}
		return []FieldError{{Field: "", Message: message}}
	}
}

// QueryInt is the strict paging validator: the query parameter is
// optional, but when supplied it must parse as an integer of at least
// min. The permissive coercion in the pagination builder runs later and
// never sees values this rule rejected.
func QueryInt(param string, min int, message string) Validator {
	return func(_ context.Context, rc *Context) []FieldError {
		raw := rc.Query.Get(param)
		if raw == "" {
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < min {
			return []FieldError{{Field: param, Message: message}}
		}
		return nil
	}
}

// PagingQuery validates offset and limit for every list endpoint.
func PagingQuery() []Validator {
	return []Validator{
		QueryInt("offset", 0, `query parameter "offset" must be an int, 0 or larger`),
		QueryInt("limit", 1, `query parameter "limit" must be an int, larger than 0`),
	}
}

// UsernameAvailable rejects a registration when the username is already
// taken. The store lookup completes before the next validator runs.
func UsernameAvailable(users UserFinder) Validator {
	return func(ctx context.Context, rc *Context) []FieldError {
		username, ok := rc.BodyString("username")
		if !ok || username == "" {
			return nil // presence is the username length rule's concern
		}
		u, err := users.FindByUsername(ctx, username)
		if err != nil {
			rc.Fail(err)
			return nil
		}
		if u != nil {
			return []FieldError{{Field: "username", Message: "username already exists"}}
		}
		return nil
	}
}

// CredentialsValid verifies a username/password pair against the store.
// The error message never distinguishes an unknown user from a wrong
// password. On success the matched user is attached as the principal so
// the login handler does not fetch it again.
func CredentialsValid(users UserFinder) Validator {
	return func(ctx context.Context, rc *Context) []FieldError {
		username, _ := rc.BodyString("username")
		password, _ := rc.BodyString("password")
		if username == "" || password == "" {
			return nil // the length rules already reported these
		}
		u, err := users.FindByUsername(ctx, username)
		if err != nil {
			rc.Fail(err)
			return nil
		}
		if u == nil || !auth.VerifyPassword(u.PasswordHash, password) {
			return []FieldError{{Field: "username", Message: "username or password incorrect"}}
		}
		rc.Principal = u
		return nil
	}
}
