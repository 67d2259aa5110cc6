package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/arnif/event-registry/internal/auth"
	"github.com/arnif/event-registry/internal/model"
)

type fakeUsers struct {
	byUsername map[string]*model.User
	err        error
}

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byUsername[username], nil
}

func bodyCtx(method string, body map[string]any) *Context {
	return &Context{Method: method, Body: body, Query: url.Values{}}
}

func TestLengthRequired(t *testing.T) {
	rule := Length("name", 1, 64, "name is required, max 64 characters")

	require.Empty(t, rule(context.Background(), bodyCtx(http.MethodPost, map[string]any{"name": "ok"})))
	require.Len(t, rule(context.Background(), bodyCtx(http.MethodPost, map[string]any{})), 1)
	require.Len(t, rule(context.Background(), bodyCtx(http.MethodPost, map[string]any{"name": ""})), 1)

	long := make([]byte, 65)
	for i := range long {
		long[i] = 'a'
	}
	errs := rule(context.Background(), bodyCtx(http.MethodPost, map[string]any{"name": string(long)}))

	require.Equal(t, []FieldError{{Field: "name", Message: "name is required, max 64 characters"}}, errs)
}

func TestLengthOptionalOnPatch(t *testing.T) {
	rule := Length("name", 1, 64, "required")

	// absent on PATCH passes, present but invalid still fails
	require.Empty(t, rule(context.Background(), bodyCtx(http.MethodPatch, map[string]any{})))
	require.Len(t, rule(context.Background(), bodyCtx(http.MethodPatch, map[string]any{"name": ""})), 1)
	require.Empty(t, rule(context.Background(), bodyCtx(http.MethodPatch, map[string]any{"name": "ok"})))
}

func TestAtLeastOneOf(t *testing.T) {
	rule := AtLeastOneOf("name", "description")

	require.Empty(t, rule(context.Background(), bodyCtx(http.MethodPatch, map[string]any{"description": "d"})))

	errs := rule(context.Background(), bodyCtx(http.MethodPatch, map[string]any{}))

	require.Len(t, errs, 1)
	require.Equal(t, "require at least one value of: name, description", errs[0].Message)

	// explicit null does not count as present
	errs = rule(context.Background(), bodyCtx(http.MethodPatch, map[string]any{"name": nil}))

	require.Len(t, errs, 1)
}

func TestQueryIntStrict(t *testing.T) {
	limit := QueryInt("limit", 1, "bad limit")

	for raw, wantErrs := range map[string]int{
		"":    0,
		"1":   0,
		"50":  0,
		"0":   1,
		"-1":  1,
		"abc": 1,
		"1.5": 1,
	} {
		rc := &Context{Query: url.Values{}}
		if raw != "" {
			rc.Query.Set("limit", raw)
		}

		require.Len(t, limit(context.Background(), rc), wantErrs, "limit=%q", raw)
	}
}

func TestRunAggregatesInOrder(t *testing.T) {
	rc := bodyCtx(http.MethodPost, map[string]any{})

	err := Run(context.Background(), rc,
		Length("name", 1, 64, "name missing"),
		Length("username", 1, 256, "username missing"),
		Length("password", 10, 256, "password missing"),
	)

	require.NoError(t, err)
	require.Equal(t, []FieldError{
		{Field: "name", Message: "name missing"},
		{Field: "username", Message: "username missing"},
		{Field: "password", Message: "password missing"},
	}, rc.Errors)
}

func TestRunStopsOnTransportFailure(t *testing.T) {
	boom := errors.New("store down")
	ran := false
	rc := bodyCtx(http.MethodPost, map[string]any{"username": "kari"})

	err := Run(context.Background(), rc,
		UsernameAvailable(&fakeUsers{err: boom}),
		func(context.Context, *Context) []FieldError { ran = true; return nil },
	)

	require.ErrorIs(t, err, boom)
	require.False(t, ran, "later validators must not run after a transport failure")
}

func TestUsernameAvailable(t *testing.T) {
	users := &fakeUsers{byUsername: map[string]*model.User{"taken": {ID: 1, Username: "taken"}}}
	rule := UsernameAvailable(users)

	require.Empty(t, rule(context.Background(), bodyCtx(http.MethodPost, map[string]any{"username": "free"})))

	errs := rule(context.Background(), bodyCtx(http.MethodPost, map[string]any{"username": "taken"}))

	require.Equal(t, []FieldError{{Field: "username", Message: "username already exists"}}, errs)
}

func TestCredentialsValid(t *testing.T) {
	hash, err := auth.HashPassword("longenough1", bcrypt.MinCost)
	require.NoError(t, err)

	users := &fakeUsers{byUsername: map[string]*model.User{
		"kari": {ID: 7, Username: "kari", PasswordHash: hash},
	}}
	rule := CredentialsValid(users)

	rc := bodyCtx(http.MethodPost, map[string]any{"username": "kari", "password": "longenough1"})

	require.Empty(t, rule(context.Background(), rc))
	require.NotNil(t, rc.Principal)
	require.Equal(t, int64(7), rc.Principal.ID)
}

func TestCredentialsValidAntiEnumeration(t *testing.T) {
	hash, err := auth.HashPassword("longenough1", bcrypt.MinCost)
	require.NoError(t, err)

	users := &fakeUsers{byUsername: map[string]*model.User{
		"kari": {ID: 7, Username: "kari", PasswordHash: hash},
	}}
	rule := CredentialsValid(users)

	wrongPassword := rule(context.Background(),
		bodyCtx(http.MethodPost, map[string]any{"username": "kari", "password": "wrongpassword"}))
	unknownUser := rule(context.Background(),
		bodyCtx(http.MethodPost, map[string]any{"username": "nobody", "password": "longenough1"}))

	// The message must not reveal which half was wrong.
	require.Equal(t, wrongPassword, unknownUser)
	require.Equal(t, "username or password incorrect", wrongPassword[0].Message)
}

func TestCredentialsValidSkipsIncompleteInput(t *testing.T) {
	rule := CredentialsValid(&fakeUsers{})

	// the length rules already reported the missing fields
	require.Empty(t, rule(context.Background(), bodyCtx(http.MethodPost, map[string]any{"username": "kari"})))
	require.Empty(t, rule(context.Background(), bodyCtx(http.MethodPost, map[string]any{})))
}
