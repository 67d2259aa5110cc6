package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arnif/event-registry/internal/auth"
	"github.com/arnif/event-registry/internal/config"
	"github.com/arnif/event-registry/internal/model"
	"github.com/arnif/event-registry/internal/pagination"
	"github.com/arnif/event-registry/internal/pipeline"
	"github.com/arnif/event-registry/internal/repository"
)

// UserStore is the slice of the storage layer the user handlers need.
type UserStore interface {
	Create(ctx context.Context, name, username, passwordHash string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context, limit, offset int) ([]model.User, error)
}

// UserHandler bundles dependencies for the user endpoints.
type UserHandler struct {
	Cfg   config.Config
	Users UserStore
}

func NewUserHandler(cfg config.Config, users UserStore) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users}
}

// userResp is the serialized form of a user. The password digest is
// stripped here and never appears in any response payload.
type userResp struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}

func newUserResp(u *model.User) userResp {
	return userResp{ID: u.ID, Name: u.Name, Username: u.Username, Admin: u.Admin}
}

type loginResp struct {
	User      userResp `json:"user"`
	Token     string   `json:"token"`
	ExpiresIn int      `json:"expiresIn"`
}

// Register creates a user from the validated, sanitized body and returns
// it without the password field.
func (h *UserHandler) Register(c echo.Context) error {
	rc := pipeline.From(c)
	name, _ := rc.BodyString("name")
	username, _ := rc.BodyString("username")
	password, _ := rc.BodyString("password")

	hash, err := auth.HashPassword(password, h.Cfg.BcryptCost)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Create(ctx, name, username, hash)
	if errors.Is(err, repository.ErrUsernameExists) {
		// The availability validator already checks this; losing the race
		// between check and insert still gets the same error shape.
		return c.JSON(http.StatusBadRequest, echo.Map{
			"errors": []pipeline.FieldError{{Field: "username", Message: "username already exists"}},
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newUserResp(u))
}

// Login issues a session token for the principal the credentials
// validator already resolved and attached.
func (h *UserHandler) Login(c echo.Context) error {
	rc := pipeline.From(c)
	if rc.Principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "username or password incorrect"})
	}
	tok, err := auth.IssueToken(h.Cfg.JWTSecret, rc.Principal.ID, h.Cfg.TokenTTLSec)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResp{
		User:      newUserResp(rc.Principal),
		Token:     tok.Token,
		ExpiresIn: tok.ExpiresIn,
	})
}

// Me returns the authenticated principal.
func (h *UserHandler) Me(c echo.Context) error {
	rc := pipeline.From(c)
	return c.JSON(http.StatusOK, newUserResp(rc.Principal))
}

// List returns a page of users. Admin only; the route applies the strict
// paging validators first, so coercion here is purely permissive.
func (h *UserHandler) List(c echo.Context) error {
	opts := pagination.Parse(c.QueryParams())

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx, opts.Limit, opts.Offset)
	if err != nil {
		return err
	}
	items := make([]userResp, 0, len(users))
	for i := range users {
		items = append(items, newUserResp(&users[i]))
	}
	return c.JSON(http.StatusOK, pagination.NewPage(c.Request().URL.Path, opts, items))
}

// Get returns the user the existence guard resolved.
func (h *UserHandler) Get(c echo.Context) error {
	u := pipeline.From(c).Resource.(*model.User)
	return c.JSON(http.StatusOK, newUserResp(u))
}

// Resolver adapts the store to the existence guard. A typed nil must
// not leak into the interface value, so the nil case is explicit.
func (h *UserHandler) Resolver() pipeline.Resolver {
	return func(ctx context.Context, id int64) (any, error) {
		u, err := h.Users.FindByID(ctx, id)
		if err != nil || u == nil {
			return nil, err
		}
		return u, nil
	}
}
