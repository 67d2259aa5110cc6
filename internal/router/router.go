// Package router wires the HTTP route table: every route declares its
// full pipeline inline, in the order the stages run.
package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/arnif/event-registry/internal/config"
	"github.com/arnif/event-registry/internal/handler"
	"github.com/arnif/event-registry/internal/middleware"
	"github.com/arnif/event-registry/internal/pipeline"
)

// Deps carries everything the route table needs.
type Deps struct {
	Cfg           config.Config
	CacheCfg      config.CacheConfig
	Redis         *redis.Client
	Users         *handler.UserHandler
	Events        *handler.EventHandler
	Registrations *handler.RegistrationHandler
	Principals    middleware.PrincipalStore
	UserFinder    pipeline.UserFinder
}

// Register installs the error handler and all application routes on the
// provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	e.HTTPErrorHandler = errorHandler

	requireAuth := middleware.RequireAuth(d.Cfg.JWTSecret, d.Principals)
	optionalAuth := middleware.OptionalAuth(d.Cfg.JWTSecret, d.Principals)
	cache := middleware.NewRedisCache(d.CacheCfg, d.Redis)

	nameRule := pipeline.Length("name", 1, 64, "name is required, max 64 characters")
	usernameRule := pipeline.Length("username", 1, 256, "username is required, max 256 characters")
	passwordRule := pipeline.Length("password", 10, 256, "password is required, min 10 characters, max 256 characters")
	descriptionRule := pipeline.MaxLength("description", 400, "description must be at most 400 characters")
	commentRule := pipeline.MaxLength("comment", 400, "comment must be at most 400 characters")

	e.GET("/healthz", handler.Health)

	// Events
	e.GET("/events",
		d.Events.List,
		cache,
		pipeline.Use(pipeline.PagingQuery()...),
		pipeline.Checkpoint(),
	)
	e.GET("/events/:id",
		d.Events.Get,
		cache,
		optionalAuth,
		pipeline.Use(pipeline.ResourceExists(d.Events.Resolver())),
		pipeline.Checkpoint(),
	)
	e.POST("/events",
		d.Events.Create,
		requireAuth,
		pipeline.Bind(),
		pipeline.Use(
			pipeline.Sanitize("name", "description"),
			nameRule,
			descriptionRule,
			pipeline.Sanitize("name", "description"),
		),
		pipeline.Checkpoint(),
	)
	e.PATCH("/events/:id",
		d.Events.Update,
		requireAuth,
		pipeline.Bind(),
		pipeline.Use(
			pipeline.ResourceExists(d.Events.Resolver()),
			pipeline.AtLeastOneOf("name", "description"),
			pipeline.Sanitize("name", "description"),
			nameRule,
			descriptionRule,
			pipeline.Sanitize("name", "description"),
		),
		pipeline.Checkpoint(),
		middleware.RequireOwner(),
	)
	e.DELETE("/events/:id",
		d.Events.Delete,
		requireAuth,
		pipeline.Use(pipeline.ResourceExists(d.Events.Resolver())),
		pipeline.Checkpoint(),
		middleware.RequireOwner(),
	)

	// Event signups
	e.POST("/events/:id/register",
		d.Registrations.SignUp,
		requireAuth,
		pipeline.Bind(),
		pipeline.Use(
			pipeline.ResourceExists(d.Events.Resolver()),
			pipeline.Sanitize("comment"),
			commentRule,
			pipeline.Sanitize("comment"),
		),
		pipeline.Checkpoint(),
	)
	e.DELETE("/events/:id/register",
		d.Registrations.Withdraw,
		requireAuth,
		pipeline.Use(pipeline.ResourceExists(d.Events.Resolver())),
		pipeline.Checkpoint(),
	)

	// Users
	e.GET("/users",
		d.Users.List,
		requireAuth,
		middleware.RequireAdmin(),
		pipeline.Use(pipeline.PagingQuery()...),
		pipeline.Checkpoint(),
	)
	e.GET("/users/:id",
		d.Users.Get,
		requireAuth,
		middleware.RequireAdmin(),
		pipeline.Use(pipeline.ResourceExists(d.Users.Resolver())),
		pipeline.Checkpoint(),
	)
	e.POST("/users/register",
		d.Users.Register,
		pipeline.Bind(),
		pipeline.Use(
			pipeline.Sanitize("name"),
			nameRule,
			usernameRule,
			passwordRule,
			pipeline.UsernameAvailable(d.UserFinder),
			pipeline.Sanitize("name"),
		),
		pipeline.Checkpoint(),
	)
	e.POST("/users/login",
		d.Users.Login,
		pipeline.Bind(),
		pipeline.Use(
			usernameRule,
			passwordRule,
			pipeline.CredentialsValid(d.UserFinder),
		),
		pipeline.Checkpoint(),
	)
	e.GET("/users/me",
		d.Users.Me,
		requireAuth,
	)
}

// errorHandler is the outermost boundary: echo's own errors keep their
// status, anything else is logged and collapsed into a generic 500 so no
// internal detail leaks.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = c.JSON(he.Code, echo.Map{"error": fmt.Sprint(he.Message)})
		return
	}
	log.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Request().URL.Path).Msg("unhandled error")
	_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}
