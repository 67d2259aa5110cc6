package pipeline

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// contextKey is where the per-request pipeline context lives inside the
// echo context.
const contextKey = "pipeline.context"

// From returns the pipeline context for the current request, creating it
// from the route parameters and query string on first use.
func From(c echo.Context) *Context {
	if rc, ok := c.Get(contextKey).(*Context); ok {
		return rc
	}
	params := map[string]string{}
	for _, name := range c.ParamNames() {
		params[name] = c.Param(name)
	}
	rc := &Context{
		Method: c.Request().Method,
		Params: params,
		Query:  c.QueryParams(),
	}
	c.Set(contextKey, rc)
	return rc
}

// Bind parses the JSON request body into the pipeline context. A body
// that is present but not valid JSON is special-cased to a 400 with an
// explicit message instead of falling through to the generic handler.
func Bind() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rc := From(c)
			body := map[string]any{}
			if r := c.Request().Body; r != nil {
				dec := json.NewDecoder(r)
				// io.EOF just means an empty body, which later rules may reject
				if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
					return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
				}
			}
			rc.Body = body
			return next(c)
		}
	}
}

// Use runs validators in declaration order against the request's
// pipeline context. Errors accumulate; a transport-level failure from a
// store-backed validator aborts the chain and bubbles to the outermost
// error handler as a 500.
func Use(validators ...Validator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rc := From(c)
			if err := Run(c.Request().Context(), rc, validators...); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// Checkpoint terminates the request with a 400 listing every accumulated
// validation error, or lets it continue when the chain is clean.
func Checkpoint() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rc := From(c)
			if len(rc.Errors) > 0 {
				return c.JSON(http.StatusBadRequest, echo.Map{"errors": rc.Errors})
			}
			return next(c)
		}
	}
}
