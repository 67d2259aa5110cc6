package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arnif/event-registry/internal/model"
	"github.com/arnif/event-registry/internal/pipeline"
	"github.com/arnif/event-registry/internal/queue"
	"github.com/arnif/event-registry/internal/repository"
)

// RegistrationStore is the slice of the storage layer the signup
// endpoints need.
type RegistrationStore interface {
	Create(ctx context.Context, userID int64, name, comment string, eventID int64) (*model.Registration, error)
	DeleteByEventAndUser(ctx context.Context, eventID, userID int64) (int64, error)
	ListByEvent(ctx context.Context, eventID int64) ([]model.Registration, error)
}

// RegistrationHandler bundles dependencies for event signups.
type RegistrationHandler struct {
	Registrations RegistrationStore
}

func NewRegistrationHandler(regs RegistrationStore) *RegistrationHandler {
	return &RegistrationHandler{Registrations: regs}
}

type registrationResp struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Comment string `json:"comment"`
	EventID int64  `json:"event"`
}

func newRegistrationResp(r *model.Registration) registrationResp {
	return registrationResp{ID: r.ID, Name: r.Name, Comment: r.Comment, EventID: r.EventID}
}

// SignUp registers the authenticated principal for the resolved event.
// One signup per user per event; a second attempt gets a 409. A
// registration.created message is published after the row is committed,
// fire-and-forget so a broker outage never fails the signup.
func (h *RegistrationHandler) SignUp(c echo.Context) error {
	rc := pipeline.From(c)
	ev := rc.Resource.(*model.Event)
	comment, _ := rc.BodyString("comment")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reg, err := h.Registrations.Create(ctx, rc.Principal.ID, rc.Principal.Name, comment, ev.ID)
	if errors.Is(err, repository.ErrAlreadyRegistered) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "already registered"})
	}
	if err != nil {
		return err
	}

	msg := queue.RegistrationCreatedEvent{
		RegistrationID: reg.ID,
		EventID:        ev.ID,
		EventName:      ev.Name,
		EventSlug:      ev.Slug,
		UserID:         rc.Principal.ID,
		Username:       rc.Principal.Username,
		Comment:        reg.Comment,
		CreatedAt:      reg.Created.UTC().Format(time.RFC3339),
	}
	go func() { _ = queue.PublishRegistrationCreated(context.Background(), msg) }()

	return c.JSON(http.StatusCreated, newRegistrationResp(reg))
}

// Withdraw removes the principal's own registration for the resolved
// event. Nothing to remove is a 404.
func (h *RegistrationHandler) Withdraw(c echo.Context) error {
	rc := pipeline.From(c)
	ev := rc.Resource.(*model.Event)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Registrations.DeleteByEventAndUser(ctx, ev.ID, rc.Principal.ID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{})
}
