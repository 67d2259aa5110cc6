package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arnif/event-registry/internal/model"
	"github.com/arnif/event-registry/internal/pagination"
	"github.com/arnif/event-registry/internal/pipeline"
	"github.com/arnif/event-registry/internal/repository"
	"github.com/arnif/event-registry/internal/utils"
)

// EventStore is the slice of the storage layer the event handlers need.
type EventStore interface {
	Create(ctx context.Context, name, slug, description string, creatorID int64) (*model.Event, error)
	FindByID(ctx context.Context, id int64) (*model.Event, error)
	Update(ctx context.Context, id int64, name, slug, description string) (*model.Event, error)
	Delete(ctx context.Context, id int64) (int64, error)
	List(ctx context.Context, limit, offset int) ([]model.Event, error)
}

// EventHandler bundles dependencies for the event endpoints.
type EventHandler struct {
	Events        EventStore
	Registrations RegistrationStore
}

func NewEventHandler(events EventStore, regs RegistrationStore) *EventHandler {
	return &EventHandler{Events: events, Registrations: regs}
}

type eventResp struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatorID   int64     `json:"creatorId"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

func newEventResp(e *model.Event) eventResp {
	return eventResp{
		ID:          e.ID,
		Name:        e.Name,
		Slug:        e.Slug,
		Description: e.Description,
		CreatorID:   e.CreatorID,
		Created:     e.Created,
		Updated:     e.Updated,
	}
}

// eventDetailResp embeds who is registered alongside the event itself.
type eventDetailResp struct {
	eventResp
	Registrations []registrationResp `json:"registrations"`
}

// List returns a page of events ordered by ascending id.
func (h *EventHandler) List(c echo.Context) error {
	opts := pagination.Parse(c.QueryParams())

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.List(ctx, opts.Limit, opts.Offset)
	if err != nil {
		return err
	}
	items := make([]eventResp, 0, len(events))
	for i := range events {
		items = append(items, newEventResp(&events[i]))
	}
	return c.JSON(http.StatusOK, pagination.NewPage(c.Request().URL.Path, opts, items))
}

// Get returns the event the existence guard resolved, together with its
// registrations so clients need no second round trip.
func (h *EventHandler) Get(c echo.Context) error {
	ev := pipeline.From(c).Resource.(*model.Event)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	regs, err := h.Registrations.ListByEvent(ctx, ev.ID)
	if err != nil {
		return err
	}
	resp := eventDetailResp{eventResp: newEventResp(ev), Registrations: make([]registrationResp, 0, len(regs))}
	for i := range regs {
		resp.Registrations = append(resp.Registrations, newRegistrationResp(&regs[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// Create inserts an event owned by the authenticated principal. The slug
// is derived from the sanitized name.
func (h *EventHandler) Create(c echo.Context) error {
	rc := pipeline.From(c)
	name, _ := rc.BodyString("name")
	description, _ := rc.BodyString("description")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.Create(ctx, name, utils.Slugify(name), description, rc.Principal.ID)
	if errors.Is(err, repository.ErrEventExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event already exists"})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newEventResp(ev))
}

// Update applies a partial update to the resolved event. Absent fields
// keep their current value; a new name recomputes the slug.
func (h *EventHandler) Update(c echo.Context) error {
	rc := pipeline.From(c)
	ev := rc.Resource.(*model.Event)

	name, slug, description := ev.Name, ev.Slug, ev.Description
	if v, ok := rc.BodyString("name"); ok {
		name = v
		slug = utils.Slugify(v)
	}
	if v, ok := rc.BodyString("description"); ok {
		description = v
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	updated, err := h.Events.Update(ctx, ev.ID, name, slug, description)
	if errors.Is(err, repository.ErrEventExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event already exists"})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newEventResp(updated))
}

// Delete removes the resolved event. Zero rows affected means someone
// else deleted it first, reported as 404.
func (h *EventHandler) Delete(c echo.Context) error {
	ev := pipeline.From(c).Resource.(*model.Event)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Events.Delete(ctx, ev.ID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

// Resolver adapts the store to the existence guard.
func (h *EventHandler) Resolver() pipeline.Resolver {
	return func(ctx context.Context, id int64) (any, error) {
		ev, err := h.Events.FindByID(ctx, id)
		if err != nil || ev == nil {
			return nil, err
		}
		return ev, nil
	}
}
