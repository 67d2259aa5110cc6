package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/arnif/event-registry/internal/config"
	"github.com/arnif/event-registry/internal/handler"
	"github.com/arnif/event-registry/internal/model"
	"github.com/arnif/event-registry/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories, good
// enough to drive every route end to end.
type memStore struct {
	mu     sync.Mutex
	users  map[int64]*model.User
	events map[int64]*model.Event
	regs   map[int64]*model.Registration
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[int64]*model.User{},
		events: map[int64]*model.Event{},
		regs:   map[int64]*model.Registration{},
	}
}

func (s *memStore) id() int64 { s.nextID++; return s.nextID }

func (s *memStore) Create(ctx context.Context, name, username, passwordHash string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return nil, repository.ErrUsernameExists
		}
	}
	u := &model.User{ID: s.id(), Name: name, Username: username, PasswordHash: passwordHash}
	s.users[u.ID] = u
	return u, nil
}

func (s *memStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == strings.TrimSpace(username) {
			return u, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindByID(ctx context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *memStore) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []model.User{}
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, *s.users[ids[i]])
	}
	return out, nil
}

func (s *memStore) CreateEvent(ctx context.Context, name, slug, description string, creatorID int64) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.Slug == slug {
			return nil, repository.ErrEventExists
		}
	}
	ev := &model.Event{ID: s.id(), Name: name, Slug: slug, Description: description, CreatorID: creatorID}
	s.events[ev.ID] = ev
	return ev, nil
}

func (s *memStore) FindEventByID(ctx context.Context, id int64) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id], nil
}

func (s *memStore) UpdateEvent(ctx context.Context, id int64, name, slug, description string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.events[id]
	if ev == nil {
		return nil, nil
	}
	for _, other := range s.events {
		if other.ID != id && other.Slug == slug {
			return nil, repository.ErrEventExists
		}
	}
	ev.Name, ev.Slug, ev.Description = name, slug, description
	return ev, nil
}

func (s *memStore) DeleteEvent(ctx context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return 0, nil
	}
	delete(s.events, id)
	return 1, nil
}

func (s *memStore) ListEvents(ctx context.Context, limit, offset int) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.events))
	for id := range s.events {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []model.Event{}
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, *s.events[ids[i]])
	}
	return out, nil
}

func (s *memStore) CreateRegistration(ctx context.Context, userID int64, name, comment string, eventID int64) (*model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regs {
		if r.UserID == userID && r.EventID == eventID {
			return nil, repository.ErrAlreadyRegistered
		}
	}
	r := &model.Registration{ID: s.id(), UserID: userID, Name: name, Comment: comment, EventID: eventID}
	s.regs[r.ID] = r
	return r, nil
}

func (s *memStore) DeleteByEventAndUser(ctx context.Context, eventID, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.regs {
		if r.EventID == eventID && r.UserID == userID {
			delete(s.regs, id)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *memStore) ListByEvent(ctx context.Context, eventID int64) ([]model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.regs))
	for id, r := range s.regs {
		if r.EventID == eventID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []model.Registration{}
	for _, id := range ids {
		out = append(out, *s.regs[id])
	}
	return out, nil
}

// eventStore and registrationStore adapt the shared memStore to the
// handler interfaces, whose method names collide across entities.
type eventStore struct{ *memStore }

func (s eventStore) Create(ctx context.Context, name, slug, description string, creatorID int64) (*model.Event, error) {
	return s.CreateEvent(ctx, name, slug, description, creatorID)
}
func (s eventStore) FindByID(ctx context.Context, id int64) (*model.Event, error) {
	return s.FindEventByID(ctx, id)
}
func (s eventStore) Update(ctx context.Context, id int64, name, slug, description string) (*model.Event, error) {
	return s.UpdateEvent(ctx, id, name, slug, description)
}
func (s eventStore) Delete(ctx context.Context, id int64) (int64, error) {
	return s.DeleteEvent(ctx, id)
}
func (s eventStore) List(ctx context.Context, limit, offset int) ([]model.Event, error) {
	return s.ListEvents(ctx, limit, offset)
}

type registrationStore struct{ *memStore }

func (s registrationStore) Create(ctx context.Context, userID int64, name, comment string, eventID int64) (*model.Registration, error) {
	return s.CreateRegistration(ctx, userID, name, comment, eventID)
}

func newAPI(t *testing.T) (*echo.Echo, *memStore) {
	t.Helper()
	store := newMemStore()
	cfg := config.Config{JWTSecret: "router-secret", TokenTTLSec: 3600, BcryptCost: bcrypt.MinCost}
	regs := registrationStore{store}

	e := echo.New()
	Register(e, Deps{
		Cfg:           cfg,
		Users:         handler.NewUserHandler(cfg, store),
		Events:        handler.NewEventHandler(eventStore{store}, regs),
		Registrations: handler.NewRegistrationHandler(regs),
		Principals:    store,
		UserFinder:    store,
	})
	return e, store
}

func doJSON(e *echo.Echo, method, path, token string, body any) *httptest.ResponseRecorder {
	var r *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, e *echo.Echo, name, username string) string {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/users/register", "", map[string]any{
		"name": name, "username": username, "password": "longenough1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(e, http.MethodPost, "/users/login", "", map[string]any{
		"username": username, "password": "longenough1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterLoginMe(t *testing.T) {
	e, _ := newAPI(t)

	rec := doJSON(e, http.MethodPost, "/users/register", "", map[string]any{
		"name": "Kari", "username": "KariK", "password": "longenough1",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "Kari", created["name"])
	require.Equal(t, "KariK", created["username"])
	require.Equal(t, false, created["admin"])
	require.NotContains(t, created, "password")

	rec = doJSON(e, http.MethodPost, "/users/login", "", map[string]any{
		"username": "KariK", "password": "longenough1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		User  map[string]any `json:"user"`
		Token string         `json:"token"`
		TTL   int            `json:"expiresIn"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.Equal(t, created["id"], login.User["id"])
	require.Equal(t, 3600, login.TTL)

	rec = doJSON(e, http.MethodGet, "/users/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.Equal(t, created["id"], me["id"])
	require.NotContains(t, me, "password")
}

func TestRegisterValidationAggregates(t *testing.T) {
	e, _ := newAPI(t)

	rec := doJSON(e, http.MethodPost, "/users/register", "", map[string]any{
		"username": "karik", "password": "short",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"errors":[
		{"field":"name","message":"name is required, max 64 characters"},
		{"field":"password","message":"password is required, min 10 characters, max 256 characters"}
	]}`, rec.Body.String())
}

func TestRegisterDuplicateUsername(t *testing.T) {
	e, _ := newAPI(t)
	registerAndLogin(t, e, "Kari", "karik")

	rec := doJSON(e, http.MethodPost, "/users/register", "", map[string]any{
		"name": "Other", "username": "karik", "password": "longenough1",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"errors":[{"field":"username","message":"username already exists"}]}`, rec.Body.String())
}

func TestLoginRejectionsAreIndistinguishable(t *testing.T) {
	e, _ := newAPI(t)
	registerAndLogin(t, e, "Kari", "karik")

	wrongPass := doJSON(e, http.MethodPost, "/users/login", "", map[string]any{
		"username": "karik", "password": "wrongpassword",
	})
	unknownUser := doJSON(e, http.MethodPost, "/users/login", "", map[string]any{
		"username": "nobodyhere", "password": "wrongpassword",
	})

	require.Equal(t, http.StatusBadRequest, wrongPass.Code)
	require.Equal(t, http.StatusBadRequest, unknownUser.Code)
	require.JSONEq(t, `{"errors":[{"field":"username","message":"username or password incorrect"}]}`, wrongPass.Body.String())
	require.Equal(t, wrongPass.Body.String(), unknownUser.Body.String())
}

func TestMeRequiresToken(t *testing.T) {
	e, _ := newAPI(t)

	rec := doJSON(e, http.MethodGet, "/users/me", "", nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
}

func TestEventLifecycleAndOwnership(t *testing.T) {
	e, _ := newAPI(t)
	owner := registerAndLogin(t, e, "Owner", "owner")
	other := registerAndLogin(t, e, "Other", "other")

	rec := doJSON(e, http.MethodPost, "/events", owner, map[string]any{
		"name": "Launch Party", "description": "doors at eight",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ev map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	require.Equal(t, "launch-party", ev["slug"])
	path := fmt.Sprintf("/events/%v", ev["id"])

	// Someone else may not modify it, and learns nothing from the refusal.
	rec = doJSON(e, http.MethodPatch, path, other, map[string]any{"name": "Mine Now"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	rec = doJSON(e, http.MethodDelete, path, other, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// The creator renames it; the slug follows the new name.
	rec = doJSON(e, http.MethodPatch, path, owner, map[string]any{"name": "After Party"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	require.Equal(t, "After Party", ev["name"])
	require.Equal(t, "after-party", ev["slug"])
	require.Equal(t, "doors at eight", ev["description"])

	rec = doJSON(e, http.MethodDelete, path, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{}`, rec.Body.String())

	rec = doJSON(e, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"errors":[{"field":"id","message":"not found"}]}`, rec.Body.String())
}

func TestEventPatchUnknownID(t *testing.T) {
	e, _ := newAPI(t)
	token := registerAndLogin(t, e, "Kari", "karik")

	rec := doJSON(e, http.MethodPatch, "/events/999", token, map[string]any{"name": "Ghost"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"errors":[{"field":"id","message":"not found"}]}`, rec.Body.String())
}

func TestEventPatchRequiresAField(t *testing.T) {
	e, _ := newAPI(t)
	token := registerAndLogin(t, e, "Kari", "karik")

	rec := doJSON(e, http.MethodPost, "/events", token, map[string]any{"name": "Picnic"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))

	rec = doJSON(e, http.MethodPatch, fmt.Sprintf("/events/%v", ev["id"]), token, map[string]any{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"errors":[{"field":"","message":"require at least one value of: name, description"}]}`, rec.Body.String())
}

func TestEventCreateStripsMarkup(t *testing.T) {
	e, _ := newAPI(t)
	token := registerAndLogin(t, e, "Kari", "karik")

	rec := doJSON(e, http.MethodPost, "/events", token, map[string]any{
		"name": "  <b>Launch</b> Party ",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ev map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	require.Equal(t, "Launch Party", ev["name"])
	require.Equal(t, "launch-party", ev["slug"])
}

func TestEventsPagination(t *testing.T) {
	e, store := newAPI(t)
	for i := 1; i <= 3; i++ {
		_, err := store.CreateEvent(context.Background(), fmt.Sprintf("Event %d", i), fmt.Sprintf("event-%d", i), "", 1)
		require.NoError(t, err)
	}

	rec := doJSON(e, http.MethodGet, "/events?limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Limit  int              `json:"limit"`
		Offset int              `json:"offset"`
		Items  []map[string]any `json:"items"`
		Links  struct {
			Self struct {
				Href string `json:"href"`
			} `json:"self"`
		} `json:"_links"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	require.Equal(t, "/events?offset=0&limit=2", page.Links.Self.Href)

	rec = doJSON(e, http.MethodGet, "/events?offset=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Empty(t, page.Items)
	require.Equal(t, 5, page.Offset)

	rec = doJSON(e, http.MethodGet, "/events?limit=0", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"errors":[{"field":"limit","message":"query parameter \"limit\" must be an int, larger than 0"}]}`, rec.Body.String())

	rec = doJSON(e, http.MethodGet, "/events?offset=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"errors":[{"field":"offset","message":"query parameter \"offset\" must be an int, 0 or larger"}]}`, rec.Body.String())
}

func TestSignupFlow(t *testing.T) {
	e, _ := newAPI(t)
	owner := registerAndLogin(t, e, "Owner", "owner")
	guest := registerAndLogin(t, e, "Guest", "guest")

	rec := doJSON(e, http.MethodPost, "/events", owner, map[string]any{"name": "Meetup"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	path := fmt.Sprintf("/events/%v", ev["id"])

	rec = doJSON(e, http.MethodPost, path+"/register", guest, map[string]any{"comment": "count me in"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	require.Equal(t, "Guest", reg["name"])
	require.Equal(t, "count me in", reg["comment"])
	require.Equal(t, ev["id"], reg["event"])

	// One registration per user per event.
	rec = doJSON(e, http.MethodPost, path+"/register", guest, map[string]any{})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"error":"already registered"}`, rec.Body.String())

	// The event detail embeds who is coming.
	rec = doJSON(e, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Registrations []map[string]any `json:"registrations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.Registrations, 1)
	require.Equal(t, "Guest", detail.Registrations[0]["name"])

	rec = doJSON(e, http.MethodDelete, path+"/register", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{}`, rec.Body.String())

	rec = doJSON(e, http.MethodDelete, path+"/register", guest, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"registration not found"}`, rec.Body.String())
}

func TestUsersListAdminOnly(t *testing.T) {
	e, store := newAPI(t)
	token := registerAndLogin(t, e, "Kari", "karik")

	rec := doJSON(e, http.MethodGet, "/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodGet, "/users", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())

	for _, u := range store.users {
		u.Admin = true
	}

	rec = doJSON(e, http.MethodGet, "/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	require.NotContains(t, page.Items[0], "password")
}

func TestInvalidJSONBody(t *testing.T) {
	e, _ := newAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/users/register", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"invalid json"}`, rec.Body.String())
}
