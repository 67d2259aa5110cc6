package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arnif/event-registry/internal/model"
)

type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

const eventColumns = "id,name,slug,description,creator_id,created,updated"

// Create inserts an event and returns the stored row. CreatorID is set
// once here and never reassigned.
func (r *EventRepo) Create(ctx context.Context, name, slug, description string, creatorID int64) (*model.Event, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO events (name, slug, description, creator_id) VALUES (?,?,?,?)",
		name, slug, description, creatorID)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrEventExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// FindByID fetches an event by id; (nil, nil) when absent.
func (r *EventRepo) FindByID(ctx context.Context, id int64) (*model.Event, error) {
	var e model.Event
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id=? LIMIT 1", id).
		Scan(&e.ID, &e.Name, &e.Slug, &e.Description, &e.CreatorID, &e.Created, &e.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Update rewrites name, slug and description and bumps the updated
// timestamp. The handler merges the patch into the current row first, so
// this always writes complete values. The refreshed row is returned.
func (r *EventRepo) Update(ctx context.Context, id int64, name, slug, description string) (*model.Event, error) {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE events SET name=?, slug=?, description=?, updated=CURRENT_TIMESTAMP WHERE id=?",
		name, slug, description, id)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrEventExists
		}
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// Delete removes an event and reports how many rows went away, so the
// handler can 404 a delete of something already gone.
func (r *EventRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM events WHERE id=?", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List returns at most limit events starting at offset, ordered by id
// ascending so pages are stable across requests.
func (r *EventRepo) List(ctx context.Context, limit, offset int) ([]model.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events ORDER BY id ASC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Slug, &e.Description, &e.CreatorID, &e.Created, &e.Updated); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
