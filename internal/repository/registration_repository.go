package repository

import (
	"context"
	"database/sql"

	"github.com/arnif/event-registry/internal/model"
)

type RegistrationRepo struct{ DB *sql.DB }

func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{DB: db} }

// Create records a signup for an event. The unique key on
// (user_id, event_id) enforces one registration per user per event;
// violations come back as ErrAlreadyRegistered.
func (r *RegistrationRepo) Create(ctx context.Context, userID int64, name, comment string, eventID int64) (*model.Registration, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO registrations (user_id, name, comment, event_id) VALUES (?,?,?,?)",
		userID, name, comment, eventID)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	var reg model.Registration
	err = r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,name,comment,event_id,created FROM registrations WHERE id=? LIMIT 1", id).
		Scan(&reg.ID, &reg.UserID, &reg.Name, &reg.Comment, &reg.EventID, &reg.Created)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// DeleteByEventAndUser withdraws a user's own registration and reports
// how many rows went away.
func (r *RegistrationRepo) DeleteByEventAndUser(ctx context.Context, eventID, userID int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM registrations WHERE event_id=? AND user_id=?", eventID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByEvent returns everyone registered for an event, oldest first.
func (r *RegistrationRepo) ListByEvent(ctx context.Context, eventID int64) ([]model.Registration, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,user_id,name,comment,event_id,created FROM registrations WHERE event_id=? ORDER BY id ASC",
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := []model.Registration{}
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.UserID, &reg.Name, &reg.Comment, &reg.EventID, &reg.Created); err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}
