package model

import "time"

// User represents an application user record as stored in the
// `users` table. PasswordHash holds the bcrypt digest and must
// never be serialized to clients; handlers define separate
// response types that omit it.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name, sanitized free text.
//  Username     – unique login name.
//  PasswordHash – bcrypt hashed password.
//  Admin        – whether the user has administrative rights.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           int64     // users.id
	Name         string    // users.name
	Username     string    // users.username
	PasswordHash string    // users.password
	Admin        bool      // users.admin
	CreatedAt    time.Time // users.created
}
