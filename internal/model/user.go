package model

import "time"

// User represents an application user record as stored in the
// `users` table.  The password hash is only populated when the
// repository loads the row for credential checks; anything handed to a
// session or a response goes through Public() first.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name shown next to events and in rosters.
//  Email        – unique email address, compared case-sensitively.
//  PasswordHash – bcrypt hashed password.
//  Role         – one of admin, organizer or participant.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    `json:"id"`         // users.id
	Name         string    `json:"name"`       // users.name
	Email        string    `json:"email"`      // users.email
	PasswordHash string    `json:"-"`          // users.password_hash
	Role         Role      `json:"role"`       // users.role
	CreatedAt    time.Time `json:"created_at"` // users.created_at
}

// Public returns a copy of the user with the credential stripped.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
