package entity

import "time"

// DefaultTargetLanguage is assigned to new accounts.
const DefaultTargetLanguage = "Russian"

// User represents an account row in the `users` table.
type User struct {
	ID             int64     `db:"id"`
	Email          string    `db:"email"`
	PasswordHash   string    `db:"password_hash"`
	TargetLanguage string    `db:"target_language"`
	CreatedAt      time.Time `db:"created_at"`
}

// CurrentUser is the projection attached to an authenticated request.
type CurrentUser struct {
	ID             int64  `json:"id" db:"id"`
	Email          string `json:"email" db:"email"`
	TargetLanguage string `json:"targetLanguage" db:"target_language"`
}
