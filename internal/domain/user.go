package domain

import "time"

// User represents an authenticated account, created on first successful
// Google sign-in and keyed by the provider subject id.
type User struct {
	ID          int64     `json:"id" db:"id"`
	GoogleID    string    `json:"-" db:"google_id"`
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"display_name" db:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
