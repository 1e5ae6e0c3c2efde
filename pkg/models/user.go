package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account registered through the auth endpoints.
type User struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	UserName        string    `json:"userName"`
	PasswordHash    string    `json:"-"`
	CurrentResumeID *string   `json:"currentResumeId"`
	CreatedAt       time.Time `json:"created_at"`
}
