package models

import "time"

type User struct {
	ID          int64     `json:"id" example:"1"`                   // User ID
	Email       string    `json:"email" example:"user@example.com"` // User email
	IsActive    bool      `json:"is_active" example:"true"`
	IsSuperuser bool      `json:"is_superuser" example:"false"`
	CreatedAt   time.Time `json:"created_at"`
}
