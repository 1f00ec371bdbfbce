package models

import "time"

// User is one provisioned API identity. KeyHash holds the bcrypt hash of
// the API key secret and never leaves the server.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	KeyHash    string    `json:"-"`
	Privileged bool      `json:"privileged"`
	Disabled   bool      `json:"disabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
