package model

import "time"

type Game struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Concept   string     `json:"concept"`
	StartDate *time.Time `json:"start_date,omitempty"`
	Timeline  string     `json:"timeline"`
	Platforms []string   `json:"platforms"`
	ImageKey  *string    `json:"image_key,omitempty"`
	OwnerID   string     `json:"owner_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CreateGameRequest struct {
	Name      string     `json:"name"`
	Concept   string     `json:"concept"`
	StartDate *time.Time `json:"start_date,omitempty"`
	Timeline  string     `json:"timeline"`
	Platforms []string   `json:"platforms"`
}

type UpdateGameRequest struct {
	Name      *string    `json:"name,omitempty"`
	Concept   *string    `json:"concept,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	Timeline  *string    `json:"timeline,omitempty"`
	Platforms []string   `json:"platforms,omitempty"`
}

type ImageUploadResponse struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
