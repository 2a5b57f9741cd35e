package models

import (
	"encoding/json"
	"time"
)

// Project is a stored design project. The JSON/Width/Height triple is the
// authoritative render input; UpdatedAt is the freshness watermark for
// generated-image history queries.
type Project struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	JSON      string    `json:"json" db:"json"`
	Width     int       `json:"width" db:"width"`
	Height    int       `json:"height" db:"height"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// GeneratedImage is one append-only history record produced by the AI
// pipeline. Image carries a full scene document payload.
type GeneratedImage struct {
	ID        string          `json:"id,omitempty" db:"id"`
	ProjectID string          `json:"projectid" db:"project_id"`
	Status    string          `json:"status" db:"status"`
	Title     *string         `json:"title" db:"title"`
	Image     json.RawMessage `json:"image" db:"image"`
	CreatedAt *time.Time      `json:"createdat" db:"created_at"`
}

// Narrative holds the four independently replaceable creative-brief slots
// generated for a project. Each slot is a serialized brief (title, tagline,
// image plan); selection and editing happen client-side.
type Narrative struct {
	ProjectID  string `json:"projectId" db:"project_id"`
	Narrative0 string `json:"narrative_0" db:"narrative_0"`
	Narrative1 string `json:"narrative_1" db:"narrative_1"`
	Narrative2 string `json:"narrative_2" db:"narrative_2"`
	Narrative3 string `json:"narrative_3" db:"narrative_3"`
}
