package models

import "time"

// Identity is one known person: a display name plus the embedding
// vector produced by the recognition engine at enrollment time
type Identity struct {
	Name      string    `json:"name"`
	Embedding []float64 `json:"embedding"`
	CreatedAt time.Time `json:"created_at"`
}
