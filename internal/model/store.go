package model

import "time"

// Store represents a rated shop persisted in the `stores` table.  Each
// store belongs to exactly one owner and an owner has at most one store.
// AverageRating is the mean of all current rating scores for the store
// and is zero while the store has no ratings.
type Store struct {
	ID            uint64    `json:"id"`            // stores.id
	Name          string    `json:"name"`          // stores.name
	Email         string    `json:"email"`         // stores.email (unique)
	Address       string    `json:"address"`       // stores.address
	OwnerID       uint64    `json:"ownerId"`       // stores.owner_id (references users.id)
	AverageRating float64   `json:"averageRating"` // stores.average_rating
	CreatedAt     time.Time `json:"createdAt"`     // stores.created_at
	UpdatedAt     time.Time `json:"updatedAt"`     // stores.updated_at
}
