package model

import "time"

// Rating is a single user's score for a store.  There is at most one
// rating per (UserID, StoreID) pair; a second submission updates the
// existing row in place so its ID is stable.
type Rating struct {
	ID        uint64    `json:"id"`        // ratings.id
	UserID    uint64    `json:"userId"`    // ratings.user_id
	StoreID   uint64    `json:"storeId"`   // ratings.store_id
	Score     int       `json:"score"`     // ratings.score, 1..5
	Comment   *string   `json:"comment"`   // ratings.comment (nullable)
	CreatedAt time.Time `json:"createdAt"` // ratings.created_at
	UpdatedAt time.Time `json:"updatedAt"` // ratings.updated_at
}
