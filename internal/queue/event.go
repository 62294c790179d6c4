// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the audit consumer.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Queue names.  Both queues are durable and use the default exchange.
const (
	RatingSubmittedQueue = "rating.submitted"
	StoreLifecycleQueue  = "store.lifecycle"
)

// Store lifecycle event types.
const (
	StoreCreated = "store.created"
	StoreDeleted = "store.deleted"
)

// RatingSubmittedEvent is published after a rating write commits.  It
// carries enough for downstream consumers to log or trigger analytics
// without querying the primary database.
type RatingSubmittedEvent struct {
	EventID       string  `json:"event_id"`
	RatingID      uint64  `json:"rating_id"`
	UserID        uint64  `json:"user_id"`
	StoreID       uint64  `json:"store_id"`
	Score         int     `json:"score"`
	AverageRating float64 `json:"average_rating"`
	SubmittedAt   string  `json:"submitted_at"`
}

// StoreLifecycleEvent is published after a store is created or deleted.
type StoreLifecycleEvent struct {
	EventID    string `json:"event_id"`
	Type       string `json:"type"`
	StoreID    uint64 `json:"store_id"`
	StoreName  string `json:"store_name"`
	OwnerID    uint64 `json:"owner_id"`
	OccurredAt string `json:"occurred_at"`
}

// NewRatingSubmitted fills in the event id and timestamp.
func NewRatingSubmitted(ratingID, userID, storeID uint64, score int, avg float64) RatingSubmittedEvent {
	return RatingSubmittedEvent{
		EventID:       uuid.NewString(),
		RatingID:      ratingID,
		UserID:        userID,
		StoreID:       storeID,
		Score:         score,
		AverageRating: avg,
		SubmittedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}

// NewStoreLifecycle fills in the event id and timestamp.
func NewStoreLifecycle(typ string, storeID uint64, name string, ownerID uint64) StoreLifecycleEvent {
	return StoreLifecycleEvent{
		EventID:    uuid.NewString(),
		Type:       typ,
		StoreID:    storeID,
		StoreName:  name,
		OwnerID:    ownerID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
