// Package rating records user scores for stores and keeps each store's
// average rating equal to the mean of its current scores.
package rating

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/model"
)

// Score bounds, inclusive.
const (
	MinScore = 1
	MaxScore = 5
)

// ValidScore reports whether score lies in [MinScore, MaxScore].
func ValidScore(score int) bool { return score >= MinScore && score <= MaxScore }

// Tx is the unit of work the aggregator runs inside.  Implementations
// must make every call part of one atomic transaction.
type Tx interface {
	// LockStore locks the store row until the transaction ends.  It
	// returns apperr.ErrStoreNotFound when the store does not exist.
	LockStore(ctx context.Context, storeID uint64) error
	// FindRating returns the rating of userID for storeID, or nil when
	// there is none.  The row stays locked.
	FindRating(ctx context.Context, userID, storeID uint64) (*model.Rating, error)
	// InsertRating stores a new rating and sets its ID.  Losing an insert
	// race yields apperr.ErrConcurrentModification.
	InsertRating(ctx context.Context, r *model.Rating) error
	UpdateRating(ctx context.Context, r *model.Rating) error
	Scores(ctx context.Context, storeID uint64) ([]int, error)
	SetAverage(ctx context.Context, storeID uint64, avg float64) error
}

// Store opens transactions.  WithinTx commits when fn returns nil and
// rolls back otherwise.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Result is the outcome of a successful submission.
type Result struct {
	Rating        model.Rating `json:"rating"`
	AverageRating float64      `json:"averageRating"`
}

// Aggregator upserts ratings and recomputes store averages.
type Aggregator struct {
	store Store
	log   *zap.Logger
}

// NewAggregator returns an Aggregator backed by store.  A nil logger is
// replaced by a no-op one.
func NewAggregator(store Store, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{store: store, log: log}
}

// Submit records score (and comment) from userID for storeID.  A first
// submission inserts a rating, later ones overwrite it in place.  The
// store's average is recomputed from all current scores in the same
// transaction, so either both writes happen or neither does.
//
// Submit does not retry; ErrConcurrentModification is returned to the
// caller, who may submit again.
func (a *Aggregator) Submit(ctx context.Context, userID, storeID uint64, score int, comment *string) (Result, error) {
	if !ValidScore(score) {
		return Result{}, apperr.ErrInvalidScore
	}

	var res Result
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.LockStore(ctx, storeID); err != nil {
			return err
		}

		existing, err := tx.FindRating(ctx, userID, storeID)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Score = score
			existing.Comment = comment
			if err := tx.UpdateRating(ctx, existing); err != nil {
				return err
			}
			res.Rating = *existing
		} else {
			r := model.Rating{UserID: userID, StoreID: storeID, Score: score, Comment: comment}
			if err := tx.InsertRating(ctx, &r); err != nil {
				return err
			}
			res.Rating = r
		}

		avg, err := recompute(ctx, tx, storeID)
		if err != nil {
			return err
		}
		res.AverageRating = avg
		return nil
	})
	if err != nil {
		a.log.Debug("rating submit failed",
			zap.Uint64("user_id", userID), zap.Uint64("store_id", storeID), zap.Error(err))
		return Result{}, err
	}

	a.log.Info("rating submitted",
		zap.Uint64("user_id", userID),
		zap.Uint64("store_id", storeID),
		zap.Uint64("rating_id", res.Rating.ID),
		zap.Int("score", score),
		zap.Float64("average", res.AverageRating))
	return res, nil
}

// Recompute re-derives and persists the average of storeID.
func (a *Aggregator) Recompute(ctx context.Context, storeID uint64) (float64, error) {
	var avg float64
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.LockStore(ctx, storeID); err != nil {
			return err
		}
		var err error
		avg, err = recompute(ctx, tx, storeID)
		return err
	})
	return avg, err
}

// RecomputeTx is Recompute for callers that already hold tx and the
// store lock.
func RecomputeTx(ctx context.Context, tx Tx, storeID uint64) (float64, error) {
	return recompute(ctx, tx, storeID)
}

func recompute(ctx context.Context, tx Tx, storeID uint64) (float64, error) {
	scores, err := tx.Scores(ctx, storeID)
	if err != nil {
		return 0, err
	}
	avg := Mean(scores)
	if err := tx.SetAverage(ctx, storeID, avg); err != nil {
		return 0, err
	}
	return avg, nil
}

// Mean returns the arithmetic mean of scores, 0 for none.
func Mean(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return float64(sum) / float64(len(scores))
}
