package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/model"
	"github.com/iliyamo/store-rating/internal/repository"
)

// StoreRatings reads the ratings of one store.
type StoreRatings interface {
	ListByStoreWithRater(ctx context.Context, storeID uint64) ([]repository.RatingWithRater, error)
	Distribution(ctx context.Context, storeID uint64) ([]repository.ScoreCount, int, error)
}

// OwnerHandler serves the /api/store-owner endpoints.  Every endpoint
// works on the store owned by the caller.
type OwnerHandler struct {
	Stores  StoreDirectory
	Ratings StoreRatings
}

func NewOwnerHandler(s StoreDirectory, r StoreRatings) *OwnerHandler {
	if s == nil || r == nil {
		panic("nil repository passed to NewOwnerHandler")
	}
	return &OwnerHandler{Stores: s, Ratings: r}
}

type ownerDashboard struct {
	StoreID            uint64                  `json:"storeId"`
	AverageRating      float64                 `json:"averageRating"`
	TotalRatings       int                     `json:"totalRatings"`
	RatingDistribution []repository.ScoreCount `json:"ratingDistribution"`
}

func (h *OwnerHandler) ownStore(ctx context.Context, c echo.Context) (*model.Store, error) {
	me, err := caller(c)
	if err != nil {
		return nil, err
	}
	st, err := h.Stores.GetByOwnerID(ctx, me.ID)
	if errors.Is(err, repository.ErrStoreNotFound) {
		return nil, apperr.ErrNoOwnedStore
	}
	if err != nil {
		return nil, lookupErr(err, "load owned store")
	}
	return st, nil
}

// Store returns the caller's store.
func (h *OwnerHandler) Store(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	st, err := h.ownStore(ctx, c)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "Store details retrieved successfully", st)
}

// ListRatings lists who rated the caller's store, newest first.
func (h *OwnerHandler) ListRatings(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	st, err := h.ownStore(ctx, c)
	if err != nil {
		return err
	}
	list, err := h.Ratings.ListByStoreWithRater(ctx, st.ID)
	if err != nil {
		return lookupErr(err, "list ratings")
	}
	return success(c, http.StatusOK, "Store ratings retrieved successfully", list)
}

// Dashboard returns the average, the total and the per-score counts.
func (h *OwnerHandler) Dashboard(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	st, err := h.ownStore(ctx, c)
	if err != nil {
		return err
	}
	dist, total, err := h.Ratings.Distribution(ctx, st.ID)
	if err != nil {
		return lookupErr(err, "rating distribution")
	}
	return success(c, http.StatusOK, "Dashboard statistics retrieved successfully", ownerDashboard{
		StoreID:            st.ID,
		AverageRating:      st.AverageRating,
		TotalRatings:       total,
		RatingDistribution: dist,
	})
}
