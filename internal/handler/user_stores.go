package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/model"
	"github.com/iliyamo/store-rating/internal/queue"
	"github.com/iliyamo/store-rating/internal/rating"
	"github.com/iliyamo/store-rating/internal/repository"
)

// RatingReader reads a caller's own ratings.
type RatingReader interface {
	FindByUserAndStore(ctx context.Context, userID, storeID uint64) (*model.Rating, error)
	ListByUserForStores(ctx context.Context, userID uint64, storeIDs []uint64) (map[uint64]model.Rating, error)
}

// RatingSubmitter records a rating and recomputes the store average.
type RatingSubmitter interface {
	Submit(ctx context.Context, userID, storeID uint64, score int, comment *string) (rating.Result, error)
}

// BrowseHandler serves store browsing and rating submission for users.
type BrowseHandler struct {
	Stores    StoreDirectory
	Ratings   RatingReader
	Submitter RatingSubmitter
	Events    queue.Publisher
	Cache     CachePurger
	Log       *zap.Logger
}

func NewBrowseHandler(s StoreDirectory, r RatingReader, sub RatingSubmitter, events queue.Publisher, cache CachePurger, log *zap.Logger) *BrowseHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BrowseHandler{Stores: s, Ratings: r, Submitter: sub, Events: events, Cache: cache, Log: log}
}

type ratingRef struct {
	ID    uint64 `json:"id"`
	Score int    `json:"score"`
}

type ratingDetail struct {
	ID      uint64  `json:"id"`
	Score   int     `json:"score"`
	Comment *string `json:"comment"`
}

type storeListItem struct {
	ID            uint64     `json:"id"`
	Name          string     `json:"name"`
	Address       string     `json:"address"`
	AverageRating float64    `json:"averageRating"`
	UserRating    *ratingRef `json:"userRating"`
}

type storeView struct {
	ID            uint64        `json:"id"`
	Name          string        `json:"name"`
	Address       string        `json:"address"`
	Email         string        `json:"email"`
	AverageRating float64       `json:"averageRating"`
	UserRating    *ratingDetail `json:"userRating"`
}

type submitRatingReq struct {
	StoreID uint64  `json:"storeId" validate:"gt=0"`
	Score   int     `json:"score"`
	Comment *string `json:"comment"`
}

// ListStores returns stores ordered by name, each with the caller's own
// rating or null.
func (h *BrowseHandler) ListStores(c echo.Context) error {
	me, err := caller(c)
	if err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	stores, err := h.Stores.ListByName(ctx, repository.StoreFilter{
		Name:    c.QueryParam("name"),
		Address: c.QueryParam("address"),
	})
	if err != nil {
		return lookupErr(err, "list stores")
	}
	ids := make([]uint64, len(stores))
	for i, s := range stores {
		ids[i] = s.ID
	}
	mine, err := h.Ratings.ListByUserForStores(ctx, me.ID, ids)
	if err != nil {
		return lookupErr(err, "load own ratings")
	}

	out := make([]storeListItem, len(stores))
	for i, s := range stores {
		out[i] = storeListItem{ID: s.ID, Name: s.Name, Address: s.Address, AverageRating: s.AverageRating}
		if r, ok := mine[s.ID]; ok {
			out[i].UserRating = &ratingRef{ID: r.ID, Score: r.Score}
		}
	}
	return success(c, http.StatusOK, "Stores retrieved successfully", out)
}

// GetStore returns one store with the caller's rating and comment.
func (h *BrowseHandler) GetStore(c echo.Context) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	sid, err := pathID(c, "id", apperr.ErrStoreNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	st, err := h.Stores.GetByID(ctx, sid)
	if err != nil {
		return lookupErr(err, "load store")
	}
	out := storeView{ID: st.ID, Name: st.Name, Address: st.Address, Email: st.Email, AverageRating: st.AverageRating}

	r, err := h.Ratings.FindByUserAndStore(ctx, me.ID, sid)
	switch {
	case err == nil:
		out.UserRating = &ratingDetail{ID: r.ID, Score: r.Score, Comment: r.Comment}
	case !errors.Is(err, repository.ErrRatingNotFound):
		return lookupErr(err, "load own rating")
	}
	return success(c, http.StatusOK, "Store retrieved successfully", out)
}

// SubmitRating creates or replaces the caller's rating of a store.
func (h *BrowseHandler) SubmitRating(c echo.Context) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	var req submitRatingReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	res, err := h.Submitter.Submit(ctx, me.ID, req.StoreID, req.Score, req.Comment)
	if err != nil {
		return err
	}
	purge(ctx, h.Cache, h.Log)
	queue.PublishAsync(h.Events, h.Log, queue.RatingSubmittedQueue,
		queue.NewRatingSubmitted(res.Rating.ID, me.ID, req.StoreID, res.Rating.Score, res.AverageRating))
	return success(c, http.StatusOK, "Rating submitted successfully", res)
}
