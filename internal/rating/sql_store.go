package rating

import (
	"context"
	"database/sql"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/model"
	"github.com/iliyamo/store-rating/internal/repository"
)

// SQLStore runs aggregator transactions against MySQL.
type SQLStore struct {
	db      *sql.DB
	stores  *repository.StoreRepo
	ratings *repository.RatingRepo
}

// NewSQLStore returns a Store using the given pool and repositories.
func NewSQLStore(db *sql.DB, stores *repository.StoreRepo, ratings *repository.RatingRepo) *SQLStore {
	return &SQLStore{db: db, stores: stores, ratings: ratings}
}

// WithinTx implements Store.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin rating tx")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(s.Bind(tx)); err != nil {
		return translate(err)
	}
	if err := tx.Commit(); err != nil {
		return translate(pkgerrors.Wrap(err, "commit rating tx"))
	}
	committed = true
	return nil
}

// Bind exposes an already open transaction as a Tx, for services that
// change ratings as part of a larger unit of work.
func (s *SQLStore) Bind(tx *sql.Tx) Tx {
	return &sqlTx{tx: tx, stores: s.stores, ratings: s.ratings}
}

// translate maps lock conflicts raised by the server onto
// ErrConcurrentModification and leaves everything else untouched.
func translate(err error) error {
	if repository.IsLockConflict(err) {
		return apperr.ErrConcurrentModification.WithCause(err)
	}
	return err
}

type sqlTx struct {
	tx      *sql.Tx
	stores  *repository.StoreRepo
	ratings *repository.RatingRepo
}

func (t *sqlTx) LockStore(ctx context.Context, storeID uint64) error {
	if _, err := t.stores.GetByIDForUpdateTx(ctx, t.tx, storeID); err != nil {
		if errors.Is(err, repository.ErrStoreNotFound) {
			return apperr.ErrStoreNotFound
		}
		return pkgerrors.Wrap(err, "lock store")
	}
	return nil
}

func (t *sqlTx) FindRating(ctx context.Context, userID, storeID uint64) (*model.Rating, error) {
	r, err := t.ratings.FindByUserAndStoreForUpdateTx(ctx, t.tx, userID, storeID)
	if errors.Is(err, repository.ErrRatingNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find rating")
	}
	return r, nil
}

func (t *sqlTx) InsertRating(ctx context.Context, r *model.Rating) error {
	err := t.ratings.InsertTx(ctx, t.tx, r)
	if errors.Is(err, repository.ErrDuplicateRating) {
		return apperr.ErrConcurrentModification
	}
	return pkgerrors.Wrap(err, "insert rating")
}

func (t *sqlTx) UpdateRating(ctx context.Context, r *model.Rating) error {
	return pkgerrors.Wrap(t.ratings.UpdateTx(ctx, t.tx, r), "update rating")
}

func (t *sqlTx) Scores(ctx context.Context, storeID uint64) ([]int, error) {
	scores, err := t.ratings.ScoresByStoreTx(ctx, t.tx, storeID)
	return scores, pkgerrors.Wrap(err, "load scores")
}

func (t *sqlTx) SetAverage(ctx context.Context, storeID uint64, avg float64) error {
	return pkgerrors.Wrap(t.stores.SetAverageTx(ctx, t.tx, storeID, avg), "set average")
}
