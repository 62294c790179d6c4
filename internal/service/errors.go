// Package service holds the multi-step operations that must run as one
// transaction: store lifecycle, account management and provisioning.
package service

import (
	"context"
	"database/sql"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/repository"
)

// translate maps repository sentinels onto application errors.  Anything
// unknown is wrapped with msg and surfaces as an internal error.
func translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return apperr.ErrUserNotFound
	case errors.Is(err, repository.ErrStoreNotFound):
		return apperr.ErrStoreNotFound
	case errors.Is(err, repository.ErrEmailExists):
		return apperr.ErrEmailExists
	case errors.Is(err, repository.ErrStoreEmailExists):
		return apperr.ErrStoreEmailExists
	case errors.Is(err, repository.ErrOwnerHasStore):
		return apperr.ErrOwnerHasStore
	case errors.Is(err, repository.ErrConflict):
		return apperr.ErrConflict
	case repository.IsLockConflict(err):
		return apperr.ErrConcurrentModification.WithCause(err)
	}
	return pkgerrors.Wrap(err, msg)
}

// withTx runs fn inside a transaction, committing when it returns nil
// and rolling back otherwise.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin tx")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return pkgerrors.Wrap(err, "commit tx")
	}
	committed = true
	return nil
}
