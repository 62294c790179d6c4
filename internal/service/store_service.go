package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/model"
	"github.com/iliyamo/store-rating/internal/queue"
	"github.com/iliyamo/store-rating/internal/repository"
)

// CreateStoreInput is the data needed to open a store.
type CreateStoreInput struct {
	Name    string
	Email   string
	Address string
	OwnerID uint64
}

// StorePatch is a partial store update; nil fields are left unchanged.
type StorePatch struct {
	Name    *string
	Email   *string
	Address *string
}

// StoreService creates, updates and deletes stores together with the
// role change of their owner.
type StoreService struct {
	db      *sql.DB
	users   *repository.UserRepo
	stores  *repository.StoreRepo
	ratings *repository.RatingRepo
	events  queue.Publisher
	log     *zap.Logger
}

// NewStoreService wires a StoreService.  events may be nil.
func NewStoreService(db *sql.DB, users *repository.UserRepo, stores *repository.StoreRepo, ratings *repository.RatingRepo, events queue.Publisher, log *zap.Logger) *StoreService {
	if log == nil {
		log = zap.NewNop()
	}
	return &StoreService{db: db, users: users, stores: stores, ratings: ratings, events: events, log: log}
}

// Create opens a store for in.OwnerID and promotes the owner to
// storeOwner in the same transaction.
func (s *StoreService) Create(ctx context.Context, in CreateStoreInput) (model.Store, error) {
	st := model.Store{Name: in.Name, Email: in.Email, Address: in.Address, OwnerID: in.OwnerID}

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		owner, err := s.users.GetByIDForUpdateTx(ctx, tx, in.OwnerID)
		if err != nil {
			return err
		}
		if owner.Role == model.RoleAdmin {
			return apperr.ErrConflict.WithMessage("An admin cannot own a store")
		}

		if _, err := s.stores.GetByOwnerIDTx(ctx, tx, in.OwnerID); err == nil {
			return apperr.ErrOwnerHasStore
		} else if !errors.Is(err, repository.ErrStoreNotFound) {
			return err
		}
		if _, err := s.stores.GetByEmailTx(ctx, tx, in.Email); err == nil {
			return apperr.ErrStoreEmailExists
		} else if !errors.Is(err, repository.ErrStoreNotFound) {
			return err
		}

		if err := s.stores.CreateTx(ctx, tx, &st); err != nil {
			return err
		}
		return s.users.UpdateRoleTx(ctx, tx, in.OwnerID, model.RoleStoreOwner)
	})
	if err != nil {
		return model.Store{}, translate(err, "create store")
	}

	s.log.Info("store created", zap.Uint64("store_id", st.ID), zap.Uint64("owner_id", st.OwnerID))
	queue.PublishAsync(s.events, s.log, queue.StoreLifecycleQueue,
		queue.NewStoreLifecycle(queue.StoreCreated, st.ID, st.Name, st.OwnerID))
	return st, nil
}

// Update applies p to the store id.
func (s *StoreService) Update(ctx context.Context, id uint64, p StorePatch) (model.Store, error) {
	st, err := s.stores.GetByID(ctx, id)
	if err != nil {
		return model.Store{}, translate(err, "load store")
	}
	if p.Name != nil {
		st.Name = *p.Name
	}
	if p.Email != nil {
		st.Email = *p.Email
	}
	if p.Address != nil {
		st.Address = *p.Address
	}
	if err := s.stores.Update(ctx, st); err != nil {
		return model.Store{}, translate(err, "update store")
	}
	return *st, nil
}

// Delete removes the store, its ratings, and demotes the owner back to
// user, all in one transaction.
func (s *StoreService) Delete(ctx context.Context, id uint64) error {
	var st *model.Store
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		st, err = s.stores.GetByIDForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := s.ratings.DeleteByStoreTx(ctx, tx, id); err != nil {
			return err
		}
		if err := s.stores.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
		owner, err := s.users.GetByIDForUpdateTx(ctx, tx, st.OwnerID)
		if err != nil {
			return err
		}
		if owner.Role != model.RoleStoreOwner {
			return nil
		}
		return s.users.UpdateRoleTx(ctx, tx, st.OwnerID, model.RoleUser)
	})
	if err != nil {
		return translate(err, "delete store")
	}

	s.log.Info("store deleted", zap.Uint64("store_id", id), zap.Uint64("owner_id", st.OwnerID))
	queue.PublishAsync(s.events, s.log, queue.StoreLifecycleQueue,
		queue.NewStoreLifecycle(queue.StoreDeleted, st.ID, st.Name, st.OwnerID))
	return nil
}
