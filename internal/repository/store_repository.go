// This file defines the store repository.  A store belongs to exactly one
// owner and carries the average of its ratings, which is only ever
// written by the rating aggregator inside a transaction.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/store-rating/internal/model"
)

// ErrStoreNotFound is returned when a store cannot be found in the DB.
var ErrStoreNotFound = errors.New("store not found")

var (
	ErrStoreEmailExists = errors.New("store email already exists")
	ErrOwnerHasStore    = errors.New("owner already has a store")
)

// OwnerSummary is the public part of a store owner shown in admin listings.
type OwnerSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// StoreWithOwner is a store joined with its owner.
type StoreWithOwner struct {
	model.Store
	Owner OwnerSummary `json:"owner"`
}

// StoreFilter narrows listings.  Empty fields are ignored.
type StoreFilter struct {
	Name    string
	Email   string
	Address string
}

// StoreRepo encapsulates all database queries related to stores.
type StoreRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewStoreRepo constructs a StoreRepo with the provided DB handle.
func NewStoreRepo(db *sql.DB) *StoreRepo {
	return &StoreRepo{db: db}
}

// DB exposes the pool so callers can open transactions spanning several
// repositories.
func (r *StoreRepo) DB() *sql.DB { return r.db }

const storeColumns = "s.id, s.name, s.email, s.address, s.owner_id, s.average_rating, s.created_at, s.updated_at"

func scanStore(row rowScanner, extra ...any) (*model.Store, error) {
	var s model.Store
	dest := append([]any{&s.ID, &s.Name, &s.Email, &s.Address, &s.OwnerID, &s.AverageRating, &s.CreatedAt, &s.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetByID fetches a store by its ID.
func (r *StoreRepo) GetByID(ctx context.Context, id uint64) (*model.Store, error) {
	return scanStore(r.db.QueryRowContext(ctx,
		"SELECT "+storeColumns+" FROM stores s WHERE s.id = ?", id))
}

// GetWithOwner fetches a store by ID together with its owner.
func (r *StoreRepo) GetWithOwner(ctx context.Context, id uint64) (*StoreWithOwner, error) {
	var o OwnerSummary
	s, err := scanStore(r.db.QueryRowContext(ctx,
		"SELECT "+storeColumns+", u.name, u.email, u.role FROM stores s JOIN users u ON u.id = s.owner_id WHERE s.id = ?", id),
		&o.Name, &o.Email, &o.Role)
	if err != nil {
		return nil, err
	}
	return &StoreWithOwner{Store: *s, Owner: o}, nil
}

// GetByOwnerID fetches the store owned by ownerID.
func (r *StoreRepo) GetByOwnerID(ctx context.Context, ownerID uint64) (*model.Store, error) {
	return scanStore(r.db.QueryRowContext(ctx,
		"SELECT "+storeColumns+" FROM stores s WHERE s.owner_id = ? LIMIT 1", ownerID))
}

// GetByOwnerIDTx is GetByOwnerID inside tx.
func (r *StoreRepo) GetByOwnerIDTx(ctx context.Context, tx *sql.Tx, ownerID uint64) (*model.Store, error) {
	return scanStore(tx.QueryRowContext(ctx,
		"SELECT "+storeColumns+" FROM stores s WHERE s.owner_id = ? LIMIT 1", ownerID))
}

// GetByEmailTx fetches a store by email inside tx.
func (r *StoreRepo) GetByEmailTx(ctx context.Context, tx *sql.Tx, email string) (*model.Store, error) {
	return scanStore(tx.QueryRowContext(ctx,
		"SELECT "+storeColumns+" FROM stores s WHERE s.email = ? LIMIT 1", NormalizeEmail(email)))
}

// GetByIDForUpdateTx fetches a store inside tx and locks the row, which
// serialises every writer of the store (ratings, updates, deletion)
// until the transaction ends.
func (r *StoreRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Store, error) {
	return scanStore(tx.QueryRowContext(ctx,
		"SELECT "+storeColumns+" FROM stores s WHERE s.id = ? FOR UPDATE", id))
}

// CreateTx inserts s inside tx and populates ID and timestamps.
func (r *StoreRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Store) error {
	s.Email = NormalizeEmail(s.Email)
	res, err := tx.ExecContext(ctx,
		"INSERT INTO stores (name, email, address, owner_id) VALUES (?, ?, ?, ?)",
		s.Name, s.Email, s.Address, s.OwnerID)
	if err != nil {
		return translateStoreDup(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := scanStore(tx.QueryRowContext(ctx,
		"SELECT "+storeColumns+" FROM stores s WHERE s.id = ?", id))
	if err != nil {
		return err
	}
	*s = *created
	return nil
}

// Update writes name, email and address of s.
func (r *StoreRepo) Update(ctx context.Context, s *model.Store) error {
	s.Email = NormalizeEmail(s.Email)
	res, err := r.db.ExecContext(ctx,
		`UPDATE stores SET name = ?, email = ?, address = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		s.Name, s.Email, s.Address, s.ID)
	if err != nil {
		return translateStoreDup(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStoreNotFound
	}
	return nil
}

// SetAverageTx persists a freshly computed average rating.
func (r *StoreRepo) SetAverageTx(ctx context.Context, tx *sql.Tx, id uint64, avg float64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE stores SET average_rating = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, avg, id)
	return err
}

// DeleteTx removes a store inside tx.  Ratings must be removed first.
func (r *StoreRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM stores WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStoreNotFound
	}
	return nil
}

// ListWithOwner returns stores joined with their owners, newest first.
func (r *StoreRepo) ListWithOwner(ctx context.Context, f StoreFilter) ([]StoreWithOwner, error) {
	where, args := storeWhere(f)
	q := "SELECT " + storeColumns + ", u.name, u.email FROM stores s JOIN users u ON u.id = s.owner_id" +
		where + " ORDER BY s.created_at DESC, s.id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StoreWithOwner{}
	for rows.Next() {
		var o OwnerSummary
		s, err := scanStore(rows, &o.Name, &o.Email)
		if err != nil {
			return nil, err
		}
		out = append(out, StoreWithOwner{Store: *s, Owner: o})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByName returns stores matching f ordered by name, as shown to users.
func (r *StoreRepo) ListByName(ctx context.Context, f StoreFilter) ([]model.Store, error) {
	where, args := storeWhere(f)
	rows, err := r.db.QueryContext(ctx, "SELECT "+storeColumns+" FROM stores s"+where+" ORDER BY s.name ASC, s.id ASC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Store{}
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of stores.
func (r *StoreRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stores`).Scan(&n)
	return n, err
}

func storeWhere(f StoreFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Name != "" {
		where = append(where, "s.name LIKE ?")
		args = append(args, likePattern(f.Name))
	}
	if f.Email != "" {
		where = append(where, "s.email LIKE ?")
		args = append(args, likePattern(f.Email))
	}
	if f.Address != "" {
		where = append(where, "s.address LIKE ?")
		args = append(args, likePattern(f.Address))
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func translateStoreDup(err error) error {
	if !isDuplicate(err) {
		return err
	}
	if duplicateKey(err) == "uk_stores_owner" {
		return ErrOwnerHasStore
	}
	return ErrStoreEmailExists
}
