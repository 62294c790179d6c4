package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/store-rating/internal/model"
)

// UserRepo persists accounts in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var (
	ErrEmailExists  = errors.New("email already exists")
	ErrUserNotFound = errors.New("user not found")
)

// UserFilter narrows List.  Empty fields are ignored; text fields match
// as case-insensitive substrings and Role matches exactly.
type UserFilter struct {
	Name    string
	Email   string
	Address string
	Role    model.Role
}

const userColumns = "id,name,email,password_hash,address,role,created_at,updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u       model.User
		address sql.NullString
		role    string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &address, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return model.User{}, err
	}
	if address.Valid {
		u.Address = &address.String
	}
	u.Role = model.Role(role)
	return u, nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts u and sets its ID.  PasswordHash must already be set.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, address, role) VALUES (?,?,?,?,?)",
		u.Name, u.Email, u.PasswordHash, nullString(u.Address), string(u.Role))
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	u.ID = uint64(id)
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
	return notFound(scanUser(row))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return notFound(scanUser(row))
}

// GetByIDForUpdateTx fetches a user inside tx and locks the row until the
// transaction ends.
func (r *UserRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? FOR UPDATE", id)
	return notFound(scanUser(row))
}

func notFound(u model.User, err error) (model.User, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// UserChanges lists the columns UpdateTx writes.  Nil fields keep their
// stored value.
type UserChanges struct {
	Name         *string
	Email        *string
	Address      *string
	Role         *model.Role
	PasswordHash *string
}

// UpdateTx writes the non-nil fields of ch to user id inside tx.  The
// caller holds the row lock, so an unchanged row is not an error.
func (r *UserRepo) UpdateTx(ctx context.Context, tx *sql.Tx, id uint64, ch UserChanges) error {
	var (
		set  []string
		args []any
	)
	if ch.Name != nil {
		set = append(set, "name=?")
		args = append(args, *ch.Name)
	}
	if ch.Email != nil {
		set = append(set, "email=?")
		args = append(args, NormalizeEmail(*ch.Email))
	}
	if ch.Address != nil {
		set = append(set, "address=?")
		args = append(args, *ch.Address)
	}
	if ch.Role != nil {
		set = append(set, "role=?")
		args = append(args, string(*ch.Role))
	}
	if ch.PasswordHash != nil {
		set = append(set, "password_hash=?")
		args = append(args, *ch.PasswordHash)
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, "updated_at=CURRENT_TIMESTAMP")
	args = append(args, id)

	_, err := tx.ExecContext(ctx, "UPDATE users SET "+strings.Join(set, ", ")+" WHERE id=?", args...)
	if isDuplicate(err) {
		return ErrEmailExists
	}
	return err
}

// UpdateRoleTx changes the role of a user inside tx.
func (r *UserRepo) UpdateRoleTx(ctx context.Context, tx *sql.Tx, id uint64, role model.Role) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET role=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, string(role), id)
	return err
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteTx removes a user inside tx.
func (r *UserRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns users matching f, newest first.
func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, error) {
	var (
		where []string
		args  []any
	)
	if f.Name != "" {
		where = append(where, "name LIKE ?")
		args = append(args, likePattern(f.Name))
	}
	if f.Email != "" {
		where = append(where, "email LIKE ?")
		args = append(args, likePattern(f.Email))
	}
	if f.Address != "" {
		where = append(where, "address LIKE ?")
		args = append(args, likePattern(f.Address))
	}
	if f.Role != "" {
		where = append(where, "role = ?")
		args = append(args, string(f.Role))
	}
	q := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// likePattern escapes LIKE wildcards in s and wraps it in %...%.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
