package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/store-rating/internal/model"
)

var (
	ErrRatingNotFound = errors.New("rating not found")
	// ErrDuplicateRating signals that the unique (user_id, store_id) index
	// rejected an insert, i.e. another transaction inserted first.
	ErrDuplicateRating = errors.New("rating already exists for user and store")
)

// Rater is the public part of the user who wrote a rating.
type Rater struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RatingWithRater is a rating joined with its author.
type RatingWithRater struct {
	model.Rating
	User Rater `json:"user"`
}

// ScoreCount is one bucket of a store's rating distribution.
type ScoreCount struct {
	Score int `json:"score"`
	Count int `json:"count"`
}

// RatingRepo provides data access to the ratings table.
type RatingRepo struct {
	db *sql.DB
}

// NewRatingRepo returns a new RatingRepo bound to the provided database.
func NewRatingRepo(db *sql.DB) *RatingRepo { return &RatingRepo{db: db} }

const ratingColumns = "r.id, r.user_id, r.store_id, r.score, r.comment, r.created_at, r.updated_at"

func scanRating(row rowScanner, extra ...any) (*model.Rating, error) {
	var (
		rt      model.Rating
		comment sql.NullString
	)
	dest := append([]any{&rt.ID, &rt.UserID, &rt.StoreID, &rt.Score, &comment, &rt.CreatedAt, &rt.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingNotFound
		}
		return nil, err
	}
	if comment.Valid {
		rt.Comment = &comment.String
	}
	return &rt, nil
}

// FindByUserAndStore returns the rating userID gave storeID.
func (r *RatingRepo) FindByUserAndStore(ctx context.Context, userID, storeID uint64) (*model.Rating, error) {
	return scanRating(r.db.QueryRowContext(ctx,
		"SELECT "+ratingColumns+" FROM ratings r WHERE r.user_id = ? AND r.store_id = ? LIMIT 1", userID, storeID))
}

// FindByUserAndStoreForUpdateTx is FindByUserAndStore inside tx with a
// row lock.
func (r *RatingRepo) FindByUserAndStoreForUpdateTx(ctx context.Context, tx *sql.Tx, userID, storeID uint64) (*model.Rating, error) {
	return scanRating(tx.QueryRowContext(ctx,
		"SELECT "+ratingColumns+" FROM ratings r WHERE r.user_id = ? AND r.store_id = ? FOR UPDATE", userID, storeID))
}

// InsertTx inserts rt inside tx and sets its ID and timestamps.
func (r *RatingRepo) InsertTx(ctx context.Context, tx *sql.Tx, rt *model.Rating) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO ratings (user_id, store_id, score, comment) VALUES (?, ?, ?, ?)",
		rt.UserID, rt.StoreID, rt.Score, nullString(rt.Comment))
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateRating
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	rt.ID = uint64(id)
	rt.CreatedAt, rt.UpdatedAt = now, now
	return nil
}

// UpdateTx overwrites score and comment of an existing rating.
func (r *RatingRepo) UpdateTx(ctx context.Context, tx *sql.Tx, rt *model.Rating) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE ratings SET score = ?, comment = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		rt.Score, nullString(rt.Comment), rt.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRatingNotFound
	}
	rt.UpdatedAt = time.Now().UTC()
	return nil
}

// ScoresByStoreTx returns every current score for storeID.
func (r *RatingRepo) ScoresByStoreTx(ctx context.Context, tx *sql.Tx, storeID uint64) ([]int, error) {
	rows, err := tx.QueryContext(ctx, "SELECT score FROM ratings WHERE store_id = ?", storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteByStoreTx removes every rating of storeID.
func (r *RatingRepo) DeleteByStoreTx(ctx context.Context, tx *sql.Tx, storeID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM ratings WHERE store_id = ?", storeID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByUserTx removes every rating written by userID and returns the
// IDs of the stores that were affected, so callers can recompute their
// averages in the same transaction.
func (r *RatingRepo) DeleteByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT DISTINCT store_id FROM ratings WHERE user_id = ? ORDER BY store_id", userID)
	if err != nil {
		return nil, err
	}
	var storeIDs []uint64
	for rows.Next() {
		var id uint64
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		storeIDs = append(storeIDs, id)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(storeIDs) == 0 {
		return []uint64{}, nil
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM ratings WHERE user_id = ?", userID); err != nil {
		return nil, err
	}
	return storeIDs, nil
}

// ListByStoreWithRater returns the ratings of a store with their
// authors, newest first.
func (r *RatingRepo) ListByStoreWithRater(ctx context.Context, storeID uint64) ([]RatingWithRater, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ratingColumns+", u.id, u.name, u.email FROM ratings r JOIN users u ON u.id = r.user_id"+
			" WHERE r.store_id = ? ORDER BY r.created_at DESC, r.id DESC", storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RatingWithRater{}
	for rows.Next() {
		var u Rater
		rt, err := scanRating(rows, &u.ID, &u.Name, &u.Email)
		if err != nil {
			return nil, err
		}
		out = append(out, RatingWithRater{Rating: *rt, User: u})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUserForStores returns userID's ratings for the given stores keyed
// by store ID.
func (r *RatingRepo) ListByUserForStores(ctx context.Context, userID uint64, storeIDs []uint64) (map[uint64]model.Rating, error) {
	out := make(map[uint64]model.Rating, len(storeIDs))
	if len(storeIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(storeIDs)), ",")
	args := make([]any, 0, len(storeIDs)+1)
	args = append(args, userID)
	for _, id := range storeIDs {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ratingColumns+" FROM ratings r WHERE r.user_id = ? AND r.store_id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		rt, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		out[rt.StoreID] = *rt
	}
	return out, rows.Err()
}

// Distribution returns how many ratings of each score 1..5 a store has,
// always five buckets in ascending score order, and their total.
func (r *RatingRepo) Distribution(ctx context.Context, storeID uint64) ([]ScoreCount, int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT score, COUNT(*) FROM ratings WHERE store_id = ? GROUP BY score", storeID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	buckets := make([]ScoreCount, 5)
	for i := range buckets {
		buckets[i].Score = i + 1
	}
	total := 0
	for rows.Next() {
		var score, n int
		if err := rows.Scan(&score, &n); err != nil {
			return nil, 0, err
		}
		if score >= 1 && score <= 5 {
			buckets[score-1].Count = n
		}
		total += n
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return buckets, total, nil
}

// Count returns the number of ratings.
func (r *RatingRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings`).Scan(&n)
	return n, err
}
