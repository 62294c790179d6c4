package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/model"
	"github.com/iliyamo/store-rating/internal/repository"
	"github.com/iliyamo/store-rating/internal/utils"
)

const qUserByEmail = "FROM users WHERE email=? LIMIT 1"

func newUserService(t *testing.T) (*UserService, sqlmock.Sqlmock, *utils.Tokens) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	tokens := utils.NewTokens("service-secret", time.Hour)
	svc := NewUserService(db, repository.NewUserRepo(db), repository.NewStoreRepo(db), repository.NewRatingRepo(db),
		tokens, bcrypt.MinCost, nil)
	return svc, mock, tokens
}

func TestUserService_RegisterForcesUserRole(t *testing.T) {
	svc, mock, tokens := newUserService(t)

	mock.ExpectQuery(q(qUserByEmail)).WithArgs("new@example.com").WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectExec(q("INSERT INTO users")).
		WithArgs("Brand New Account Holder", "new@example.com", sqlmock.AnyArg(), sqlmock.AnyArg(), "user").
		WillReturnResult(sqlmock.NewResult(12, 1))

	sess, err := svc.Register(context.Background(), NewUserInput{
		Name: "Brand New Account Holder", Email: "New@Example.com", Password: "Secret@12", Role: model.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(12), sess.User.ID)
	assert.Equal(t, model.RoleUser, sess.User.Role)

	claims, err := tokens.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), claims.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_RegisterDuplicateEmail(t *testing.T) {
	svc, mock, _ := newUserService(t)

	mock.ExpectQuery(q(qUserByEmail)).WithArgs("person@example.com").WillReturnRows(userRow(3, "user"))

	_, err := svc.Register(context.Background(), NewUserInput{Email: "person@example.com", Password: "Secret@12"})
	assert.ErrorIs(t, err, apperr.ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Login(t *testing.T) {
	svc, mock, _ := newUserService(t)
	hash, err := utils.HashPassword("Secret@12", bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	row := func() *sqlmock.Rows {
		return sqlmock.NewRows(userCols).AddRow(uint64(4), "Regular Account Holder Name", "person@example.com", hash, nil, "storeOwner", now, now)
	}

	mock.ExpectQuery(q(qUserByEmail)).WillReturnRows(row())
	sess, err := svc.Login(context.Background(), "person@example.com", "Secret@12")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStoreOwner, sess.User.Role)
	assert.NotEmpty(t, sess.Token)

	mock.ExpectQuery(q(qUserByEmail)).WillReturnRows(row())
	_, err = svc.Login(context.Background(), "person@example.com", "Wrong@123")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	mock.ExpectQuery(q(qUserByEmail)).WillReturnRows(sqlmock.NewRows(userCols))
	_, err = svc.Login(context.Background(), "nobody@example.com", "Secret@12")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_ChangePasswordChecksCurrent(t *testing.T) {
	svc, mock, _ := newUserService(t)
	hash, err := utils.HashPassword("Secret@12", bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()

	mock.ExpectQuery(q("FROM users WHERE id=? LIMIT 1")).WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(uint64(4), "n", "e@example.com", hash, nil, "user", now, now))
	err = svc.ChangePassword(context.Background(), 4, "Nope@1234", "Fresh@123")
	assert.ErrorIs(t, err, apperr.ErrWrongPassword)

	mock.ExpectQuery(q("FROM users WHERE id=? LIMIT 1")).WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(uint64(4), "n", "e@example.com", hash, nil, "user", now, now))
	mock.ExpectExec(q("UPDATE users SET password_hash=?")).WithArgs(sqlmock.AnyArg(), uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, svc.ChangePassword(context.Background(), 4, "Secret@12", "Fresh@123"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_UpdateRefusesDemotingOwnerWithStore(t *testing.T) {
	svc, mock, _ := newUserService(t)
	role := model.RoleUser

	mock.ExpectBegin()
	mock.ExpectQuery(q(qUserForUpdate)).WithArgs(uint64(5)).WillReturnRows(userRow(5, "storeOwner"))
	mock.ExpectQuery(q(qStoreByOwner)).WithArgs(uint64(5)).WillReturnRows(storeRow(3, 5))
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), 5, UserPatch{Role: &role})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_UpdateNameOnlyLeavesRoleAlone(t *testing.T) {
	svc, mock, _ := newUserService(t)
	name := "Renamed Account Holder Person"

	mock.ExpectBegin()
	mock.ExpectQuery(q(qUserForUpdate)).WithArgs(uint64(7)).WillReturnRows(userRow(7, "user"))
	mock.ExpectExec("^" + q("UPDATE users SET name=?, updated_at=CURRENT_TIMESTAMP WHERE id=?") + "$").
		WithArgs(name, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := svc.Update(context.Background(), 7, UserPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, u.Name)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_UpdatePasswordInSameStatement(t *testing.T) {
	svc, mock, _ := newUserService(t)
	name := "Renamed Account Holder Person"
	password := "Fresh@123"
	role := model.RoleStoreOwner

	mock.ExpectBegin()
	mock.ExpectQuery(q(qUserForUpdate)).WithArgs(uint64(7)).WillReturnRows(userRow(7, "user"))
	mock.ExpectExec("^" + q("UPDATE users SET name=?, role=?, password_hash=?, updated_at=CURRENT_TIMESTAMP WHERE id=?") + "$").
		WithArgs(name, "storeOwner", sqlmock.AnyArg(), uint64(7)).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), 7, UserPatch{Name: &name, Password: &password, Role: &role})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_UpdateDuplicateEmail(t *testing.T) {
	svc, mock, _ := newUserService(t)
	email := "taken@example.com"

	mock.ExpectBegin()
	mock.ExpectQuery(q(qUserForUpdate)).WithArgs(uint64(5)).WillReturnRows(userRow(5, "user"))
	mock.ExpectExec(q("UPDATE users SET email=?")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'taken@example.com' for key 'users.uk_users_email'"})
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), 5, UserPatch{Email: &email})
	assert.ErrorIs(t, err, apperr.ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_DeleteRemovesRatingsAndRecomputes(t *testing.T) {
	svc, mock, _ := newUserService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(qUserForUpdate)).WithArgs(uint64(9)).WillReturnRows(userRow(9, "user"))
	mock.ExpectQuery(q(qStoreByOwner)).WithArgs(uint64(9)).WillReturnRows(sqlmock.NewRows(storeCols))
	mock.ExpectQuery(q("SELECT DISTINCT store_id FROM ratings WHERE user_id = ?")).WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"store_id"}).AddRow(uint64(1)).AddRow(uint64(2)))
	mock.ExpectExec(q("DELETE FROM ratings WHERE user_id = ?")).WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	mock.ExpectQuery(q(qStoreForUpdate)).WithArgs(uint64(1)).WillReturnRows(storeRow(1, 20))
	mock.ExpectQuery(q("SELECT score FROM ratings WHERE store_id = ?")).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"score"}).AddRow(4).AddRow(2))
	mock.ExpectExec(q("UPDATE stores SET average_rating = ?")).WithArgs(3.0, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(q(qStoreForUpdate)).WithArgs(uint64(2)).WillReturnRows(storeRow(2, 21))
	mock.ExpectQuery(q("SELECT score FROM ratings WHERE store_id = ?")).WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"score"}))
	mock.ExpectExec(q("UPDATE stores SET average_rating = ?")).WithArgs(0.0, uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(q("DELETE FROM users WHERE id=?")).WithArgs(uint64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Delete(context.Background(), 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_DeleteRefusesStoreOwner(t *testing.T) {
	svc, mock, _ := newUserService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(qUserForUpdate)).WithArgs(uint64(5)).WillReturnRows(userRow(5, "storeOwner"))
	mock.ExpectQuery(q(qStoreByOwner)).WithArgs(uint64(5)).WillReturnRows(storeRow(3, 5))
	mock.ExpectRollback()

	assert.ErrorIs(t, svc.Delete(context.Background(), 5), apperr.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_DeleteUnknown(t *testing.T) {
	svc, mock, _ := newUserService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(qUserForUpdate)).WithArgs(uint64(5)).WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectRollback()

	assert.ErrorIs(t, svc.Delete(context.Background(), 5), apperr.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
