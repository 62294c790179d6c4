package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/model"
	"github.com/iliyamo/store-rating/internal/rating"
	"github.com/iliyamo/store-rating/internal/repository"
	"github.com/iliyamo/store-rating/internal/utils"
)

// NewUserInput is the data for a new account.  An empty Role means user.
type NewUserInput struct {
	Name     string
	Email    string
	Password string
	Address  *string
	Role     model.Role
}

// UserPatch is a partial account update; nil fields are left unchanged.
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
	Address  *string
	Role     *model.Role
}

// Session is a signed-in account and its bearer token.
type Session struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// UserService manages accounts and sign-in.
type UserService struct {
	db         *sql.DB
	users      *repository.UserRepo
	stores     *repository.StoreRepo
	ratings    *repository.RatingRepo
	ratingTx   *rating.SQLStore
	tokens     *utils.Tokens
	bcryptCost int
	log        *zap.Logger
}

// NewUserService wires a UserService.
func NewUserService(db *sql.DB, users *repository.UserRepo, stores *repository.StoreRepo, ratings *repository.RatingRepo,
	tokens *utils.Tokens, bcryptCost int, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		db:         db,
		users:      users,
		stores:     stores,
		ratings:    ratings,
		ratingTx:   rating.NewSQLStore(db, stores, ratings),
		tokens:     tokens,
		bcryptCost: bcryptCost,
		log:        log,
	}
}

// Register creates a self-service account, always with role user, and
// signs it in.
func (s *UserService) Register(ctx context.Context, in NewUserInput) (Session, error) {
	in.Role = model.RoleUser
	u, err := s.Create(ctx, in)
	if err != nil {
		return Session{}, err
	}
	return s.session(u)
}

// Login checks email and password and issues a token.
func (s *UserService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Session{}, apperr.ErrInvalidCredentials
		}
		return Session{}, translate(err, "load user")
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, apperr.ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *UserService) session(u model.User) (Session, error) {
	tok, err := s.tokens.Issue(u.ID, string(u.Role))
	if err != nil {
		return Session{}, translate(err, "issue token")
	}
	return Session{Token: tok.Token, User: u}, nil
}

// ChangePassword replaces the password of id after checking current.
func (s *UserService) ChangePassword(ctx context.Context, id uint64, current, next string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return translate(err, "load user")
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return apperr.ErrWrongPassword
	}
	hash, err := utils.HashPassword(next, s.bcryptCost)
	if err != nil {
		return translate(err, "hash password")
	}
	return translate(s.users.UpdatePassword(ctx, id, hash), "update password")
}

// Create adds an account with any role.
func (s *UserService) Create(ctx context.Context, in NewUserInput) (model.User, error) {
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return model.User{}, apperr.ErrValidation.WithDetails("role must be one of admin, user, storeOwner")
	}
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return model.User{}, apperr.ErrEmailExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, translate(err, "check email")
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, translate(err, "hash password")
	}
	u := model.User{Name: in.Name, Email: in.Email, PasswordHash: hash, Address: in.Address, Role: role}
	if err := s.users.Create(ctx, &u); err != nil {
		return model.User{}, translate(err, "create user")
	}
	s.log.Info("user created", zap.Uint64("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Update applies p to account id in one transaction holding the user row
// lock.  Only the patched columns are written.  A store owner keeps the
// storeOwner role while the store exists; delete the store first.
func (s *UserService) Update(ctx context.Context, id uint64, p UserPatch) (model.User, error) {
	if p.Role != nil && !p.Role.Valid() {
		return model.User{}, apperr.ErrValidation.WithDetails("role must be one of admin, user, storeOwner")
	}
	ch := repository.UserChanges{Name: p.Name, Email: p.Email, Address: p.Address}
	if p.Password != nil {
		hash, err := utils.HashPassword(*p.Password, s.bcryptCost)
		if err != nil {
			return model.User{}, translate(err, "hash password")
		}
		ch.PasswordHash = &hash
	}

	var u model.User
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if u, err = s.users.GetByIDForUpdateTx(ctx, tx, id); err != nil {
			return err
		}
		if p.Role != nil && *p.Role != u.Role {
			if u.Role == model.RoleStoreOwner {
				if _, err := s.stores.GetByOwnerIDTx(ctx, tx, id); err == nil {
					return apperr.ErrConflict.WithMessage("User owns a store; delete the store before changing the role")
				} else if !errors.Is(err, repository.ErrStoreNotFound) {
					return err
				}
			}
			ch.Role = p.Role
		}
		return s.users.UpdateTx(ctx, tx, id, ch)
	})
	if err != nil {
		return model.User{}, translate(err, "update user")
	}

	if ch.Name != nil {
		u.Name = *ch.Name
	}
	if ch.Email != nil {
		u.Email = repository.NormalizeEmail(*ch.Email)
	}
	if ch.Address != nil {
		u.Address = ch.Address
	}
	if ch.Role != nil {
		u.Role = *ch.Role
	}
	if ch.PasswordHash != nil {
		u.PasswordHash = *ch.PasswordHash
	}
	return u, nil
}

// Delete removes account id together with its ratings and recomputes
// the averages of the stores it had rated.  An account that owns a
// store cannot be deleted.
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.users.GetByIDForUpdateTx(ctx, tx, id); err != nil {
			return err
		}
		if _, err := s.stores.GetByOwnerIDTx(ctx, tx, id); err == nil {
			return apperr.ErrConflict.WithMessage("User owns a store; delete the store first")
		} else if !errors.Is(err, repository.ErrStoreNotFound) {
			return err
		}

		affected, err := s.ratings.DeleteByUserTx(ctx, tx, id)
		if err != nil {
			return err
		}
		rtx := s.ratingTx.Bind(tx)
		for _, storeID := range affected {
			if err := rtx.LockStore(ctx, storeID); err != nil {
				return err
			}
			if _, err := rating.RecomputeTx(ctx, rtx, storeID); err != nil {
				return err
			}
		}
		return s.users.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return translate(err, "delete user")
	}
	s.log.Info("user deleted", zap.Uint64("user_id", id))
	return nil
}
