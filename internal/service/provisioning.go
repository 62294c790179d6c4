package service

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iliyamo/store-rating/internal/model"
	"github.com/iliyamo/store-rating/internal/repository"
	"github.com/iliyamo/store-rating/internal/utils"
)

// Default admin account values.
const (
	DefaultAdminEmail   = "admin@example.com"
	DefaultAdminName    = "System Administrator User Account"
	DefaultAdminAddress = "Admin Office, Headquarters, Floor 20"
)

// AdminSeed describes the administrator account to provision.
type AdminSeed struct {
	Email    string
	Name     string
	Password string
	Address  string
}

// DefaultAdminSeed returns the stock admin account using password.
func DefaultAdminSeed(password string) AdminSeed {
	return AdminSeed{
		Email:    DefaultAdminEmail,
		Name:     DefaultAdminName,
		Password: password,
		Address:  DefaultAdminAddress,
	}
}

// Validate checks the seed against the account rules.
func (s AdminSeed) Validate() error {
	switch {
	case s.Email == "":
		return errors.New("admin email is required")
	case len([]rune(s.Name)) < 20 || len([]rune(s.Name)) > 60:
		return errors.New("admin name must be 20-60 characters")
	case len([]rune(s.Address)) > 400:
		return errors.New("admin address must be at most 400 characters")
	case !utils.PasswordPolicyOK(s.Password):
		return errors.New("admin password must be 8-16 characters with an uppercase letter and a special character")
	}
	return nil
}

// ProvisionAction is what EnsureAdmin will do.
type ProvisionAction int

const (
	ActionSkip ProvisionAction = iota
	ActionCreate
)

func (a ProvisionAction) String() string {
	if a == ActionCreate {
		return "create"
	}
	return "skip"
}

// PlanAdmin decides the provisioning action from whether an account with
// the seed's email already exists.  An existing account is never touched,
// whatever its role or password.
func PlanAdmin(exists bool) ProvisionAction {
	if exists {
		return ActionSkip
	}
	return ActionCreate
}

// AdminAccounts is the part of the credential store provisioning needs.
type AdminAccounts interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u *model.User) error
}

// EnsureAdmin creates the seed admin when no account uses its email.  It
// is idempotent and reports whether an account was created.
func EnsureAdmin(ctx context.Context, users AdminAccounts, bcryptCost int, seed AdminSeed, log *zap.Logger) (bool, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := seed.Validate(); err != nil {
		return false, err
	}

	_, err := users.GetByEmail(ctx, seed.Email)
	exists := err == nil
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return false, pkgerrors.Wrap(err, "look up admin")
	}

	if PlanAdmin(exists) == ActionSkip {
		log.Info("admin account already present", zap.String("email", seed.Email))
		return false, nil
	}

	hash, err := utils.HashPassword(seed.Password, bcryptCost)
	if err != nil {
		return false, pkgerrors.Wrap(err, "hash admin password")
	}
	addr := seed.Address
	u := model.User{Name: seed.Name, Email: seed.Email, PasswordHash: hash, Address: &addr, Role: model.RoleAdmin}
	if err := users.Create(ctx, &u); err != nil {
		// a concurrent provisioner won the race
		if errors.Is(err, repository.ErrEmailExists) {
			return false, nil
		}
		return false, pkgerrors.Wrap(err, "create admin")
	}
	log.Info("admin account created", zap.Uint64("user_id", u.ID), zap.String("email", u.Email))
	return true, nil
}
