package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/model"
	"github.com/iliyamo/store-rating/internal/service"
)

// Accounts is the account service used by the auth and admin handlers.
type Accounts interface {
	Register(ctx context.Context, in service.NewUserInput) (service.Session, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	ChangePassword(ctx context.Context, id uint64, current, next string) error
	Create(ctx context.Context, in service.NewUserInput) (model.User, error)
	Update(ctx context.Context, id uint64, p service.UserPatch) (model.User, error)
	Delete(ctx context.Context, id uint64) error
}

// UserReader loads accounts.
type UserReader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Accounts Accounts
	Users    UserReader
}

func NewAuthHandler(a Accounts, u UserReader) *AuthHandler {
	return &AuthHandler{Accounts: a, Users: u}
}

// ----- DTOs -----

type registerReq struct {
	Name     string  `json:"name" validate:"min=20,max=60"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"password"`
	Address  *string `json:"address" validate:"omitempty,max=400"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"password"`
}

// Register creates a user account and signs it in.  The role is always
// user, whatever the body says.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	sess, err := h.Accounts.Register(ctx, service.NewUserInput{
		Name: req.Name, Email: req.Email, Password: req.Password, Address: req.Address,
	})
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, "User registered successfully", sess)
}

// Login verifies the credentials and returns a token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	sess, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "Login successful", sess)
}

// Profile returns the caller's own account.
func (h *AuthHandler) Profile(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.ID)
	if err != nil {
		return lookupErr(err, "load profile")
	}
	return success(c, http.StatusOK, "User profile retrieved successfully", u)
}

// ChangePassword replaces the caller's password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Accounts.ChangePassword(ctx, id.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return success(c, http.StatusOK, "Password changed successfully", nil)
}

// GetUser returns the account named by :id.  The route admits the
// account itself and admins.
func (h *AuthHandler) GetUser(c echo.Context) error {
	uid, err := pathID(c, "id", apperr.ErrUserNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return lookupErr(err, "load user")
	}
	return success(c, http.StatusOK, "User retrieved successfully", u)
}
