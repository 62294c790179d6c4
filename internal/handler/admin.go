package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/model"
	"github.com/iliyamo/store-rating/internal/repository"
	"github.com/iliyamo/store-rating/internal/service"
)

// UserDirectory lists and counts accounts.
type UserDirectory interface {
	UserReader
	List(ctx context.Context, f repository.UserFilter) ([]model.User, error)
	Count(ctx context.Context) (int, error)
}

// StoreDirectory reads stores.
type StoreDirectory interface {
	GetByID(ctx context.Context, id uint64) (*model.Store, error)
	GetWithOwner(ctx context.Context, id uint64) (*repository.StoreWithOwner, error)
	GetByOwnerID(ctx context.Context, ownerID uint64) (*model.Store, error)
	ListWithOwner(ctx context.Context, f repository.StoreFilter) ([]repository.StoreWithOwner, error)
	ListByName(ctx context.Context, f repository.StoreFilter) ([]model.Store, error)
	Count(ctx context.Context) (int, error)
}

// StoreLifecycle creates, updates and deletes stores.
type StoreLifecycle interface {
	Create(ctx context.Context, in service.CreateStoreInput) (model.Store, error)
	Update(ctx context.Context, id uint64, p service.StorePatch) (model.Store, error)
	Delete(ctx context.Context, id uint64) error
}

// RatingCounter counts ratings.
type RatingCounter interface {
	Count(ctx context.Context) (int, error)
}

// AdminHandler serves the /api/admin endpoints.
type AdminHandler struct {
	Accounts  Accounts
	Users     UserDirectory
	Stores    StoreDirectory
	Lifecycle StoreLifecycle
	Ratings   RatingCounter
	Cache     CachePurger
	Log       *zap.Logger
}

func NewAdminHandler(a Accounts, u UserDirectory, s StoreDirectory, l StoreLifecycle, r RatingCounter, cache CachePurger, log *zap.Logger) *AdminHandler {
	if a == nil || u == nil || s == nil || l == nil || r == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{Accounts: a, Users: u, Stores: s, Lifecycle: l, Ratings: r, Cache: cache, Log: log}
}

type createUserReq struct {
	Name     string  `json:"name" validate:"min=20,max=60"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"password"`
	Address  *string `json:"address" validate:"omitempty,max=400"`
	Role     string  `json:"role" validate:"omitempty,role"`
}

type updateUserReq struct {
	Name     *string `json:"name" validate:"omitempty,min=20,max=60"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,password"`
	Address  *string `json:"address" validate:"omitempty,max=400"`
	Role     *string `json:"role" validate:"omitempty,role"`
}

type createStoreReq struct {
	Name    string `json:"name" validate:"min=20,max=60"`
	Email   string `json:"email" validate:"required,email"`
	Address string `json:"address" validate:"min=1,max=400"`
	OwnerID uint64 `json:"ownerId" validate:"gt=0"`
}

type updateStoreReq struct {
	Name    *string `json:"name" validate:"omitempty,min=20,max=60"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address" validate:"omitempty,min=1,max=400"`
}

type dashboardStats struct {
	TotalUsers   int `json:"totalUsers"`
	TotalStores  int `json:"totalStores"`
	TotalRatings int `json:"totalRatings"`
}

// userDetail is an account as shown to admins.  StoreRating is the
// average of the owned store and only set for store owners.
type userDetail struct {
	model.User
	StoreRating *float64 `json:"storeRating"`
}

// Dashboard returns platform totals.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	var (
		stats dashboardStats
		err   error
	)
	if stats.TotalUsers, err = h.Users.Count(ctx); err != nil {
		return lookupErr(err, "count users")
	}
	if stats.TotalStores, err = h.Stores.Count(ctx); err != nil {
		return lookupErr(err, "count stores")
	}
	if stats.TotalRatings, err = h.Ratings.Count(ctx); err != nil {
		return lookupErr(err, "count ratings")
	}
	return success(c, http.StatusOK, "Dashboard statistics retrieved successfully", stats)
}

// ListUsers filters accounts by name, email, address and role.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	f := repository.UserFilter{
		Name:    c.QueryParam("name"),
		Email:   c.QueryParam("email"),
		Address: c.QueryParam("address"),
	}
	if raw := c.QueryParam("role"); raw != "" {
		role, ok := model.ParseRole(raw)
		if !ok {
			return apperr.ErrValidation.WithDetails("Invalid role specified")
		}
		f.Role = role
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	users, err := h.Users.List(ctx, f)
	if err != nil {
		return lookupErr(err, "list users")
	}
	return success(c, http.StatusOK, "Users retrieved successfully", users)
}

// GetUser returns one account; store owners carry their store's average.
func (h *AdminHandler) GetUser(c echo.Context) error {
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
	out := userDetail{User: u}
	if u.Role == model.RoleStoreOwner {
		st, err := h.Stores.GetByOwnerID(ctx, u.ID)
		switch {
		case err == nil:
			avg := st.AverageRating
			out.StoreRating = &avg
		case !errors.Is(err, repository.ErrStoreNotFound):
			return lookupErr(err, "load owned store")
		}
	}
	return success(c, http.StatusOK, "User retrieved successfully", out)
}

// CreateUser adds an account with any role, user by default.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Accounts.Create(ctx, service.NewUserInput{
		Name: req.Name, Email: req.Email, Password: req.Password, Address: req.Address, Role: model.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, "User created successfully", u)
}

// UpdateUser applies a partial update to an account.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	uid, err := pathID(c, "id", apperr.ErrUserNotFound)
	if err != nil {
		return err
	}
	var req updateUserReq
	if err := bind(c, &req); err != nil {
		return err
	}
	patch := service.UserPatch{Name: req.Name, Email: req.Email, Password: req.Password, Address: req.Address}
	if req.Role != nil {
		role := model.Role(*req.Role)
		patch.Role = &role
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Accounts.Update(ctx, uid, patch)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, "User updated successfully", u)
}

// DeleteUser removes an account and its ratings.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	uid, err := pathID(c, "id", apperr.ErrUserNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Accounts.Delete(ctx, uid); err != nil {
		return err
	}
	purge(ctx, h.Cache, h.Log)
	return success(c, http.StatusOK, "User deleted successfully", nil)
}

// ListStores filters stores by name, email and address.
func (h *AdminHandler) ListStores(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	stores, err := h.Stores.ListWithOwner(ctx, repository.StoreFilter{
		Name:    c.QueryParam("name"),
		Email:   c.QueryParam("email"),
		Address: c.QueryParam("address"),
	})
	if err != nil {
		return lookupErr(err, "list stores")
	}
	return success(c, http.StatusOK, "Stores retrieved successfully", stores)
}

// GetStore returns a store with its owner.
func (h *AdminHandler) GetStore(c echo.Context) error {
	sid, err := pathID(c, "id", apperr.ErrStoreNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	st, err := h.Stores.GetWithOwner(ctx, sid)
	if err != nil {
		return lookupErr(err, "load store")
	}
	return success(c, http.StatusOK, "Store retrieved successfully", st)
}

// CreateStore opens a store and promotes its owner.
func (h *AdminHandler) CreateStore(c echo.Context) error {
	var req createStoreReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	st, err := h.Lifecycle.Create(ctx, service.CreateStoreInput{
		Name: req.Name, Email: req.Email, Address: req.Address, OwnerID: req.OwnerID,
	})
	if err != nil {
		return err
	}
	purge(ctx, h.Cache, h.Log)
	return success(c, http.StatusCreated, "Store created successfully", st)
}

// UpdateStore applies a partial update to a store.
func (h *AdminHandler) UpdateStore(c echo.Context) error {
	sid, err := pathID(c, "id", apperr.ErrStoreNotFound)
	if err != nil {
		return err
	}
	var req updateStoreReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	st, err := h.Lifecycle.Update(ctx, sid, service.StorePatch{Name: req.Name, Email: req.Email, Address: req.Address})
	if err != nil {
		return err
	}
	purge(ctx, h.Cache, h.Log)
	return success(c, http.StatusOK, "Store updated successfully", st)
}

// DeleteStore removes a store with its ratings and demotes the owner.
func (h *AdminHandler) DeleteStore(c echo.Context) error {
	sid, err := pathID(c, "id", apperr.ErrStoreNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Lifecycle.Delete(ctx, sid); err != nil {
		return err
	}
	purge(ctx, h.Cache, h.Log)
	return success(c, http.StatusOK, "Store deleted successfully", nil)
}
