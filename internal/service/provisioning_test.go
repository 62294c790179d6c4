package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/store-rating/internal/model"
	"github.com/iliyamo/store-rating/internal/repository"
	"github.com/iliyamo/store-rating/internal/utils"
)

type memAccounts struct {
	mu      sync.Mutex
	byEmail map[string]model.User
	getErr  error
	creates int
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return model.User{}, m.getErr
	}
	u, ok := m.byEmail[repository.NormalizeEmail(email)]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memAccounts) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := repository.NormalizeEmail(u.Email)
	if _, ok := m.byEmail[key]; ok {
		return repository.ErrEmailExists
	}
	m.creates++
	u.ID = uint64(len(m.byEmail) + 1)
	m.byEmail[key] = *u
	return nil
}

func TestPlanAdmin(t *testing.T) {
	assert.Equal(t, ActionCreate, PlanAdmin(false))
	assert.Equal(t, ActionSkip, PlanAdmin(true))
	assert.Equal(t, "create", ActionCreate.String())
	assert.Equal(t, "skip", ActionSkip.String())
}

func TestEnsureAdmin_CreatesOnce(t *testing.T) {
	ctx := context.Background()
	accounts := &memAccounts{byEmail: map[string]model.User{}}
	seed := DefaultAdminSeed("Admin@123")

	created, err := EnsureAdmin(ctx, accounts, bcrypt.MinCost, seed, nil)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureAdmin(ctx, accounts, bcrypt.MinCost, seed, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, accounts.creates)

	admin := accounts.byEmail[DefaultAdminEmail]
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.Equal(t, DefaultAdminName, admin.Name)
	require.NotNil(t, admin.Address)
	assert.Equal(t, DefaultAdminAddress, *admin.Address)
	assert.True(t, utils.VerifyPassword(admin.PasswordHash, "Admin@123"))
}

func TestEnsureAdmin_LeavesExistingAccountAlone(t *testing.T) {
	accounts := &memAccounts{byEmail: map[string]model.User{
		DefaultAdminEmail: {ID: 1, Email: DefaultAdminEmail, Role: model.RoleUser, PasswordHash: "x"},
	}}

	created, err := EnsureAdmin(context.Background(), accounts, bcrypt.MinCost, DefaultAdminSeed("Admin@123"), nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.RoleUser, accounts.byEmail[DefaultAdminEmail].Role)
}

func TestEnsureAdmin_RejectsWeakSeed(t *testing.T) {
	accounts := &memAccounts{byEmail: map[string]model.User{}}
	for _, seed := range []AdminSeed{
		DefaultAdminSeed("short"),
		DefaultAdminSeed("alllowercase!1"),
		{Email: "a@example.com", Name: "too short", Password: "Admin@123"},
		{Name: DefaultAdminName, Password: "Admin@123"},
	} {
		_, err := EnsureAdmin(context.Background(), accounts, bcrypt.MinCost, seed, nil)
		assert.Error(t, err)
	}
	assert.Zero(t, accounts.creates)
}

func TestEnsureAdmin_LookupFailure(t *testing.T) {
	boom := errors.New("db down")
	accounts := &memAccounts{byEmail: map[string]model.User{}, getErr: boom}

	_, err := EnsureAdmin(context.Background(), accounts, bcrypt.MinCost, DefaultAdminSeed("Admin@123"), nil)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, accounts.creates)
}

func TestEnsureAdmin_ConcurrentRunsCreateOne(t *testing.T) {
	accounts := &memAccounts{byEmail: map[string]model.User{}}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := EnsureAdmin(context.Background(), accounts, bcrypt.MinCost, DefaultAdminSeed("Admin@123"), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accounts.creates)
}
