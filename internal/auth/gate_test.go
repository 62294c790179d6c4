package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/model"
	"github.com/iliyamo/store-rating/internal/repository"
	"github.com/iliyamo/store-rating/internal/utils"
)

type fakeUsers struct {
	users map[uint64]model.User
	err   error
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	if f.err != nil {
		return model.User{}, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func newTestGate(users *fakeUsers) (*Gate, *utils.Tokens) {
	tokens := utils.NewTokens("gate-secret", time.Hour)
	return NewGate(tokens, users), tokens
}

func TestResolveIdentity_Success(t *testing.T) {
	users := &fakeUsers{users: map[uint64]model.User{
		5: {ID: 5, Email: "owner@example.com", Name: "Store Owner Account Name", Role: model.RoleStoreOwner},
	}}
	gate, tokens := newTestGate(users)

	// the token still says "user"; the stored role wins
	tok, err := tokens.Issue(5, string(model.RoleUser))
	require.NoError(t, err)

	id, err := gate.ResolveIdentity(context.Background(), tok.Token)
	require.NoError(t, err)
	assert.Equal(t, Identity{ID: 5, Email: "owner@example.com", Name: "Store Owner Account Name", Role: model.RoleStoreOwner}, id)
}

func TestResolveIdentity_MissingToken(t *testing.T) {
	gate, _ := newTestGate(&fakeUsers{})
	for _, raw := range []string{"", "   "} {
		_, err := gate.ResolveIdentity(context.Background(), raw)
		assert.ErrorIs(t, err, apperr.ErrMissingToken)
	}
}

func TestResolveIdentity_InvalidToken(t *testing.T) {
	users := &fakeUsers{users: map[uint64]model.User{1: {ID: 1, Role: model.RoleUser}}}
	gate, _ := newTestGate(users)

	expired, err := utils.NewAccessToken("gate-secret", 1, "user", -time.Second)
	require.NoError(t, err)
	forged, err := utils.NewAccessToken("another-secret", 1, "admin", time.Hour)
	require.NoError(t, err)

	for _, raw := range []string{"garbage", expired.Token, forged.Token} {
		_, err := gate.ResolveIdentity(context.Background(), raw)
		assert.ErrorIs(t, err, apperr.ErrInvalidToken)
	}
}

func TestResolveIdentity_DeletedSubject(t *testing.T) {
	users := &fakeUsers{users: map[uint64]model.User{9: {ID: 9, Role: model.RoleUser}}}
	gate, tokens := newTestGate(users)

	tok, err := tokens.Issue(9, "user")
	require.NoError(t, err)
	delete(users.users, 9)

	_, err = gate.ResolveIdentity(context.Background(), tok.Token)
	assert.ErrorIs(t, err, apperr.ErrUnknownIdentity)
}

func TestResolveIdentity_StoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	gate, tokens := newTestGate(&fakeUsers{err: boom})

	tok, err := tokens.Issue(1, "user")
	require.NoError(t, err)

	_, err = gate.ResolveIdentity(context.Background(), tok.Token)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	_, isApp := apperr.As(err)
	assert.False(t, isApp)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("Bearer"))
	assert.Equal(t, "", BearerToken(""))
}
