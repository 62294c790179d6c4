package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/store-rating/internal/auth"
	"github.com/iliyamo/store-rating/internal/middleware"
	"github.com/iliyamo/store-rating/internal/model"
	"github.com/iliyamo/store-rating/internal/repository"
)

// newEcho returns an echo instance wired like the server.  Requests
// carrying X-Test-User are treated as authenticated with X-Test-Role.
func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := c.Request().Header.Get("X-Test-User"); raw != "" {
				id, _ := strconv.ParseUint(raw, 10, 64)
				middleware.SetIdentity(c, auth.Identity{ID: id, Role: model.Role(c.Request().Header.Get("X-Test-Role"))})
			}
			return next(c)
		}
	})
	return e
}

func do(e *echo.Echo, method, target, body string, uid uint64, role model.Role) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if uid != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uid, 10))
		req.Header.Set("X-Test-Role", string(role))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Errors  []string        `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func data[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v), string(env.Data))
	return v
}

// memDirectory is an in-memory stand-in for the user, store and rating
// repositories.
type memDirectory struct {
	mu      sync.Mutex
	users   map[uint64]model.User
	stores  map[uint64]model.Store
	ratings []model.Rating
	raters  map[uint64]repository.Rater
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		users:  map[uint64]model.User{},
		stores: map[uint64]model.Store{},
		raters: map[uint64]repository.Rater{},
	}
}

func (m *memDirectory) addUser(u model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.raters[u.ID] = repository.Rater{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (m *memDirectory) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memDirectory) List(_ context.Context, f repository.UserFilter) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.User{}
	for _, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(f.Name)) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memDirectory) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

// storeDir exposes the store half of memDirectory.
type storeDir struct{ *memDirectory }

func (s storeDir) GetByID(_ context.Context, id uint64) (*model.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[id]
	if !ok {
		return nil, repository.ErrStoreNotFound
	}
	return &st, nil
}

func (s storeDir) GetWithOwner(ctx context.Context, id uint64) (*repository.StoreWithOwner, error) {
	st, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	o := s.users[st.OwnerID]
	return &repository.StoreWithOwner{Store: *st, Owner: repository.OwnerSummary{Name: o.Name, Email: o.Email, Role: string(o.Role)}}, nil
}

func (s storeDir) GetByOwnerID(_ context.Context, ownerID uint64) (*model.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.stores {
		if st.OwnerID == ownerID {
			st := st
			return &st, nil
		}
	}
	return nil, repository.ErrStoreNotFound
}

func (s storeDir) ListWithOwner(ctx context.Context, f repository.StoreFilter) ([]repository.StoreWithOwner, error) {
	stores, _ := s.ListByName(ctx, f)
	out := make([]repository.StoreWithOwner, 0, len(stores))
	for _, st := range stores {
		o := s.users[st.OwnerID]
		out = append(out, repository.StoreWithOwner{Store: st, Owner: repository.OwnerSummary{Name: o.Name, Email: o.Email}})
	}
	return out, nil
}

func (s storeDir) ListByName(_ context.Context, f repository.StoreFilter) ([]model.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Store{}
	for _, st := range s.stores {
		if f.Name != "" && !strings.Contains(strings.ToLower(st.Name), strings.ToLower(f.Name)) {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s storeDir) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores), nil
}

// ratingDir exposes the rating half of memDirectory.
type ratingDir struct{ *memDirectory }

func (r ratingDir) FindByUserAndStore(_ context.Context, userID, storeID uint64) (*model.Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rt := range r.ratings {
		if rt.UserID == userID && rt.StoreID == storeID {
			rt := rt
			return &rt, nil
		}
	}
	return nil, repository.ErrRatingNotFound
}

func (r ratingDir) ListByUserForStores(_ context.Context, userID uint64, storeIDs []uint64) (map[uint64]model.Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[uint64]bool{}
	for _, id := range storeIDs {
		want[id] = true
	}
	out := map[uint64]model.Rating{}
	for _, rt := range r.ratings {
		if rt.UserID == userID && want[rt.StoreID] {
			out[rt.StoreID] = rt
		}
	}
	return out, nil
}

func (r ratingDir) ListByStoreWithRater(_ context.Context, storeID uint64) ([]repository.RatingWithRater, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []repository.RatingWithRater{}
	for i := len(r.ratings) - 1; i >= 0; i-- {
		if rt := r.ratings[i]; rt.StoreID == storeID {
			out = append(out, repository.RatingWithRater{Rating: rt, User: r.raters[rt.UserID]})
		}
	}
	return out, nil
}

func (r ratingDir) Distribution(_ context.Context, storeID uint64) ([]repository.ScoreCount, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buckets := make([]repository.ScoreCount, 5)
	for i := range buckets {
		buckets[i].Score = i + 1
	}
	total := 0
	for _, rt := range r.ratings {
		if rt.StoreID == storeID {
			buckets[rt.Score-1].Count++
			total++
		}
	}
	return buckets, total, nil
}

func (r ratingDir) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ratings), nil
}

type countingPurger struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPurger) Purge(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return nil
}

func (p *countingPurger) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func strPtr(s string) *string { return &s }

const (
	longName  = "Alexandra Catherine Smith"
	storeName = "Corner Bakery and Coffee House"
	goodPass  = "Secret#Pass1"
)
