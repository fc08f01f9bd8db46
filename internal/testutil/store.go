// Package testutil provides shared test infrastructure: in-memory stores
// that mirror the PostgreSQL repositories and a discarding logger.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/costoptimizer/backend/internal/model"
	"github.com/costoptimizer/backend/internal/repository"
)

// Logger returns a logger that drops everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Clock returns a func that always reports t.
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// CostStore is an in-memory repository.CostRepository. Setting Err makes
// every call fail with it.
type CostStore struct {
	mu      sync.Mutex
	records []*model.CostRecord
	Err     error
	Creates int
}

var _ repository.CostRepository = (*CostStore)(nil)

// NewCostStore returns a store seeded with records.
func NewCostStore(records ...*model.CostRecord) *CostStore {
	return &CostStore{records: records}
}

// Record is shorthand for a cost record dated day.
func Record(day time.Time, service string, cost, usage float64, accountID string) *model.CostRecord {
	return model.NewCostRecord(day, service, cost, usage, accountID)
}

func (s *CostStore) Create(_ context.Context, cost *model.CostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.records = append(s.records, cost)
	s.Creates++
	return nil
}

func (s *CostStore) Exists(_ context.Context, date time.Time, service, accountID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	day := model.Day(date)
	for _, r := range s.records {
		if r.Date.Equal(day) && r.Service == service && r.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

func (s *CostStore) ListAll(context.Context) ([]*model.CostRecord, error) {
	return s.filter(func(*model.CostRecord) bool { return true })
}

func (s *CostStore) ListByServiceSince(_ context.Context, match string, since time.Time) ([]*model.CostRecord, error) {
	from := model.Day(since)
	return s.filter(func(r *model.CostRecord) bool {
		return strings.Contains(r.Service, match) && !r.Date.Before(from)
	})
}

func (s *CostStore) ListSince(_ context.Context, since time.Time) ([]*model.CostRecord, error) {
	from := model.Day(since)
	return s.filter(func(r *model.CostRecord) bool { return !r.Date.Before(from) })
}

func (s *CostStore) ListBetween(_ context.Context, start, end time.Time) ([]*model.CostRecord, error) {
	from, to := model.Day(start), model.Day(end)
	return s.filter(func(r *model.CostRecord) bool { return !r.Date.Before(from) && r.Date.Before(to) })
}

func (s *CostStore) SumBetween(ctx context.Context, start, end time.Time) (float64, error) {
	recs, err := s.ListBetween(ctx, start, end)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, r := range recs {
		total += r.Cost
	}
	return total, nil
}

func (s *CostStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return len(s.records), nil
}

func (s *CostStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Err
}

// filter returns matching records ordered by date, then insertion order.
func (s *CostStore) filter(keep func(*model.CostRecord) bool) ([]*model.CostRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []*model.CostRecord{}
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// UserStore is an in-memory repository.UserRepository.
type UserStore struct {
	mu    sync.Mutex
	users []*model.User
}

var _ repository.UserRepository = (*UserStore)(nil)

// NewUserStore returns an empty store.
func NewUserStore() *UserStore {
	return &UserStore{}
}

func (s *UserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, user)
	return nil
}

func (s *UserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Username == username })
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Email == email })
}

func (s *UserStore) find(match func(*model.User) bool) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}
