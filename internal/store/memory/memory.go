// Package memory is an in-process implementation of the store ports.
package memory

import (
	"context"
	"sort"
	"sync"

	"peatracker/internal/core"
	"peatracker/internal/store"
)

type Store struct {
	mu       sync.Mutex
	config   *core.AccountConfig
	schedule *core.DCAConfig
	entries  map[string]core.Entry
	deposits map[string]core.Deposit
}

func New() *Store {
	return &Store{
		entries:  make(map[string]core.Entry),
		deposits: make(map[string]core.Deposit),
	}
}

func (s *Store) LoadConfig(_ context.Context) (*core.AccountConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return nil, nil
	}
	c := *s.config
	return &c, nil
}

func (s *Store) SaveConfig(_ context.Context, cfg core.AccountConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = &cfg
	return nil
}

func (s *Store) DeleteConfig(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = nil
	return nil
}

func (s *Store) LoadEntries(_ context.Context) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) UpsertEntry(_ context.Context, e core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Date.String()] = e
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, date core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, date.String())
	return nil
}

func (s *Store) LoadEntry(_ context.Context, date core.Date) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[date.String()]
	if !ok {
		return core.Entry{}, store.ErrNotFound
	}
	return e, nil
}

func (s *Store) LoadDeposits(_ context.Context) ([]core.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Deposit, 0, len(s.deposits))
	for _, d := range s.deposits {
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (s *Store) UpsertDeposit(_ context.Context, d core.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deposits[d.ID] = d
	return nil
}

func (s *Store) DeleteDeposit(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deposits, id)
	return nil
}

func (s *Store) LoadDeposit(_ context.Context, id string) (core.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deposits[id]
	if !ok {
		return core.Deposit{}, store.ErrNotFound
	}
	return d, nil
}

func (s *Store) LoadSchedule(_ context.Context) (*core.DCAConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return nil, nil
	}
	c := *s.schedule
	return &c, nil
}

func (s *Store) SaveSchedule(_ context.Context, cfg core.DCAConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = &cfg
	return nil
}

func (s *Store) ReplaceEntries(_ context.Context, entries []core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]core.Entry, len(entries))
	for _, e := range entries {
		s.entries[e.Date.String()] = e
	}
	return nil
}

func (s *Store) ReplaceDeposits(_ context.Context, deposits []core.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deposits = make(map[string]core.Deposit, len(deposits))
	for _, d := range deposits {
		s.deposits[d.ID] = d
	}
	return nil
}

// Remote keeps one in-memory store per user.
type Remote struct {
	mu    sync.Mutex
	users map[string]*Store
}

func NewRemote() *Remote {
	return &Remote{users: make(map[string]*Store)}
}

// ForUser returns the store of userID, creating it on first use.
func (r *Remote) ForUser(userID string) store.Store {
	return r.User(userID)
}

// User is ForUser with the concrete type, for tests and seeding.
func (r *Remote) User(userID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.users[userID]
	if !ok {
		s = New()
		r.users[userID] = s
	}
	return s
}

var (
	_ store.Cache        = (*Store)(nil)
	_ store.RecordReader = (*Store)(nil)
	_ store.Remote       = (*Remote)(nil)
)
