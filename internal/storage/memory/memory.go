// Package memory is an in-process Repository used for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fincoach/internal/core"
	"fincoach/internal/storage"
)

type Store struct {
	mu sync.RWMutex

	nextID       int64
	users        map[int64]core.User
	profiles     map[int64]core.Profile
	transactions map[int64][]core.Transaction
	insights     map[int64][]core.Insight
	tasks        map[int64]core.Task
	workflows    map[int64]core.Workflow
}

// Ensure interface conformance
var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		users:        make(map[int64]core.User),
		profiles:     make(map[int64]core.Profile),
		transactions: make(map[int64][]core.Transaction),
		insights:     make(map[int64][]core.Insight),
		tasks:        make(map[int64]core.Task),
		workflows:    make(map[int64]core.Workflow),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return core.User{}, storage.ErrDuplicateEmail
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.ID = s.id()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetProfile(_ context.Context, userID int64) (core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.Profile{}, storage.ErrNotFound
	}
	p.FinancialGoals = append([]string{}, p.FinancialGoals...)
	return p, nil
}

func (s *Store) SaveProfile(_ context.Context, p core.Profile) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.FinancialGoals = append([]string{}, p.FinancialGoals...)
	p.UpdatedAt = time.Now().UTC()
	s.profiles[p.UserID] = p
	return p, nil
}

func (s *Store) CreateTransactions(_ context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(txs))
	for i, t := range txs {
		t.ID = s.id()
		s.transactions[t.UserID] = append(s.transactions[t.UserID], t)
		out[i] = t
	}
	return out, nil
}

func (s *Store) ListTransactions(_ context.Context, userID int64) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedTransactions(userID), nil
}

func (s *Store) RecentTransactions(_ context.Context, userID int64, limit int) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.sortedTransactions(userID)
	if limit >= 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *Store) ActiveUserIDs(context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for id, txs := range s.transactions {
		if len(txs) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// sortedTransactions orders by date then insertion, matching the SQL backend.
func (s *Store) sortedTransactions(userID int64) []core.Transaction {
	out := append([]core.Transaction(nil), s.transactions[userID]...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ReplaceInsights(_ context.Context, userID int64, insights []core.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.insights, userID)
	s.addInsights(userID, insights)
	return nil
}

func (s *Store) AddInsights(_ context.Context, userID int64, insights []core.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addInsights(userID, insights)
	return nil
}

func (s *Store) addInsights(userID int64, insights []core.Insight) {
	now := time.Now().UTC()
	for _, in := range insights {
		in.ID = s.id()
		in.UserID = userID
		if in.CreatedAt.IsZero() {
			in.CreatedAt = now
		}
		s.insights[userID] = append(s.insights[userID], in)
	}
}

func (s *Store) ListInsights(_ context.Context, userID int64, limit int) ([]core.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]core.Insight(nil), s.insights[userID]...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateTask(_ context.Context, t core.Task) (core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	t.ID = s.id()
	s.tasks[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTask(_ context.Context, t core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.tasks[t.ID]
	if !ok || old.UserID != t.UserID {
		return storage.ErrNotFound
	}
	t.CreatedAt = old.CreatedAt
	t.ExternalID = old.ExternalID
	t.UpdatedAt = time.Now().UTC()
	s.tasks[t.ID] = t
	return nil
}

func (s *Store) GetTask(_ context.Context, userID, id int64) (core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return core.Task{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTasks(_ context.Context, userID int64) ([]core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Task
	for _, t := range s.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteTask(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) CreateWorkflow(_ context.Context, w core.Workflow) (core.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	w.ID = s.id()
	s.workflows[w.ID] = cloneWorkflow(w)
	return w, nil
}

func (s *Store) UpdateWorkflow(_ context.Context, w core.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.workflows[w.ID]
	if !ok || old.UserID != w.UserID {
		return storage.ErrNotFound
	}
	w.CreatedAt = old.CreatedAt
	w.ExternalID = old.ExternalID
	s.workflows[w.ID] = cloneWorkflow(w)
	return nil
}

func (s *Store) GetWorkflow(_ context.Context, userID, id int64) (core.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workflows[id]
	if !ok || w.UserID != userID {
		return core.Workflow{}, storage.ErrNotFound
	}
	return cloneWorkflow(w), nil
}

func (s *Store) ListWorkflows(_ context.Context, userID int64) ([]core.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Workflow
	for _, w := range s.workflows {
		if w.UserID == userID {
			out = append(out, cloneWorkflow(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func cloneWorkflow(w core.Workflow) core.Workflow {
	w.AgentSequence = append([]string{}, w.AgentSequence...)
	w.TaskIDs = append([]int64{}, w.TaskIDs...)
	return w
}
