package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps records and users in process memory. It is used when the
// database is disabled and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
	users   map[uuid.UUID]*User
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]*Record),
		users:   make(map[uuid.UUID]*User),
		now:     time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if _, exists := m.records[r.ID]; exists {
		return fmt.Errorf("record %s already exists", r.ID)
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = m.now().UTC()
	}
	m.records[r.ID] = cloneRecord(r)
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(r), nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	m.mu.RLock()
	var matched []*Record
	for _, r := range m.records {
		if r.UserID != nil && *r.UserID == userID {
			matched = append(matched, cloneRecord(r))
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return []*Record{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

func (m *MemoryStore) UpdateReview(_ context.Context, id uuid.UUID, status, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	r.DoctorNotes = notes
	return nil
}

// Users returns a UserRepository view over the same store.
func (m *MemoryStore) Users() UserRepository {
	return memoryUsers{m}
}

type memoryUsers struct{ m *MemoryStore }

func (u memoryUsers) FindOrCreateByEmail(_ context.Context, in *User) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, fmt.Errorf("user email is required")
	}

	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	for _, existing := range u.m.users {
		if existing.Email == email {
			return cloneUser(existing), nil
		}
	}

	created := cloneUser(in)
	created.ID = uuid.New()
	created.Email = email
	if created.MedicalHistory == nil {
		created.MedicalHistory = []string{}
	}
	created.CreatedAt = u.m.now().UTC()
	u.m.users[created.ID] = created

	return cloneUser(created), nil
}

func (u memoryUsers) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u.m.mu.RLock()
	defer u.m.mu.RUnlock()

	existing, ok := u.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(existing), nil
}

// cloneRecord copies r deeply enough that callers cannot reach the stored
// slices or pointers.
func cloneRecord(r *Record) *Record {
	cp := *r
	if r.UserID != nil {
		id := *r.UserID
		cp.UserID = &id
	}
	cp.Result.Conditions = slices.Clone(r.Result.Conditions)
	cp.Result.Recommendations = slices.Clone(r.Result.Recommendations)
	cp.Result.EmergencyIndicators = slices.Clone(r.Result.EmergencyIndicators)
	cp.Result.NextSteps = slices.Clone(r.Result.NextSteps)
	return &cp
}

func cloneUser(u *User) *User {
	cp := *u
	if u.Age != nil {
		age := *u.Age
		cp.Age = &age
	}
	cp.MedicalHistory = slices.Clone(u.MedicalHistory)
	return &cp
}
