package db

import (
	"context"
	"sync"

	"student-roster-go/models"
)

// MemoryStore keeps students in process memory. Writes are serialized by mu,
// so concurrent adds never share an id.
type MemoryStore struct {
	mu       sync.RWMutex
	students []models.Student
	nextID   int
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Student, len(s.students))
	copy(out, s.students)
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		if st.ID == id {
			found := st
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Add(ctx context.Context, in models.NewStudent) (*models.Student, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	student := in.Build(s.nextID)
	s.nextID++
	s.students = append(s.students, student)
	return &student, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.students), nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students = nil
	s.nextID = 1
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
