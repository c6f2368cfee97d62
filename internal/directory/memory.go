package directory

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepository is an in-process Repository for single-instance runs and tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	students  map[string]Student
	employees map[string]Employee
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		students:  make(map[string]Student),
		employees: make(map[string]Employee),
	}
}

// AddStudent stores s, assigning an ID when it has none, and returns the hex ID.
func (r *MemoryRepository) AddStudent(s Student) string {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.students[s.ID.Hex()] = s
	return s.ID.Hex()
}

func (r *MemoryRepository) AddEmployee(e Employee) string {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.employees[e.ID.Hex()] = e
	return e.ID.Hex()
}

func (r *MemoryRepository) FindStudents(_ context.Context, ids []string) ([]*Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Student
	for _, id := range ids {
		if s, ok := r.students[id]; ok {
			out = append(out, &s)
		}
	}
	return out, nil
}

func (r *MemoryRepository) FindEmployees(_ context.Context, ids []string) ([]*Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Employee
	for _, id := range ids {
		if e, ok := r.employees[id]; ok {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListApprovers(_ context.Context) ([]*Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Employee
	for _, e := range r.employees {
		if e.Role != "student" {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}
