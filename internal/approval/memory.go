package approval

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepository is the single-process Repository.
type MemoryRepository struct {
	mu        sync.Mutex
	approvals map[primitive.ObjectID]Approval
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{approvals: make(map[primitive.ObjectID]Approval)}
}

func (r *MemoryRepository) InsertMany(_ context.Context, approvals []*Approval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range approvals {
		if a.ID.IsZero() {
			a.ID = primitive.NewObjectID()
		}
		r.approvals[a.ID] = *a
	}
	return nil
}

func (r *MemoryRepository) DeleteMany(_ context.Context, ids []primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.approvals, id)
	}
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id primitive.ObjectID) (*Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.approvals[id]
	if !ok {
		return nil, errApprovalNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) FindMany(_ context.Context, ids []primitive.ObjectID) ([]*Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Approval
	for _, id := range ids {
		if a, ok := r.approvals[id]; ok {
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListByApprover(_ context.Context, approverID string) ([]*Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*Approval{}
	for _, a := range r.approvals {
		if a.ApproverID == approverID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (r *MemoryRepository) Decide(_ context.Context, id primitive.ObjectID, approverID string, v Verdict) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.approvals[id]
	if !ok || a.ApproverID != approverID || a.Status != StatusPending {
		return false, nil
	}
	at := v.At
	a.Status = v.Status
	a.Comments = v.Comments
	a.ApprovedByName = v.ApprovedByName
	a.ApprovedByRole = v.ApprovedByRole
	a.ApprovedAt = &at
	if v.Signature != "" {
		a.Signature = v.Signature
	}
	r.approvals[id] = a
	return true, nil
}

// MemoryOTPStore is the single-process OTPStore.
type MemoryOTPStore struct {
	mu   sync.Mutex
	otps map[string]OTPRecord
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{otps: make(map[string]OTPRecord)}
}

func (s *MemoryOTPStore) Put(_ context.Context, rec OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.otps[rec.ApprovalID] = rec
	return nil
}

func (s *MemoryOTPStore) Get(_ context.Context, approvalID string) (*OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.otps[approvalID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryOTPStore) Fail(_ context.Context, approvalID, codeHash string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.otps[approvalID]
	if !ok || rec.CodeHash != codeHash {
		return 0, nil
	}
	rec.Attempts++
	s.otps[approvalID] = rec
	return rec.Attempts, nil
}

func (s *MemoryOTPStore) Delete(_ context.Context, approvalID, codeHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.otps[approvalID]
	if !ok || rec.CodeHash != codeHash {
		return false, nil
	}
	delete(s.otps, approvalID)
	return true, nil
}
