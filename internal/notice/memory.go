package notice

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepository keeps notices in process. A single mutex makes each
// method atomic, matching the per-document guarantees of MongoRepository.
type MemoryRepository struct {
	mu      sync.Mutex
	notices map[primitive.ObjectID]*Notice
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{notices: make(map[primitive.ObjectID]*Notice)}
}

func clone(n *Notice) *Notice {
	c := *n
	c.Departments = append([]string(nil), n.Departments...)
	c.RecipientEmails = append([]string(nil), n.RecipientEmails...)
	c.ApprovalWorkflow = append([]primitive.ObjectID(nil), n.ApprovalWorkflow...)
	c.Reads = append([]ReadRecord(nil), n.Reads...)
	if n.PublishAt != nil {
		t := *n.PublishAt
		c.PublishAt = &t
	}
	if n.ApprovedAt != nil {
		t := *n.ApprovedAt
		c.ApprovedAt = &t
	}
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, n *Notice) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices[n.ID] = clone(n)
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id primitive.ObjectID) (*Notice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notices[id]
	if !ok {
		return nil, errNoticeNotFound
	}
	return clone(n), nil
}

func (r *MemoryRepository) List(_ context.Context, f ListFilter) ([]*Notice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*Notice{}
	for _, n := range r.notices {
		if f.CreatedBy != "" && n.CreatedBy != f.CreatedBy {
			continue
		}
		c := clone(n)
		c.Reads = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, id primitive.ObjectID, ch Changes, at time.Time) (*Notice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notices[id]
	if !ok {
		return nil, errNoticeNotFound
	}
	ch.apply(n)
	n.UpdatedAt = at
	return clone(n), nil
}

func (ch Changes) apply(n *Notice) {
	if ch.Title != nil {
		n.Title = *ch.Title
	}
	if ch.Subject != nil {
		n.Subject = *ch.Subject
	}
	if ch.Content != nil {
		n.Content = *ch.Content
	}
	if ch.NoticeType != nil {
		n.NoticeType = *ch.NoticeType
	}
	if ch.Departments != nil {
		n.Departments = append([]string(nil), (*ch.Departments)...)
	}
	if ch.ProgramCourse != nil {
		n.ProgramCourse = *ch.ProgramCourse
	}
	if ch.Specialization != nil {
		n.Specialization = *ch.Specialization
	}
	if ch.Year != nil {
		n.Year = *ch.Year
	}
	if ch.Section != nil {
		n.Section = *ch.Section
	}
	if ch.RecipientEmails != nil {
		n.RecipientEmails = append([]string(nil), (*ch.RecipientEmails)...)
	}
	if ch.Priority != nil {
		n.Priority = *ch.Priority
	}
	if ch.SendOptions != nil {
		n.SendOptions = *ch.SendOptions
	}
	if ch.Status != nil {
		n.Status = *ch.Status
	}
}

func (r *MemoryRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notices[id]; !ok {
		return errNoticeNotFound
	}
	delete(r.notices, id)
	return nil
}

func (r *MemoryRepository) ClaimWorkflow(_ context.Context, id primitive.ObjectID, approvalIDs []primitive.ObjectID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notices[id]
	if !ok || len(n.ApprovalWorkflow) > 0 {
		return false, nil
	}
	n.ApprovalWorkflow = append([]primitive.ObjectID(nil), approvalIDs...)
	n.ApprovalStatus = ApprovalPending
	n.Status = StatusPendingApproval
	n.RequiresApproval = true
	n.UpdatedAt = at
	return true, nil
}

func (r *MemoryRepository) ReleaseWorkflow(_ context.Context, id primitive.ObjectID, approvalIDs []primitive.ObjectID, prev WorkflowState) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notices[id]
	if !ok || !sameIDs(n.ApprovalWorkflow, approvalIDs) {
		return false, nil
	}
	n.ApprovalWorkflow = nil
	n.ApprovalStatus = prev.ApprovalStatus
	n.Status = prev.Status
	n.RequiresApproval = prev.RequiresApproval
	n.UpdatedAt = prev.UpdatedAt
	return true, nil
}

func sameIDs(a, b []primitive.ObjectID) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (d Disposition) apply(n *Notice) {
	at := d.At
	n.ApprovalStatus = d.ApprovalStatus
	n.Status = d.Status
	n.ApprovedBy = d.ApprovedBy
	n.ApprovedByName = d.ApprovedByName
	n.ApprovedAt = &at
	n.UpdatedAt = at
	if d.Comments != "" {
		n.ApprovalComments = d.Comments
	}
	if d.RejectionReason != "" {
		n.RejectionReason = d.RejectionReason
	}
	if d.Status == StatusPublished {
		n.PublishAt = &at
	}
}

func (r *MemoryRepository) AutoApprove(_ context.Context, id primitive.ObjectID, d Disposition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notices[id]
	if !ok || len(n.ApprovalWorkflow) > 0 || n.ApprovalStatus == ApprovalApproved {
		return false, nil
	}
	d.apply(n)
	return true, nil
}

func (r *MemoryRepository) Finalize(_ context.Context, id primitive.ObjectID, d Disposition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notices[id]
	if !ok || n.ApprovalStatus != ApprovalPending {
		return false, nil
	}
	d.apply(n)
	return true, nil
}

func (r *MemoryRepository) SetAutoPublish(_ context.Context, id primitive.ObjectID, enabled bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notices[id]
	if !ok {
		return errNoticeNotFound
	}
	n.AutoPublishAfterApproval = enabled
	n.UpdatedAt = at
	return nil
}

func (r *MemoryRepository) Publish(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notices[id]
	if !ok || n.ApprovalStatus != ApprovalApproved || n.Status == StatusPublished {
		return false, nil
	}
	n.Status = StatusPublished
	n.PublishAt = &at
	n.UpdatedAt = at
	return true, nil
}

func (r *MemoryRepository) BumpRead(_ context.Context, id primitive.ObjectID, userID string, at time.Time) (*ReadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notices[id]
	if !ok {
		return nil, nil
	}
	for i := range n.Reads {
		if n.Reads[i].UserID == userID {
			n.Reads[i].ReadCount++
			n.Reads[i].LastReadAt = at
			return &ReadResult{Record: n.Reads[i], UniqueReaders: n.ReadCount}, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) AddFirstRead(_ context.Context, id primitive.ObjectID, rec ReadRecord) (*ReadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notices[id]
	if !ok {
		return nil, nil
	}
	if _, exists := n.ReadOf(rec.UserID); exists {
		return nil, nil
	}
	n.Reads = append(n.Reads, rec)
	n.ReadCount++
	return &ReadResult{Record: rec, UniqueReaders: n.ReadCount}, nil
}

func (r *MemoryRepository) Totals(_ context.Context) (Totals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var t Totals
	for _, n := range r.notices {
		t.Notices++
		t.Reads += int64(n.ReadCount)
	}
	return t, nil
}
