package notice

import (
	"SmartNotice/internal/apperr"
	"SmartNotice/internal/auth"
	"SmartNotice/internal/directory"
	"SmartNotice/internal/mailer"
	"SmartNotice/internal/realtime"
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ApprovalStarter fans a freshly created notice out to its approvers.
type ApprovalStarter interface {
	StartWorkflow(ctx context.Context, n *Notice, actor auth.Actor) (WorkflowOutcome, error)
}

// AnalyticsRefresher pushes fresh global totals after a bulk change.
type AnalyticsRefresher interface {
	Refresh(ctx context.Context)
}

type Params struct {
	fx.In

	Repo      Repository
	Approvals ApprovalStarter
	Resolver  *directory.Resolver
	Notifier  *realtime.Notifier
	Mail      *mailer.Background
	Policy    auth.Policy
	Analytics AnalyticsRefresher
	Logger    *zap.Logger
}

// Service coordinates the notice lifecycle around the approval workflow.
type Service struct {
	repo      Repository
	approvals ApprovalStarter
	resolver  *directory.Resolver
	notifier  *realtime.Notifier
	mail      *mailer.Background
	policy    auth.Policy
	analytics AnalyticsRefresher
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repo,
		approvals: p.Approvals,
		resolver:  p.Resolver,
		notifier:  p.Notifier,
		mail:      p.Mail,
		policy:    p.Policy,
		analytics: p.Analytics,
		logger:    p.Logger.Named("notice"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ParseID converts a hex notice ID. Malformed IDs are reported as not found.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound("Notice not found")
	}
	return oid, nil
}

type Creator struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// View is a notice with its creator resolved for display.
type View struct {
	*Notice
	Creator Creator `json:"createdBy"`
}

type CreateResult struct {
	Notice   *Notice
	Workflow WorkflowOutcome
}

func validateDraft(d *Draft) error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return apperr.Validation("Title is required")
	}
	if strings.TrimSpace(d.Content) == "" {
		return apperr.Validation("Content is required")
	}
	if d.Priority == "" {
		d.Priority = PriorityNormal
	}
	if !d.Priority.Valid() {
		return apperr.Validation("Invalid priority")
	}
	switch d.Status {
	case "":
		d.Status = StatusDraft
	case StatusDraft, StatusPublished, StatusScheduled:
	default:
		return apperr.Validation("Invalid status")
	}
	return nil
}

// Create persists a draft. A published draft that requires approval is held
// at pending_approval and fanned out to approvers before the created event.
func (s *Service) Create(ctx context.Context, actor auth.Actor, d Draft) (*CreateResult, error) {
	if err := validateDraft(&d); err != nil {
		return nil, err
	}

	now := s.now()
	n := &Notice{
		ID:               primitive.NewObjectID(),
		Title:            d.Title,
		Subject:          d.Subject,
		Content:          d.Content,
		NoticeType:       d.NoticeType,
		Departments:      d.Departments,
		ProgramCourse:    d.ProgramCourse,
		Specialization:   d.Specialization,
		Year:             d.Year,
		Section:          d.Section,
		RecipientEmails:  d.RecipientEmails,
		Priority:         d.Priority,
		SendOptions:      SendOptions{Web: true},
		FromField:        d.FromField,
		PublishAt:        d.PublishAt,
		Status:           d.Status,
		ApprovalStatus:   ApprovalNotRequired,
		RequiresApproval: d.RequiresApproval,
		CreatedBy:        actor.ID,
		CreatedByName:    actor.Name,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if d.SendOptions != nil {
		n.SendOptions = *d.SendOptions
	}
	if n.FromField == "" {
		n.FromField = actor.Name
	}
	if d.Status == StatusPublished {
		if d.RequiresApproval {
			n.Status = StatusPendingApproval
			n.ApprovalStatus = ApprovalPending
		} else {
			n.ApprovalStatus = ApprovalApproved
			if n.PublishAt == nil {
				n.PublishAt = &now
			}
		}
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	var outcome WorkflowOutcome
	if n.Status == StatusPendingApproval {
		var err error
		outcome, err = s.approvals.StartWorkflow(ctx, n, actor)
		if err != nil {
			return nil, err
		}
		if n, err = s.repo.FindByID(ctx, n.ID); err != nil {
			return nil, err
		}
	}

	s.notifier.NoticeChanged(realtime.NoticeCreated, Summary{
		ID:             n.ID.Hex(),
		Title:          n.Title,
		Status:         n.Status,
		ApprovalStatus: n.ApprovalStatus,
		CreatedBy:      actor.Name,
		NoticeType:     n.NoticeType,
		Priority:       n.Priority,
		CreatedAt:      &n.CreatedAt,
	})
	s.logger.Info("notice created",
		zap.String("notice_id", n.ID.Hex()),
		zap.String("user_id", actor.ID),
		zap.String("status", string(n.Status)))
	return &CreateResult{Notice: n, Workflow: outcome}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	n, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []*Notice{n})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) List(ctx context.Context) ([]View, error) {
	notices, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	return s.views(ctx, notices)
}

// ListByCreator returns userID's notices; other authors' lists need the
// list permission.
func (s *Service) ListByCreator(ctx context.Context, actor auth.Actor, userID string) ([]View, error) {
	if actor.ID != userID && !s.policy.Can(actor.Role, auth.ObjNotice, auth.ActList) {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	notices, err := s.repo.List(ctx, ListFilter{CreatedBy: userID})
	if err != nil {
		return nil, err
	}
	return s.views(ctx, notices)
}

// views resolves creators in one directory round trip. An unknown creator
// falls back to the stored name, then "Unknown".
func (s *Service) views(ctx context.Context, notices []*Notice) ([]View, error) {
	ids := make([]string, 0, len(notices))
	seen := make(map[string]bool)
	for _, n := range notices {
		if !seen[n.CreatedBy] {
			seen[n.CreatedBy] = true
			ids = append(ids, n.CreatedBy)
		}
	}
	principals, err := s.resolver.ResolveMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(notices))
	for _, n := range notices {
		c := Creator{ID: n.CreatedBy, Name: n.CreatedByName}
		if p := principals[n.CreatedBy]; directory.Resolved(p) {
			id := p.Identity()
			c.Name, c.Email = id.DisplayName, id.ContactEmail
		}
		if c.Name == "" {
			c.Name = "Unknown"
		}
		views = append(views, View{Notice: n, Creator: c})
	}
	return views, nil
}

func validateChanges(n *Notice, ch Changes) error {
	if ch.Title != nil && strings.TrimSpace(*ch.Title) == "" {
		return apperr.Validation("Title cannot be empty")
	}
	if ch.Priority != nil && !ch.Priority.Valid() {
		return apperr.Validation("Invalid priority")
	}
	if ch.Status == nil || *ch.Status == n.Status {
		return nil
	}
	switch *ch.Status {
	case StatusDraft, StatusScheduled:
		return nil
	case StatusPublished:
		if n.RequiresApproval && n.ApprovalStatus != ApprovalApproved {
			return apperr.Validation("Notice must be approved before publishing")
		}
		return nil
	default:
		return apperr.Validation("Invalid status")
	}
}

// Update applies an author's edit. A published notice with email delivery
// enabled is mailed to its recipients once the edit is stored.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, ch Changes) (*Notice, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	n, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if n.CreatedBy != actor.ID {
		return nil, apperr.Unauthorized("Only the author can edit this notice")
	}
	if err := validateChanges(n, ch); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, oid, ch, s.now())
	if err != nil {
		return nil, err
	}

	if updated.Status == StatusPublished && updated.SendOptions.Email && len(updated.RecipientEmails) > 0 {
		subject := updated.Subject
		if subject == "" {
			subject = updated.Title
		}
		s.mail.Go(updated.RecipientEmails, subject, mailer.RenderNotice(updated.Title, updated.FromField, updated.Content))
	}

	s.notifier.NoticeChanged(realtime.NoticeUpdated, Summary{
		ID:        updated.ID.Hex(),
		Title:     updated.Title,
		Status:    updated.Status,
		UpdatedAt: &updated.UpdatedAt,
	})
	return updated, nil
}

// Delete removes a notice. Approval records are kept.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	n, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return err
	}
	if n.CreatedBy != actor.ID && !s.policy.Can(actor.Role, auth.ObjNotice, auth.ActDelete) {
		return apperr.Unauthorized("Unauthorized")
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return err
	}

	s.notifier.NoticeChanged(realtime.NoticeDeleted, Summary{ID: n.ID.Hex(), Title: n.Title})
	s.analytics.Refresh(ctx)
	s.logger.Info("notice deleted", zap.String("notice_id", n.ID.Hex()), zap.String("user_id", actor.ID))
	return nil
}

type NoticeAnalytics struct {
	RecipientCount int        `json:"recipientCount"`
	Priority       Priority   `json:"priority"`
	Status         Status     `json:"status"`
	PublishedAt    *time.Time `json:"publishedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	ReadCount      int        `json:"readCount"`
	ReadPercentage float64    `json:"readPercentage"`
}

func (s *Service) Analytics(ctx context.Context, id string) (*NoticeAnalytics, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	n, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	a := &NoticeAnalytics{
		RecipientCount: len(n.RecipientEmails),
		Priority:       n.Priority,
		Status:         n.Status,
		PublishedAt:    n.PublishAt,
		CreatedAt:      n.CreatedAt,
		ReadCount:      n.ReadCount,
	}
	if a.RecipientCount > 0 {
		a.ReadPercentage = float64(n.ReadCount) / float64(a.RecipientCount) * 100
	}
	return a, nil
}

type GlobalAnalytics struct {
	TotalNotices          int64   `json:"totalNotices"`
	TotalReads            int64   `json:"totalReads"`
	AverageReadsPerNotice float64 `json:"averageReadsPerNotice"`
}

func (s *Service) Totals(ctx context.Context, actor auth.Actor) (*GlobalAnalytics, error) {
	if !s.policy.Can(actor.Role, auth.ObjAnalytics, auth.ActRead) {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	t, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, err
	}
	g := &GlobalAnalytics{TotalNotices: t.Notices, TotalReads: t.Reads}
	if t.Notices > 0 {
		g.AverageReadsPerNotice = float64(t.Reads) / float64(t.Notices)
	}
	return g, nil
}
