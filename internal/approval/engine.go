// Package approval runs the notice approval workflow: fan-out to approvers,
// first-decision-wins convergence, and the OTP-gated approve variant.
package approval

import (
	"SmartNotice/internal/apperr"
	"SmartNotice/internal/auth"
	"SmartNotice/internal/config"
	"SmartNotice/internal/directory"
	"SmartNotice/internal/mailer"
	"SmartNotice/internal/notice"
	"SmartNotice/internal/realtime"
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// FinalizeHook is told when a decision finalizes a notice. Sibling approvals
// are still pending at that point; closing them is up to the hook.
type FinalizeHook interface {
	NoticeFinalized(ctx context.Context, n *notice.Notice, decided primitive.ObjectID)
}

type Params struct {
	fx.In

	Notices   notice.Repository
	Approvals Repository
	OTPs      OTPStore
	Resolver  *directory.Resolver
	Notifier  *realtime.Notifier
	Mailer    mailer.Mailer
	Policy    auth.Policy
	Config    *config.Config
	Logger    *zap.Logger
	Hook      FinalizeHook `optional:"true"`
}

type Engine struct {
	notices   notice.Repository
	approvals Repository
	otps      OTPStore
	resolver  *directory.Resolver
	notifier  *realtime.Notifier
	mailer    mailer.Mailer
	policy    auth.Policy
	hook      FinalizeHook
	otpTTL    time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewEngine(p Params) *Engine {
	ttl := p.Config.OTPTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Engine{
		notices:   p.Notices,
		approvals: p.Approvals,
		otps:      p.OTPs,
		resolver:  p.Resolver,
		notifier:  p.Notifier,
		mailer:    p.Mailer,
		policy:    p.Policy,
		hook:      p.Hook,
		otpTTL:    ttl,
		logger:    p.Logger.Named("approval"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

const (
	autoApprovedComment = "Auto-approved (no approvers found)"
	maxOTPAttempts      = 5
)

func trackingURL(noticeID primitive.ObjectID) string {
	return "/approval-tracking/" + noticeID.Hex()
}

func alreadyRequested(noticeID primitive.ObjectID) error {
	return apperr.Conflict("Approval already requested for this notice").WithRedirect(trackingURL(noticeID))
}

func parseApprovalID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errApprovalNotFound
	}
	return oid, nil
}

type RequestResult struct {
	NoticeID    string
	Outcome     notice.WorkflowOutcome
	RedirectURL string
}

// RequestApproval starts the workflow for an existing notice. A notice whose
// workflow already exists is a Conflict carrying the tracking URL.
func (e *Engine) RequestApproval(ctx context.Context, noticeID string, actor auth.Actor) (*RequestResult, error) {
	if noticeID == "" {
		return nil, apperr.Validation("Notice ID is required")
	}
	oid, err := notice.ParseID(noticeID)
	if err != nil {
		return nil, err
	}
	n, err := e.notices.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if len(n.ApprovalWorkflow) > 0 {
		return nil, alreadyRequested(n.ID)
	}
	if n.ApprovalStatus == notice.ApprovalApproved || n.ApprovalStatus == notice.ApprovalRejected {
		return nil, apperr.Conflict("Notice has already been reviewed").WithRedirect(trackingURL(n.ID))
	}

	outcome, err := e.StartWorkflow(ctx, n, actor)
	if err != nil {
		return nil, err
	}
	res := &RequestResult{NoticeID: n.ID.Hex(), Outcome: outcome, RedirectURL: trackingURL(n.ID)}
	if outcome.AutoApproved {
		res.RedirectURL = "/notices"
	}
	return res, nil
}

// StartWorkflow creates one pending approval per approver, or auto-approves
// when there are none. The workflow is claimed before any record is written,
// so a losing concurrent request creates nothing.
func (e *Engine) StartWorkflow(ctx context.Context, n *notice.Notice, actor auth.Actor) (notice.WorkflowOutcome, error) {
	approvers, err := e.resolver.Approvers(ctx)
	if err != nil {
		return notice.WorkflowOutcome{}, err
	}
	now := e.now()

	if len(approvers) == 0 {
		ok, err := e.notices.AutoApprove(ctx, n.ID, notice.Disposition{
			ApprovalStatus: notice.ApprovalApproved,
			Status:         notice.StatusPublished,
			ApprovedBy:     actor.ID,
			ApprovedByName: actor.Name,
			At:             now,
			Comments:       autoApprovedComment,
		})
		if err != nil {
			return notice.WorkflowOutcome{}, err
		}
		if !ok {
			return notice.WorkflowOutcome{}, alreadyRequested(n.ID)
		}
		e.notifier.NoticeStatusChanged(n.ID.Hex(), realtime.StatusSnapshot{
			ApprovalStatus: string(notice.ApprovalApproved),
			Status:         string(notice.StatusPublished),
			PublishAt:      &now,
			UpdatedAt:      now,
		})
		e.logger.Info("notice auto-approved", zap.String("notice_id", n.ID.Hex()), zap.String("user_id", actor.ID))
		return notice.WorkflowOutcome{AutoApproved: true}, nil
	}

	records := make([]*Approval, len(approvers))
	ids := make([]primitive.ObjectID, len(approvers))
	hexIDs := make([]string, len(approvers))
	for i, ap := range approvers {
		ids[i] = primitive.NewObjectID()
		hexIDs[i] = ids[i].Hex()
		records[i] = &Approval{
			ID:                 ids[i],
			NoticeID:           n.ID,
			ApproverID:         ap.ID.Hex(),
			ApproverName:       ap.Name,
			ApproverRole:       ap.Role,
			ApproverDepartment: ap.Department,
			Status:             StatusPending,
			CreatedAt:          now,
		}
	}

	prev := notice.StateOf(n)
	claimed, err := e.notices.ClaimWorkflow(ctx, n.ID, ids, now)
	if err != nil {
		return notice.WorkflowOutcome{}, err
	}
	if !claimed {
		return notice.WorkflowOutcome{}, alreadyRequested(n.ID)
	}
	if err := e.approvals.InsertMany(ctx, records); err != nil {
		e.logger.Error("workflow claimed but approvals not stored",
			zap.String("notice_id", n.ID.Hex()), zap.Error(err))
		e.releaseWorkflow(ctx, n.ID, ids, prev)
		return notice.WorkflowOutcome{}, apperr.Internal("Failed to create approval requests", err)
	}

	e.notifier.NoticeStatusChanged(n.ID.Hex(), realtime.StatusSnapshot{
		ApprovalStatus: string(notice.ApprovalPending),
		Status:         string(notice.StatusPendingApproval),
		UpdatedAt:      now,
	})
	e.logger.Info("approval requested",
		zap.String("notice_id", n.ID.Hex()),
		zap.String("user_id", actor.ID),
		zap.Int("approvers", len(approvers)))
	return notice.WorkflowOutcome{ApprovalIDs: hexIDs}, nil
}

// releaseWorkflow removes whatever part of a failed fan-out was stored and
// hands the notice back so the request can be retried.
func (e *Engine) releaseWorkflow(ctx context.Context, noticeID primitive.ObjectID, ids []primitive.ObjectID, prev notice.WorkflowState) {
	ctx = context.WithoutCancel(ctx)
	if err := e.approvals.DeleteMany(ctx, ids); err != nil {
		e.logger.Error("remove partial approvals", zap.String("notice_id", noticeID.Hex()), zap.Error(err))
	}
	released, err := e.notices.ReleaseWorkflow(ctx, noticeID, ids, prev)
	if err != nil {
		e.logger.Error("release workflow", zap.String("notice_id", noticeID.Hex()), zap.Error(err))
		return
	}
	if !released {
		e.logger.Warn("workflow changed before release", zap.String("notice_id", noticeID.Hex()))
	}
}

type DecideResult struct {
	Status          Status
	NoticeFinalized bool
	DecidedBy       string
	DecidedAt       time.Time
}

func validateDecision(d Decision, in DecideInput) error {
	switch d {
	case DecisionApprove:
	case DecisionReject:
		if in.Reason == "" {
			return apperr.Validation("Reason is required for rejection")
		}
	case DecisionSign:
		if in.Signature == "" {
			return apperr.Validation("Signature data is required")
		}
	default:
		return apperr.Validation(fmt.Sprintf("Unknown decision %q", d))
	}
	return nil
}

// Decide records the caller's decision on their own pending approval. The
// first decision on a notice finalizes it; later ones only update their own
// record. Repeating a decision whose notice update failed completes it.
func (e *Engine) Decide(ctx context.Context, approvalID string, actor auth.Actor, d Decision, in DecideInput) (*DecideResult, error) {
	oid, err := parseApprovalID(approvalID)
	if err != nil {
		return nil, err
	}
	a, err := e.approvals.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if a.ApproverID != actor.ID {
		return nil, errApprovalNotFound
	}
	if a.Status != StatusPending {
		return e.resume(ctx, a)
	}
	if err := validateDecision(d, in); err != nil {
		return nil, err
	}
	if in.OTP != "" && d != DecisionReject {
		if err := e.consumeOTP(ctx, approvalID, in.OTP); err != nil {
			return nil, err
		}
	}

	v := Verdict{
		Status:         StatusApproved,
		Comments:       in.Comments,
		ApprovedByName: actor.Name,
		ApprovedByRole: actor.Role,
		At:             e.now(),
	}
	switch d {
	case DecisionSign:
		v.Signature = in.Signature
	case DecisionReject:
		v.Status = StatusRejected
		v.Comments = in.Reason
	}

	decided, err := e.approvals.Decide(ctx, oid, actor.ID, v)
	if err != nil {
		return nil, err
	}
	if !decided {
		return nil, apperr.Conflict("Approval already processed")
	}
	return e.finish(ctx, a, v)
}

// disposition is the notice write that follows verdict v by approver.
func disposition(approver string, v Verdict) notice.Disposition {
	disp := notice.Disposition{
		ApprovalStatus: notice.ApprovalApproved,
		Status:         notice.StatusPublished,
		ApprovedBy:     approver,
		ApprovedByName: v.ApprovedByName,
		At:             v.At,
		Comments:       fmt.Sprintf("Approved by %s (%s)", v.ApprovedByName, v.ApprovedByRole),
	}
	switch {
	case v.Status == StatusRejected:
		disp.ApprovalStatus = notice.ApprovalRejected
		disp.Status = notice.StatusRejected
		disp.Comments = ""
		disp.RejectionReason = v.Comments
	case v.Signature != "":
		disp.Comments = fmt.Sprintf("Signed and approved by %s (%s)", v.ApprovedByName, v.ApprovedByRole)
	}
	return disp
}

// verdictOf rebuilds the verdict stored on a decided approval.
func verdictOf(a *Approval, fallback time.Time) Verdict {
	v := Verdict{
		Status:         a.Status,
		Comments:       a.Comments,
		Signature:      a.Signature,
		ApprovedByName: a.ApprovedByName,
		ApprovedByRole: a.ApprovedByRole,
		At:             fallback,
	}
	if a.ApprovedAt != nil {
		v.At = *a.ApprovedAt
	}
	return v
}

// resume handles a repeat call on an approval that is no longer pending. When
// the notice is still waiting on its workflow, the earlier notice update
// never landed and is applied now from the stored verdict.
func (e *Engine) resume(ctx context.Context, a *Approval) (*DecideResult, error) {
	n, err := e.notices.FindByID(ctx, a.NoticeID)
	if err != nil {
		return nil, err
	}
	if n.ApprovalStatus != notice.ApprovalPending || !slices.Contains(n.ApprovalWorkflow, a.ID) {
		return nil, apperr.Conflict("Approval already processed")
	}
	e.logger.Warn("resuming decision with unfinalized notice",
		zap.String("approval_id", a.ID.Hex()), zap.String("notice_id", a.NoticeID.Hex()))
	res, err := e.finish(ctx, a, verdictOf(a, e.now()))
	if err != nil {
		return nil, err
	}
	if !res.NoticeFinalized {
		return nil, apperr.Conflict("Approval already processed")
	}
	return res, nil
}

// finish applies the notice side of a recorded verdict and announces it.
func (e *Engine) finish(ctx context.Context, a *Approval, v Verdict) (*DecideResult, error) {
	approvalID := a.ID.Hex()
	noticeID := a.NoticeID.Hex()
	disp := disposition(a.ApproverID, v)

	finalized, err := e.notices.Finalize(ctx, a.NoticeID, disp)
	if err != nil {
		e.logger.Error("finalize notice",
			zap.String("notice_id", noticeID),
			zap.String("approval_id", approvalID),
			zap.Error(err))
		return nil, apperr.Internal("Failed to update notice status", err)
	}

	e.notifier.ApprovalChanged(noticeID, realtime.ApprovalSnapshot{
		ApprovalID:   approvalID,
		Status:       string(v.Status),
		ApproverName: v.ApprovedByName,
		ApprovedAt:   v.At,
		Comments:     v.Comments,
		Signed:       v.Signature != "",
	})
	if finalized {
		st := realtime.StatusSnapshot{
			ApprovalStatus: string(disp.ApprovalStatus),
			Status:         string(disp.Status),
			UpdatedAt:      v.At,
		}
		if disp.Status == notice.StatusPublished {
			at := v.At
			st.PublishAt = &at
		}
		e.notifier.NoticeStatusChanged(noticeID, st)
		e.runHook(ctx, a.NoticeID, a.ID)
	}

	e.logger.Info("approval decided",
		zap.String("approval_id", approvalID),
		zap.String("notice_id", noticeID),
		zap.String("status", string(v.Status)),
		zap.Bool("finalized", finalized))
	return &DecideResult{Status: v.Status, NoticeFinalized: finalized, DecidedBy: v.ApprovedByName, DecidedAt: v.At}, nil
}

func (e *Engine) runHook(ctx context.Context, noticeID, decided primitive.ObjectID) {
	if e.hook == nil {
		return
	}
	n, err := e.notices.FindByID(ctx, noticeID)
	if err != nil {
		e.logger.Warn("finalize hook skipped", zap.String("notice_id", noticeID.Hex()), zap.Error(err))
		return
	}
	e.hook.NoticeFinalized(ctx, n, decided)
}

type NoticeBrief struct {
	ID             string                `json:"_id"`
	Title          string                `json:"title"`
	Content        string                `json:"content"`
	NoticeType     string                `json:"notice_type"`
	CreatedAt      time.Time             `json:"created_at"`
	ApprovalStatus notice.ApprovalStatus `json:"approval_status"`
}

type MyApproval struct {
	*Approval
	Notice NoticeBrief `json:"notice"`
}

// My lists the caller's approvals, newest first. Approvals whose notice is
// gone are left out.
func (e *Engine) My(ctx context.Context, actor auth.Actor) ([]MyApproval, error) {
	approvals, err := e.approvals.ListByApprover(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	notices := make(map[primitive.ObjectID]*notice.Notice)
	out := make([]MyApproval, 0, len(approvals))
	for _, a := range approvals {
		n, cached := notices[a.NoticeID]
		if !cached {
			n, err = e.notices.FindByID(ctx, a.NoticeID)
			if err != nil && !apperr.Is(err, apperr.KindNotFound) {
				return nil, err
			}
			notices[a.NoticeID] = n
		}
		if n == nil {
			e.logger.Debug("approval references missing notice",
				zap.String("approval_id", a.ID.Hex()), zap.String("notice_id", a.NoticeID.Hex()))
			continue
		}
		out = append(out, MyApproval{Approval: a, Notice: NoticeBrief{
			ID:             n.ID.Hex(),
			Title:          n.Title,
			Content:        n.Content,
			NoticeType:     n.NoticeType,
			CreatedAt:      n.CreatedAt,
			ApprovalStatus: n.ApprovalStatus,
		}})
	}
	return out, nil
}

type TrackedApproval struct {
	ID                 string     `json:"id"`
	ApproverName       string     `json:"approver_name"`
	ApproverRole       string     `json:"approver_role"`
	ApproverDepartment string     `json:"approver_department"`
	Status             Status     `json:"status"`
	Comments           string     `json:"comments"`
	CreatedAt          time.Time  `json:"created_at"`
	ApprovedAt         *time.Time `json:"approved_at"`
	Signature          string     `json:"signature,omitempty"`
}

type Tracking struct {
	NoticeID                 string                `json:"notice_id"`
	NoticeTitle              string                `json:"notice_title"`
	AutoPublishAfterApproval bool                  `json:"auto_publish_after_approval"`
	CurrentStatus            notice.ApprovalStatus `json:"current_status"`
	Approvals                []TrackedApproval     `json:"approvals"`
	CreatedAt                time.Time             `json:"created_at"`
	CreatedBy                string                `json:"created_by"`
	RequiresApproval         bool                  `json:"requires_approval"`
}

// Tracking shows a notice's workflow to its author or a privileged role.
// Workflow references that no longer resolve are skipped.
func (e *Engine) Tracking(ctx context.Context, noticeID string, actor auth.Actor) (*Tracking, error) {
	oid, err := notice.ParseID(noticeID)
	if err != nil {
		return nil, err
	}
	n, err := e.notices.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if n.CreatedBy != actor.ID && !e.policy.Can(actor.Role, auth.ObjTracking, auth.ActRead) {
		return nil, apperr.Unauthorized("Unauthorized")
	}

	approvals, err := e.approvals.FindMany(ctx, n.ApprovalWorkflow)
	if err != nil {
		return nil, err
	}
	if missing := len(n.ApprovalWorkflow) - len(approvals); missing > 0 {
		e.logger.Warn("stale workflow references", zap.String("notice_id", noticeID), zap.Int("missing", missing))
	}

	t := &Tracking{
		NoticeID:                 n.ID.Hex(),
		NoticeTitle:              n.Title,
		AutoPublishAfterApproval: n.AutoPublishAfterApproval,
		CurrentStatus:            n.ApprovalStatus,
		Approvals:                make([]TrackedApproval, 0, len(approvals)),
		CreatedAt:                n.CreatedAt,
		CreatedBy:                e.creatorName(ctx, n),
		RequiresApproval:         n.RequiresApproval,
	}
	if t.CurrentStatus == "" {
		t.CurrentStatus = notice.ApprovalNotRequired
	}
	for _, a := range approvals {
		t.Approvals = append(t.Approvals, TrackedApproval{
			ID:                 a.ID.Hex(),
			ApproverName:       a.ApproverName,
			ApproverRole:       a.ApproverRole,
			ApproverDepartment: a.ApproverDepartment,
			Status:             a.Status,
			Comments:           a.Comments,
			CreatedAt:          a.CreatedAt,
			ApprovedAt:         a.ApprovedAt,
			Signature:          a.Signature,
		})
	}
	return t, nil
}

// creatorName prefers the directory, then the name stored on the notice.
func (e *Engine) creatorName(ctx context.Context, n *notice.Notice) string {
	p, err := e.resolver.Resolve(ctx, n.CreatedBy)
	if err != nil {
		e.logger.Warn("resolve notice creator", zap.String("notice_id", n.ID.Hex()), zap.Error(err))
	}
	if err == nil && directory.Resolved(p) {
		if name := p.Identity().DisplayName; name != "" {
			return name
		}
	}
	if n.CreatedByName != "" {
		return n.CreatedByName
	}
	return "Unknown"
}

func (e *Engine) authored(ctx context.Context, noticeID string, actor auth.Actor) (*notice.Notice, error) {
	oid, err := notice.ParseID(noticeID)
	if err != nil {
		return nil, err
	}
	n, err := e.notices.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if n.CreatedBy != actor.ID {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	return n, nil
}

func (e *Engine) UpdateSettings(ctx context.Context, noticeID string, actor auth.Actor, autoPublish bool) error {
	n, err := e.authored(ctx, noticeID, actor)
	if err != nil {
		return err
	}
	return e.notices.SetAutoPublish(ctx, n.ID, autoPublish, e.now())
}

// Publish manually publishes an approved notice for its author.
func (e *Engine) Publish(ctx context.Context, noticeID string, actor auth.Actor) (time.Time, error) {
	n, err := e.authored(ctx, noticeID, actor)
	if err != nil {
		return time.Time{}, err
	}
	if n.ApprovalStatus != notice.ApprovalApproved {
		return time.Time{}, apperr.Validation("Notice must be approved before publishing")
	}
	if n.Status == notice.StatusPublished {
		return time.Time{}, apperr.Conflict("Notice is already published")
	}

	now := e.now()
	ok, err := e.notices.Publish(ctx, n.ID, now)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, apperr.Conflict("Notice is already published")
	}
	e.notifier.NoticeStatusChanged(n.ID.Hex(), realtime.StatusSnapshot{
		ApprovalStatus: string(notice.ApprovalApproved),
		Status:         string(notice.StatusPublished),
		PublishAt:      &now,
		UpdatedAt:      now,
	})
	return now, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// SendOTP issues a fresh code for the caller's approval and mails it
// synchronously. A delivery failure discards the code.
func (e *Engine) SendOTP(ctx context.Context, approvalID string, actor auth.Actor) (time.Duration, error) {
	if approvalID == "" {
		return 0, apperr.Validation("Approval ID is required")
	}
	oid, err := parseApprovalID(approvalID)
	if err != nil {
		return 0, err
	}
	a, err := e.approvals.FindByID(ctx, oid)
	if err != nil {
		return 0, err
	}
	if a.ApproverID != actor.ID {
		return 0, errApprovalNotFound
	}
	if a.Status != StatusPending {
		return 0, apperr.Conflict("Approval already processed")
	}
	if actor.Email == "" {
		return 0, apperr.Validation("No email address on file")
	}

	code, err := generateCode()
	if err != nil {
		return 0, err
	}
	hash, err := auth.HashSecret(code)
	if err != nil {
		return 0, err
	}
	rec := OTPRecord{ApprovalID: approvalID, CodeHash: hash, Email: actor.Email, ExpiresAt: e.now().Add(e.otpTTL)}
	if err := e.otps.Put(ctx, rec); err != nil {
		return 0, err
	}

	if err := e.mailer.Send(ctx, []string{actor.Email}, mailer.OTPSubject, mailer.RenderOTP(code, approvalID, e.otpTTL)); err != nil {
		if _, derr := e.otps.Delete(ctx, approvalID, hash); derr != nil {
			e.logger.Warn("discard undelivered otp", zap.String("approval_id", approvalID), zap.Error(derr))
		}
		return 0, apperr.Delivery("Failed to send OTP", err)
	}
	e.logger.Info("otp sent", zap.String("approval_id", approvalID), zap.String("user_id", actor.ID))
	return e.otpTTL, nil
}

// VerifyOTP consumes a live code without deciding the approval.
func (e *Engine) VerifyOTP(ctx context.Context, approvalID, code string) error {
	if approvalID == "" || code == "" {
		return apperr.Validation("Approval ID and OTP are required")
	}
	return e.consumeOTP(ctx, approvalID, code)
}

// consumeOTP checks code against the stored hash and deletes it. Expired
// codes are purged on sight.
func (e *Engine) consumeOTP(ctx context.Context, approvalID, code string) error {
	rec, err := e.otps.Get(ctx, approvalID)
	if err != nil {
		return err
	}
	if rec == nil {
		return apperr.OTP("OTP not found or expired. Please request a new OTP.")
	}
	if e.now().After(rec.ExpiresAt) {
		if _, err := e.otps.Delete(ctx, approvalID, rec.CodeHash); err != nil {
			e.logger.Warn("purge expired otp", zap.String("approval_id", approvalID), zap.Error(err))
		}
		return apperr.OTP("OTP expired. Please request a new OTP.")
	}
	if !auth.CheckSecret(code, rec.CodeHash) {
		return e.failOTP(ctx, approvalID, rec.CodeHash)
	}
	ok, err := e.otps.Delete(ctx, approvalID, rec.CodeHash)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.OTP("OTP not found or expired. Please request a new OTP.")
	}
	return nil
}

// failOTP counts a wrong code. The code is burned once it has been guessed
// at maxOTPAttempts times.
func (e *Engine) failOTP(ctx context.Context, approvalID, codeHash string) error {
	attempts, err := e.otps.Fail(ctx, approvalID, codeHash)
	if err != nil {
		return err
	}
	if attempts < maxOTPAttempts {
		return apperr.OTP("Invalid OTP. Please try again.")
	}
	if _, err := e.otps.Delete(ctx, approvalID, codeHash); err != nil {
		return err
	}
	e.logger.Warn("otp burned after repeated failures", zap.String("approval_id", approvalID), zap.Int("attempts", attempts))
	return apperr.OTP("Too many invalid attempts. Please request a new OTP.")
}
