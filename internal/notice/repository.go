package notice

import (
	"SmartNotice/internal/apperr"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository persists notices. Every conditional method is a single atomic
// update; the bool result reports whether its precondition held.
type Repository interface {
	Create(ctx context.Context, n *Notice) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Notice, error)
	List(ctx context.Context, f ListFilter) ([]*Notice, error)
	Update(ctx context.Context, id primitive.ObjectID, ch Changes, at time.Time) (*Notice, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// ClaimWorkflow installs approvalIDs and moves the notice to pending,
	// only while approval_workflow is empty.
	ClaimWorkflow(ctx context.Context, id primitive.ObjectID, approvalIDs []primitive.ObjectID, at time.Time) (bool, error)
	// ReleaseWorkflow undoes a claim whose approvals were never stored. It
	// matches only while approval_workflow is still exactly approvalIDs.
	ReleaseWorkflow(ctx context.Context, id primitive.ObjectID, approvalIDs []primitive.ObjectID, prev WorkflowState) (bool, error)
	// AutoApprove publishes a notice with an empty workflow that is not
	// already approved.
	AutoApprove(ctx context.Context, id primitive.ObjectID, d Disposition) (bool, error)
	// Finalize writes d only while approval_status is pending.
	Finalize(ctx context.Context, id primitive.ObjectID, d Disposition) (bool, error)
	SetAutoPublish(ctx context.Context, id primitive.ObjectID, enabled bool, at time.Time) error
	// Publish requires approval_status=approved and status!=published.
	Publish(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)

	// BumpRead increments an existing record; nil means the user has none.
	BumpRead(ctx context.Context, id primitive.ObjectID, userID string, at time.Time) (*ReadResult, error)
	// AddFirstRead appends rec and counts a unique reader; nil means a
	// record for rec.UserID already exists.
	AddFirstRead(ctx context.Context, id primitive.ObjectID, rec ReadRecord) (*ReadResult, error)

	Totals(ctx context.Context) (Totals, error)
}

// WorkflowState is the part of a notice a workflow claim overwrites.
type WorkflowState struct {
	Status           Status
	ApprovalStatus   ApprovalStatus
	RequiresApproval bool
	UpdatedAt        time.Time
}

// StateOf captures n's workflow state before a claim.
func StateOf(n *Notice) WorkflowState {
	return WorkflowState{
		Status:           n.Status,
		ApprovalStatus:   n.ApprovalStatus,
		RequiresApproval: n.RequiresApproval,
		UpdatedAt:        n.UpdatedAt,
	}
}

type MongoRepository struct {
	notices *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{notices: db.Collection("notices")}
}

var errNoticeNotFound = apperr.NotFound("Notice not found")

func emptyWorkflow() bson.A {
	return bson.A{
		bson.M{"approval_workflow": nil},
		bson.M{"approval_workflow": bson.M{"$size": 0}},
	}
}

func (r *MongoRepository) Create(ctx context.Context, n *Notice) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if _, err := r.notices.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("insert notice: %w", err)
	}
	return nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Notice, error) {
	var n Notice
	err := r.notices.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNoticeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find notice: %w", err)
	}
	return &n, nil
}

func (r *MongoRepository) List(ctx context.Context, f ListFilter) ([]*Notice, error) {
	filter := bson.M{}
	if f.CreatedBy != "" {
		filter["created_by"] = f.CreatedBy
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"reads": 0})
	cursor, err := r.notices.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	notices := []*Notice{}
	if err := cursor.All(ctx, &notices); err != nil {
		return nil, fmt.Errorf("decode notices: %w", err)
	}
	return notices, nil
}

func changeSet(ch Changes, at time.Time) bson.M {
	set := bson.M{"updated_at": at}
	if ch.Title != nil {
		set["title"] = *ch.Title
	}
	if ch.Subject != nil {
		set["subject"] = *ch.Subject
	}
	if ch.Content != nil {
		set["content"] = *ch.Content
	}
	if ch.NoticeType != nil {
		set["notice_type"] = *ch.NoticeType
	}
	if ch.Departments != nil {
		set["departments"] = *ch.Departments
	}
	if ch.ProgramCourse != nil {
		set["program_course"] = *ch.ProgramCourse
	}
	if ch.Specialization != nil {
		set["specialization"] = *ch.Specialization
	}
	if ch.Year != nil {
		set["year"] = *ch.Year
	}
	if ch.Section != nil {
		set["section"] = *ch.Section
	}
	if ch.RecipientEmails != nil {
		set["recipient_emails"] = *ch.RecipientEmails
	}
	if ch.Priority != nil {
		set["priority"] = *ch.Priority
	}
	if ch.SendOptions != nil {
		set["send_options"] = *ch.SendOptions
	}
	if ch.Status != nil {
		set["status"] = *ch.Status
	}
	return set
}

func (r *MongoRepository) Update(ctx context.Context, id primitive.ObjectID, ch Changes, at time.Time) (*Notice, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var n Notice
	err := r.notices.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": changeSet(ch, at)}, opts).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNoticeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update notice: %w", err)
	}
	return &n, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.notices.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	if res.DeletedCount == 0 {
		return errNoticeNotFound
	}
	return nil
}

func (r *MongoRepository) updateIf(ctx context.Context, filter, update bson.M) (bool, error) {
	res, err := r.notices.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("update notice: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoRepository) ClaimWorkflow(ctx context.Context, id primitive.ObjectID, approvalIDs []primitive.ObjectID, at time.Time) (bool, error) {
	return r.updateIf(ctx,
		bson.M{"_id": id, "$or": emptyWorkflow()},
		bson.M{"$set": bson.M{
			"approval_workflow": approvalIDs,
			"approval_status":   ApprovalPending,
			"status":            StatusPendingApproval,
			"requires_approval": true,
			"updated_at":        at,
		}})
}

func (r *MongoRepository) ReleaseWorkflow(ctx context.Context, id primitive.ObjectID, approvalIDs []primitive.ObjectID, prev WorkflowState) (bool, error) {
	return r.updateIf(ctx,
		bson.M{"_id": id, "approval_workflow": approvalIDs},
		bson.M{"$set": bson.M{
			"approval_workflow": bson.A{},
			"approval_status":   prev.ApprovalStatus,
			"status":            prev.Status,
			"requires_approval": prev.RequiresApproval,
			"updated_at":        prev.UpdatedAt,
		}})
}

func dispositionSet(d Disposition) bson.M {
	set := bson.M{
		"approval_status":  d.ApprovalStatus,
		"status":           d.Status,
		"approved_by":      d.ApprovedBy,
		"approved_by_name": d.ApprovedByName,
		"approved_at":      d.At,
		"updated_at":       d.At,
	}
	if d.Comments != "" {
		set["approval_comments"] = d.Comments
	}
	if d.RejectionReason != "" {
		set["rejection_reason"] = d.RejectionReason
	}
	if d.Status == StatusPublished {
		set["publish_at"] = d.At
	}
	return set
}

func (r *MongoRepository) AutoApprove(ctx context.Context, id primitive.ObjectID, d Disposition) (bool, error) {
	return r.updateIf(ctx,
		bson.M{"_id": id, "$or": emptyWorkflow(), "approval_status": bson.M{"$ne": ApprovalApproved}},
		bson.M{"$set": dispositionSet(d)})
}

func (r *MongoRepository) Finalize(ctx context.Context, id primitive.ObjectID, d Disposition) (bool, error) {
	return r.updateIf(ctx,
		bson.M{"_id": id, "approval_status": ApprovalPending},
		bson.M{"$set": dispositionSet(d)})
}

func (r *MongoRepository) SetAutoPublish(ctx context.Context, id primitive.ObjectID, enabled bool, at time.Time) error {
	ok, err := r.updateIf(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"auto_publish_after_approval": enabled, "updated_at": at}})
	if err != nil {
		return err
	}
	if !ok {
		return errNoticeNotFound
	}
	return nil
}

func (r *MongoRepository) Publish(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	return r.updateIf(ctx,
		bson.M{"_id": id, "approval_status": ApprovalApproved, "status": bson.M{"$ne": StatusPublished}},
		bson.M{"$set": bson.M{"status": StatusPublished, "publish_at": at, "updated_at": at}})
}

// readResult decodes a notice projected down to read_count and the
// caller's own read record.
func (r *MongoRepository) readResult(res *mongo.SingleResult, userID string) (*ReadResult, error) {
	var n Notice
	err := res.Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record read: %w", err)
	}
	rec, ok := n.ReadOf(userID)
	if !ok {
		return nil, fmt.Errorf("record read: record for %s missing after update", userID)
	}
	return &ReadResult{Record: rec, UniqueReaders: n.ReadCount}, nil
}

func readProjection(userID string) *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{
			"read_count": 1,
			"reads":      bson.M{"$elemMatch": bson.M{"user_id": userID}},
		})
}

func (r *MongoRepository) BumpRead(ctx context.Context, id primitive.ObjectID, userID string, at time.Time) (*ReadResult, error) {
	res := r.notices.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "reads.user_id": userID},
		bson.M{
			"$inc": bson.M{"reads.$.read_count": 1},
			"$set": bson.M{"reads.$.last_read_at": at},
		},
		readProjection(userID))
	return r.readResult(res, userID)
}

func (r *MongoRepository) AddFirstRead(ctx context.Context, id primitive.ObjectID, rec ReadRecord) (*ReadResult, error) {
	res := r.notices.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "reads.user_id": bson.M{"$ne": rec.UserID}},
		bson.M{
			"$push": bson.M{"reads": rec},
			"$inc":  bson.M{"read_count": 1},
		},
		readProjection(rec.UserID))
	return r.readResult(res, rec.UserID)
}

func (r *MongoRepository) Totals(ctx context.Context) (Totals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "notices", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "reads", Value: bson.D{{Key: "$sum", Value: "$read_count"}}},
		}}},
	}
	cursor, err := r.notices.Aggregate(ctx, pipeline)
	if err != nil {
		return Totals{}, fmt.Errorf("aggregate totals: %w", err)
	}
	var rows []struct {
		Notices int64 `bson:"notices"`
		Reads   int64 `bson:"reads"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return Totals{}, fmt.Errorf("decode totals: %w", err)
	}
	if len(rows) == 0 {
		return Totals{}, nil
	}
	return Totals{Notices: rows[0].Notices, Reads: rows[0].Reads}, nil
}
