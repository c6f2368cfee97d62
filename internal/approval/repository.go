package approval

import (
	"SmartNotice/internal/apperr"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	InsertMany(ctx context.Context, approvals []*Approval) error
	// DeleteMany removes whichever of ids exist.
	DeleteMany(ctx context.Context, ids []primitive.ObjectID) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Approval, error)
	// FindMany returns the approvals that exist, in the order of ids.
	FindMany(ctx context.Context, ids []primitive.ObjectID) ([]*Approval, error)
	// ListByApprover returns an approver's records, newest first.
	ListByApprover(ctx context.Context, approverID string) ([]*Approval, error)
	// Decide applies v only if the approval is still pending and belongs to
	// approverID.
	Decide(ctx context.Context, id primitive.ObjectID, approverID string, v Verdict) (bool, error)
}

var errApprovalNotFound = apperr.NotFound("Approval not found")

type MongoRepository struct {
	approvals *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{approvals: db.Collection("approvals")}
}

func (r *MongoRepository) InsertMany(ctx context.Context, approvals []*Approval) error {
	if len(approvals) == 0 {
		return nil
	}
	docs := make([]interface{}, len(approvals))
	for i, a := range approvals {
		if a.ID.IsZero() {
			a.ID = primitive.NewObjectID()
		}
		docs[i] = a
	}
	if _, err := r.approvals.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert approvals: %w", err)
	}
	return nil
}

func (r *MongoRepository) DeleteMany(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.approvals.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("delete approvals: %w", err)
	}
	return nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Approval, error) {
	var a Approval
	err := r.approvals.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errApprovalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find approval: %w", err)
	}
	return &a, nil
}

func (r *MongoRepository) FindMany(ctx context.Context, ids []primitive.ObjectID) ([]*Approval, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.approvals.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find approvals: %w", err)
	}
	var found []*Approval
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("decode approvals: %w", err)
	}
	byID := make(map[primitive.ObjectID]*Approval, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	out := make([]*Approval, 0, len(found))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MongoRepository) ListByApprover(ctx context.Context, approverID string) ([]*Approval, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.approvals.Find(ctx, bson.M{"approver_id": approverID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	approvals := []*Approval{}
	if err := cursor.All(ctx, &approvals); err != nil {
		return nil, fmt.Errorf("decode approvals: %w", err)
	}
	return approvals, nil
}

func (r *MongoRepository) Decide(ctx context.Context, id primitive.ObjectID, approverID string, v Verdict) (bool, error) {
	set := bson.M{
		"status":           v.Status,
		"comments":         v.Comments,
		"approved_by_name": v.ApprovedByName,
		"approved_by_role": v.ApprovedByRole,
		"approved_at":      v.At,
	}
	if v.Signature != "" {
		set["signature"] = v.Signature
	}
	res, err := r.approvals.UpdateOne(ctx,
		bson.M{"_id": id, "approver_id": approverID, "status": StatusPending},
		bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("decide approval: %w", err)
	}
	return res.MatchedCount == 1, nil
}
