package approval

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OTPStore holds at most one live code per approval.
type OTPStore interface {
	// Put replaces any code already stored for rec.ApprovalID.
	Put(ctx context.Context, rec OTPRecord) error
	// Get returns nil when no code is stored.
	Get(ctx context.Context, approvalID string) (*OTPRecord, error)
	// Fail counts a wrong guess against the code with codeHash and returns
	// the new total. Zero means that code is no longer stored.
	Fail(ctx context.Context, approvalID, codeHash string) (int, error)
	// Delete removes the code only if it still has codeHash, so exactly one
	// of several concurrent consumers wins.
	Delete(ctx context.Context, approvalID, codeHash string) (bool, error)
}

// MongoOTPStore keeps codes in approval_otps. The TTL index on expires_at
// only reclaims space; expiry is checked by the caller.
type MongoOTPStore struct {
	otps *mongo.Collection
}

func NewMongoOTPStore(db *mongo.Database) *MongoOTPStore {
	return &MongoOTPStore{otps: db.Collection("approval_otps")}
}

func (s *MongoOTPStore) Put(ctx context.Context, rec OTPRecord) error {
	_, err := s.otps.ReplaceOne(ctx, bson.M{"_id": rec.ApprovalID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return nil
}

func (s *MongoOTPStore) Get(ctx context.Context, approvalID string) (*OTPRecord, error) {
	var rec OTPRecord
	err := s.otps.FindOne(ctx, bson.M{"_id": approvalID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load otp: %w", err)
	}
	return &rec, nil
}

func (s *MongoOTPStore) Fail(ctx context.Context, approvalID, codeHash string) (int, error) {
	var rec OTPRecord
	err := s.otps.FindOneAndUpdate(ctx,
		bson.M{"_id": approvalID, "code_hash": codeHash},
		bson.M{"$inc": bson.M{"attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count otp attempt: %w", err)
	}
	return rec.Attempts, nil
}

func (s *MongoOTPStore) Delete(ctx context.Context, approvalID, codeHash string) (bool, error) {
	res, err := s.otps.DeleteOne(ctx, bson.M{"_id": approvalID, "code_hash": codeHash})
	if err != nil {
		return false, fmt.Errorf("delete otp: %w", err)
	}
	return res.DeletedCount == 1, nil
}
