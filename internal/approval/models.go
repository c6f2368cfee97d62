package approval

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Approval is one approver's slot in a notice's workflow. It leaves pending
// exactly once.
type Approval struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	NoticeID           primitive.ObjectID `bson:"notice_id" json:"notice_id"`
	ApproverID         string             `bson:"approver_id" json:"approver_id"`
	ApproverName       string             `bson:"approver_name" json:"approver_name"`
	ApproverRole       string             `bson:"approver_role" json:"approver_role"`
	ApproverDepartment string             `bson:"approver_department" json:"approver_department"`
	Status             Status             `bson:"status" json:"status"`
	Comments           string             `bson:"comments" json:"comments"`
	Signature          string             `bson:"signature,omitempty" json:"signature,omitempty"`
	ApprovedByName     string             `bson:"approved_by_name,omitempty" json:"approved_by_name,omitempty"`
	ApprovedByRole     string             `bson:"approved_by_role,omitempty" json:"approved_by_role,omitempty"`
	CreatedAt          time.Time          `bson:"created_at" json:"createdAt"`
	ApprovedAt         *time.Time         `bson:"approved_at,omitempty" json:"approvedAt"`
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionSign    Decision = "sign"
)

// DecideInput carries the optional parts of a decision.
type DecideInput struct {
	OTP       string `json:"otp"`
	Comments  string `json:"comments"`
	Reason    string `json:"reason"`
	Signature string `json:"signature"`
}

// Verdict is the terminal write applied to a pending approval.
type Verdict struct {
	Status         Status
	Comments       string
	Signature      string
	ApprovedByName string
	ApprovedByRole string
	At             time.Time
}

// OTPRecord is the live one-time code for an approval. Only the bcrypt hash
// of the code is stored.
type OTPRecord struct {
	ApprovalID string    `bson:"_id"`
	CodeHash   string    `bson:"code_hash"`
	Email      string    `bson:"email"`
	ExpiresAt  time.Time `bson:"expires_at"`
	Attempts   int       `bson:"attempts"`
}
