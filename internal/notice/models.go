package notice

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusPublished       Status = "published"
	StatusRejected        Status = "rejected"
	StatusScheduled       Status = "scheduled"
)

type ApprovalStatus string

const (
	ApprovalNotRequired ApprovalStatus = "not_required"
	ApprovalPending     ApprovalStatus = "pending"
	ApprovalApproved    ApprovalStatus = "approved"
	ApprovalRejected    ApprovalStatus = "rejected"
)

type Priority string

const (
	PriorityNormal       Priority = "Normal"
	PriorityUrgent       Priority = "Urgent"
	PriorityHighlyUrgent Priority = "Highly Urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityUrgent, PriorityHighlyUrgent:
		return true
	}
	return false
}

type SendOptions struct {
	Email bool `bson:"email" json:"email"`
	Web   bool `bson:"web" json:"web"`
}

// ReadRecord is one user's read history on a notice.
type ReadRecord struct {
	UserID         string    `bson:"user_id" json:"user_id"`
	ReadCount      int       `bson:"read_count" json:"read_count"`
	FirstReadAt    time.Time `bson:"first_read_at" json:"first_read_at"`
	LastReadAt     time.Time `bson:"last_read_at" json:"last_read_at"`
	TotalTimeSpent int64     `bson:"total_time_spent" json:"total_time_spent"`
}

// Notice is a publication. ReadCount counts unique readers; Reads holds at
// most one record per user.
type Notice struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title           string             `bson:"title" json:"title"`
	Subject         string             `bson:"subject" json:"subject"`
	Content         string             `bson:"content" json:"content"`
	NoticeType      string             `bson:"notice_type" json:"notice_type"`
	Departments     []string           `bson:"departments" json:"departments"`
	ProgramCourse   string             `bson:"program_course" json:"program_course"`
	Specialization  string             `bson:"specialization" json:"specialization"`
	Year            string             `bson:"year" json:"year"`
	Section         string             `bson:"section" json:"section"`
	RecipientEmails []string           `bson:"recipient_emails" json:"recipient_emails"`
	Priority        Priority           `bson:"priority" json:"priority"`
	SendOptions     SendOptions        `bson:"send_options" json:"send_options"`
	FromField       string             `bson:"from_field" json:"from_field"`
	PublishAt       *time.Time         `bson:"publish_at,omitempty" json:"publish_at"`

	Status                   Status               `bson:"status" json:"status"`
	ApprovalStatus           ApprovalStatus       `bson:"approval_status" json:"approval_status"`
	RequiresApproval         bool                 `bson:"requires_approval" json:"requires_approval"`
	ApprovalWorkflow         []primitive.ObjectID `bson:"approval_workflow,omitempty" json:"approval_workflow"`
	AutoPublishAfterApproval bool                 `bson:"auto_publish_after_approval" json:"auto_publish_after_approval"`

	ApprovedBy       string     `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	ApprovedByName   string     `bson:"approved_by_name,omitempty" json:"approved_by_name,omitempty"`
	ApprovedAt       *time.Time `bson:"approved_at,omitempty" json:"approved_at"`
	ApprovalComments string     `bson:"approval_comments,omitempty" json:"approval_comments,omitempty"`
	RejectionReason  string     `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`

	ReadCount int          `bson:"read_count" json:"read_count"`
	Reads     []ReadRecord `bson:"reads,omitempty" json:"-"`

	CreatedBy     string    `bson:"created_by" json:"created_by"`
	CreatedByName string    `bson:"created_by_name" json:"created_by_name"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// ReadOf returns the record for userID, if any.
func (n *Notice) ReadOf(userID string) (ReadRecord, bool) {
	for _, r := range n.Reads {
		if r.UserID == userID {
			return r, true
		}
	}
	return ReadRecord{}, false
}

// Summary is the payload carried by notice_update events.
type Summary struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Status         Status         `json:"status,omitempty"`
	ApprovalStatus ApprovalStatus `json:"approval_status,omitempty"`
	CreatedBy      string         `json:"created_by,omitempty"`
	NoticeType     string         `json:"notice_type,omitempty"`
	Priority       Priority       `json:"priority,omitempty"`
	CreatedAt      *time.Time     `json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `json:"updated_at,omitempty"`
}

// Draft is the author's input when creating a notice.
type Draft struct {
	Title            string       `json:"title"`
	Subject          string       `json:"subject"`
	Content          string       `json:"content"`
	NoticeType       string       `json:"notice_type"`
	Departments      []string     `json:"departments"`
	ProgramCourse    string       `json:"program_course"`
	Specialization   string       `json:"specialization"`
	Year             string       `json:"year"`
	Section          string       `json:"section"`
	RecipientEmails  []string     `json:"recipient_emails"`
	Priority         Priority     `json:"priority"`
	SendOptions      *SendOptions `json:"send_options"`
	FromField        string       `json:"from_field"`
	Status           Status       `json:"status"`
	RequiresApproval bool         `json:"requires_approval"`
	PublishAt        *time.Time   `json:"publish_at"`
}

// Changes is a partial edit; nil fields are left untouched.
type Changes struct {
	Title           *string      `json:"title"`
	Subject         *string      `json:"subject"`
	Content         *string      `json:"content"`
	NoticeType      *string      `json:"notice_type"`
	Departments     *[]string    `json:"departments"`
	ProgramCourse   *string      `json:"program_course"`
	Specialization  *string      `json:"specialization"`
	Year            *string      `json:"year"`
	Section         *string      `json:"section"`
	RecipientEmails *[]string    `json:"recipient_emails"`
	Priority        *Priority    `json:"priority"`
	SendOptions     *SendOptions `json:"send_options"`
	Status          *Status      `json:"status"`
}

// Disposition is the terminal outcome written by the approval workflow.
type Disposition struct {
	ApprovalStatus  ApprovalStatus
	Status          Status
	ApprovedBy      string
	ApprovedByName  string
	At              time.Time
	Comments        string
	RejectionReason string
}

type ReadResult struct {
	Record        ReadRecord
	UniqueReaders int
}

type Totals struct {
	Notices int64
	Reads   int64
}

type ListFilter struct {
	CreatedBy string
}

// WorkflowOutcome reports how an approval request was resolved.
type WorkflowOutcome struct {
	AutoApproved bool
	ApprovalIDs  []string
}
