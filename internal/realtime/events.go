package realtime

import "time"

// Server to client events.
const (
	EventNoticeUpdate       = "notice_update"
	EventApprovalUpdate     = "approval_update"
	EventNoticeStatusUpdate = "notice_status_update"
	EventNoticeReadUpdate   = "notice_read_update"
	EventAnalyticsUpdate    = "analytics_update"
	EventConnected          = "connected"
	EventError              = "error"
)

// Client to server events.
const (
	EventJoinNoticeRoom     = "join_notice_room"
	EventLeaveNoticeRoom    = "leave_notice_room"
	EventJoinAnalyticsRoom  = "join_analytics_room"
	EventLeaveAnalyticsRoom = "leave_analytics_room"
)

// Kinds carried by notice_update.
const (
	NoticeCreated = "created"
	NoticeUpdated = "updated"
	NoticeDeleted = "deleted"
)

const AnalyticsRoom = "analytics"

// NoticeRoom is the room scoping per-notice events.
func NoticeRoom(noticeID string) string {
	return "notice_" + noticeID
}

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type NoticeUpdate struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type ApprovalSnapshot struct {
	ApprovalID   string    `json:"approval_id"`
	Status       string    `json:"status"`
	ApproverName string    `json:"approver_name"`
	ApprovedAt   time.Time `json:"approved_at"`
	Comments     string    `json:"comments"`
	Signed       bool      `json:"signed,omitempty"`
}

type ApprovalUpdate struct {
	NoticeID string           `json:"notice_id"`
	Approval ApprovalSnapshot `json:"approval"`
}

type StatusSnapshot struct {
	ApprovalStatus string     `json:"approval_status,omitempty"`
	Status         string     `json:"status"`
	PublishAt      *time.Time `json:"publish_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type NoticeStatusUpdate struct {
	NoticeID string         `json:"notice_id"`
	Status   StatusSnapshot `json:"status"`
}

// ReadUpdate carries the reader's personal count and the notice's unique total.
type ReadUpdate struct {
	NoticeID           string    `json:"noticeId"`
	UserID             string    `json:"userId"`
	ReadCount          int       `json:"readCount"`
	TotalUniqueReaders int       `json:"totalUniqueReaders"`
	Timestamp          time.Time `json:"timestamp"`
}

type AnalyticsUpdate struct {
	TotalNotices int64     `json:"totalNotices"`
	TotalReads   int64     `json:"totalReads"`
	Timestamp    time.Time `json:"timestamp"`
}

type roomRequest struct {
	NoticeID string `json:"notice_id"`
}
