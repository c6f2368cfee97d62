package realtime

import (
	"time"

	"go.uber.org/zap"
)

// Notifier emits the domain events. Failures are logged and never returned;
// a hub problem must not fail the operation that triggered the event.
type Notifier struct {
	pub    Publisher
	logger *zap.Logger
}

func NewNotifier(pub Publisher, logger *zap.Logger) *Notifier {
	return &Notifier{pub: pub, logger: logger.Named("notifier")}
}

// NoticeChanged broadcasts a notice_update to every client.
func (n *Notifier) NoticeChanged(kind string, notice any) {
	n.emit("", EventNoticeUpdate, NoticeUpdate{Type: kind, Data: notice})
}

// ApprovalChanged and NoticeStatusChanged go to the notice's room.
func (n *Notifier) ApprovalChanged(noticeID string, snap ApprovalSnapshot) {
	n.emit(NoticeRoom(noticeID), EventApprovalUpdate, ApprovalUpdate{NoticeID: noticeID, Approval: snap})
}

func (n *Notifier) NoticeStatusChanged(noticeID string, st StatusSnapshot) {
	n.emit(NoticeRoom(noticeID), EventNoticeStatusUpdate, NoticeStatusUpdate{NoticeID: noticeID, Status: st})
}

func (n *Notifier) ReadChanged(u ReadUpdate) {
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now().UTC()
	}
	n.emit(NoticeRoom(u.NoticeID), EventNoticeReadUpdate, u)
}

func (n *Notifier) Analytics(u AnalyticsUpdate) {
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now().UTC()
	}
	n.emit(AnalyticsRoom, EventAnalyticsUpdate, u)
}

func (n *Notifier) emit(room, event string, data any) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("publisher panicked", zap.String("event", event), zap.Any("panic", r))
		}
	}()

	var err error
	if room == "" {
		err = n.pub.Broadcast(event, data)
	} else {
		err = n.pub.PublishRoom(room, event, data)
	}
	if err != nil {
		n.logger.Warn("emit event", zap.String("event", event), zap.String("room", room), zap.Error(err))
	}
}
