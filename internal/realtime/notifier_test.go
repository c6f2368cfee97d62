package realtime_test

import (
	"SmartNotice/internal/realtime"
	"SmartNotice/internal/realtime/realtimetest"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type panicky struct{}

func (panicky) Broadcast(string, any) error           { panic("boom") }
func (panicky) PublishRoom(string, string, any) error { panic("boom") }

func TestNotifier_Routing(t *testing.T) {
	rec := &realtimetest.Recorder{}
	n := realtime.NewNotifier(rec, zap.NewNop())

	n.NoticeChanged(realtime.NoticeCreated, map[string]string{"id": "n1"})
	n.ApprovalChanged("n1", realtime.ApprovalSnapshot{ApprovalID: "a1", Status: "approved"})
	n.NoticeStatusChanged("n1", realtime.StatusSnapshot{Status: "published"})
	n.ReadChanged(realtime.ReadUpdate{NoticeID: "n1", UserID: "u1"})
	n.Analytics(realtime.AnalyticsUpdate{TotalNotices: 3})

	msgs := rec.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, "", msgs[0].Room)
	assert.Equal(t, realtime.EventNoticeUpdate, msgs[0].Event)
	assert.Equal(t, realtime.NoticeRoom("n1"), msgs[1].Room)
	assert.Equal(t, realtime.NoticeRoom("n1"), msgs[2].Room)
	assert.Equal(t, realtime.NoticeRoom("n1"), msgs[3].Room)
	assert.Equal(t, realtime.AnalyticsRoom, msgs[4].Room)

	read := msgs[3].Data.(realtime.ReadUpdate)
	assert.False(t, read.Timestamp.IsZero())
}

func TestNotifier_SwallowsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rec := &realtimetest.Recorder{Err: errors.New("hub down")}

	realtime.NewNotifier(rec, zap.New(core)).NoticeChanged(realtime.NoticeDeleted, nil)
	assert.Equal(t, 1, logs.FilterMessage("emit event").Len())

	assert.NotPanics(t, func() {
		realtime.NewNotifier(panicky{}, zap.New(core)).Analytics(realtime.AnalyticsUpdate{})
	})
	assert.Equal(t, 1, logs.FilterMessage("publisher panicked").Len())
}
