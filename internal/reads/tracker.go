// Package reads records per-user reads of notices and aggregates them into
// engagement reports.
package reads

import (
	"SmartNotice/internal/apperr"
	"SmartNotice/internal/directory"
	"SmartNotice/internal/notice"
	"SmartNotice/internal/realtime"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// HighEngagementReads is the read count at which a reader counts as highly engaged.
const HighEngagementReads = 5

// maxRecordAttempts bounds the bump/add/bump sequence. Each step is a
// conditional update, so only a concurrent first read can push us past
// the first one.
const maxRecordAttempts = 3

var errReadLost = errors.New("read record vanished during update")

type Params struct {
	fx.In

	Notices  notice.Repository
	Resolver *directory.Resolver
	Notifier *realtime.Notifier
	Logger   *zap.Logger
}

type Tracker struct {
	notices  notice.Repository
	resolver *directory.Resolver
	notifier *realtime.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewTracker(p Params) *Tracker {
	return &Tracker{
		notices:  p.Notices,
		resolver: p.Resolver,
		notifier: p.Notifier,
		logger:   p.Logger.Named("reads"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type Result struct {
	IsNewRead          bool `json:"isNewRead"`
	ReadCount          int  `json:"readCount"`
	TotalUniqueReaders int  `json:"totalUniqueReaders"`
}

// RecordRead counts one read of noticeID by userID. The first read creates
// the user's record and bumps the unique reader count; later reads only bump
// the user's own count.
func (t *Tracker) RecordRead(ctx context.Context, noticeID, userID string) (*Result, error) {
	oid, err := notice.ParseID(noticeID)
	if err != nil {
		return nil, err
	}
	if _, err := t.notices.FindByID(ctx, oid); err != nil {
		return nil, err
	}

	var (
		res   *notice.ReadResult
		isNew bool
	)
	for attempt := 0; attempt < maxRecordAttempts && res == nil; attempt++ {
		now := t.now()
		if res, err = t.notices.BumpRead(ctx, oid, userID, now); err != nil {
			return nil, err
		}
		if res != nil {
			break
		}
		res, err = t.notices.AddFirstRead(ctx, oid, notice.ReadRecord{
			UserID:      userID,
			ReadCount:   1,
			FirstReadAt: now,
			LastReadAt:  now,
		})
		if err != nil {
			return nil, err
		}
		isNew = res != nil
	}
	if res == nil {
		// Neither update matched: the notice was deleted under us.
		t.logger.Warn("read not recorded", zap.String("notice_id", noticeID), zap.String("user_id", userID))
		return nil, apperr.Internal("Failed to track read", errReadLost)
	}

	t.notifier.ReadChanged(realtime.ReadUpdate{
		NoticeID:           noticeID,
		UserID:             userID,
		ReadCount:          res.Record.ReadCount,
		TotalUniqueReaders: res.UniqueReaders,
		Timestamp:          res.Record.LastReadAt,
	})
	return &Result{IsNewRead: isNew, ReadCount: res.Record.ReadCount, TotalUniqueReaders: res.UniqueReaders}, nil
}

type Status struct {
	HasRead     bool       `json:"hasRead"`
	ReadCount   int        `json:"readCount"`
	FirstReadAt *time.Time `json:"firstReadAt"`
	LastReadAt  *time.Time `json:"lastReadAt"`
}

// MyReadStatus reports userID's own reads. Never having read is not an error.
func (t *Tracker) MyReadStatus(ctx context.Context, noticeID, userID string) (*Status, error) {
	oid, err := notice.ParseID(noticeID)
	if err != nil {
		return nil, err
	}
	n, err := t.notices.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	rec, ok := n.ReadOf(userID)
	if !ok {
		return &Status{}, nil
	}
	return &Status{
		HasRead:     true,
		ReadCount:   rec.ReadCount,
		FirstReadAt: &rec.FirstReadAt,
		LastReadAt:  &rec.LastReadAt,
	}, nil
}

// Reader is one resolved reader in a Report.
type Reader struct {
	StudentID      string         `json:"student_id"`
	StudentName    string         `json:"student_name"`
	RollNumber     string         `json:"roll_number"`
	Department     string         `json:"department"`
	Course         string         `json:"course"`
	Section        string         `json:"section"`
	Email          string         `json:"email"`
	ReadCount      int            `json:"read_count"`
	FirstRead      time.Time      `json:"first_read"`
	LastRead       time.Time      `json:"last_read"`
	TotalTimeSpent int64          `json:"total_time_spent"`
	UserType       directory.Kind `json:"user_type"`
}

type MostActive struct {
	Name      string `json:"name"`
	ReadCount int    `json:"read_count"`
}

type Report struct {
	NoticeTitle         string      `json:"notice_title"`
	TotalReads          int         `json:"total_reads"`
	UniqueReaders       int         `json:"unique_readers"`
	AverageReadsPerUser float64     `json:"average_reads_per_user"`
	MostActiveReader    *MostActive `json:"most_active_reader"`
	HighEngagementUsers int         `json:"high_engagement_users"`
	Reads               []Reader    `json:"reads"`
}

// Aggregate builds the engagement report for a notice. Totals cover every
// read record; readers missing from the directory are left out of the rows.
func (t *Tracker) Aggregate(ctx context.Context, noticeID string) (*Report, error) {
	oid, err := notice.ParseID(noticeID)
	if err != nil {
		return nil, err
	}
	n, err := t.notices.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	r := &Report{NoticeTitle: n.Title, UniqueReaders: len(n.Reads), Reads: []Reader{}}
	if len(n.Reads) == 0 {
		return r, nil
	}

	counts := make(stats.Float64Data, len(n.Reads))
	ids := make([]string, len(n.Reads))
	for i, rec := range n.Reads {
		counts[i] = float64(rec.ReadCount)
		ids[i] = rec.UserID
		if rec.ReadCount >= HighEngagementReads {
			r.HighEngagementUsers++
		}
	}
	total, _ := stats.Sum(counts)
	mean, _ := stats.Mean(counts)
	r.TotalReads = int(total)
	r.AverageReadsPerUser, _ = stats.Round(mean, 1)

	principals, err := t.resolver.ResolveMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, rec := range n.Reads {
		row, ok := readerRow(principals[rec.UserID], rec)
		if !ok {
			t.logger.Debug("reader not in directory", zap.String("notice_id", noticeID), zap.String("user_id", rec.UserID))
			continue
		}
		r.Reads = append(r.Reads, row)
	}

	sort.SliceStable(r.Reads, func(i, j int) bool {
		if r.Reads[i].ReadCount != r.Reads[j].ReadCount {
			return r.Reads[i].ReadCount > r.Reads[j].ReadCount
		}
		return r.Reads[i].LastRead.After(r.Reads[j].LastRead)
	})
	if len(r.Reads) > 0 {
		r.MostActiveReader = &MostActive{Name: r.Reads[0].StudentName, ReadCount: r.Reads[0].ReadCount}
	}
	return r, nil
}

func readerRow(p directory.Principal, rec notice.ReadRecord) (Reader, bool) {
	row := Reader{
		StudentID:      rec.UserID,
		ReadCount:      rec.ReadCount,
		FirstRead:      rec.FirstReadAt,
		LastRead:       rec.LastReadAt,
		TotalTimeSpent: rec.TotalTimeSpent,
	}
	switch v := p.(type) {
	case *directory.Student:
		row.StudentName = v.Name
		row.RollNumber = v.UnivRollNo
		row.Department = v.Branch
		row.Course = v.Course
		row.Section = v.Section
		row.Email = v.OfficialEmail
		row.UserType = directory.KindStudent
	case *directory.Employee:
		row.StudentName = v.Name
		row.RollNumber = "N/A"
		row.Department = v.Department
		row.Course = "Employee"
		row.Section = "N/A"
		row.Email = v.Identity().ContactEmail
		row.UserType = directory.KindEmployee
	default:
		return Reader{}, false
	}
	return row, true
}
