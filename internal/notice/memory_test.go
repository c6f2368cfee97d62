package notice

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seed(t *testing.T, repo Repository, mutate func(*Notice)) *Notice {
	t.Helper()
	n := &Notice{
		Title:          "Mid-sem schedule",
		Content:        "<p>See attached</p>",
		Status:         StatusDraft,
		ApprovalStatus: ApprovalNotRequired,
		Priority:       PriorityNormal,
		CreatedBy:      "author",
		CreatedAt:      time.Now().UTC(),
	}
	if mutate != nil {
		mutate(n)
	}
	require.NoError(t, repo.Create(context.Background(), n))
	return n
}

func TestMemory_ClaimWorkflowOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	n := seed(t, repo, nil)
	ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}

	ok, err := repo.ClaimWorkflow(ctx, n.ID, ids, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ClaimWorkflow(ctx, n.ID, []primitive.ObjectID{primitive.NewObjectID()}, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, ids, got.ApprovalWorkflow)
	assert.Equal(t, ApprovalPending, got.ApprovalStatus)
	assert.Equal(t, StatusPendingApproval, got.Status)
	assert.True(t, got.RequiresApproval)
}

func TestMemory_ReleaseWorkflow(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	n := seed(t, repo, nil)
	prev := StateOf(n)
	ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}

	ok, err := repo.ClaimWorkflow(ctx, n.ID, ids, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.ReleaseWorkflow(ctx, n.ID, ids[:1], prev)
	require.NoError(t, err)
	assert.False(t, ok, "a different workflow must not be released")

	ok, err = repo.ReleaseWorkflow(ctx, n.ID, ids, prev)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ApprovalWorkflow)
	assert.Equal(t, StatusDraft, got.Status)
	assert.Equal(t, ApprovalNotRequired, got.ApprovalStatus)
	assert.False(t, got.RequiresApproval)

	ok, err = repo.ClaimWorkflow(ctx, n.ID, []primitive.ObjectID{primitive.NewObjectID()}, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory_FinalizeFirstWins(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	n := seed(t, repo, func(n *Notice) { n.ApprovalStatus = ApprovalPending })

	at := time.Now().UTC()
	ok, err := repo.Finalize(ctx, n.ID, Disposition{
		ApprovalStatus: ApprovalApproved, Status: StatusPublished,
		ApprovedBy: "a", ApprovedByName: "A", At: at, Comments: "Approved by A (dean)",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Finalize(ctx, n.ID, Disposition{
		ApprovalStatus: ApprovalRejected, Status: StatusRejected, ApprovedBy: "b", At: at, RejectionReason: "late",
	})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, got.Status)
	assert.Equal(t, "a", got.ApprovedBy)
	assert.Empty(t, got.RejectionReason)
	require.NotNil(t, got.PublishAt)
	assert.True(t, got.PublishAt.Equal(at))
}

func TestMemory_AutoApproveAndPublishGuards(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	n := seed(t, repo, nil)
	d := Disposition{ApprovalStatus: ApprovalApproved, Status: StatusPublished, At: time.Now()}

	ok, err := repo.AutoApprove(ctx, n.ID, d)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.AutoApprove(ctx, n.ID, d)
	require.NoError(t, err)
	assert.False(t, ok, "already approved")

	ok, err = repo.Publish(ctx, n.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "already published")

	draft := seed(t, repo, func(n *Notice) { n.ApprovalStatus = ApprovalApproved })
	ok, err = repo.Publish(ctx, draft.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	pending := seed(t, repo, func(n *Notice) { n.ApprovalStatus = ApprovalPending })
	ok, err = repo.Publish(ctx, pending.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_ReadPrimitives(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	n := seed(t, repo, nil)
	t0 := time.Now().UTC()

	res, err := repo.BumpRead(ctx, n.ID, "u1", t0)
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = repo.AddFirstRead(ctx, n.ID, ReadRecord{UserID: "u1", ReadCount: 1, FirstReadAt: t0, LastReadAt: t0})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.UniqueReaders)

	res, err = repo.AddFirstRead(ctx, n.ID, ReadRecord{UserID: "u1", ReadCount: 1, FirstReadAt: t0, LastReadAt: t0})
	require.NoError(t, err)
	assert.Nil(t, res)

	t1 := t0.Add(time.Minute)
	res, err = repo.BumpRead(ctx, n.ID, "u1", t1)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Record.ReadCount)
	assert.True(t, res.Record.FirstReadAt.Equal(t0))
	assert.True(t, res.Record.LastReadAt.Equal(t1))
	assert.Equal(t, 1, res.UniqueReaders)
}

func TestMemory_ConcurrentFirstReads(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	n := seed(t, repo, nil)

	const readers = 50
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			now := time.Now()
			_, _ = repo.AddFirstRead(ctx, n.ID, ReadRecord{UserID: fmt.Sprintf("u%d", i), ReadCount: 1, FirstReadAt: now, LastReadAt: now})
		}(i)
	}
	wg.Wait()

	got, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, readers, got.ReadCount)
	assert.Len(t, got.Reads, readers)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	n := seed(t, repo, func(n *Notice) { n.Departments = []string{"CSE"} })

	got, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	got.Departments[0] = "ECE"
	got.Title = "changed"

	again, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"CSE"}, again.Departments)
	assert.Equal(t, "Mid-sem schedule", again.Title)
}

func TestMemory_ListAndTotals(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Now().UTC()
	old := seed(t, repo, func(n *Notice) {
		n.CreatedAt = base.Add(-time.Hour)
		n.ReadCount = 3
	})
	newer := seed(t, repo, func(n *Notice) {
		n.CreatedAt = base
		n.CreatedBy = "other"
		n.ReadCount = 4
	})

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, old.ID, all[1].ID)

	mine, err := repo.List(ctx, ListFilter{CreatedBy: "author"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, old.ID, mine[0].ID)

	totals, err := repo.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, Totals{Notices: 2, Reads: 7}, totals)

	require.NoError(t, repo.Delete(ctx, old.ID))
	assert.Error(t, repo.Delete(ctx, old.ID))
}
