//go:build integration

package notice

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoRepo connects to SMARTNOTICE_TEST_MONGO_URI and returns a repository
// over a throwaway database.
func mongoRepo(t *testing.T) *MongoRepository {
	t.Helper()
	uri := os.Getenv("SMARTNOTICE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SMARTNOTICE_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("smart_notice_it_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return NewMongoRepository(db)
}

func TestMongo_ClaimAndReleaseWorkflow(t *testing.T) {
	ctx := context.Background()
	repo := mongoRepo(t)
	n := seed(t, repo, nil)
	prev := StateOf(n)
	ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}

	// approval_workflow is absent on a fresh notice.
	ok, err := repo.ClaimWorkflow(ctx, n.ID, ids, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.ClaimWorkflow(ctx, n.ID, []primitive.ObjectID{primitive.NewObjectID()}, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ReleaseWorkflow(ctx, n.ID, ids[1:], prev)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = repo.ReleaseWorkflow(ctx, n.ID, ids, prev)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ApprovalWorkflow)
	assert.Equal(t, StatusDraft, got.Status)
	assert.Equal(t, ApprovalNotRequired, got.ApprovalStatus)

	// approval_workflow is now an empty array.
	ok, err = repo.ClaimWorkflow(ctx, n.ID, ids[:1], time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMongo_AutoApproveAndFinalize(t *testing.T) {
	ctx := context.Background()
	repo := mongoRepo(t)
	at := time.Now().UTC().Truncate(time.Millisecond)

	open := seed(t, repo, nil)
	ok, err := repo.AutoApprove(ctx, open.ID, Disposition{ApprovalStatus: ApprovalApproved, Status: StatusPublished, ApprovedBy: "a", At: at})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.AutoApprove(ctx, open.ID, Disposition{ApprovalStatus: ApprovalApproved, Status: StatusPublished, ApprovedBy: "b", At: at})
	require.NoError(t, err)
	assert.False(t, ok)

	claimed := seed(t, repo, func(n *Notice) {
		n.ApprovalStatus = ApprovalPending
		n.ApprovalWorkflow = []primitive.ObjectID{primitive.NewObjectID()}
	})
	ok, err = repo.AutoApprove(ctx, claimed.ID, Disposition{ApprovalStatus: ApprovalApproved, Status: StatusPublished, At: at})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Finalize(ctx, claimed.ID, Disposition{ApprovalStatus: ApprovalRejected, Status: StatusRejected, ApprovedBy: "a", At: at, RejectionReason: "dates"})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Finalize(ctx, claimed.ID, Disposition{ApprovalStatus: ApprovalApproved, Status: StatusPublished, ApprovedBy: "b", At: at})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByID(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
	assert.Equal(t, "a", got.ApprovedBy)
	assert.Equal(t, "dates", got.RejectionReason)
}

func TestMongo_ReadRecords(t *testing.T) {
	ctx := context.Background()
	repo := mongoRepo(t)
	n := seed(t, repo, nil)
	at := time.Now().UTC().Truncate(time.Millisecond)

	res, err := repo.BumpRead(ctx, n.ID, "u1", at)
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = repo.AddFirstRead(ctx, n.ID, ReadRecord{UserID: "u1", ReadCount: 1, FirstReadAt: at, LastReadAt: at})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.UniqueReaders)

	res, err = repo.AddFirstRead(ctx, n.ID, ReadRecord{UserID: "u1", ReadCount: 1, FirstReadAt: at, LastReadAt: at})
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = repo.AddFirstRead(ctx, n.ID, ReadRecord{UserID: "u2", ReadCount: 1, FirstReadAt: at, LastReadAt: at})
	require.NoError(t, err)

	later := at.Add(time.Minute)
	res, err = repo.BumpRead(ctx, n.ID, "u1", later)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Record.ReadCount)
	assert.True(t, res.Record.LastReadAt.Equal(later))
	assert.Equal(t, 2, res.UniqueReaders)

	got, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	u2, ok := got.ReadOf("u2")
	require.True(t, ok)
	assert.Equal(t, 1, u2.ReadCount)
}

func TestMongo_Publish(t *testing.T) {
	ctx := context.Background()
	repo := mongoRepo(t)
	n := seed(t, repo, func(n *Notice) {
		n.ApprovalStatus = ApprovalApproved
		n.Status = StatusDraft
	})

	ok, err := repo.Publish(ctx, n.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Publish(ctx, n.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)
}
