//go:build integration

package approval

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

// mongoDB connects to SMARTNOTICE_TEST_MONGO_URI and returns a throwaway
// database.
func mongoDB(t *testing.T) *mongo.Database {
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
	return db
}

func TestMongo_DecideOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMongoRepository(mongoDB(t))
	a := &Approval{NoticeID: primitive.NewObjectID(), ApproverID: "asha", Status: StatusPending, CreatedAt: time.Now().UTC()}
	other := &Approval{NoticeID: a.NoticeID, ApproverID: "bala", Status: StatusPending, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.InsertMany(ctx, []*Approval{a, other}))

	v := Verdict{Status: StatusApproved, ApprovedByName: "Asha", ApprovedByRole: "hod", At: time.Now().UTC()}
	ok, err := repo.Decide(ctx, a.ID, "bala", v)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = repo.Decide(ctx, a.ID, "asha", v)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Decide(ctx, a.ID, "asha", Verdict{Status: StatusRejected, At: time.Now().UTC()})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)

	require.NoError(t, repo.DeleteMany(ctx, []primitive.ObjectID{a.ID, other.ID, primitive.NewObjectID()}))
	found, err := repo.FindMany(ctx, []primitive.ObjectID{a.ID, other.ID})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMongo_OTPStore(t *testing.T) {
	ctx := context.Background()
	store := NewMongoOTPStore(mongoDB(t))
	id := primitive.NewObjectID().Hex()

	require.NoError(t, store.Put(ctx, OTPRecord{ApprovalID: id, CodeHash: "h1", Email: "a@uni.test", ExpiresAt: time.Now().Add(time.Minute)}))
	n, err := store.Fail(ctx, id, "h1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = store.Fail(ctx, id, "other")
	require.NoError(t, err)
	assert.Zero(t, n)

	// A resend replaces the code and its attempt count.
	require.NoError(t, store.Put(ctx, OTPRecord{ApprovalID: id, CodeHash: "h2", Email: "a@uni.test", ExpiresAt: time.Now().Add(time.Minute)}))
	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "h2", rec.CodeHash)
	assert.Zero(t, rec.Attempts)

	ok, err := store.Delete(ctx, id, "h1")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = store.Delete(ctx, id, "h2")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Delete(ctx, id, "h2")
	require.NoError(t, err)
	assert.False(t, ok)

	rec, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec)
}
