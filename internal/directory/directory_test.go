package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestResolver_StudentsFirst(t *testing.T) {
	repo := NewMemoryRepository()
	shared := primitive.NewObjectID()
	repo.AddStudent(Student{ID: shared, Name: "Asha", OfficialEmail: "asha@stu.edu"})
	repo.AddEmployee(Employee{ID: shared, Name: "Shadowed", Role: "academic"})
	empID := repo.AddEmployee(Employee{Name: "Dr. Rao", Email: "rao@gmail.com", OfficialEmail: "rao@uni.edu", Role: "academic"})

	r := NewResolver(repo)
	got, err := r.ResolveMany(context.Background(), []string{shared.Hex(), empID, "ghost"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, KindStudent, got[shared.Hex()].Kind())
	assert.Equal(t, "Asha", got[shared.Hex()].Identity().DisplayName)

	assert.Equal(t, KindEmployee, got[empID].Kind())
	assert.Equal(t, "rao@uni.edu", got[empID].Identity().ContactEmail)

	assert.False(t, Resolved(got["ghost"]))
	assert.Equal(t, Identity{ID: "ghost"}, got["ghost"].Identity())
}

func TestResolver_Resolve(t *testing.T) {
	repo := NewMemoryRepository()
	id := repo.AddEmployee(Employee{Name: "Dean", Role: "admin"})

	p, err := NewResolver(repo).Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, Resolved(p))

	p, err = NewResolver(repo).Resolve(context.Background(), primitive.NewObjectID().Hex())
	require.NoError(t, err)
	assert.False(t, Resolved(p))
}

func TestEmployeeIdentity_FallsBackToEmail(t *testing.T) {
	e := &Employee{ID: primitive.NewObjectID(), Name: "Clerk", Email: "clerk@uni.edu"}
	assert.Equal(t, "clerk@uni.edu", e.Identity().ContactEmail)
}

func TestApprovers_ExcludeStudents(t *testing.T) {
	repo := NewMemoryRepository()
	repo.AddEmployee(Employee{Name: "Zed", Role: "academic"})
	repo.AddEmployee(Employee{Name: "Amy", Role: "admin"})
	repo.AddEmployee(Employee{Name: "Bob", Role: "student"})

	approvers, err := NewResolver(repo).Approvers(context.Background())
	require.NoError(t, err)
	require.Len(t, approvers, 2)
	assert.Equal(t, "Amy", approvers[0].Name)
	assert.Equal(t, "Zed", approvers[1].Name)
}

type failingRepo struct{ Repository }

func (failingRepo) FindStudents(context.Context, []string) ([]*Student, error) {
	return nil, errors.New("db down")
}

func TestResolver_PropagatesStoreErrors(t *testing.T) {
	_, err := NewResolver(failingRepo{}).ResolveMany(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func TestObjectIDs_SkipsMalformed(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.Equal(t, []primitive.ObjectID{oid}, objectIDs([]string{"nope", oid.Hex(), ""}))
}
