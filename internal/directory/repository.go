package directory

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository looks up principals by hex ObjectID. Unknown or malformed IDs
// are simply absent from the result.
type Repository interface {
	FindStudents(ctx context.Context, ids []string) ([]*Student, error)
	FindEmployees(ctx context.Context, ids []string) ([]*Employee, error)
	ListApprovers(ctx context.Context) ([]*Employee, error)
}

type MongoRepository struct {
	students  *mongo.Collection
	employees *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		students:  db.Collection("students"),
		employees: db.Collection("employees"),
	}
}

func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

func (r *MongoRepository) FindStudents(ctx context.Context, ids []string) ([]*Student, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return nil, nil
	}
	cursor, err := r.students.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}
	var students []*Student
	if err := cursor.All(ctx, &students); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}
	return students, nil
}

func (r *MongoRepository) FindEmployees(ctx context.Context, ids []string) ([]*Employee, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return nil, nil
	}
	cursor, err := r.employees.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find employees: %w", err)
	}
	var employees []*Employee
	if err := cursor.All(ctx, &employees); err != nil {
		return nil, fmt.Errorf("decode employees: %w", err)
	}
	return employees, nil
}

// ListApprovers returns every employee whose role is not "student", by name.
func (r *MongoRepository) ListApprovers(ctx context.Context) ([]*Employee, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.employees.Find(ctx, bson.M{"role": bson.M{"$ne": "student"}}, opts)
	if err != nil {
		return nil, fmt.Errorf("list approvers: %w", err)
	}
	var employees []*Employee
	if err := cursor.All(ctx, &employees); err != nil {
		return nil, fmt.Errorf("decode approvers: %w", err)
	}
	return employees, nil
}
