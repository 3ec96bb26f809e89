// Package mongodb provides a MongoDB-backed implementation of the
// storage.Storage interface. Students and reviews live in the "students"
// and "reviews" collections, keyed by ObjectID.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aanand-mishra/student-management-api/internal/storage"
	"github.com/aanand-mishra/student-management-api/internal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const (
	studentsCollection = "students"
	reviewsCollection  = "reviews"

	// defaultDatabase is used when neither the config nor the URI names one.
	defaultDatabase = "test"
)

// Mongo is the concrete implementation of storage.Storage.
// *mongo.Client pools connections and is safe for concurrent use.
type Mongo struct {
	client   *mongo.Client
	students *mongo.Collection
	reviews  *mongo.Collection
}

// studentDoc is the BSON shape of a student. Documents written by older
// deployments may carry "image": null and extra fields such as "__v";
// both decode cleanly into this struct.
type studentDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	FirstName   string             `bson:"firstName"`
	LastName    string             `bson:"lastName"`
	Age         int                `bson:"age"`
	Class       string             `bson:"class"`
	YearOfBirth int                `bson:"yearOfBirth"`
	Image       *string            `bson:"image,omitempty"`
}

type reviewDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Content   string             `bson:"content"`
	Author    string             `bson:"author"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// New creates a client for uri. The driver connects lazily, so an
// unreachable server is reported by Ping rather than here; New only fails
// on a malformed URI.
func New(ctx context.Context, uri, database string) (*Mongo, error) {
	name, err := DatabaseName(uri, database)
	if err != nil {
		return nil, fmt.Errorf("mongodb.New: %w", err)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb.New: connect: %w", err)
	}

	db := client.Database(name)
	return &Mongo{
		client:   client,
		students: db.Collection(studentsCollection),
		reviews:  db.Collection(reviewsCollection),
	}, nil
}

// DatabaseName picks the database to use: override if set, else the one
// named in the URI path, else "test".
func DatabaseName(uri, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", fmt.Errorf("parse uri: %w", err)
	}
	if cs.Database != "" {
		return cs.Database, nil
	}
	return defaultDatabase, nil
}

// Ping checks the primary is reachable.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// Close disconnects the client, waiting for in-use connections until ctx
// is done.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// CreateStudent inserts a document into the students collection and
// returns it with the generated ObjectID as its ID.
func (m *Mongo) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	doc := studentDoc{
		ID:          primitive.NewObjectID(),
		FirstName:   student.FirstName,
		LastName:    student.LastName,
		Age:         student.Age,
		Class:       student.Class,
		YearOfBirth: student.YearOfBirth,
		Image:       student.Image,
	}

	if _, err := m.students.InsertOne(ctx, doc); err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: insert: %w", err)
	}

	return doc.toStudent(), nil
}

// GetStudents returns every student document in natural order. An empty
// collection yields an empty, non-nil slice.
func (m *Mongo) GetStudents(ctx context.Context) ([]types.Student, error) {
	cur, err := m.students.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("GetStudents: find: %w", err)
	}

	var docs []studentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("GetStudents: decode: %w", err)
	}

	students := make([]types.Student, 0, len(docs))
	for _, doc := range docs {
		students = append(students, doc.toStudent())
	}
	return students, nil
}

// DeleteStudentByID removes the student with the given hex id and returns
// the removed document. FindOneAndDelete does the lookup and removal in one
// round trip, so a concurrent delete of the same id sees ErrNotFound.
func (m *Mongo) DeleteStudentByID(ctx context.Context, id string) (types.Student, error) {
	oid, err := storage.ParseID(id)
	if err != nil {
		return types.Student{}, fmt.Errorf("DeleteStudentByID: %w", err)
	}

	var doc studentDoc
	err = m.students.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.Student{}, fmt.Errorf("DeleteStudentByID: %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return types.Student{}, fmt.Errorf("DeleteStudentByID: find and delete: %w", err)
	}

	return doc.toStudent(), nil
}

// CreateReview inserts a review stamped with the current time.
func (m *Mongo) CreateReview(ctx context.Context, review types.Review) (types.Review, error) {
	// BSON dates have millisecond precision; truncate up front so the
	// returned record matches what a later read produces.
	doc := reviewDoc{
		ID:        primitive.NewObjectID(),
		Content:   review.Content,
		Author:    review.Author,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if _, err := m.reviews.InsertOne(ctx, doc); err != nil {
		return types.Review{}, fmt.Errorf("CreateReview: insert: %w", err)
	}

	return doc.toReview(), nil
}

// GetReviews returns every review document.
func (m *Mongo) GetReviews(ctx context.Context) ([]types.Review, error) {
	cur, err := m.reviews.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("GetReviews: find: %w", err)
	}

	var docs []reviewDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("GetReviews: decode: %w", err)
	}

	reviews := make([]types.Review, 0, len(docs))
	for _, doc := range docs {
		reviews = append(reviews, doc.toReview())
	}
	return reviews, nil
}

func (d studentDoc) toStudent() types.Student {
	return types.Student{
		ID:          d.ID.Hex(),
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		Age:         d.Age,
		Class:       d.Class,
		YearOfBirth: d.YearOfBirth,
		Image:       d.Image,
	}
}

func (d reviewDoc) toReview() types.Review {
	return types.Review{
		ID:        d.ID.Hex(),
		Content:   d.Content,
		Author:    d.Author,
		CreatedAt: d.CreatedAt.UTC(),
	}
}
