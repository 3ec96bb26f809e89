// Package storage defines the contracts that any database backend must
// satisfy to work with this application.
//
// Handlers depend only on the narrow StudentStore / ReviewStore interfaces,
// so a backend can be swapped in main.go and tests can pass a fake.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/student-management-api/internal/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no record matches the given identifier.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidID is returned when an identifier is not 24 hex digits.
	ErrInvalidID = errors.New("invalid id")
)

// StudentStore persists student records.
type StudentStore interface {
	// CreateStudent inserts student under a freshly generated ID and
	// returns the stored record.
	CreateStudent(ctx context.Context, student types.Student) (types.Student, error)

	// GetStudents returns every student in storage-native order.
	// Returns an empty slice (not nil) if there are none.
	GetStudents(ctx context.Context) ([]types.Student, error)

	// DeleteStudentByID removes a student and returns what was removed.
	DeleteStudentByID(ctx context.Context, id string) (types.Student, error)
}

// ReviewStore persists reviews. There is no update or delete path.
type ReviewStore interface {
	// CreateReview inserts review, stamping a new ID and CreatedAt.
	CreateReview(ctx context.Context, review types.Review) (types.Review, error)

	// GetReviews returns every review. Empty slice when there are none.
	GetReviews(ctx context.Context) ([]types.Review, error)
}

// Storage is the full database contract implemented by each backend.
type Storage interface {
	StudentStore
	ReviewStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// NewID returns a fresh, globally unique record identifier.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ParseID checks that id is a well-formed record identifier.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}
