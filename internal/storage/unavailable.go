package storage

import (
	"context"
	"fmt"

	"github.com/aanand-mishra/student-management-api/internal/types"
)

// Unavailable stands in for a backend that could not be opened at startup.
// The server keeps running and every operation fails with Err.
type Unavailable struct {
	Err error
}

func (u Unavailable) err(op string) error {
	return fmt.Errorf("%s: storage unavailable: %w", op, u.Err)
}

// CreateStudent always fails; nothing is stored.
func (u Unavailable) CreateStudent(context.Context, types.Student) (types.Student, error) {
	return types.Student{}, u.err("CreateStudent")
}

// GetStudents always fails with the startup error.
func (u Unavailable) GetStudents(context.Context) ([]types.Student, error) {
	return nil, u.err("GetStudents")
}

// DeleteStudentByID always fails. The error does not wrap ErrNotFound,
// so callers answer 500 rather than 404.
func (u Unavailable) DeleteStudentByID(context.Context, string) (types.Student, error) {
	return types.Student{}, u.err("DeleteStudentByID")
}

// CreateReview always fails; nothing is stored.
func (u Unavailable) CreateReview(context.Context, types.Review) (types.Review, error) {
	return types.Review{}, u.err("CreateReview")
}

// GetReviews always fails with the startup error.
func (u Unavailable) GetReviews(context.Context) ([]types.Review, error) {
	return nil, u.err("GetReviews")
}

// Ping reports the startup error.
func (u Unavailable) Ping(context.Context) error {
	return u.err("Ping")
}

// Close is a no-op: there is no connection to release.
func (u Unavailable) Close(context.Context) error {
	return nil
}
