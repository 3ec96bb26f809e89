// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, storage, and validation can all import types without depending
// on each other.
package types

import "time"

// DefaultAuthor is stored on a review that was submitted without an author.
const DefaultAuthor = "Anonymous"

// Student represents a student record in our system.
//
// ID is the store-assigned identifier (24 hex digits, an ObjectID). It is
// set by the storage backend on creation and never changes afterwards.
//
// Image is a pointer so that "no image" is distinguishable from an empty
// string; it is left out of the JSON entirely when nil.
type Student struct {
	ID          string  `json:"_id"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Age         int     `json:"age"`
	Class       string  `json:"class"`
	YearOfBirth int     `json:"yearOfBirth"`
	Image       *string `json:"image,omitempty"`
}

// StudentForm is the raw, untyped create-student payload as it arrives in
// a multipart/urlencoded form or a JSON body. Numeric fields stay strings
// until validation parses them explicitly.
type StudentForm struct {
	FirstName   string `json:"firstName"   validate:"required"`
	LastName    string `json:"lastName"    validate:"required"`
	Age         string `json:"age"         validate:"required"`
	Class       string `json:"class"       validate:"required"`
	YearOfBirth string `json:"yearOfBirth" validate:"required"`
}

// Review is a free-text review left by a (possibly anonymous) visitor.
type Review struct {
	ID        string    `json:"_id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReviewInput is the JSON body of POST /reviews.
type ReviewInput struct {
	Content string `json:"content" validate:"required"`
	Author  string `json:"author"`
}
