// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// Records are keyed by the same 24-hex-digit identifiers the MongoDB
// backend uses, so clients cannot tell the two backends apart.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aanand-mishra/student-management-api/internal/storage"
	"github.com/aanand-mishra/student-management-api/internal/types"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db *sql.DB
}

const schema = `
	CREATE TABLE IF NOT EXISTS students (
		id            TEXT    PRIMARY KEY,
		first_name    TEXT    NOT NULL,
		last_name     TEXT    NOT NULL,
		age           INTEGER NOT NULL,
		class         TEXT    NOT NULL,
		year_of_birth INTEGER NOT NULL,
		image         TEXT
	);
	CREATE TABLE IF NOT EXISTS reviews (
		id         TEXT    PRIMARY KEY,
		content    TEXT    NOT NULL,
		author     TEXT    NOT NULL,
		created_at INTEGER NOT NULL
	);
`

// New opens the SQLite database at path, creates the tables if they do
// not already exist, and returns a ready-to-use *SQLite.
func New(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.New: create dir: %w", err)
		}
	}

	// _busy_timeout lets concurrent writers wait for the file lock
	// instead of failing immediately with SQLITE_BUSY.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: create tables: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Ping verifies the database file is still reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}

// Close releases the underlying *sql.DB. The context is unused; closing a
// local file does not block.
func (s *SQLite) Close(context.Context) error {
	return s.Db.Close()
}

// CreateStudent inserts a new row into the students table.
// Placeholders (?) keep user input out of the SQL text.
func (s *SQLite) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	student.ID = storage.NewID()

	_, err := s.Db.ExecContext(ctx,
		`INSERT INTO students (id, first_name, last_name, age, class, year_of_birth, image)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		student.ID, student.FirstName, student.LastName, student.Age,
		student.Class, student.YearOfBirth, nullString(student.Image),
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: exec: %w", err)
	}

	return student, nil
}

// GetStudents returns all student rows. No ORDER BY: callers get
// whatever order SQLite produces.
func (s *SQLite) GetStudents(ctx context.Context) ([]types.Student, error) {
	rows, err := s.Db.QueryContext(ctx,
		"SELECT id, first_name, last_name, age, class, year_of_birth, image FROM students",
	)
	if err != nil {
		return nil, fmt.Errorf("GetStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("GetStudents: scan row: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetStudents: rows iteration: %w", err)
	}

	return students, nil
}

// DeleteStudentByID removes a student row by primary key and returns it.
// DELETE ... RETURNING makes the lookup and removal a single statement.
func (s *SQLite) DeleteStudentByID(ctx context.Context, id string) (types.Student, error) {
	oid, err := storage.ParseID(id)
	if err != nil {
		return types.Student{}, fmt.Errorf("DeleteStudentByID: %w", err)
	}

	row := s.Db.QueryRowContext(ctx,
		`DELETE FROM students WHERE id = ?
		 RETURNING id, first_name, last_name, age, class, year_of_birth, image`,
		oid.Hex(),
	)

	student, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Student{}, fmt.Errorf("DeleteStudentByID: %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return types.Student{}, fmt.Errorf("DeleteStudentByID: scan: %w", err)
	}

	return student, nil
}

// CreateReview inserts a review; CreatedAt is stored as Unix milliseconds.
func (s *SQLite) CreateReview(ctx context.Context, review types.Review) (types.Review, error) {
	review.ID = storage.NewID()
	review.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := s.Db.ExecContext(ctx,
		"INSERT INTO reviews (id, content, author, created_at) VALUES (?, ?, ?, ?)",
		review.ID, review.Content, review.Author, review.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return types.Review{}, fmt.Errorf("CreateReview: exec: %w", err)
	}

	return review, nil
}

// GetReviews returns all review rows, converting created_at back from
// Unix milliseconds to a UTC time.Time.
func (s *SQLite) GetReviews(ctx context.Context) ([]types.Review, error) {
	rows, err := s.Db.QueryContext(ctx,
		"SELECT id, content, author, created_at FROM reviews",
	)
	if err != nil {
		return nil, fmt.Errorf("GetReviews: query: %w", err)
	}
	defer rows.Close()

	reviews := make([]types.Review, 0)
	for rows.Next() {
		var (
			review    types.Review
			createdAt int64
		)
		if err := rows.Scan(&review.ID, &review.Content, &review.Author, &createdAt); err != nil {
			return nil, fmt.Errorf("GetReviews: scan row: %w", err)
		}
		review.CreatedAt = time.UnixMilli(createdAt).UTC()
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetReviews: rows iteration: %w", err)
	}

	return reviews, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(sc scanner) (types.Student, error) {
	var (
		student types.Student
		image   sql.NullString
	)
	err := sc.Scan(
		&student.ID,
		&student.FirstName,
		&student.LastName,
		&student.Age,
		&student.Class,
		&student.YearOfBirth,
		&image,
	)
	if err != nil {
		return types.Student{}, err
	}
	if image.Valid {
		student.Image = &image.String
	}
	return student, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
