// Package validation turns raw request payloads into typed records.
//
// Presence is checked with go-playground/validator struct tags. Numeric
// fields are then parsed explicitly with strconv; only whole numbers are
// accepted. The first violation found is reported and the rest ignored.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/aanand-mishra/student-management-api/internal/types"
	"github.com/go-playground/validator/v10"
)

// Error describes one rejected field. Field is the JSON name of the field.
type Error struct {
	Field  string
	Reason string
}

// Error renders as "field <name> <reason>".
func (e *Error) Error() string {
	return fmt.Sprintf("field %s %s", e.Field, e.Reason)
}

// validate is safe for concurrent use and caches struct metadata, so a
// single instance is shared by all requests.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names ("firstName") rather than the Go
	// field names ("FirstName") so messages match what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Student validates form and builds a Student without an ID or image.
func Student(form types.StudentForm) (types.Student, error) {
	if err := check(form); err != nil {
		return types.Student{}, err
	}

	age, err := parseInt("age", form.Age)
	if err != nil {
		return types.Student{}, err
	}
	yearOfBirth, err := parseInt("yearOfBirth", form.YearOfBirth)
	if err != nil {
		return types.Student{}, err
	}

	return types.Student{
		FirstName:   form.FirstName,
		LastName:    form.LastName,
		Age:         age,
		Class:       form.Class,
		YearOfBirth: yearOfBirth,
	}, nil
}

// Review validates in and fills in the default author. CreatedAt is left
// for the store to set.
func Review(in types.ReviewInput) (types.Review, error) {
	if err := check(in); err != nil {
		return types.Review{}, err
	}

	author := in.Author
	if author == "" {
		author = types.DefaultAuthor
	}

	return types.Review{
		Content: in.Content,
		Author:  author,
	}, nil
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	first := verrs[0]
	switch first.ActualTag() {
	case "required":
		return &Error{Field: first.Field(), Reason: "is required"}
	default:
		return &Error{Field: first.Field(), Reason: "is invalid"}
	}
}

// parseInt accepts base-10 integers and integral decimals such as "12.0"
// or "1.2e1", which JSON clients may send for a whole number.
func parseInt(field, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f < math.MinInt32 || f > math.MaxInt32 {
		return 0, &Error{Field: field, Reason: "must be an integer"}
	}
	return int(f), nil
}
