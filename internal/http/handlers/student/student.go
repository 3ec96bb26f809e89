// Package student contains all HTTP handlers related to the Student resource.
//
// Handlers are built by factories that receive their dependencies once at
// startup and return the http.HandlerFunc the router calls per request:
//
//	router.HandleFunc("POST /api/students", student.New(store, uploads))
package student

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/student-management-api/internal/storage"
	"github.com/aanand-mishra/student-management-api/internal/types"
	"github.com/aanand-mishra/student-management-api/internal/upload"
	"github.com/aanand-mishra/student-management-api/internal/utils/response"
	"github.com/aanand-mishra/student-management-api/internal/validation"
)

// ImageField is the multipart form field carrying the optional image.
const ImageField = "image"

// maxMemory is how much of a multipart body is buffered in memory before
// the rest spills to temporary files.
const maxMemory = 32 << 20

// Response messages.
const (
	msgCreateFailed = "Failed to create student"
	msgFetchFailed  = "Failed to fetch students"
	msgDeleteFailed = "Failed to delete student"
	msgNotFound     = "Student not found"
	msgDeleted      = "Student deleted successfully"
)

// Uploader stores the optional image of a new student.
type Uploader interface {
	Save(original string, r io.Reader) (upload.File, error)
	Remove(f upload.File) error
}

// New handles POST /api/students.
//
// Accepts multipart/form-data (with an optional "image" file),
// application/x-www-form-urlencoded, or a JSON object:
//
//	{ "firstName": "Ada", "lastName": "Lovelace", "age": 12,
//	  "class": "6B", "yearOfBirth": 2012 }
//
// 201 with the stored record on success. Any failure (validation, upload,
// database) is a 400: { "message": "Failed to create student", "error": "..." }
func New(store storage.StudentStore, uploads Uploader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		// ── Step 1: Read the text fields from whichever encoding was sent ──
		form, err := readForm(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(msgCreateFailed, err))
			return
		}

		// ── Step 2: Validate and parse the numeric fields ─────────────
		student, err := validation.Student(form)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(msgCreateFailed, err))
			return
		}

		// ── Step 3: Store the optional image ──────────────────────────
		// Validation runs first so that a rejected request never leaves
		// a file behind.
		stored, hasImage, err := saveImage(r, uploads)
		if err != nil {
			slog.Error("error storing image", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(msgCreateFailed, err))
			return
		}
		if hasImage {
			student.Image = &stored.Ref
		}

		// ── Step 4: Persist; on failure roll the image back ───────────
		created, err := store.CreateStudent(r.Context(), student)
		if err != nil {
			slog.Error("error creating student", slog.String("error", err.Error()))
			if hasImage {
				if rerr := uploads.Remove(stored); rerr != nil {
					slog.Error("error removing orphaned image",
						slog.String("path", stored.Path),
						slog.String("error", rerr.Error()))
				}
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(msgCreateFailed, err))
			return
		}

		// ── Step 5: 201 Created with the stored record ────────────────
		slog.Info("student created", slog.String("id", created.ID))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// GetList handles GET /api/students.
// Returns a JSON array of every student; [] (not null) when there are none.
func GetList(store storage.StudentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting all students")

		students, err := store.GetStudents(r.Context())
		if err != nil {
			slog.Error("error getting students", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(msgFetchFailed, err))
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// Delete handles DELETE /api/students/{id}.
//
//	200 { "message": "Student deleted successfully", "student": {...} }
//	404 { "message": "Student not found" }
//	500 { "message": "Failed to delete student", "error": "..." }
//
// A malformed id is a 500, like any other failure that is not "not found".
func Delete(store storage.StudentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("deleting a student", slog.String("id", id))

		student, err := store.DeleteStudentByID(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			response.WriteJSON(w, http.StatusNotFound, response.Message(msgNotFound))
			return
		}
		if err != nil {
			slog.Error("error deleting student",
				slog.String("id", id),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(msgDeleteFailed, err))
			return
		}

		slog.Info("student deleted", slog.String("id", id))
		response.WriteJSON(w, http.StatusOK, response.Deleted{Message: msgDeleted, Student: student})
	}
}

// readForm extracts the text fields of a create request from whichever
// body encoding the client used.
func readForm(r *http.Request) (types.StudentForm, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		return formFromJSON(r.Body)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return types.StudentForm{}, fmt.Errorf("invalid multipart body: %w", err)
		}
	default:
		if err := r.ParseForm(); err != nil {
			return types.StudentForm{}, fmt.Errorf("invalid form body: %w", err)
		}
	}

	return types.StudentForm{
		FirstName:   r.PostFormValue("firstName"),
		LastName:    r.PostFormValue("lastName"),
		Age:         r.PostFormValue("age"),
		Class:       r.PostFormValue("class"),
		YearOfBirth: r.PostFormValue("yearOfBirth"),
	}, nil
}

// formFromJSON accepts numbers either as JSON numbers or numeric strings;
// validation decides whether they are integers.
func formFromJSON(body io.Reader) (types.StudentForm, error) {
	var raw map[string]any

	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return types.StudentForm{}, errors.New("request body is empty")
		}
		return types.StudentForm{}, fmt.Errorf("invalid JSON body: %w", err)
	}

	var form types.StudentForm
	fields := []struct {
		name string
		dst  *string
	}{
		{"firstName", &form.FirstName},
		{"lastName", &form.LastName},
		{"age", &form.Age},
		{"class", &form.Class},
		{"yearOfBirth", &form.YearOfBirth},
	}
	for _, f := range fields {
		switch v := raw[f.name].(type) {
		case nil:
		case string:
			*f.dst = v
		case json.Number:
			*f.dst = v.String()
		case bool:
			*f.dst = strconv.FormatBool(v)
		default:
			return types.StudentForm{}, &validation.Error{Field: f.name, Reason: "is invalid"}
		}
	}
	return form, nil
}

// saveImage stores the optional image file. hasImage is false when the
// request carries no file, which is not an error.
func saveImage(r *http.Request, uploads Uploader) (stored upload.File, hasImage bool, err error) {
	if r.MultipartForm == nil {
		return upload.File{}, false, nil
	}

	file, header, err := r.FormFile(ImageField)
	if errors.Is(err, http.ErrMissingFile) {
		return upload.File{}, false, nil
	}
	if err != nil {
		return upload.File{}, false, fmt.Errorf("%w: read form file: %w", upload.ErrWrite, err)
	}
	defer file.Close()

	stored, err = uploads.Save(header.Filename, file)
	if err != nil {
		return upload.File{}, false, err
	}
	return stored, true, nil
}
