// Package router wires handlers, static files and middleware into the
// single http.Handler the server runs.
//
// Route table:
//
//	GET    /                   → liveness text
//	POST   /api/students       → create a student (optional image upload)
//	GET    /api/students       → list all students
//	DELETE /api/students/{id}  → delete a student
//	GET    /reviews            → list all reviews
//	POST   /reviews            → submit a review
//	GET    /uploads/...        → previously uploaded files, read-only
package router

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aanand-mishra/student-management-api/internal/http/handlers/review"
	"github.com/aanand-mishra/student-management-api/internal/http/handlers/student"
	"github.com/aanand-mishra/student-management-api/internal/http/middleware"
	"github.com/aanand-mishra/student-management-api/internal/storage"
	"github.com/aanand-mishra/student-management-api/internal/upload"
	"github.com/rs/cors"
)

// Welcome is the body of GET /.
const Welcome = "Welcome to Student Management API"

// New builds the application handler.
func New(store storage.Storage, uploads *upload.Disk, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", home)

	mux.HandleFunc("POST /api/students", student.New(store, uploads))
	mux.HandleFunc("GET /api/students", student.GetList(store))
	mux.HandleFunc("DELETE /api/students/{id}", student.Delete(store))

	mux.HandleFunc("GET /reviews", review.GetList(store))
	mux.HandleFunc("POST /reviews", review.New(store))

	mux.Handle("GET "+upload.URLPrefix, http.StripPrefix(upload.URLPrefix, staticFiles(uploads.Dir)))

	// Any origin may call the API, matching a default cors() setup.
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPut,
			http.MethodPatch, http.MethodPost, http.MethodDelete,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	})

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Recoverer(log),
		c.Handler,
	)
}

func home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, Welcome)
}

// staticFiles serves files from dir but never lists a directory.
func staticFiles(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
