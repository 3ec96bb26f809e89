// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Success responses may be any JSON shape (a student, a list, ...).
// Error responses always look like:
//
//	{ "message": "Failed to create student", "error": "field age is required" }
//
// where "error" is left out when there is no detail to share.
package response

import (
	"encoding/json"
	"net/http"
)

// Response is the standard envelope returned for error cases.
type Response struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Deleted is the body of a successful delete: a confirmation plus the
// record that was removed.
type Deleted struct {
	Message string `json:"message"`
	Student any    `json:"student"`
}

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
// Header() → WriteHeader() → body, in that order: headers are locked once
// the status line is written.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// Message is an error response with no detail.
func Message(msg string) Response {
	return Response{Message: msg}
}

// GeneralError wraps err into the standard shape under msg.
//
//	response.WriteJSON(w, http.StatusInternalServerError,
//	    response.GeneralError("Failed to fetch students", err))
func GeneralError(msg string, err error) Response {
	return Response{
		Message: msg,
		Error:   err.Error(),
	}
}
