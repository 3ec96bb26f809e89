// Package review serves the review endpoints. Error responses carry only
// a message; the detail goes to the log.
package review

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/student-management-api/internal/storage"
	"github.com/aanand-mishra/student-management-api/internal/types"
	"github.com/aanand-mishra/student-management-api/internal/utils/response"
	"github.com/aanand-mishra/student-management-api/internal/validation"
)

const (
	msgFetchFailed  = "Error fetching reviews"
	msgSubmitFailed = "Error submitting review"
)

// GetList handles GET /reviews.
func GetList(store storage.ReviewStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting all reviews")

		reviews, err := store.GetReviews(r.Context())
		if err != nil {
			slog.Error("error getting reviews", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.Message(msgFetchFailed))
			return
		}

		response.WriteJSON(w, http.StatusOK, reviews)
	}
}

// New handles POST /reviews.
//
//	{ "content": "Great teachers", "author": "Jane" }
//
// author may be omitted and becomes "Anonymous". Every failure is a 400.
func New(store storage.ReviewStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("submitting a review")

		var in types.ReviewInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			slog.Warn("invalid review body", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusBadRequest, response.Message(msgSubmitFailed))
			return
		}

		review, err := validation.Review(in)
		if err != nil {
			slog.Warn("invalid review", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusBadRequest, response.Message(msgSubmitFailed))
			return
		}

		created, err := store.CreateReview(r.Context(), review)
		if err != nil {
			slog.Error("error creating review", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusBadRequest, response.Message(msgSubmitFailed))
			return
		}

		slog.Info("review created", slog.String("id", created.ID))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}
