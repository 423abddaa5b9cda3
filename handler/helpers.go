package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/apex/log"
	"github.com/gorilla/mux"

	"jansarthi/middleware"
	"jansarthi/models"
	"jansarthi/service"
)

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// respondWithError sends an error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, models.ErrorResponse{Error: message})
}

// respondWithServiceError maps domain errors onto HTTP status codes.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	var conflictErr *service.ConflictError
	var transitionErr *service.InvalidTransitionError
	var uploadErr *service.UploadError

	switch {
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, service.ErrIssueNotFound),
		errors.Is(err, service.ErrLocalityNotFound),
		errors.Is(err, service.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &transitionErr):
		respondWithError(w, http.StatusConflict, transitionErr.Error())
	case errors.As(err, &conflictErr):
		respondWithError(w, http.StatusConflict, conflictErr.Message)
	case errors.As(err, &uploadErr):
		log.Errorf("photo storage failure: %v", err)
		respondWithError(w, http.StatusBadGateway, "Photo storage is unavailable. Please try again.")
	default:
		log.Errorf("internal error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// getUserIDFromContext extracts the authenticated user id set by the auth
// middleware.
func getUserIDFromContext(r *http.Request) (int64, error) {
	userIDVal := r.Context().Value(middleware.ContextUserID)
	if userIDVal == nil {
		return 0, fmt.Errorf("user ID not found in context - authentication required")
	}
	userID, ok := userIDVal.(int64)
	if !ok {
		return 0, fmt.Errorf("invalid user ID type in context")
	}
	return userID, nil
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (int64, error) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", idStr)
	}
	return id, nil
}

// pageParams parses ?page= and ?page_size= with sane bounds.
func pageParams(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = 20
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 && v <= 100 {
		pageSize = v
	}
	return page, pageSize
}

// readUpload drains one multipart file into a PhotoUpload.
func readUpload(fh *multipart.FileHeader) (*models.PhotoUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
	}
	contentType := fh.Header.Get("Content-Type")
	return &models.PhotoUpload{Data: data, Filename: fh.Filename, ContentType: contentType}, nil
}
