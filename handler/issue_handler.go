package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"jansarthi/models"
	"jansarthi/service"
)

const maxMultipartMemory = 32 << 20 // 32 MB

// IssueHandler serves the citizen-facing issue endpoints.
type IssueHandler struct {
	issueService *service.IssueService
	mapService   *service.MapService
}

// NewIssueHandler creates a new issue handler
func NewIssueHandler(issueService *service.IssueService, mapService *service.MapService) *IssueHandler {
	return &IssueHandler{issueService: issueService, mapService: mapService}
}

// CreateIssue handles POST /api/v1/reports (multipart/form-data).
// Fields: issue_type, description, latitude, longitude, locality_id
// (optional) and up to N "photos" files.
func (h *IssueHandler) CreateIssue(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		respondWithError(w, http.StatusBadRequest, "Expected multipart/form-data")
		return
	}

	latitude, err := strconv.ParseFloat(r.FormValue("latitude"), 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "latitude must be a number")
		return
	}
	longitude, err := strconv.ParseFloat(r.FormValue("longitude"), 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "longitude must be a number")
		return
	}

	input := models.CreateIssueInput{
		IssueType:   models.IssueType(strings.TrimSpace(r.FormValue("issue_type"))),
		Description: r.FormValue("description"),
		Latitude:    latitude,
		Longitude:   longitude,
		UserID:      &userID,
	}
	if v := r.FormValue("locality_id"); v != "" {
		localityID, err := strconv.ParseInt(v, 10, 64)
		if err != nil || localityID <= 0 {
			respondWithError(w, http.StatusBadRequest, "locality_id must be a positive integer")
			return
		}
		input.LocalityID = &localityID
	}

	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["photos"] {
			upload, err := readUpload(fh)
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "Failed to read uploaded photo")
				return
			}
			input.Photos = append(input.Photos, *upload)
		}
	}

	issue, err := h.issueService.CreateIssue(r.Context(), input)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, issue)
}

// GetIssue handles GET /api/v1/reports/{id}.
func (h *IssueHandler) GetIssue(w http.ResponseWriter, r *http.Request) {
	issueID, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid issue id")
		return
	}
	issue, err := h.issueService.GetIssue(r.Context(), issueID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, issue)
}

// AddPhotos handles POST /api/v1/reports/{id}/photos (multipart/form-data
// with "photos" files).
func (h *IssueHandler) AddPhotos(w http.ResponseWriter, r *http.Request) {
	issueID, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid issue id")
		return
	}
	userID, err := getUserIDFromContext(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		respondWithError(w, http.StatusBadRequest, "Expected multipart/form-data")
		return
	}

	var photos []models.PhotoUpload
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["photos"] {
			upload, err := readUpload(fh)
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "Failed to read uploaded photo")
				return
			}
			photos = append(photos, *upload)
		}
	}

	issue, err := h.issueService.AddPhotos(r.Context(), issueID, userID, photos)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, issue)
}

// Map handles GET /api/v1/reports/map?lat=&lon=&radius_km=&type=&status=.
func (h *IssueHandler) Map(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "lat must be a number")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "lon must be a number")
		return
	}
	radiusKm := 5.0
	if v := q.Get("radius_km"); v != "" {
		radiusKm, err = strconv.ParseFloat(v, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "radius_km must be a number")
			return
		}
	}

	var issueType *models.IssueType
	if v := q.Get("type"); v != "" {
		t := models.IssueType(v)
		issueType = &t
	}
	var status *models.IssueStatus
	if v := q.Get("status"); v != "" {
		s := models.IssueStatus(v)
		status = &s
	}

	points, err := h.mapService.Nearby(lat, lon, radiusKm, issueType, status)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"issues": points,
		"count":  len(points),
	})
}

// UpdateStatus handles PATCH /api/v1/reports/{id}/status. The body is JSON
// for most transitions; the pwd_completed edge may instead send
// multipart/form-data with a completion_photo file.
func (h *IssueHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	issueID, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid issue id")
		return
	}
	userID, err := getUserIDFromContext(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	input, ok := h.decodeTransition(w, r)
	if !ok {
		return
	}

	issue, err := h.issueService.TransitionIssue(r.Context(), issueID, userID, *input)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, issue)
}

func (h *IssueHandler) decodeTransition(w http.ResponseWriter, r *http.Request) (*models.TransitionInput, bool) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed multipart body")
			return nil, false
		}
		input := &models.TransitionInput{
			Target:                models.IssueStatus(r.FormValue("status")),
			Notes:                 r.FormValue("notes"),
			CompletionDescription: r.FormValue("completion_description"),
		}
		if files := r.MultipartForm.File["completion_photo"]; len(files) > 0 {
			upload, err := readUpload(files[0])
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "Failed to read completion photo")
				return nil, false
			}
			input.CompletionPhoto = upload
		}
		return input, true
	}

	var body struct {
		Status                models.IssueStatus `json:"status"`
		Notes                 string             `json:"notes"`
		CompletionDescription string             `json:"completion_description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return nil, false
	}
	return &models.TransitionInput{
		Target:                body.Status,
		Notes:                 body.Notes,
		CompletionDescription: body.CompletionDescription,
	}, true
}
