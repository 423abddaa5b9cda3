package handler

import (
	"encoding/json"
	"net/http"

	"jansarthi/models"
	"jansarthi/service"
)

// AdminHandler serves the admin locality and staff-user CRUD plus the
// issue cascade delete.
type AdminHandler struct {
	localityService *service.LocalityService
	userService     *service.UserService
	issueService    *service.IssueService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	localityService *service.LocalityService,
	userService *service.UserService,
	issueService *service.IssueService,
) *AdminHandler {
	return &AdminHandler{
		localityService: localityService,
		userService:     userService,
		issueService:    issueService,
	}
}

// CreateLocality handles POST /api/v1/admin/localities.
func (h *AdminHandler) CreateLocality(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLocalityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	locality, err := h.localityService.CreateLocality(req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, locality)
}

// ListLocalities handles GET /api/v1/admin/localities.
func (h *AdminHandler) ListLocalities(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	result, err := h.localityService.ListLocalities(page, pageSize)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// GetLocality handles GET /api/v1/admin/localities/{id}.
func (h *AdminHandler) GetLocality(w http.ResponseWriter, r *http.Request) {
	localityID, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid locality id")
		return
	}
	locality, err := h.localityService.GetLocality(localityID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, locality)
}

// UpdateLocality handles PATCH /api/v1/admin/localities/{id}.
func (h *AdminHandler) UpdateLocality(w http.ResponseWriter, r *http.Request) {
	localityID, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid locality id")
		return
	}
	var req models.UpdateLocalityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	locality, err := h.localityService.UpdateLocality(localityID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, locality)
}

// DeleteLocality handles DELETE /api/v1/admin/localities/{id}.
func (h *AdminHandler) DeleteLocality(w http.ResponseWriter, r *http.Request) {
	localityID, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid locality id")
		return
	}
	if err := h.localityService.DeleteLocality(localityID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Locality deleted"})
}

// CreateUser handles POST /api/v1/admin/users.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	user, err := h.userService.CreateUser(req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, user)
}

// ListUsers handles GET /api/v1/admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	var role *models.UserRole
	if v := r.URL.Query().Get("role"); v != "" {
		rv := models.UserRole(v)
		role = &rv
	}
	result, err := h.userService.ListUsers(role, page, pageSize)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// GetUser handles GET /api/v1/admin/users/{id}.
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	user, err := h.userService.GetUser(userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// UpdateUser handles PATCH /api/v1/admin/users/{id}.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	actorID, err := getUserIDFromContext(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	user, err := h.userService.UpdateUser(userID, actorID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// DeactivateUser handles DELETE /api/v1/admin/users/{id} (soft delete).
func (h *AdminHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	actorID, err := getUserIDFromContext(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if err := h.userService.DeactivateUser(userID, actorID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "User deactivated"})
}

// DeleteIssue handles DELETE /api/v1/admin/reports/{id} (cascade).
func (h *AdminHandler) DeleteIssue(w http.ResponseWriter, r *http.Request) {
	issueID, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid issue id")
		return
	}
	if err := h.issueService.DeleteIssue(r.Context(), issueID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Issue deleted"})
}
