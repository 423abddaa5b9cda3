package handler

import (
	"net/http"

	"jansarthi/service"
)

// PublicHandler serves the unauthenticated locality listing that backs the
// citizen report form.
type PublicHandler struct {
	localityService *service.LocalityService
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(localityService *service.LocalityService) *PublicHandler {
	return &PublicHandler{localityService: localityService}
}

// ListLocalities handles GET /api/v1/localities.
func (h *PublicHandler) ListLocalities(w http.ResponseWriter, r *http.Request) {
	localities, err := h.localityService.ListPublicLocalities()
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"localities": localities,
		"count":      len(localities),
	})
}

// GetLocality handles GET /api/v1/localities/{id}.
func (h *PublicHandler) GetLocality(w http.ResponseWriter, r *http.Request) {
	localityID, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid locality id")
		return
	}
	locality, err := h.localityService.GetPublicLocality(localityID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, locality)
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
