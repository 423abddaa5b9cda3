package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"jansarthi/models"
	"jansarthi/repository"
	"jansarthi/storage"
)

// PhotoConfig carries the upload limits enforced before any write.
type PhotoConfig struct {
	MaxPerIssue  int
	MaxFileSize  int64
	AllowedTypes []string
	URLExpiry    time.Duration
}

// PhotoManager owns the all-or-nothing photo attachment path: validate the
// whole batch up front, upload blobs, then link rows in one transaction.
// Blob uploads cannot join the DB transaction, so failures after upload are
// compensated by deleting the blobs already written.
type PhotoManager struct {
	issueRepo *repository.IssueRepository
	store     storage.ObjectStore
	config    PhotoConfig
}

// NewPhotoManager creates a new photo manager
func NewPhotoManager(issueRepo *repository.IssueRepository, store storage.ObjectStore, config PhotoConfig) *PhotoManager {
	return &PhotoManager{issueRepo: issueRepo, store: store, config: config}
}

// ValidateBatch checks count, content type and size for every photo. It
// runs before any upload or insert so an invalid batch leaves no trace.
func (m *PhotoManager) ValidateBatch(photos []models.PhotoUpload) error {
	if len(photos) > m.config.MaxPerIssue {
		return &ValidationError{Message: fmt.Sprintf("at most %d photos allowed per issue, got %d", m.config.MaxPerIssue, len(photos))}
	}
	for i, p := range photos {
		if !m.typeAllowed(p.ContentType) {
			return &ValidationError{Message: fmt.Sprintf("photo %d: content type %q is not allowed", i+1, p.ContentType)}
		}
		if int64(len(p.Data)) > m.config.MaxFileSize {
			return &ValidationError{Message: fmt.Sprintf("photo %d: size %d exceeds limit of %d bytes", i+1, len(p.Data), m.config.MaxFileSize)}
		}
		if len(p.Data) == 0 {
			return &ValidationError{Message: fmt.Sprintf("photo %d: empty file", i+1)}
		}
	}
	return nil
}

func (m *PhotoManager) typeAllowed(contentType string) bool {
	for _, t := range m.config.AllowedTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// Upload writes every photo to the object store under a generated key. On
// partial failure it removes the blobs already uploaded and returns a
// single UploadError; no blob survives a failed batch.
func (m *PhotoManager) Upload(ctx context.Context, photos []models.PhotoUpload) ([]models.IssuePhoto, error) {
	uploaded := make([]models.IssuePhoto, 0, len(photos))
	for _, p := range photos {
		key := objectKeyFor(p.Filename)
		if err := m.store.Upload(ctx, key, p.Data, p.ContentType); err != nil {
			m.Discard(ctx, uploaded)
			return nil, &UploadError{Op: "upload", Err: err}
		}
		uploaded = append(uploaded, models.IssuePhoto{
			ObjectKey:   key,
			Filename:    p.Filename,
			FileSize:    int64(len(p.Data)),
			ContentType: p.ContentType,
		})
	}
	return uploaded, nil
}

// Discard removes uploaded blobs, best effort. Called when the database
// side of an attachment fails after the blobs landed.
func (m *PhotoManager) Discard(ctx context.Context, photos []models.IssuePhoto) {
	for _, p := range photos {
		if err := m.store.Remove(ctx, p.ObjectKey); err != nil {
			log.Warnf("orphaned blob %s could not be removed: %v", p.ObjectKey, err)
		}
	}
}

// Attach links a photo batch to an existing issue: validate, upload, then
// insert all rows in one transaction. A failed insert rolls the rows back
// and discards the blobs. The per-issue cap counts the photos already
// attached.
func (m *PhotoManager) Attach(ctx context.Context, issueID int64, photos []models.PhotoUpload) ([]models.IssuePhoto, error) {
	if err := m.ValidateBatch(photos); err != nil {
		return nil, err
	}
	existing, err := m.issueRepo.GetPhotosByIssueID(issueID)
	if err != nil {
		return nil, err
	}
	if len(existing)+len(photos) > m.config.MaxPerIssue {
		return nil, &ValidationError{Message: fmt.Sprintf("issue already has %d of at most %d photos", len(existing), m.config.MaxPerIssue)}
	}
	uploaded, err := m.Upload(ctx, photos)
	if err != nil {
		return nil, err
	}
	if err := m.issueRepo.AttachPhotos(issueID, uploaded); err != nil {
		m.Discard(ctx, uploaded)
		return nil, fmt.Errorf("failed to link photos to issue %d: %w", issueID, err)
	}
	return uploaded, nil
}

// PresignPhotos converts stored photos into client-facing responses with
// time-limited URLs. Storage keys never leave the server.
func (m *PhotoManager) PresignPhotos(ctx context.Context, photos []models.IssuePhoto) ([]models.IssuePhotoResponse, error) {
	responses := make([]models.IssuePhotoResponse, 0, len(photos))
	for _, p := range photos {
		u, err := m.store.PresignedURL(ctx, p.ObjectKey, m.config.URLExpiry)
		if err != nil {
			return nil, &UploadError{Op: "presign", Err: err}
		}
		responses = append(responses, models.IssuePhotoResponse{
			ID:          p.ID,
			URL:         u,
			Filename:    p.Filename,
			FileSize:    p.FileSize,
			ContentType: p.ContentType,
			CreatedAt:   p.CreatedAt,
		})
	}
	return responses, nil
}

// PresignKey returns a time-limited URL for a single stored object.
func (m *PhotoManager) PresignKey(ctx context.Context, key string) (string, error) {
	u, err := m.store.PresignedURL(ctx, key, m.config.URLExpiry)
	if err != nil {
		return "", &UploadError{Op: "presign", Err: err}
	}
	return u, nil
}

func objectKeyFor(filename string) string {
	return "issues/" + uuid.New().String() + filepath.Ext(filename)
}
