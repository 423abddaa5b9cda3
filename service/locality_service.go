package service

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/apex/log"

	"jansarthi/models"
	"jansarthi/repository"
)

// LocalityService implements the admin locality directory and the public
// locality listing that backs the citizen report form.
type LocalityService struct {
	localityRepo *repository.LocalityRepository
	userRepo     *repository.UserRepository
	issueRepo    *repository.IssueRepository
}

// NewLocalityService creates a new locality service
func NewLocalityService(
	localityRepo *repository.LocalityRepository,
	userRepo *repository.UserRepository,
	issueRepo *repository.IssueRepository,
) *LocalityService {
	return &LocalityService{localityRepo: localityRepo, userRepo: userRepo, issueRepo: issueRepo}
}

// CreateLocality registers a new locality. (name, type) must be unique.
func (s *LocalityService) CreateLocality(req models.CreateLocalityRequest) (*models.LocalityResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Message: "locality name is required"}
	}
	if !req.Type.IsValid() {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown locality type %q", req.Type)}
	}

	existing, err := s.localityRepo.GetLocalityByNameAndType(name, req.Type)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &ConflictError{Message: fmt.Sprintf("%s %q already exists", req.Type, name)}
	}

	locality := &models.Locality{Name: name, Type: req.Type, IsActive: true}
	if err := s.localityRepo.CreateLocality(locality); err != nil {
		return nil, err
	}
	log.Infof("locality %d created (%s %s)", locality.ID, locality.Type, locality.Name)
	return s.buildLocalityResponse(locality)
}

// GetLocality returns the admin view of one locality.
func (s *LocalityService) GetLocality(localityID int64) (*models.LocalityResponse, error) {
	locality, err := s.localityRepo.GetLocalityByID(localityID)
	if err != nil {
		return nil, err
	}
	if locality == nil {
		return nil, fmt.Errorf("locality %d: %w", localityID, ErrLocalityNotFound)
	}
	return s.buildLocalityResponse(locality)
}

// ListLocalities returns one admin page with usage counts.
func (s *LocalityService) ListLocalities(page, pageSize int) (*models.PaginatedResponse, error) {
	localities, total, err := s.localityRepo.ListLocalities(page, pageSize)
	if err != nil {
		return nil, err
	}

	items := make([]models.LocalityResponse, 0, len(localities))
	for i := range localities {
		resp, err := s.buildLocalityResponse(&localities[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *resp)
	}
	return paginate(items, total, page, pageSize), nil
}

// UpdateLocality patches name and active flag. Renames are checked against
// the (name, type) uniqueness rule.
func (s *LocalityService) UpdateLocality(localityID int64, req models.UpdateLocalityRequest) (*models.LocalityResponse, error) {
	locality, err := s.localityRepo.GetLocalityByID(localityID)
	if err != nil {
		return nil, err
	}
	if locality == nil {
		return nil, fmt.Errorf("locality %d: %w", localityID, ErrLocalityNotFound)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, &ValidationError{Message: "locality name cannot be empty"}
		}
		if name != locality.Name {
			existing, err := s.localityRepo.GetLocalityByNameAndType(name, locality.Type)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != locality.ID {
				return nil, &ConflictError{Message: fmt.Sprintf("%s %q already exists", locality.Type, name)}
			}
			locality.Name = name
		}
	}
	if req.IsActive != nil {
		locality.IsActive = *req.IsActive
	}

	if err := s.localityRepo.UpdateLocality(locality); err != nil {
		return nil, err
	}
	return s.buildLocalityResponse(locality)
}

// DeleteLocality removes a locality, refusing while users or issues still
// reference it.
func (s *LocalityService) DeleteLocality(localityID int64) error {
	locality, err := s.localityRepo.GetLocalityByID(localityID)
	if err != nil {
		return err
	}
	if locality == nil {
		return fmt.Errorf("locality %d: %w", localityID, ErrLocalityNotFound)
	}

	userCount, err := s.userRepo.CountByLocality(localityID)
	if err != nil {
		return err
	}
	if userCount > 0 {
		return &ConflictError{Message: fmt.Sprintf("locality has %d users; reassign them first", userCount)}
	}
	issueCount, err := s.issueRepo.CountByLocality(localityID)
	if err != nil {
		return err
	}
	if issueCount > 0 {
		return &ConflictError{Message: fmt.Sprintf("locality has %d issues; it cannot be deleted", issueCount)}
	}

	if err := s.localityRepo.DeleteLocality(localityID); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("locality %d: %w", localityID, ErrLocalityNotFound)
		}
		return err
	}
	log.Infof("locality %d deleted", localityID)
	return nil
}

// ListPublicLocalities returns every active locality with its active
// representatives.
func (s *LocalityService) ListPublicLocalities() ([]models.PublicLocality, error) {
	localities, err := s.localityRepo.ListActiveLocalities()
	if err != nil {
		return nil, err
	}

	result := make([]models.PublicLocality, 0, len(localities))
	for i := range localities {
		entry, err := s.buildPublicLocality(&localities[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *entry)
	}
	return result, nil
}

// GetPublicLocality returns the citizen-facing view of one active locality.
func (s *LocalityService) GetPublicLocality(localityID int64) (*models.PublicLocality, error) {
	locality, err := s.localityRepo.GetLocalityByID(localityID)
	if err != nil {
		return nil, err
	}
	if locality == nil || !locality.IsActive {
		return nil, fmt.Errorf("locality %d: %w", localityID, ErrLocalityNotFound)
	}
	return s.buildPublicLocality(locality)
}

func (s *LocalityService) buildPublicLocality(locality *models.Locality) (*models.PublicLocality, error) {
	reps, err := s.userRepo.ListActiveRepresentatives(locality.ID)
	if err != nil {
		return nil, err
	}
	entry := &models.PublicLocality{
		ID:              locality.ID,
		Name:            locality.Name,
		Type:            locality.Type,
		Representatives: make([]models.PublicRepresentative, 0, len(reps)),
	}
	for _, rep := range reps {
		entry.Representatives = append(entry.Representatives, models.PublicRepresentative{
			ID:    rep.ID,
			Name:  rep.Name,
			Title: locality.Type.RepresentativeTitle(),
		})
	}
	return entry, nil
}

func (s *LocalityService) buildLocalityResponse(locality *models.Locality) (*models.LocalityResponse, error) {
	repCount, err := s.userRepo.CountActiveRepresentatives(locality.ID)
	if err != nil {
		return nil, err
	}
	issueCount, err := s.issueRepo.CountByLocality(locality.ID)
	if err != nil {
		return nil, err
	}
	return &models.LocalityResponse{
		ID:                  locality.ID,
		Name:                locality.Name,
		Type:                locality.Type,
		IsActive:            locality.IsActive,
		RepresentativeCount: repCount,
		IssueCount:          issueCount,
		CreatedAt:           locality.CreatedAt,
		UpdatedAt:           locality.UpdatedAt,
	}, nil
}

func paginate(items interface{}, total, page, pageSize int) *models.PaginatedResponse {
	totalPages := (total + pageSize - 1) / pageSize
	return &models.PaginatedResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
