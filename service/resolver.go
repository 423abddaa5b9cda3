package service

import (
	"jansarthi/models"
	"jansarthi/repository"
)

// RepresentativeResolver answers "who serves this locality" for
// auto-assignment. It has no side effects.
type RepresentativeResolver struct {
	userRepo *repository.UserRepository
}

// NewRepresentativeResolver creates a new representative resolver
func NewRepresentativeResolver(userRepo *repository.UserRepository) *RepresentativeResolver {
	return &RepresentativeResolver{userRepo: userRepo}
}

// Resolve returns the active representative for a locality, or nil when the
// locality is unknown or unserved. A nil locality id is not an error; the
// issue simply stays unassigned. With several candidates the lowest user id
// wins, so repeated calls against unchanged data give the same answer.
func (r *RepresentativeResolver) Resolve(localityID *int64) (*models.User, error) {
	if localityID == nil {
		return nil, nil
	}
	return r.userRepo.FindActiveRepresentative(*localityID)
}
