package service

import (
	"math"

	"jansarthi/models"
	"jansarthi/repository"
)

const earthRadiusKm = 6371.0

// MapService answers the public proximity query. Equality filters go to
// SQL; the radius cut is a Haversine computed in-process over the
// candidates, which is fine at municipal scale.
type MapService struct {
	issueRepo *repository.IssueRepository
}

// NewMapService creates a new map service
func NewMapService(issueRepo *repository.IssueRepository) *MapService {
	return &MapService{issueRepo: issueRepo}
}

// Nearby returns all issues within radiusKm of the given point, optionally
// narrowed by type and status. The result is unordered.
func (s *MapService) Nearby(lat, lon, radiusKm float64, issueType *models.IssueType, status *models.IssueStatus) ([]models.IssueMapPoint, error) {
	// NaN slips past plain range comparisons
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return nil, &ValidationError{Message: "latitude must be between -90 and 90"}
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return nil, &ValidationError{Message: "longitude must be between -180 and 180"}
	}
	if math.IsNaN(radiusKm) || radiusKm <= 0 {
		return nil, &ValidationError{Message: "radius must be positive"}
	}
	if issueType != nil && !issueType.IsValid() {
		return nil, &ValidationError{Message: "unknown issue type filter"}
	}
	if status != nil && !status.IsValid() {
		return nil, &ValidationError{Message: "unknown status filter"}
	}

	issues, err := s.issueRepo.ListForMap(issueType, status)
	if err != nil {
		return nil, err
	}

	points := make([]models.IssueMapPoint, 0)
	for _, issue := range issues {
		distance := haversineKm(lat, lon, issue.Latitude, issue.Longitude)
		if distance <= radiusKm {
			points = append(points, models.IssueMapPoint{
				ID:         issue.ID,
				IssueType:  issue.IssueType,
				Status:     issue.Status,
				Latitude:   issue.Latitude,
				Longitude:  issue.Longitude,
				DistanceKm: distance,
				CreatedAt:  issue.CreatedAt,
			})
		}
	}
	return points, nil
}

// haversineKm calculates the great-circle distance between two points
// using the Haversine formula
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
