package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/apex/log"

	"jansarthi/models"
	"jansarthi/repository"
)

// IssueService implements the issue lifecycle: creation with
// auto-assignment, the forward-only status machine, detail reads and the
// admin cascade delete.
type IssueService struct {
	issueRepo    *repository.IssueRepository
	localityRepo *repository.LocalityRepository
	userRepo     *repository.UserRepository
	resolver     *RepresentativeResolver
	photos       *PhotoManager
}

// NewIssueService creates a new issue service
func NewIssueService(
	issueRepo *repository.IssueRepository,
	localityRepo *repository.LocalityRepository,
	userRepo *repository.UserRepository,
	resolver *RepresentativeResolver,
	photos *PhotoManager,
) *IssueService {
	return &IssueService{
		issueRepo:    issueRepo,
		localityRepo: localityRepo,
		userRepo:     userRepo,
		resolver:     resolver,
		photos:       photos,
	}
}

// nextStatus returns the unique legal successor of a status. The lifecycle
// is a straight line; anything else is rejected.
func nextStatus(current models.IssueStatus) (models.IssueStatus, bool) {
	switch current {
	case models.StatusReported:
		return models.StatusAssigned, true
	case models.StatusAssigned:
		return models.StatusRepresentativeAcknowledged, true
	case models.StatusRepresentativeAcknowledged:
		return models.StatusPWDWorking, true
	case models.StatusPWDWorking:
		return models.StatusPWDCompleted, true
	case models.StatusPWDCompleted:
		return models.StatusRepresentativeReviewed, true
	}
	// representative_reviewed is terminal
	return "", false
}

// CreateIssue validates the report, resolves the representative for its
// locality and persists the issue together with its photos. Photo blobs are
// uploaded before the database transaction; if the transaction fails the
// blobs are removed again, so the caller either sees the complete issue or
// nothing.
func (s *IssueService) CreateIssue(ctx context.Context, input models.CreateIssueInput) (*models.IssueResponse, error) {
	if err := s.validateCreateInput(input); err != nil {
		return nil, err
	}
	if err := s.photos.ValidateBatch(input.Photos); err != nil {
		return nil, err
	}

	var locality *models.Locality
	if input.LocalityID != nil {
		var err error
		locality, err = s.localityRepo.GetLocalityByID(*input.LocalityID)
		if err != nil {
			return nil, err
		}
		if locality == nil {
			return nil, fmt.Errorf("locality %d: %w", *input.LocalityID, ErrLocalityNotFound)
		}
	}

	representative, err := s.resolver.Resolve(input.LocalityID)
	if err != nil {
		return nil, err
	}

	issue := &models.Issue{
		IssueType:   input.IssueType,
		Description: strings.TrimSpace(input.Description),
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Status:      models.StatusReported,
	}
	if input.UserID != nil {
		issue.UserID = sql.NullInt64{Int64: *input.UserID, Valid: true}
	}
	if locality != nil {
		issue.LocalityID = sql.NullInt64{Int64: locality.ID, Valid: true}
		title := locality.Type.RepresentativeTitle()
		if representative != nil {
			issue.Status = models.StatusAssigned
			issue.AssignedParshadID = sql.NullInt64{Int64: representative.ID, Valid: true}
			issue.AssignmentNotes = sql.NullString{
				String: fmt.Sprintf("Auto-assigned to %s %s of %s %d", title, representative.Name, locality.Type, locality.ID),
				Valid:  true,
			}
		} else {
			issue.AssignmentNotes = sql.NullString{
				String: fmt.Sprintf("No %s assigned to %s %d. Issue is unassigned.", title, locality.Type, locality.ID),
				Valid:  true,
			}
		}
	}

	uploaded, err := s.photos.Upload(ctx, input.Photos)
	if err != nil {
		return nil, err
	}
	if err := s.issueRepo.CreateIssueWithPhotos(issue, uploaded); err != nil {
		s.photos.Discard(ctx, uploaded)
		return nil, err
	}

	log.Infof("issue %d created with status %s (%d photos)", issue.ID, issue.Status, len(uploaded))
	return s.buildIssueResponse(ctx, issue, uploaded, locality)
}

func (s *IssueService) validateCreateInput(input models.CreateIssueInput) error {
	if !input.IssueType.IsValid() {
		return &ValidationError{Message: fmt.Sprintf("unknown issue type %q", input.IssueType)}
	}
	desc := strings.TrimSpace(input.Description)
	if len(desc) < 10 || len(desc) > 2000 {
		return &ValidationError{Message: "description must be between 10 and 2000 characters"}
	}
	// NaN slips past plain range comparisons
	if math.IsNaN(input.Latitude) || input.Latitude < -90 || input.Latitude > 90 {
		return &ValidationError{Message: "latitude must be between -90 and 90"}
	}
	if math.IsNaN(input.Longitude) || input.Longitude < -180 || input.Longitude > 180 {
		return &ValidationError{Message: "longitude must be between -180 and 180"}
	}
	return nil
}

// TransitionIssue moves an issue one step forward in its lifecycle. The
// target must be the unique successor of the stored status and the acting
// user must hold the role the edge requires. The write is a conditional
// update; when a concurrent transition got there first the update affects
// zero rows and the request is rejected against the fresh status.
func (s *IssueService) TransitionIssue(ctx context.Context, issueID, actorID int64, input models.TransitionInput) (*models.IssueResponse, error) {
	issue, err := s.issueRepo.GetIssueByID(issueID)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, fmt.Errorf("issue %d: %w", issueID, ErrIssueNotFound)
	}

	actor, err := s.userRepo.GetUserByID(actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil || !actor.IsActive {
		return nil, fmt.Errorf("user %d: %w", actorID, ErrUserNotFound)
	}

	if !input.Target.IsValid() {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown status %q", input.Target)}
	}
	successor, ok := nextStatus(issue.Status)
	if !ok || successor != input.Target {
		return nil, &InvalidTransitionError{Current: issue.Status, Target: input.Target}
	}
	if err := s.authorizeTransition(issue, actor, input.Target); err != nil {
		return nil, err
	}

	switch input.Target {
	case models.StatusPWDCompleted:
		if err := s.completeIssue(ctx, issue, actor, input); err != nil {
			return nil, err
		}
	case models.StatusAssigned:
		if err := s.assignIssue(issue); err != nil {
			return nil, err
		}
	default:
		notes := sql.NullString{String: strings.TrimSpace(input.Notes), Valid: strings.TrimSpace(input.Notes) != ""}
		won, err := s.issueRepo.TransitionStatus(issue.ID, issue.Status, input.Target, notes)
		if err != nil {
			return nil, err
		}
		if !won {
			return nil, s.lostRace(issue.ID, input.Target)
		}
	}

	log.Infof("issue %d transitioned %s -> %s by user %d", issue.ID, issue.Status, input.Target, actorID)
	return s.GetIssue(ctx, issue.ID)
}

// authorizeTransition enforces which actor may take which edge:
// acknowledgement and review belong to the assigned representative, the
// work edges to any active PWD worker, manual assignment to admins.
func (s *IssueService) authorizeTransition(issue *models.Issue, actor *models.User, target models.IssueStatus) error {
	switch target {
	case models.StatusAssigned:
		if actor.Role != models.RoleAdmin {
			return &InvalidTransitionError{Current: issue.Status, Target: target, Reason: "only admins may assign issues"}
		}
	case models.StatusRepresentativeAcknowledged, models.StatusRepresentativeReviewed:
		if actor.Role != models.RoleRepresentative {
			return &InvalidTransitionError{Current: issue.Status, Target: target, Reason: "only the assigned representative may do this"}
		}
		if !issue.AssignedParshadID.Valid || issue.AssignedParshadID.Int64 != actor.ID {
			return &InvalidTransitionError{Current: issue.Status, Target: target, Reason: "issue is not assigned to this representative"}
		}
	case models.StatusPWDWorking, models.StatusPWDCompleted:
		if actor.Role != models.RolePWDWorker {
			return &InvalidTransitionError{Current: issue.Status, Target: target, Reason: "only PWD workers may do this"}
		}
	}
	return nil
}

// assignIssue handles the admin reported → assigned edge for localities
// that gained a representative after the issue was filed. It re-runs the
// resolver and binds the representative in the same conditional update as
// the status, so an assigned issue always has an assignee.
func (s *IssueService) assignIssue(issue *models.Issue) error {
	if !issue.LocalityID.Valid {
		return &InvalidTransitionError{
			Current: issue.Status,
			Target:  models.StatusAssigned,
			Reason:  "issue has no locality to resolve a representative from",
		}
	}
	locality, err := s.localityRepo.GetLocalityByID(issue.LocalityID.Int64)
	if err != nil {
		return err
	}
	if locality == nil {
		return fmt.Errorf("locality %d: %w", issue.LocalityID.Int64, ErrLocalityNotFound)
	}
	representative, err := s.resolver.Resolve(&locality.ID)
	if err != nil {
		return err
	}
	if representative == nil {
		return &InvalidTransitionError{
			Current: issue.Status,
			Target:  models.StatusAssigned,
			Reason:  fmt.Sprintf("no active representative serves %s %d", locality.Type, locality.ID),
		}
	}

	notes := fmt.Sprintf("Auto-assigned to %s %s of %s %d",
		locality.Type.RepresentativeTitle(), representative.Name, locality.Type, locality.ID)
	won, err := s.issueRepo.AssignIssue(issue.ID, issue.Status, representative.ID, notes)
	if err != nil {
		return err
	}
	if !won {
		return s.lostRace(issue.ID, models.StatusAssigned)
	}
	return nil
}

// completeIssue handles the pwd_completed edge: it requires a completion
// description, accepts an optional proof photo and writes the completion
// fields together with the status so they are set exactly once.
func (s *IssueService) completeIssue(ctx context.Context, issue *models.Issue, actor *models.User, input models.TransitionInput) error {
	description := strings.TrimSpace(input.CompletionDescription)
	if description == "" {
		return &ValidationError{Message: "completion description is required"}
	}
	if issue.CompletedAt.Valid {
		return &InvalidTransitionError{Current: issue.Status, Target: models.StatusPWDCompleted, Reason: "issue already has completion data"}
	}

	var photoKey sql.NullString
	var uploaded []models.IssuePhoto
	if input.CompletionPhoto != nil {
		if err := s.photos.ValidateBatch([]models.PhotoUpload{*input.CompletionPhoto}); err != nil {
			return err
		}
		var err error
		uploaded, err = s.photos.Upload(ctx, []models.PhotoUpload{*input.CompletionPhoto})
		if err != nil {
			return err
		}
		photoKey = sql.NullString{String: uploaded[0].ObjectKey, Valid: true}
	}

	won, err := s.issueRepo.CompleteIssue(issue.ID, issue.Status, description, photoKey, actor.ID, time.Now().UTC())
	if err != nil {
		s.photos.Discard(ctx, uploaded)
		return err
	}
	if !won {
		s.photos.Discard(ctx, uploaded)
		return s.lostRace(issue.ID, models.StatusPWDCompleted)
	}
	return nil
}

// lostRace re-reads the issue after a zero-row conditional update and
// reports the transition against whatever status actually holds now.
func (s *IssueService) lostRace(issueID int64, target models.IssueStatus) error {
	fresh, err := s.issueRepo.GetIssueByID(issueID)
	if err != nil {
		return err
	}
	if fresh == nil {
		return fmt.Errorf("issue %d: %w", issueID, ErrIssueNotFound)
	}
	return &InvalidTransitionError{Current: fresh.Status, Target: target, Reason: "issue was updated concurrently"}
}

// AddPhotos attaches additional photos to an existing issue. Only the
// reporting citizen or an admin may add them. The batch goes through the
// same all-or-nothing path as creation: validate, upload, link in one
// transaction, discard blobs on failure.
func (s *IssueService) AddPhotos(ctx context.Context, issueID, actorID int64, photos []models.PhotoUpload) (*models.IssueResponse, error) {
	if len(photos) == 0 {
		return nil, &ValidationError{Message: "at least one photo is required"}
	}

	issue, err := s.issueRepo.GetIssueByID(issueID)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, fmt.Errorf("issue %d: %w", issueID, ErrIssueNotFound)
	}

	actor, err := s.userRepo.GetUserByID(actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil || !actor.IsActive {
		return nil, fmt.Errorf("user %d: %w", actorID, ErrUserNotFound)
	}
	if actor.Role != models.RoleAdmin && (!issue.UserID.Valid || issue.UserID.Int64 != actorID) {
		return nil, &ValidationError{Message: "only the reporter may add photos to this issue"}
	}

	if _, err := s.photos.Attach(ctx, issueID, photos); err != nil {
		return nil, err
	}
	log.Infof("issue %d gained %d photos from user %d", issueID, len(photos), actorID)
	return s.GetIssue(ctx, issueID)
}

// GetIssue returns the full issue detail with presigned photo URLs.
func (s *IssueService) GetIssue(ctx context.Context, issueID int64) (*models.IssueResponse, error) {
	issue, err := s.issueRepo.GetIssueByID(issueID)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, fmt.Errorf("issue %d: %w", issueID, ErrIssueNotFound)
	}

	photos, err := s.issueRepo.GetPhotosByIssueID(issueID)
	if err != nil {
		return nil, err
	}

	var locality *models.Locality
	if issue.LocalityID.Valid {
		locality, err = s.localityRepo.GetLocalityByID(issue.LocalityID.Int64)
		if err != nil {
			return nil, err
		}
	}

	return s.buildIssueResponse(ctx, issue, photos, locality)
}

// DeleteIssue removes the issue and its photo rows transactionally, then
// cleans up the blobs. Blob removal failures only log; the rows are gone.
func (s *IssueService) DeleteIssue(ctx context.Context, issueID int64) error {
	issue, err := s.issueRepo.GetIssueByID(issueID)
	if err != nil {
		return err
	}
	if issue == nil {
		return fmt.Errorf("issue %d: %w", issueID, ErrIssueNotFound)
	}

	keys, err := s.issueRepo.DeleteIssueCascade(issueID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("issue %d: %w", issueID, ErrIssueNotFound)
	}
	if err != nil {
		return err
	}

	if issue.CompletionPhotoKey.Valid {
		keys = append(keys, issue.CompletionPhotoKey.String)
	}
	for _, key := range keys {
		if err := s.photos.store.Remove(ctx, key); err != nil {
			log.Warnf("orphaned blob %s could not be removed: %v", key, err)
		}
	}
	log.Infof("issue %d deleted (%d blobs cleaned up)", issueID, len(keys))
	return nil
}

func (s *IssueService) buildIssueResponse(ctx context.Context, issue *models.Issue, photos []models.IssuePhoto, locality *models.Locality) (*models.IssueResponse, error) {
	photoResponses, err := s.photos.PresignPhotos(ctx, photos)
	if err != nil {
		return nil, err
	}

	resp := &models.IssueResponse{
		ID:          issue.ID,
		IssueType:   issue.IssueType,
		Description: issue.Description,
		Latitude:    issue.Latitude,
		Longitude:   issue.Longitude,
		Status:      issue.Status,
		Photos:      photoResponses,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
	}
	if issue.LocalityID.Valid {
		resp.LocalityID = &issue.LocalityID.Int64
	}
	if locality != nil {
		resp.LocalityName = locality.Name
		resp.LocalityType = locality.Type
	}
	if issue.UserID.Valid {
		resp.UserID = &issue.UserID.Int64
	}
	if issue.AssignedParshadID.Valid {
		resp.AssignedParshadID = &issue.AssignedParshadID.Int64
	}
	if issue.AssignmentNotes.Valid {
		resp.AssignmentNotes = issue.AssignmentNotes.String
	}
	if issue.ProgressNotes.Valid {
		resp.ProgressNotes = issue.ProgressNotes.String
	}
	if issue.CompletionDescription.Valid {
		resp.CompletionDescription = issue.CompletionDescription.String
	}
	if issue.CompletionPhotoKey.Valid {
		u, err := s.photos.PresignKey(ctx, issue.CompletionPhotoKey.String)
		if err != nil {
			return nil, err
		}
		resp.CompletionPhotoURL = u
	}
	if issue.CompletedAt.Valid {
		t := issue.CompletedAt.Time
		resp.CompletedAt = &t
	}
	if issue.CompletedByID.Valid {
		resp.CompletedByID = &issue.CompletedByID.Int64
	}
	return resp, nil
}
