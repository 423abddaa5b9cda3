package service

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/apex/log"

	"jansarthi/models"
	"jansarthi/repository"
)

var mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// UserService implements the admin staff directory: representatives, PWD
// workers and admins. Citizens self-register through the identity service
// and are not managed here.
type UserService struct {
	userRepo     *repository.UserRepository
	localityRepo *repository.LocalityRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo *repository.UserRepository, localityRepo *repository.LocalityRepository) *UserService {
	return &UserService{userRepo: userRepo, localityRepo: localityRepo}
}

// CreateUser registers a staff user. Representatives must carry an active
// locality. When the mobile number already belongs to a citizen, that user
// is upgraded to the requested role instead of duplicated.
func (s *UserService) CreateUser(req models.CreateUserRequest) (*models.UserResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Message: "name is required"}
	}
	if !mobilePattern.MatchString(req.MobileNumber) {
		return nil, &ValidationError{Message: "mobile number must be a valid 10-digit Indian number"}
	}
	switch req.Role {
	case models.RoleRepresentative, models.RolePWDWorker, models.RoleAdmin:
	default:
		return nil, &ValidationError{Message: fmt.Sprintf("role %q cannot be created here", req.Role)}
	}

	var localityID sql.NullInt64
	if req.Role == models.RoleRepresentative {
		if req.LocalityID == nil {
			return nil, &ValidationError{Message: "representatives must be attached to a locality"}
		}
		locality, err := s.localityRepo.GetLocalityByID(*req.LocalityID)
		if err != nil {
			return nil, err
		}
		if locality == nil {
			return nil, fmt.Errorf("locality %d: %w", *req.LocalityID, ErrLocalityNotFound)
		}
		if !locality.IsActive {
			return nil, &ValidationError{Message: fmt.Sprintf("locality %d is inactive", locality.ID)}
		}
		localityID = sql.NullInt64{Int64: locality.ID, Valid: true}
	} else if req.LocalityID != nil {
		localityID = sql.NullInt64{Int64: *req.LocalityID, Valid: true}
	}

	existing, err := s.userRepo.GetUserByMobileNumber(req.MobileNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Role == req.Role {
			return nil, &ConflictError{Message: fmt.Sprintf("a %s with mobile number %s already exists", req.Role, req.MobileNumber)}
		}
		// role upgrade path: the person already exists as a citizen
		existing.Name = name
		existing.Role = req.Role
		existing.LocalityID = localityID
		existing.IsActive = true
		if err := s.userRepo.UpdateUser(existing); err != nil {
			return nil, err
		}
		log.Infof("user %d upgraded to role %s", existing.ID, req.Role)
		return buildUserResponse(existing), nil
	}

	user := &models.User{
		Name:         name,
		MobileNumber: req.MobileNumber,
		Role:         req.Role,
		IsActive:     true,
		IsVerified:   true,
		LocalityID:   localityID,
	}
	if err := s.userRepo.CreateUser(user); err != nil {
		return nil, err
	}
	log.Infof("user %d created with role %s", user.ID, user.Role)
	return buildUserResponse(user), nil
}

// GetUser returns the admin view of one user.
func (s *UserService) GetUser(userID int64) (*models.UserResponse, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}
	return buildUserResponse(user), nil
}

// ListUsers returns one admin page, optionally filtered by role.
func (s *UserService) ListUsers(role *models.UserRole, page, pageSize int) (*models.PaginatedResponse, error) {
	if role != nil && !role.IsValid() {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown role %q", *role)}
	}
	users, total, err := s.userRepo.ListUsers(role, page, pageSize)
	if err != nil {
		return nil, err
	}
	items := make([]models.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, *buildUserResponse(&users[i]))
	}
	return paginate(items, total, page, pageSize), nil
}

// UpdateUser patches a user. Admins cannot strip their own role or active
// flag; that keeps at least the acting admin alive.
func (s *UserService) UpdateUser(userID, actorID int64, req models.UpdateUserRequest) (*models.UserResponse, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, &ValidationError{Message: "name cannot be empty"}
		}
		user.Name = name
	}
	if req.IsActive != nil {
		if userID == actorID && !*req.IsActive {
			return nil, &ValidationError{Message: "you cannot deactivate yourself"}
		}
		user.IsActive = *req.IsActive
	}
	if req.IsVerified != nil {
		user.IsVerified = *req.IsVerified
	}
	if req.LocalityID != nil {
		locality, err := s.localityRepo.GetLocalityByID(*req.LocalityID)
		if err != nil {
			return nil, err
		}
		if locality == nil {
			return nil, fmt.Errorf("locality %d: %w", *req.LocalityID, ErrLocalityNotFound)
		}
		user.LocalityID = sql.NullInt64{Int64: locality.ID, Valid: true}
	}

	if err := s.userRepo.UpdateUser(user); err != nil {
		return nil, err
	}
	return buildUserResponse(user), nil
}

// DeactivateUser soft-deletes a user. Self-deactivation is refused.
func (s *UserService) DeactivateUser(userID, actorID int64) error {
	if userID == actorID {
		return &ValidationError{Message: "you cannot deactivate yourself"}
	}
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}
	if err := s.userRepo.DeactivateUser(userID); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
		}
		return err
	}
	log.Infof("user %d deactivated by admin %d", userID, actorID)
	return nil
}

func buildUserResponse(user *models.User) *models.UserResponse {
	resp := &models.UserResponse{
		ID:           user.ID,
		Name:         user.Name,
		MobileNumber: user.MobileNumber,
		Role:         user.Role,
		IsActive:     user.IsActive,
		IsVerified:   user.IsVerified,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	if user.LocalityID.Valid {
		resp.LocalityID = &user.LocalityID.Int64
	}
	return resp
}
