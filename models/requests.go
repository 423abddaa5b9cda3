package models

import "time"

// CreateIssueInput is the decoded multipart payload for filing a new issue.
type CreateIssueInput struct {
	IssueType   IssueType
	Description string
	Latitude    float64
	Longitude   float64
	LocalityID  *int64
	UserID      *int64
	Photos      []PhotoUpload
}

// TransitionInput carries one status transition request.
type TransitionInput struct {
	Target IssueStatus `json:"status"`
	Notes  string      `json:"notes,omitempty"`

	// Completion payload, required when Target is pwd_completed.
	CompletionDescription string
	CompletionPhoto       *PhotoUpload
}

// IssuePhotoResponse is the public view of one attached photo. URL is a
// time-limited presigned link; storage keys never leave the server.
type IssuePhotoResponse struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// IssueResponse is the full public view of an issue.
type IssueResponse struct {
	ID                    int64                `json:"id"`
	IssueType             IssueType            `json:"issue_type"`
	Description           string               `json:"description"`
	Latitude              float64              `json:"latitude"`
	Longitude             float64              `json:"longitude"`
	LocalityID            *int64               `json:"locality_id"`
	LocalityName          string               `json:"locality_name,omitempty"`
	LocalityType          LocalityType         `json:"locality_type,omitempty"`
	Status                IssueStatus          `json:"status"`
	UserID                *int64               `json:"user_id"`
	AssignedParshadID     *int64               `json:"assigned_parshad_id"`
	AssignmentNotes       string               `json:"assignment_notes,omitempty"`
	ProgressNotes         string               `json:"progress_notes,omitempty"`
	CompletionDescription string               `json:"completion_description,omitempty"`
	CompletionPhotoURL    string               `json:"completion_photo_url,omitempty"`
	CompletedAt           *time.Time           `json:"completed_at,omitempty"`
	CompletedByID         *int64               `json:"completed_by_id,omitempty"`
	Photos                []IssuePhotoResponse `json:"photos"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

// IssueMapPoint is the compact per-issue record returned by the map query.
type IssueMapPoint struct {
	ID         int64       `json:"id"`
	IssueType  IssueType   `json:"issue_type"`
	Status     IssueStatus `json:"status"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	DistanceKm float64     `json:"distance_km"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CreateLocalityRequest is the admin payload for registering a locality.
type CreateLocalityRequest struct {
	Name string       `json:"name"`
	Type LocalityType `json:"type"`
}

// UpdateLocalityRequest patches a locality. Nil fields are left unchanged.
type UpdateLocalityRequest struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
}

// LocalityResponse is the admin view of a locality with usage counts.
type LocalityResponse struct {
	ID                  int64        `json:"id"`
	Name                string       `json:"name"`
	Type                LocalityType `json:"type"`
	IsActive            bool         `json:"is_active"`
	RepresentativeCount int          `json:"representative_count"`
	IssueCount          int          `json:"issue_count"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// PublicLocality is the citizen-facing view: active localities and the
// active representatives serving them.
type PublicLocality struct {
	ID              int64                  `json:"id"`
	Name            string                 `json:"name"`
	Type            LocalityType           `json:"type"`
	Representatives []PublicRepresentative `json:"representatives"`
}

// PublicRepresentative is the citizen-facing view of a locality's head.
type PublicRepresentative struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// CreateUserRequest is the admin payload for registering staff users.
type CreateUserRequest struct {
	Name         string   `json:"name"`
	MobileNumber string   `json:"mobile_number"`
	Role         UserRole `json:"role"`
	LocalityID   *int64   `json:"locality_id"`
}

// UpdateUserRequest patches a user. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name       *string `json:"name"`
	IsActive   *bool   `json:"is_active"`
	IsVerified *bool   `json:"is_verified"`
	LocalityID *int64  `json:"locality_id"`
}

// UserResponse is the admin view of a user.
type UserResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	MobileNumber string    `json:"mobile_number"`
	Role         UserRole  `json:"role"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	LocalityID   *int64    `json:"locality_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PaginatedResponse wraps list endpoints with page metadata.
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
