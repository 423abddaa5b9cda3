package models

import (
	"database/sql"
	"time"
)

// IssueType classifies a citizen report into one of the fixed civic categories.
type IssueType string

const (
	IssueWater       IssueType = "water"
	IssueElectricity IssueType = "electricity"
	IssueRoad        IssueType = "road"
	IssueGarbage     IssueType = "garbage"
)

// IsValid reports whether t is one of the known issue types.
func (t IssueType) IsValid() bool {
	switch t {
	case IssueWater, IssueElectricity, IssueRoad, IssueGarbage:
		return true
	}
	return false
}

// IssueStatus represents the issue lifecycle:
// 1. REPORTED - citizen has submitted the issue
// 2. ASSIGNED - auto-assigned to the representative of the locality
// 3. REPRESENTATIVE_ACKNOWLEDGED - representative confirmed the problem exists
// 4. PWD_WORKING - PWD workers started work
// 5. PWD_COMPLETED - PWD workers finished the work
// 6. REPRESENTATIVE_REVIEWED - representative reviewed and confirmed the fix
type IssueStatus string

const (
	StatusReported                   IssueStatus = "reported"
	StatusAssigned                   IssueStatus = "assigned"
	StatusRepresentativeAcknowledged IssueStatus = "representative_acknowledged"
	StatusPWDWorking                 IssueStatus = "pwd_working"
	StatusPWDCompleted               IssueStatus = "pwd_completed"
	StatusRepresentativeReviewed     IssueStatus = "representative_reviewed"
)

// IsValid reports whether s is one of the lifecycle statuses.
func (s IssueStatus) IsValid() bool {
	switch s {
	case StatusReported, StatusAssigned, StatusRepresentativeAcknowledged,
		StatusPWDWorking, StatusPWDCompleted, StatusRepresentativeReviewed:
		return true
	}
	return false
}

// UserRole represents the mutually exclusive roles an actor can hold.
type UserRole string

const (
	RoleCitizen        UserRole = "citizen"
	RoleRepresentative UserRole = "representative"
	RolePWDWorker      UserRole = "pwd_worker"
	RoleAdmin          UserRole = "admin"
)

// IsValid reports whether r is one of the known roles.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleCitizen, RoleRepresentative, RolePWDWorker, RoleAdmin:
		return true
	}
	return false
}

// LocalityType determines what the locality's elected head is called:
// Parshad for a ward (urban), Pradhan for a village (rural).
type LocalityType string

const (
	LocalityWard    LocalityType = "ward"
	LocalityVillage LocalityType = "village"
)

// IsValid reports whether t is one of the known locality types.
func (t LocalityType) IsValid() bool {
	return t == LocalityWard || t == LocalityVillage
}

// RepresentativeTitle returns the customary title for the locality's head.
func (t LocalityType) RepresentativeTitle() string {
	if t == LocalityVillage {
		return "Pradhan"
	}
	return "Parshad"
}

// Locality represents an administrative area (ward or village).
type Locality struct {
	ID        int64        `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Type      LocalityType `db:"type" json:"type"`
	IsActive  bool         `db:"is_active" json:"is_active"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// User represents an actor in the system.
type User struct {
	ID           int64         `db:"id" json:"id"`
	Name         string        `db:"name" json:"name"`
	MobileNumber string        `db:"mobile_number" json:"mobile_number"`
	Role         UserRole      `db:"role" json:"role"`
	IsActive     bool          `db:"is_active" json:"is_active"`
	IsVerified   bool          `db:"is_verified" json:"is_verified"`
	LocalityID   sql.NullInt64 `db:"locality_id" json:"locality_id"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// Issue represents a citizen-filed report.
type Issue struct {
	ID          int64         `db:"id" json:"id"`
	IssueType   IssueType     `db:"issue_type" json:"issue_type"`
	Description string        `db:"description" json:"description"`
	Latitude    float64       `db:"latitude" json:"latitude"`
	Longitude   float64       `db:"longitude" json:"longitude"`
	LocalityID  sql.NullInt64 `db:"locality_id" json:"locality_id"`
	Status      IssueStatus   `db:"status" json:"status"`
	UserID      sql.NullInt64 `db:"user_id" json:"user_id"`

	// Assignment data, set by the system at creation when a representative
	// is found for the locality.
	AssignedParshadID sql.NullInt64  `db:"assigned_parshad_id" json:"assigned_parshad_id"`
	AssignmentNotes   sql.NullString `db:"assignment_notes" json:"assignment_notes"`
	ProgressNotes     sql.NullString `db:"progress_notes" json:"progress_notes"`

	// Completion data, set exactly once by the pwd_completed transition.
	CompletionDescription sql.NullString `db:"completion_description" json:"completion_description"`
	CompletionPhotoKey    sql.NullString `db:"completion_photo_key" json:"-"`
	CompletedAt           sql.NullTime   `db:"completed_at" json:"completed_at"`
	CompletedByID         sql.NullInt64  `db:"completed_by_id" json:"completed_by_id"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IssuePhoto represents one photo attached to an issue. Photos are created
// only with the issue (or a completion update) and removed only by the
// cascading issue delete.
type IssuePhoto struct {
	ID          int64     `db:"id" json:"id"`
	IssueID     int64     `db:"issue_id" json:"issue_id"`
	ObjectKey   string    `db:"object_key" json:"-"`
	Filename    string    `db:"filename" json:"filename"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	ContentType string    `db:"content_type" json:"content_type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// PhotoUpload carries one image received from a client before it is stored.
type PhotoUpload struct {
	Data        []byte
	Filename    string
	ContentType string
}
