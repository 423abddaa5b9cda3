package repository

import (
	"database/sql"
	"fmt"
	"time"

	"jansarthi/models"
)

// IssueRepository handles database operations for issues and their photos.
type IssueRepository struct {
	db *sql.DB
}

// NewIssueRepository creates a new issue repository
func NewIssueRepository(db *sql.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

const issueColumns = `
	id, issue_type, description, latitude, longitude, locality_id, status,
	user_id, assigned_parshad_id, assignment_notes, progress_notes,
	completion_description, completion_photo_key, completed_at,
	completed_by_id, created_at, updated_at`

func scanIssue(row interface{ Scan(...interface{}) error }) (*models.Issue, error) {
	var issue models.Issue
	err := row.Scan(
		&issue.ID,
		&issue.IssueType,
		&issue.Description,
		&issue.Latitude,
		&issue.Longitude,
		&issue.LocalityID,
		&issue.Status,
		&issue.UserID,
		&issue.AssignedParshadID,
		&issue.AssignmentNotes,
		&issue.ProgressNotes,
		&issue.CompletionDescription,
		&issue.CompletionPhotoKey,
		&issue.CompletedAt,
		&issue.CompletedByID,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// CreateIssueWithPhotos inserts the issue row and all of its photo rows in a
// single transaction. Either everything lands or nothing does.
func (r *IssueRepository) CreateIssueWithPhotos(issue *models.Issue, photos []models.IssuePhoto) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO issues (
			issue_type, description, latitude, longitude, locality_id,
			status, user_id, assigned_parshad_id, assignment_notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.IssueType,
		issue.Description,
		issue.Latitude,
		issue.Longitude,
		issue.LocalityID,
		issue.Status,
		issue.UserID,
		issue.AssignedParshadID,
		issue.AssignmentNotes,
	)
	if err != nil {
		return fmt.Errorf("failed to create issue: %w", err)
	}

	issueID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get issue ID: %w", err)
	}

	for i := range photos {
		photoResult, err := tx.Exec(`
			INSERT INTO issue_photos (issue_id, object_key, filename, file_size, content_type)
			VALUES (?, ?, ?, ?, ?)`,
			issueID,
			photos[i].ObjectKey,
			photos[i].Filename,
			photos[i].FileSize,
			photos[i].ContentType,
		)
		if err != nil {
			return fmt.Errorf("failed to create issue photo: %w", err)
		}
		photoID, err := photoResult.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get photo ID: %w", err)
		}
		photos[i].ID = photoID
		photos[i].IssueID = issueID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit issue creation: %w", err)
	}

	issue.ID = issueID
	return nil
}

// GetIssueByID retrieves a single issue. Returns (nil, nil) when no row exists.
func (r *IssueRepository) GetIssueByID(issueID int64) (*models.Issue, error) {
	query := `SELECT` + issueColumns + ` FROM issues WHERE id = ?`
	issue, err := scanIssue(r.db.QueryRow(query, issueID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}
	return issue, nil
}

// GetPhotosByIssueID retrieves all photos attached to an issue, oldest first.
func (r *IssueRepository) GetPhotosByIssueID(issueID int64) ([]models.IssuePhoto, error) {
	rows, err := r.db.Query(`
		SELECT id, issue_id, object_key, filename, file_size, content_type, created_at
		FROM issue_photos WHERE issue_id = ? ORDER BY id ASC`, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get issue photos: %w", err)
	}
	defer rows.Close()

	var photos []models.IssuePhoto
	for rows.Next() {
		var p models.IssuePhoto
		if err := rows.Scan(&p.ID, &p.IssueID, &p.ObjectKey, &p.Filename, &p.FileSize, &p.ContentType, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan issue photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// TransitionStatus performs the conditional status update. The WHERE clause
// pins the expected current status so concurrent transitions cannot both
// win; the caller treats zero affected rows as a lost race.
func (r *IssueRepository) TransitionStatus(issueID int64, from, to models.IssueStatus, progressNotes sql.NullString) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE issues
		SET status = ?, progress_notes = COALESCE(?, progress_notes), updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		to, progressNotes, issueID, from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update issue status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected == 1, nil
}

// AssignIssue performs the reported → assigned transition, binding the
// representative and the assignment note together with the status so an
// assigned issue always carries its assignee.
func (r *IssueRepository) AssignIssue(issueID int64, from models.IssueStatus, parshadID int64, notes string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE issues
		SET status = ?, assigned_parshad_id = ?, assignment_notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		models.StatusAssigned, parshadID, notes, issueID, from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to assign issue: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected == 1, nil
}

// CompleteIssue performs the pwd_completed transition, setting the
// completion fields together with the status in one conditional update.
func (r *IssueRepository) CompleteIssue(issueID int64, from models.IssueStatus, description string, photoKey sql.NullString, completedByID int64, completedAt time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE issues
		SET status = ?, completion_description = ?, completion_photo_key = ?,
		    completed_at = ?, completed_by_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		models.StatusPWDCompleted, description, photoKey, completedAt, completedByID, issueID, from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete issue: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected == 1, nil
}

// ListForMap retrieves candidate issues for the proximity query. Type and
// status filters are pushed into SQL; the distance cut happens in the
// service because MySQL has no Haversine builtin worth the trouble at this
// scale.
func (r *IssueRepository) ListForMap(issueType *models.IssueType, status *models.IssueStatus) ([]models.Issue, error) {
	query := `SELECT id, issue_type, status, latitude, longitude, created_at FROM issues`
	var args []interface{}
	var conds []string
	if issueType != nil {
		conds = append(conds, "issue_type = ?")
		args = append(args, *issueType)
	}
	if status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *status)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues for map: %w", err)
	}
	defer rows.Close()

	var issues []models.Issue
	for rows.Next() {
		var issue models.Issue
		if err := rows.Scan(&issue.ID, &issue.IssueType, &issue.Status, &issue.Latitude, &issue.Longitude, &issue.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

// DeleteIssueCascade removes the issue and its photo rows in one
// transaction and returns the storage keys of the removed photos so the
// caller can clean up the blobs afterwards. The keys are read inside the
// same transaction so a photo attached concurrently cannot slip past the
// blob cleanup.
func (r *IssueRepository) DeleteIssueCascade(issueID int64) ([]string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT object_key FROM issue_photos WHERE issue_id = ?`, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get photo keys: %w", err)
	}
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan photo key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read photo keys: %w", err)
	}
	rows.Close()

	if _, err := tx.Exec(`DELETE FROM issue_photos WHERE issue_id = ?`, issueID); err != nil {
		return nil, fmt.Errorf("failed to delete issue photos: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM issues WHERE id = ?`, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete issue: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit issue deletion: %w", err)
	}
	return keys, nil
}

// CountByLocality returns how many issues reference a locality. Used to
// refuse deleting localities that still have issues.
func (r *IssueRepository) CountByLocality(localityID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM issues WHERE locality_id = ?`, localityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count issues for locality: %w", err)
	}
	return count, nil
}

// AttachPhotos inserts photo rows for an already-existing issue in one
// transaction. Used for the completion photo path.
func (r *IssueRepository) AttachPhotos(issueID int64, photos []models.IssuePhoto) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range photos {
		result, err := tx.Exec(`
			INSERT INTO issue_photos (issue_id, object_key, filename, file_size, content_type)
			VALUES (?, ?, ?, ?, ?)`,
			issueID, photos[i].ObjectKey, photos[i].Filename, photos[i].FileSize, photos[i].ContentType,
		)
		if err != nil {
			return fmt.Errorf("failed to attach photo: %w", err)
		}
		photoID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get photo ID: %w", err)
		}
		photos[i].ID = photoID
		photos[i].IssueID = issueID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit photo attachment: %w", err)
	}
	return nil
}
