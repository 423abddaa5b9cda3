package repository

import (
	"database/sql"
	"fmt"

	"jansarthi/models"
)

// LocalityRepository handles database operations for localities
type LocalityRepository struct {
	db *sql.DB
}

// NewLocalityRepository creates a new locality repository
func NewLocalityRepository(db *sql.DB) *LocalityRepository {
	return &LocalityRepository{db: db}
}

// CreateLocality inserts a new locality and fills in its generated ID.
func (r *LocalityRepository) CreateLocality(locality *models.Locality) error {
	result, err := r.db.Exec(`
		INSERT INTO localities (name, type, is_active) VALUES (?, ?, ?)`,
		locality.Name, locality.Type, locality.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create locality: %w", err)
	}
	localityID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get locality ID: %w", err)
	}
	locality.ID = localityID
	return nil
}

// GetLocalityByID retrieves a locality. Returns (nil, nil) when no row exists.
func (r *LocalityRepository) GetLocalityByID(localityID int64) (*models.Locality, error) {
	var l models.Locality
	err := r.db.QueryRow(`
		SELECT id, name, type, is_active, created_at, updated_at
		FROM localities WHERE id = ?`, localityID).
		Scan(&l.ID, &l.Name, &l.Type, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get locality: %w", err)
	}
	return &l, nil
}

// GetLocalityByNameAndType checks the (name, type) uniqueness constraint
// before inserts and renames. Returns (nil, nil) when no row exists.
func (r *LocalityRepository) GetLocalityByNameAndType(name string, localityType models.LocalityType) (*models.Locality, error) {
	var l models.Locality
	err := r.db.QueryRow(`
		SELECT id, name, type, is_active, created_at, updated_at
		FROM localities WHERE name = ? AND type = ?`, name, localityType).
		Scan(&l.ID, &l.Name, &l.Type, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get locality by name and type: %w", err)
	}
	return &l, nil
}

// UpdateLocality saves name and active flag changes.
func (r *LocalityRepository) UpdateLocality(locality *models.Locality) error {
	_, err := r.db.Exec(`
		UPDATE localities SET name = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		locality.Name, locality.IsActive, locality.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update locality: %w", err)
	}
	return nil
}

// DeleteLocality removes a locality row. Callers must have verified no
// users or issues still reference it; the FK constraints back that up.
func (r *LocalityRepository) DeleteLocality(localityID int64) error {
	result, err := r.db.Exec(`DELETE FROM localities WHERE id = ?`, localityID)
	if err != nil {
		return fmt.Errorf("failed to delete locality: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListLocalities retrieves one page of localities with the total count.
func (r *LocalityRepository) ListLocalities(page, pageSize int) ([]models.Locality, int, error) {
	var total int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM localities`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count localities: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := r.db.Query(`
		SELECT id, name, type, is_active, created_at, updated_at
		FROM localities ORDER BY id ASC LIMIT ? OFFSET ?`, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list localities: %w", err)
	}
	defer rows.Close()

	var localities []models.Locality
	for rows.Next() {
		var l models.Locality
		if err := rows.Scan(&l.ID, &l.Name, &l.Type, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan locality: %w", err)
		}
		localities = append(localities, l)
	}
	return localities, total, rows.Err()
}

// ListActiveLocalities retrieves every active locality, name order. Backs
// the public report form.
func (r *LocalityRepository) ListActiveLocalities() ([]models.Locality, error) {
	rows, err := r.db.Query(`
		SELECT id, name, type, is_active, created_at, updated_at
		FROM localities WHERE is_active = TRUE ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active localities: %w", err)
	}
	defer rows.Close()

	var localities []models.Locality
	for rows.Next() {
		var l models.Locality
		if err := rows.Scan(&l.ID, &l.Name, &l.Type, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan locality: %w", err)
		}
		localities = append(localities, l)
	}
	return localities, rows.Err()
}
