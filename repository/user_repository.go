package repository

import (
	"database/sql"
	"fmt"

	"jansarthi/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, name, mobile_number, role, is_active, is_verified, locality_id,
	created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Name, &u.MobileNumber, &u.Role, &u.IsActive, &u.IsVerified,
		&u.LocalityID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindActiveRepresentative returns the active representative for a
// locality. With more than one candidate the lowest id wins, which keeps
// auto-assignment deterministic. Returns (nil, nil) when none exists.
func (r *UserRepository) FindActiveRepresentative(localityID int64) (*models.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE role = ? AND locality_id = ? AND is_active = TRUE
		ORDER BY id ASC LIMIT 1`
	user, err := scanUser(r.db.QueryRow(query, models.RoleRepresentative, localityID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find representative: %w", err)
	}
	return user, nil
}

// ListActiveRepresentatives retrieves all active representatives for a
// locality, lowest id first.
func (r *UserRepository) ListActiveRepresentatives(localityID int64) ([]models.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE role = ? AND locality_id = ? AND is_active = TRUE
		ORDER BY id ASC`
	rows, err := r.db.Query(query, models.RoleRepresentative, localityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list representatives: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.MobileNumber, &u.Role, &u.IsActive, &u.IsVerified, &u.LocalityID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUserByID retrieves a user. Returns (nil, nil) when no row exists.
func (r *UserRepository) GetUserByID(userID int64) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(r.db.QueryRow(query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByMobileNumber retrieves a user by mobile number. Returns
// (nil, nil) when no row exists.
func (r *UserRepository) GetUserByMobileNumber(mobileNumber string) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE mobile_number = ?`
	user, err := scanUser(r.db.QueryRow(query, mobileNumber))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by mobile number: %w", err)
	}
	return user, nil
}

// CreateUser inserts a new user and fills in its generated ID.
func (r *UserRepository) CreateUser(user *models.User) error {
	result, err := r.db.Exec(`
		INSERT INTO users (name, mobile_number, role, is_active, is_verified, locality_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.Name, user.MobileNumber, user.Role, user.IsActive, user.IsVerified, user.LocalityID,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	userID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user ID: %w", err)
	}
	user.ID = userID
	return nil
}

// UpdateUser saves mutable user fields.
func (r *UserRepository) UpdateUser(user *models.User) error {
	_, err := r.db.Exec(`
		UPDATE users
		SET name = ?, role = ?, is_active = ?, is_verified = ?, locality_id = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		user.Name, user.Role, user.IsActive, user.IsVerified, user.LocalityID, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// DeactivateUser soft-deletes a user by clearing the active flag.
func (r *UserRepository) DeactivateUser(userID int64) error {
	result, err := r.db.Exec(`
		UPDATE users SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
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

// ListUsers retrieves one page of users with the total count. An optional
// role filter narrows the page.
func (r *UserRepository) ListUsers(role *models.UserRole, page, pageSize int) ([]models.User, int, error) {
	countQuery := `SELECT COUNT(*) FROM users`
	listQuery := `SELECT` + userColumns + ` FROM users`
	var countArgs, listArgs []interface{}
	if role != nil {
		countQuery += ` WHERE role = ?`
		listQuery += ` WHERE role = ?`
		countArgs = append(countArgs, *role)
		listArgs = append(listArgs, *role)
	}

	var total int
	if err := r.db.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	listQuery += ` ORDER BY id ASC LIMIT ? OFFSET ?`
	listArgs = append(listArgs, pageSize, (page-1)*pageSize)
	rows, err := r.db.Query(listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.MobileNumber, &u.Role, &u.IsActive, &u.IsVerified, &u.LocalityID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// CountByLocality returns how many users reference a locality. Used to
// refuse deleting localities that still have users.
func (r *UserRepository) CountByLocality(localityID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE locality_id = ?`, localityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users for locality: %w", err)
	}
	return count, nil
}

// CountActiveRepresentatives returns how many active representatives serve
// a locality. Shown in the admin locality listing.
func (r *UserRepository) CountActiveRepresentatives(localityID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM users
		WHERE role = ? AND locality_id = ? AND is_active = TRUE`,
		models.RoleRepresentative, localityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count representatives: %w", err)
	}
	return count, nil
}
