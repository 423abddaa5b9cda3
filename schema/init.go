// Package schema: safe database initialization — create only missing tables, never drop or overwrite.

package schema

import (
	"database/sql"

	"github.com/apex/log"
)

const (
	tableLocalities  = "localities"
	tableUsers       = "users"
	tableIssues      = "issues"
	tableIssuePhotos = "issue_photos"
)

// InitializeDatabase ensures core tables exist. Checks INFORMATION_SCHEMA.TABLES
// and creates only missing tables in dependency order:
// localities → users → issues → issue_photos.
// Does not drop or recreate tables; does not remove data.
func InitializeDatabase(db *sql.DB) {
	ensureTable(db, tableLocalities, createLocalitiesTable)
	ensureTable(db, tableUsers, createUsersTable)
	ensureTable(db, tableIssues, createIssuesTable)
	ensureTable(db, tableIssuePhotos, createIssuePhotosTable)
}

func ensureTable(db *sql.DB, name string, create func(*sql.DB)) {
	exists, err := tableExists(db, name)
	if err != nil {
		log.Fatalf("[SCHEMA] Failed to check if table %s exists: %v", name, err)
	}
	if exists {
		log.Infof("[SCHEMA] %s table exists", name)
		return
	}
	create(db)
	log.Infof("[SCHEMA] created %s table", name)
}

func tableExists(db *sql.DB, tableName string) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`
	if err := db.QueryRow(query, tableName).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func createLocalitiesTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS localities (
    id BIGINT PRIMARY KEY AUTO_INCREMENT,
    name VARCHAR(255) NOT NULL,
    type ENUM('ward', 'village') NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_localities_name_type (name, type)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table localities: %v", err)
	}
}

func createUsersTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS users (
    id BIGINT PRIMARY KEY AUTO_INCREMENT,
    name VARCHAR(255) NOT NULL,
    mobile_number VARCHAR(15) NOT NULL,
    role ENUM('citizen', 'representative', 'pwd_worker', 'admin') NOT NULL DEFAULT 'citizen',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    is_verified BOOLEAN NOT NULL DEFAULT FALSE,
    locality_id BIGINT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_users_mobile_number (mobile_number),
    KEY idx_users_role_locality (role, locality_id),
    CONSTRAINT fk_users_locality FOREIGN KEY (locality_id) REFERENCES localities(id) ON DELETE RESTRICT
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table users: %v", err)
	}
}

func createIssuesTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS issues (
    id BIGINT PRIMARY KEY AUTO_INCREMENT,
    issue_type ENUM('water', 'electricity', 'road', 'garbage') NOT NULL,
    description TEXT NOT NULL,
    latitude DOUBLE NOT NULL,
    longitude DOUBLE NOT NULL,
    locality_id BIGINT NULL,
    status ENUM('reported', 'assigned', 'representative_acknowledged', 'pwd_working', 'pwd_completed', 'representative_reviewed') NOT NULL DEFAULT 'reported',
    user_id BIGINT NULL,
    assigned_parshad_id BIGINT NULL,
    assignment_notes TEXT NULL,
    progress_notes TEXT NULL,
    completion_description TEXT NULL,
    completion_photo_key VARCHAR(512) NULL,
    completed_at TIMESTAMP NULL,
    completed_by_id BIGINT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    KEY idx_issues_status (status),
    KEY idx_issues_type (issue_type),
    KEY idx_issues_locality (locality_id),
    CONSTRAINT fk_issues_locality FOREIGN KEY (locality_id) REFERENCES localities(id) ON DELETE RESTRICT,
    CONSTRAINT fk_issues_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL,
    CONSTRAINT fk_issues_parshad FOREIGN KEY (assigned_parshad_id) REFERENCES users(id) ON DELETE SET NULL,
    CONSTRAINT fk_issues_completed_by FOREIGN KEY (completed_by_id) REFERENCES users(id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table issues: %v", err)
	}
}

func createIssuePhotosTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS issue_photos (
    id BIGINT PRIMARY KEY AUTO_INCREMENT,
    issue_id BIGINT NOT NULL,
    object_key VARCHAR(512) NOT NULL,
    filename VARCHAR(255) NOT NULL,
    file_size BIGINT NOT NULL,
    content_type VARCHAR(100) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    KEY idx_issue_photos_issue (issue_id),
    CONSTRAINT fk_issue_photos_issue FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table issue_photos: %v", err)
	}
}
