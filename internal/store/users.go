package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mediad/internal/models"
)

const userColumns = "id, name, key_hash, privileged, disabled, created_at, updated_at"

// CreateUser inserts one provisioned user with a hashed API key secret.
func (s *Store) CreateUser(ctx context.Context, name, keyHash string, privileged bool, now time.Time) (*models.User, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("user name is required")
	}
	if strings.TrimSpace(keyHash) == "" {
		return nil, fmt.Errorf("key hash is required")
	}

	userID, err := GenerateUserID(s.userExists)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`, userID, name, keyHash, boolToInt(privileged), formatTime(now), formatTime(now))
	if err != nil {
		return nil, err
	}

	return &models.User{
		ID:         userID,
		Name:       name,
		KeyHash:    keyHash,
		Privileged: privileged,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}, nil
}

// GetUser returns a provisioned user by id, or nil when absent.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
	return scanUser(row)
}

// ListUsers returns all provisioned users sorted by name.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		if user == nil {
			continue
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// SetUserDisabled toggles a user's disabled flag by name.
func (s *Store) SetUserDisabled(ctx context.Context, name string, disabled bool, now time.Time) (bool, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET disabled = ?, updated_at = ? WHERE name = ?
	`, boolToInt(disabled), formatTime(now), name)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) userExists(id string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM users WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanUser(scanner rowScanner) (*models.User, error) {
	var user models.User
	var privileged, disabled int
	var createdAt, updatedAt string

	err := scanner.Scan(&user.ID, &user.Name, &user.KeyHash, &privileged, &disabled, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user.Privileged = privileged != 0
	user.Disabled = disabled != 0
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}
