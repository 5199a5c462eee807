package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/backstack/internal/models"
)

// CreateUser inserts a new user into the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.Insert(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return tx.Commit()
}

// GetUserByEmail retrieves a user by their email address.
// Returns nil and no error if the user does not exist.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

// GetUserByID retrieves a user by their ID.
// Returns nil and no error if the user does not exist.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *SQLiteStore) getUser(ctx context.Context, cond string, arg any) (*models.User, error) {
	user := &models.User{}
	cols, dests := selectColumns(user)
	query := fmt.Sprintf("SELECT %s FROM users WHERE %s", cols, cond)

	err := s.db.QueryRowContext(ctx, query, arg).Scan(dests...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // User not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.ID = *dests[0].(*int64)
	return user, nil
}
