package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

func GetProfile(ctx context.Context, db database.DBTX, id string) (*models.Profile, error) {
	p := &models.Profile{}

	query := `
		SELECT id, email, full_name, created_at, updated_at
		FROM profiles
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return p, nil
}

// UpsertProfile creates the profile for an auth user or updates its name
// and email.
func UpsertProfile(ctx context.Context, db database.DBTX, id, email, fullName string) (*models.Profile, error) {
	p := &models.Profile{}

	query := `
		INSERT INTO profiles (id, email, full_name, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    full_name = EXCLUDED.full_name,
		    updated_at = NOW()
		RETURNING id, email, full_name, created_at, updated_at`

	err := db.QueryRowContext(ctx, query, id, email, fullName).Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	return p, nil
}
