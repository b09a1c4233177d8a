package store

import (
	"context"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

// ListReviews returns a product's reviews newest first. The author name
// comes from the reviewer's profile and is empty when there is none.
func ListReviews(ctx context.Context, db database.DBTX, productID string) ([]models.Review, error) {
	query := `
		SELECT r.id, r.product_id, r.user_id, r.rating, r.comment, r.created_at,
		       COALESCE(pr.full_name, '')
		FROM reviews r
		LEFT JOIN profiles pr ON pr.id = r.user_id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC, r.id DESC`

	rows, err := db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		err := rows.Scan(
			&r.ID,
			&r.ProductID,
			&r.UserID,
			&r.Rating,
			&r.Comment,
			&r.CreatedAt,
			&r.AuthorName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return reviews, nil
}

func CreateReview(ctx context.Context, db database.DBTX, productID, userID string, rating int, comment string) (*models.Review, error) {
	r := &models.Review{}

	query := `
		INSERT INTO reviews (product_id, user_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, product_id, user_id, rating, comment, created_at`

	err := db.QueryRowContext(ctx, query, productID, userID, rating, comment).Scan(
		&r.ID,
		&r.ProductID,
		&r.UserID,
		&r.Rating,
		&r.Comment,
		&r.CreatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	return r, nil
}
