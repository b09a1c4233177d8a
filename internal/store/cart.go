package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

const cartLineQuery = `
	SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at,
	       p.id, p.name, p.description, p.price, p.image_url, p.category,
	       p.stock, p.is_digital, p.featured, p.created_at, p.updated_at
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id`

func scanCartLine(row rowScanner, l *models.CartLine) error {
	return row.Scan(
		&l.ID,
		&l.UserID,
		&l.ProductID,
		&l.Quantity,
		&l.CreatedAt,
		&l.Product.ID,
		&l.Product.Name,
		&l.Product.Description,
		&l.Product.Price,
		&l.Product.ImageURL,
		&l.Product.Category,
		&l.Product.Stock,
		&l.Product.IsDigital,
		&l.Product.Featured,
		&l.Product.CreatedAt,
		&l.Product.UpdatedAt,
	)
}

// ListCartLines returns the user's cart lines, oldest first, with their
// products joined in.
func ListCartLines(ctx context.Context, db database.DBTX, userID string) ([]models.CartLine, error) {
	rows, err := db.QueryContext(ctx,
		cartLineQuery+` WHERE ci.user_id = $1 ORDER BY ci.created_at, ci.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		var line models.CartLine
		if err := scanCartLine(rows, &line); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return lines, nil
}

// FindCartLine returns the oldest line for (userID, productID). Duplicate
// lines can exist after concurrent adds; the oldest one absorbs new units.
func FindCartLine(ctx context.Context, db database.DBTX, userID, productID string) (*models.CartLine, error) {
	line := &models.CartLine{}

	err := scanCartLine(db.QueryRowContext(ctx,
		cartLineQuery+` WHERE ci.user_id = $1 AND ci.product_id = $2 ORDER BY ci.created_at, ci.id LIMIT 1`,
		userID, productID), line)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCartLineNotFound
		}
		return nil, fmt.Errorf("find cart line: %w", err)
	}

	return line, nil
}

func InsertCartLine(ctx context.Context, db database.DBTX, userID, productID string, quantity int) (string, error) {
	var id string
	err := db.QueryRowContext(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity, created_at)
		 VALUES ($1, $2, $3, NOW())
		 RETURNING id`,
		userID, productID, quantity).Scan(&id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return "", database.ErrProductNotFound
		}
		return "", fmt.Errorf("insert cart line: %w", err)
	}
	return id, nil
}

// SetCartLineQuantity overwrites the quantity of a line owned by userID.
func SetCartLineQuantity(ctx context.Context, db database.DBTX, userID, lineID string, quantity int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $1 WHERE id = $2 AND user_id = $3`,
		quantity, lineID, userID)
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrCartLineNotFound
	}

	return nil
}

// DeleteCartLine removes a line owned by userID. Deleting a missing line is
// not an error.
func DeleteCartLine(ctx context.Context, db database.DBTX, userID, lineID string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, lineID, userID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}

func ClearCart(ctx context.Context, db database.DBTX, userID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
