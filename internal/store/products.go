package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

const (
	FeaturedLimit = 6
	RelatedLimit  = 4
)

// Price bands accepted by ProductFilter.PriceBand.
const (
	PriceBandAll     = "all"
	PriceBandUnder25 = "under25"
	PriceBand25To50  = "25to50"
	PriceBandOver50  = "over50"
)

type ProductFilter struct {
	Query     string
	Category  string
	PriceBand string
}

type NewProduct struct {
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	Category    string
	Stock       int
	IsDigital   bool
	Featured    bool
}

const productColumns = `id, name, description, price, image_url, category, stock, is_digital, featured, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, p *models.Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.ImageURL,
		&p.Category,
		&p.Stock,
		&p.IsDigital,
		&p.Featured,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func CreateProduct(ctx context.Context, db database.DBTX, np NewProduct) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (name, description, price, image_url, category, stock, is_digital, featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING ` + productColumns

	row := db.QueryRowContext(ctx, query,
		np.Name, np.Description, np.Price, np.ImageURL, np.Category, np.Stock, np.IsDigital, np.Featured)
	if err := scanProduct(row, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db database.DBTX, id string) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	if err := scanProduct(db.QueryRowContext(ctx, query, id), product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// LockProduct takes a row lock on the product without waiting. A held lock
// surfaces as ErrLockTimeout, which WithRetry treats as transient.
func LockProduct(ctx context.Context, tx *sql.Tx, id string) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE NOWAIT`

	if err := scanProduct(tx.QueryRowContext(ctx, query, id), product); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "55P03" {
			return nil, database.ErrLockTimeout
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product (nowait): %w", err)
	}

	return product, nil
}

func DecrementStock(ctx context.Context, tx *sql.Tx, productID string, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

// buildProductWhere turns a filter into a WHERE clause and its positional args.
func buildProductWhere(f ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", n, n))
	}

	if c := strings.TrimSpace(f.Category); c != "" && c != "all" {
		args = append(args, c)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	switch f.PriceBand {
	case PriceBandUnder25:
		conds = append(conds, "price < 25")
	case PriceBand25To50:
		conds = append(conds, "price >= 25 AND price <= 50")
	case PriceBandOver50:
		conds = append(conds, "price > 50")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ValidPriceBand reports whether band is one of the accepted price bands.
// The empty string counts as "all".
func ValidPriceBand(band string) bool {
	switch band {
	case "", PriceBandAll, PriceBandUnder25, PriceBand25To50, PriceBandOver50:
		return true
	}
	return false
}

func ListProducts(ctx context.Context, db database.DBTX, filter ProductFilter, page, pageSize int) (*OffsetPage, error) {
	where, args := buildProductWhere(filter)

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	n := len(args)
	query := `SELECT ` + productColumns + ` FROM products` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, n+1, n+2)

	products, err := queryProducts(ctx, db, query, append(args, pageSize, offset)...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return newOffsetPage(products, total, page, pageSize), nil
}

func ListFeaturedProducts(ctx context.Context, db database.DBTX, limit int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE featured = TRUE
		ORDER BY created_at DESC
		LIMIT $1`

	products, err := queryProducts(ctx, db, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}
	return products, nil
}

// ListRelatedProducts returns other products from the same category.
func ListRelatedProducts(ctx context.Context, db database.DBTX, category, excludeID string, limit int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE category = $1 AND id <> $2
		ORDER BY created_at DESC
		LIMIT $3`

	products, err := queryProducts(ctx, db, query, category, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list related products: %w", err)
	}
	return products, nil
}

func ListCategories(ctx context.Context, db database.DBTX) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

func queryProducts(ctx context.Context, db database.DBTX, query string, args ...any) ([]models.Product, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}
