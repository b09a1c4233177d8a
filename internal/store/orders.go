package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/lib/pq"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/pricing"
)

type PlaceOrderRequest struct {
	UserID           string
	ShippingAddress  models.ShippingAddress
	PaymentReference string
}

// PlaceOrder turns the user's cart into an order in one serializable
// transaction. Products are locked, physical stock is checked and
// decremented, unit prices are captured on the order lines and the cart is
// emptied. The order total is the pricing total rounded to cents.
func PlaceOrder(ctx context.Context, db database.TxBeginner, req PlaceOrderRequest) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		lines, err := ListCartLines(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return database.ErrEmptyCart
		}

		quantities, productIDs := mergeCartLines(lines)

		locked := make(map[string]*models.Product, len(productIDs))
		for _, id := range productIDs {
			product, err := LockProduct(ctx, tx, id)
			if err != nil {
				return err
			}
			if !product.InStock(quantities[id]) {
				return fmt.Errorf("product %s: %w", id, database.ErrInsufficientStock)
			}
			locked[id] = product
		}

		priced := make([]models.CartLine, 0, len(productIDs))
		for _, id := range productIDs {
			priced = append(priced, models.CartLine{
				ProductID: id,
				Quantity:  quantities[id],
				Product:   *locked[id],
			})
		}
		total := pricing.Summarize(priced).Total.Round(2)

		address, err := json.Marshal(req.ShippingAddress)
		if err != nil {
			return fmt.Errorf("encode shipping address: %w", err)
		}

		var orderID string
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, status, total_amount, shipping_address, payment_reference, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			 RETURNING id`,
			req.UserID, models.OrderStatusPending, total, string(address), req.PaymentReference).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, line := range priced {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, price, created_at)
				 VALUES ($1, $2, $3, $4, NOW())`,
				orderID, line.ProductID, line.Quantity, line.Product.Price)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
		}

		for _, line := range priced {
			if line.Product.IsDigital {
				continue
			}
			if err := DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		if err := ClearCart(ctx, tx, req.UserID); err != nil {
			return err
		}

		order, err = GetOrder(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("fetch created order: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

// mergeCartLines sums quantities per product and returns the product ids in
// a stable order so concurrent placements lock rows in the same sequence.
func mergeCartLines(lines []models.CartLine) (map[string]int, []string) {
	quantities := make(map[string]int, len(lines))
	for _, line := range lines {
		quantities[line.ProductID] += line.Quantity
	}

	ids := make([]string, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return quantities, ids
}

const orderColumns = `id, user_id, status, total_amount, shipping_address, payment_reference, created_at, updated_at`

func scanOrder(row rowScanner, o *models.Order) error {
	var address []byte
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.TotalAmount,
		&address,
		&o.PaymentReference,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if len(address) > 0 {
		if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
			return fmt.Errorf("decode shipping address: %w", err)
		}
	}
	return nil
}

func GetOrder(ctx context.Context, db database.DBTX, id string) (*models.Order, error) {
	order := &models.Order{}

	err := scanOrder(db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := listOrderItems(ctx, db, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return order, nil
}

// GetOrderForUser is GetOrder restricted to orders owned by userID. Someone
// else's order is reported as not found.
func GetOrderForUser(ctx context.Context, db database.DBTX, userID, id string) (*models.Order, error) {
	order, err := GetOrder(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, database.ErrOrderNotFound
	}
	return order, nil
}

// listOrderItems loads the lines of several orders in one query, keyed by
// order id.
func listOrderItems(ctx context.Context, db database.DBTX, orderIDs []string) (map[string][]models.OrderItem, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, oi.created_at,
		       p.id, p.name, p.description, p.price, p.image_url, p.category,
		       p.stock, p.is_digital, p.featured, p.created_at, p.updated_at
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.created_at, oi.id`

	rows, err := db.QueryContext(ctx, query, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]models.OrderItem, len(orderIDs))
	for rows.Next() {
		var item models.OrderItem
		product := &models.Product{}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.CreatedAt,
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.ImageURL,
			&product.Category,
			&product.Stock,
			&product.IsDigital,
			&product.Featured,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.Product = product
		items[item.OrderID] = append(items[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// ListOrdersCursor pages through a user's orders newest first using a
// (created_at, id) keyset cursor.
func ListOrdersCursor(ctx context.Context, db database.DBTX, userID string, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	if len(orders) > 0 {
		ids := make([]string, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		items, err := listOrderItems(ctx, db, ids)
		if err != nil {
			return nil, err
		}
		for i := range orders {
			orders[i].Items = items[orders[i].ID]
		}
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
