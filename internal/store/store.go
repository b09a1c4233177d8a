package store

import (
	"context"
	"database/sql"

	"github.com/safar/go-storefront/internal/models"
)

// Store binds the query functions to a connection pool.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ListProducts(ctx context.Context, filter ProductFilter, page, pageSize int) (*OffsetPage, error) {
	return ListProducts(ctx, s.db, filter, page, pageSize)
}

func (s *Store) ListFeaturedProducts(ctx context.Context) ([]models.Product, error) {
	return ListFeaturedProducts(ctx, s.db, FeaturedLimit)
}

func (s *Store) ListRelatedProducts(ctx context.Context, p *models.Product) ([]models.Product, error) {
	return ListRelatedProducts(ctx, s.db, p.Category, p.ID, RelatedLimit)
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	return ListCategories(ctx, s.db)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return GetProduct(ctx, s.db, id)
}

// Cart line access, in the shape the cart package expects.

func (s *Store) ListLines(ctx context.Context, userID string) ([]models.CartLine, error) {
	return ListCartLines(ctx, s.db, userID)
}

func (s *Store) FindLine(ctx context.Context, userID, productID string) (*models.CartLine, error) {
	return FindCartLine(ctx, s.db, userID, productID)
}

func (s *Store) InsertLine(ctx context.Context, userID, productID string, quantity int) error {
	_, err := InsertCartLine(ctx, s.db, userID, productID, quantity)
	return err
}

func (s *Store) SetQuantity(ctx context.Context, userID, lineID string, quantity int) error {
	return SetCartLineQuantity(ctx, s.db, userID, lineID, quantity)
}

func (s *Store) DeleteLine(ctx context.Context, userID, lineID string) error {
	return DeleteCartLine(ctx, s.db, userID, lineID)
}

func (s *Store) DeleteAllLines(ctx context.Context, userID string) error {
	return ClearCart(ctx, s.db, userID)
}

func (s *Store) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	return PlaceOrder(ctx, s.db, req)
}

func (s *Store) GetOrderForUser(ctx context.Context, userID, id string) (*models.Order, error) {
	return GetOrderForUser(ctx, s.db, userID, id)
}

func (s *Store) ListOrders(ctx context.Context, userID, cursor string, limit int) (*CursorPage, error) {
	return ListOrdersCursor(ctx, s.db, userID, cursor, limit)
}

func (s *Store) ListReviews(ctx context.Context, productID string) ([]models.Review, error) {
	return ListReviews(ctx, s.db, productID)
}

func (s *Store) CreateReview(ctx context.Context, productID, userID string, rating int, comment string) (*models.Review, error) {
	return CreateReview(ctx, s.db, productID, userID, rating, comment)
}

func (s *Store) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	return GetProfile(ctx, s.db, id)
}

func (s *Store) UpsertProfile(ctx context.Context, id, email, fullName string) (*models.Profile, error) {
	return UpsertProfile(ctx, s.db, id, email, fullName)
}
