package httpapi

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/pricing"
	"github.com/safar/go-storefront/internal/store"
)

var errBackendDown = errors.New("backend down")

// fakeBackend keeps every table in memory.
type fakeBackend struct {
	mu sync.Mutex

	products map[string]models.Product
	lines    []models.CartLine
	orders   []models.Order
	reviews  []models.Review
	profiles map[string]models.Profile

	pingErr      error
	failWrites   bool
	failReviews  bool
	failList     bool
	failFind     bool
	placeOrderFn func(req store.PlaceOrderRequest) error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		products: map[string]models.Product{},
		profiles: map[string]models.Profile{},
	}
}

func (f *fakeBackend) addProduct(name, category, price string, stock int, digital bool) models.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := models.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  category,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		IsDigital: digital,
		CreatedAt: time.Now(),
	}
	f.products[p.ID] = p
	return p
}

func (f *fakeBackend) Ping(context.Context) error { return f.pingErr }

func (f *fakeBackend) ListProducts(_ context.Context, filter store.ProductFilter, page, pageSize int) (*store.OffsetPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := []models.Product{}
	for _, p := range f.products {
		if filter.Category != "" && filter.Category != "all" && p.Category != filter.Category {
			continue
		}
		items = append(items, p)
	}
	return &store.OffsetPage{Items: items, Total: int64(len(items)), Page: page, PageSize: pageSize, TotalPages: 1}, nil
}

func (f *fakeBackend) ListFeaturedProducts(context.Context) ([]models.Product, error) {
	return []models.Product{}, nil
}

func (f *fakeBackend) ListCategories(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, p := range f.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeBackend) GetProduct(_ context.Context, id string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	return &p, nil
}

func (f *fakeBackend) ListRelatedProducts(_ context.Context, product *models.Product) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Product{}
	for _, p := range f.products {
		if p.Category == product.Category && p.ID != product.ID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeBackend) ListReviews(_ context.Context, productID string) ([]models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReviews {
		return nil, errBackendDown
	}
	out := []models.Review{}
	for i := len(f.reviews) - 1; i >= 0; i-- {
		if f.reviews[i].ProductID == productID {
			out = append(out, f.reviews[i])
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateReview(_ context.Context, productID, userID string, rating int, comment string) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return nil, errBackendDown
	}
	if _, ok := f.products[productID]; !ok {
		return nil, database.ErrProductNotFound
	}
	r := models.Review{
		ID: uuid.NewString(), ProductID: productID, UserID: userID,
		Rating: rating, Comment: comment, CreatedAt: time.Now(),
	}
	f.reviews = append(f.reviews, r)
	return &r, nil
}

func (f *fakeBackend) ListLines(_ context.Context, userID string) ([]models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, errBackendDown
	}
	out := []models.CartLine{}
	for _, l := range f.lines {
		if l.UserID == userID {
			l.Product = f.products[l.ProductID]
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeBackend) FindLine(_ context.Context, userID, productID string) (*models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFind {
		return nil, errBackendDown
	}
	for _, l := range f.lines {
		if l.UserID == userID && l.ProductID == productID {
			found := l
			return &found, nil
		}
	}
	return nil, database.ErrCartLineNotFound
}

func (f *fakeBackend) InsertLine(_ context.Context, userID, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errBackendDown
	}
	f.lines = append(f.lines, models.CartLine{
		ID: uuid.NewString(), UserID: userID, ProductID: productID, Quantity: quantity, CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeBackend) SetQuantity(_ context.Context, userID, lineID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errBackendDown
	}
	for i := range f.lines {
		if f.lines[i].ID == lineID && f.lines[i].UserID == userID {
			f.lines[i].Quantity = quantity
			return nil
		}
	}
	return database.ErrCartLineNotFound
}

func (f *fakeBackend) DeleteLine(_ context.Context, userID, lineID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errBackendDown
	}
	f.removeLines(func(l models.CartLine) bool { return l.ID == lineID && l.UserID == userID })
	return nil
}

func (f *fakeBackend) DeleteAllLines(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errBackendDown
	}
	f.removeLines(func(l models.CartLine) bool { return l.UserID == userID })
	return nil
}

func (f *fakeBackend) removeLines(match func(models.CartLine) bool) {
	kept := f.lines[:0]
	for _, l := range f.lines {
		if !match(l) {
			kept = append(kept, l)
		}
	}
	f.lines = kept
}

func (f *fakeBackend) PlaceOrder(ctx context.Context, req store.PlaceOrderRequest) (*models.Order, error) {
	if f.placeOrderFn != nil {
		if err := f.placeOrderFn(req); err != nil {
			return nil, err
		}
	}

	lines, _ := f.ListLines(ctx, req.UserID)
	if len(lines) == 0 {
		return nil, database.ErrEmptyCart
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, l := range lines {
		if !l.Product.InStock(l.Quantity) {
			return nil, database.ErrInsufficientStock
		}
	}

	order := models.Order{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		Status:           models.OrderStatusPending,
		TotalAmount:      pricing.Summarize(lines).Total.Round(2),
		ShippingAddress:  req.ShippingAddress,
		PaymentReference: req.PaymentReference,
		CreatedAt:        time.Now(),
	}
	for _, l := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ID: uuid.NewString(), OrderID: order.ID, ProductID: l.ProductID,
			Quantity: l.Quantity, Price: l.Product.Price,
		})
		if !l.Product.IsDigital {
			p := f.products[l.ProductID]
			p.Stock -= l.Quantity
			f.products[l.ProductID] = p
		}
	}
	f.orders = append(f.orders, order)
	f.removeLines(func(l models.CartLine) bool { return l.UserID == req.UserID })

	return &order, nil
}

func (f *fakeBackend) GetOrderForUser(_ context.Context, userID, id string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id && o.UserID == userID {
			found := o
			return &found, nil
		}
	}
	return nil, database.ErrOrderNotFound
}

func (f *fakeBackend) ListOrders(_ context.Context, userID, cursor string, limit int) (*store.CursorPage, error) {
	if _, err := store.DecodeCursor(cursor); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for i := len(f.orders) - 1; i >= 0 && len(out) < limit; i-- {
		if f.orders[i].UserID == userID {
			out = append(out, f.orders[i])
		}
	}
	return &store.CursorPage{Items: out}, nil
}

func (f *fakeBackend) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, database.ErrProfileNotFound
	}
	return &p, nil
}

func (f *fakeBackend) UpsertProfile(_ context.Context, id, email, fullName string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return nil, errBackendDown
	}
	p := models.Profile{ID: id, Email: email, FullName: fullName, UpdatedAt: time.Now()}
	f.profiles[id] = p
	return &p, nil
}

// recordingPublisher captures published orders.
type recordingPublisher struct {
	mu     sync.Mutex
	orders []string
	err    error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, order *models.Order, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, order.ID)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }
