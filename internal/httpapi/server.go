package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/events"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/payment"
	"github.com/safar/go-storefront/internal/store"
)

// Backend is everything the handlers read from or write to the data store.
// *store.Store implements it.
type Backend interface {
	cart.Store

	Ping(ctx context.Context) error

	ListProducts(ctx context.Context, filter store.ProductFilter, page, pageSize int) (*store.OffsetPage, error)
	ListFeaturedProducts(ctx context.Context) ([]models.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListRelatedProducts(ctx context.Context, p *models.Product) ([]models.Product, error)

	ListReviews(ctx context.Context, productID string) ([]models.Review, error)
	CreateReview(ctx context.Context, productID, userID string, rating int, comment string) (*models.Review, error)

	PlaceOrder(ctx context.Context, req store.PlaceOrderRequest) (*models.Order, error)
	GetOrderForUser(ctx context.Context, userID, id string) (*models.Order, error)
	ListOrders(ctx context.Context, userID, cursor string, limit int) (*store.CursorPage, error)

	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, id, email, fullName string) (*models.Profile, error)
}

type Deps struct {
	Backend        Backend
	Auth           *auth.Middleware
	Payments       *payment.Placeholder
	Events         events.Publisher
	Logger         logrus.FieldLogger
	AllowedOrigins []string
}

type Server struct {
	backend  Backend
	auth     *auth.Middleware
	payments *payment.Placeholder
	events   events.Publisher
	logger   logrus.FieldLogger
	validate *validator.Validate
	router   chi.Router
}

func NewServer(d Deps) *Server {
	if d.Events == nil {
		d.Events = events.Nop{}
	}

	s := &Server{
		backend:  d.Backend,
		auth:     d.Auth,
		payments: d.Payments,
		events:   d.Events,
		logger:   d.Logger,
		validate: newValidator(),
	}
	s.router = s.routes(d.AllowedOrigins)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(allowedOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.handleListProducts)
			r.Get("/featured", s.handleFeaturedProducts)
			r.Get("/categories", s.handleCategories)
			r.Get("/{productID}", s.handleProductDetail)
			r.Get("/{productID}/reviews", s.handleListReviews)
			r.With(s.auth.Require).Post("/{productID}/reviews", s.handleCreateReview)
		})

		r.Route("/cart", func(r chi.Router) {
			r.With(s.auth.Optional).Get("/", s.handleGetCart)
			r.Group(func(r chi.Router) {
				r.Use(s.auth.Require)
				r.Post("/items", s.handleAddCartItem)
				r.Patch("/items/{lineID}", s.handleUpdateCartItem)
				r.Delete("/items/{lineID}", s.handleRemoveCartItem)
				r.Delete("/", s.handleClearCart)
			})
		})

		r.Post("/create-checkout-session", s.handleCreateCheckoutSession)
		r.With(s.auth.Require).Post("/checkout/success", s.handleCheckoutSuccess)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Require)
			r.Post("/orders", s.handlePlaceOrder)
			r.Get("/orders/{orderID}", s.handleGetOrder)
			r.Get("/account", s.handleAccount)
			r.Put("/account/profile", s.handleUpdateProfile)
			r.Get("/account/orders", s.handleAccountOrders)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.backend.Ping(ctx); err != nil {
		s.logger.WithError(err).Warn("health check: database unreachable")
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
