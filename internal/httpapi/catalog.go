package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/review"
	"github.com/safar/go-storefront/internal/store"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.ProductFilter{
		Query:     q.Get("q"),
		Category:  q.Get("category"),
		PriceBand: q.Get("price"),
	}
	if !store.ValidPriceBand(filter.PriceBand) {
		s.respondError(w, http.StatusBadRequest, "Invalid price range")
		return
	}

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := queryInt(r, "page_size", 20)
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	result, err := s.backend.ListProducts(r.Context(), filter, page, pageSize)
	if err != nil {
		s.logger.WithError(err).Error("list products")
		s.respondError(w, http.StatusInternalServerError, "Failed to load products")
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleFeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.backend.ListFeaturedProducts(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("list featured products")
		products = []models.Product{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"items": products})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.backend.ListCategories(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("list categories")
		categories = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"items": categories})
}

type productDetail struct {
	Product *models.Product  `json:"product"`
	Related []models.Product `json:"related"`
	Reviews []models.Review  `json:"reviews"`
	Rating  review.Summary   `json:"rating"`
}

func (s *Server) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "productID")
	if !validID(id) {
		s.respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := s.backend.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			s.respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		s.logger.WithError(err).WithField("product_id", id).Error("get product")
		s.respondError(w, http.StatusInternalServerError, "Failed to load product")
		return
	}

	related, err := s.backend.ListRelatedProducts(ctx, product)
	if err != nil {
		s.logger.WithError(err).WithField("product_id", id).Warn("list related products")
		related = []models.Product{}
	}

	reviews := s.loadReviews(r, id)

	s.respondJSON(w, http.StatusOK, productDetail{
		Product: product,
		Related: related,
		Reviews: reviews,
		Rating:  review.Summarize(reviews),
	})
}

// loadReviews reads a product's reviews; a failed read shows as no reviews.
func (s *Server) loadReviews(r *http.Request, productID string) []models.Review {
	reviews, err := s.backend.ListReviews(r.Context(), productID)
	if err != nil {
		s.logger.WithError(err).WithField("product_id", productID).Warn("list reviews")
		return []models.Review{}
	}
	return reviews
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	if !validID(id) {
		s.respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	reviews := s.loadReviews(r, id)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"reviews": reviews,
		"rating":  review.Summarize(reviews),
	})
}

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment" validate:"max=2000"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "productID")
	if !validID(id) {
		s.respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req createReviewRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := review.ValidateRating(req.Rating); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(ctx)
	created, err := s.backend.CreateReview(ctx, id, userID, req.Rating, req.Comment)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"product_id": id, "user_id": userID,
		}).Error("create review")
		s.respondError(w, http.StatusInternalServerError, "Failed to submit review")
		return
	}

	s.respondJSON(w, http.StatusCreated, created)
}
