package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/pricing"
)

type cartView struct {
	Items     []models.CartLine `json:"items"`
	ItemCount int               `json:"item_count"`
	Summary   pricing.View      `json:"summary"`
}

func newCartView(c *cart.Cart) cartView {
	return cartView{
		Items:     c.Lines(),
		ItemCount: c.ItemCount(),
		Summary:   c.Summary().View(),
	}
}

// loadCart builds the request's cart from its session. Anonymous requests
// get an inert, empty cart.
func (s *Server) loadCart(r *http.Request) *cart.Cart {
	return cart.Load(r.Context(), s.backend, s.logger, auth.UserID(r.Context()))
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, newCartView(s.loadCart(r)))
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addCartItemRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	product, err := s.backend.GetProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			s.respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		s.logger.WithError(err).WithField("product_id", req.ProductID).Error("get product for cart")
		s.respondError(w, http.StatusInternalServerError, "Failed to load product")
		return
	}

	if !product.IsDigital {
		userID := auth.UserID(ctx)
		wanted := req.Quantity
		line, err := s.backend.FindLine(ctx, userID, product.ID)
		switch {
		case err == nil:
			wanted += line.Quantity
		case !errors.Is(err, database.ErrCartLineNotFound):
			s.logger.WithError(err).WithFields(logrus.Fields{
				"user_id": userID, "product_id": product.ID,
			}).Error("find cart line for stock check")
			s.respondError(w, http.StatusInternalServerError, "Failed to load cart")
			return
		}
		if !product.InStock(wanted) {
			s.respondError(w, http.StatusConflict, "Not enough stock")
			return
		}
	}

	c := s.loadCart(r)
	c.AddItem(ctx, product.ID, req.Quantity)
	s.respondJSON(w, http.StatusOK, newCartView(c))
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// handleUpdateCartItem enforces the stock ceiling on increases only;
// lowering a quantity is always allowed.
func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lineID := chi.URLParam(r, "lineID")
	if !validID(lineID) {
		s.respondError(w, http.StatusBadRequest, "Invalid cart item ID")
		return
	}

	var req updateCartItemRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	quantity := *req.Quantity

	c := s.loadCart(r)
	if line, ok := c.Line(lineID); ok && quantity > line.Quantity && line.ExceedsStock(quantity) {
		s.respondError(w, http.StatusConflict, "Not enough stock")
		return
	}

	c.UpdateQuantity(ctx, lineID, quantity)
	s.respondJSON(w, http.StatusOK, newCartView(c))
}

func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "lineID")
	if !validID(lineID) {
		s.respondError(w, http.StatusBadRequest, "Invalid cart item ID")
		return
	}

	c := s.loadCart(r)
	c.RemoveItem(r.Context(), lineID)
	s.respondJSON(w, http.StatusOK, newCartView(c))
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	c := s.loadCart(r)
	c.Clear(r.Context())
	s.respondJSON(w, http.StatusOK, newCartView(c))
}
