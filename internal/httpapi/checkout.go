package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

// handleCreateCheckoutSession answers every request with the placeholder
// redirect. The body ({items, userId}) is read and discarded.
func (s *Server) handleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	io.Copy(io.Discard, io.LimitReader(r.Body, maxBodyBytes))
	s.respondJSON(w, http.StatusOK, s.payments.CreateCheckoutSession())
}

type checkoutSuccessRequest struct {
	SessionID string `json:"sessionId"`
}

// handleCheckoutSuccess empties the cart after the payment redirect, but
// only when the redirect carried a session id.
func (s *Server) handleCheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	var req checkoutSuccessRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := s.loadCart(r)
	if req.SessionID != "" {
		c.Clear(r.Context())
	}
	s.respondJSON(w, http.StatusOK, newCartView(c))
}

type shippingAddressRequest struct {
	FullName string `json:"fullName" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Address  string `json:"address" validate:"required,max=500"`
	City     string `json:"city" validate:"required,max=200"`
	State    string `json:"state" validate:"required,max=200"`
	ZipCode  string `json:"zipCode" validate:"required,max=20"`
	Phone    string `json:"phone" validate:"omitempty,max=40"`
}

type placeOrderRequest struct {
	ShippingAddress  shippingAddressRequest `json:"shippingAddress"`
	PaymentReference string                 `json:"paymentReference" validate:"max=200"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	var req placeOrderRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	a := req.ShippingAddress
	order, err := s.backend.PlaceOrder(ctx, store.PlaceOrderRequest{
		UserID: userID,
		ShippingAddress: models.ShippingAddress{
			FullName: a.FullName,
			Email:    a.Email,
			Address:  a.Address,
			City:     a.City,
			State:    a.State,
			ZipCode:  a.ZipCode,
			Phone:    a.Phone,
		},
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrEmptyCart):
			s.respondError(w, http.StatusConflict, "Cart is empty")
		case errors.Is(err, database.ErrInsufficientStock):
			s.respondError(w, http.StatusConflict, "Not enough stock")
		case errors.Is(err, database.ErrProductNotFound):
			s.respondError(w, http.StatusNotFound, "Product not found")
		case database.IsRetryable(err):
			s.logger.WithError(err).WithField("user_id", userID).Warn("place order: contention")
			s.respondError(w, http.StatusServiceUnavailable, "Store is busy, please retry")
		default:
			s.logger.WithError(err).WithField("user_id", userID).Error("place order")
			s.respondError(w, http.StatusInternalServerError, "Failed to place order")
		}
		return
	}

	log := s.logger.WithFields(logrus.Fields{"user_id": userID, "order_id": order.ID})
	if err := s.events.PublishOrderPlaced(ctx, order, middleware.GetReqID(ctx)); err != nil {
		log.WithError(err).Error("publish order placed")
	}
	log.WithField("total", order.TotalAmount.StringFixed(2)).Info("order placed")

	s.respondJSON(w, http.StatusCreated, order)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "orderID")
	if !validID(id) {
		s.respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := s.backend.GetOrderForUser(ctx, auth.UserID(ctx), id)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			s.respondError(w, http.StatusNotFound, "Order not found")
			return
		}
		s.logger.WithError(err).WithField("order_id", id).Error("get order")
		s.respondError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}

	s.respondJSON(w, http.StatusOK, order)
}
