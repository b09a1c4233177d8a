package httpapi

import (
	"errors"
	"net/http"

	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

type accountView struct {
	User    *auth.Session   `json:"user"`
	Profile *models.Profile `json:"profile"`
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, _ := auth.FromContext(ctx)

	profile, err := s.backend.GetProfile(ctx, session.UserID)
	if err != nil {
		if !errors.Is(err, database.ErrProfileNotFound) {
			s.logger.WithError(err).WithField("user_id", session.UserID).Warn("get profile")
		}
		profile = nil
	}

	s.respondJSON(w, http.StatusOK, accountView{User: session, Profile: profile})
}

type updateProfileRequest struct {
	FullName string `json:"fullName" validate:"required,max=200"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, _ := auth.FromContext(ctx)

	var req updateProfileRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := s.backend.UpsertProfile(ctx, session.UserID, session.Email, req.FullName)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", session.UserID).Error("update profile")
		s.respondError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	s.respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleAccountOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	limit := queryInt(r, "limit", 10)
	if limit < 1 || limit > 50 {
		limit = 10
	}

	page, err := s.backend.ListOrders(ctx, userID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCursor) {
			s.respondError(w, http.StatusBadRequest, "Invalid cursor")
			return
		}
		s.logger.WithError(err).WithField("user_id", userID).Error("list orders")
		s.respondError(w, http.StatusInternalServerError, "Failed to load orders")
		return
	}

	s.respondJSON(w, http.StatusOK, page)
}
