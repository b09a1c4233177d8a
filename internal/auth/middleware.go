package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/safar/go-storefront/internal/config"
)

// NewVerifier picks local JWT verification when a secret is configured and
// falls back to the provider's user endpoint.
func NewVerifier(cfg config.AuthConfig) Verifier {
	switch {
	case cfg.JWTSecret != "":
		return NewJWTVerifier(cfg.JWTSecret)
	case cfg.StoreURL != "":
		return NewRemoteVerifier(cfg.StoreURL, cfg.AnonKey, cfg.RequestTimeout)
	default:
		return disabledVerifier{}
	}
}

type Middleware struct {
	verifier Verifier
	logger   logrus.FieldLogger
}

func NewMiddleware(verifier Verifier, logger logrus.FieldLogger) *Middleware {
	return &Middleware{verifier: verifier, logger: logger}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func (m *Middleware) authenticate(r *http.Request) (*Session, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, ErrNoToken
	}
	return m.verifier.Verify(r.Context(), token)
}

// Require rejects requests without a valid session.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.authenticate(r)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, ErrProviderUnavailable) {
				status = http.StatusServiceUnavailable
				m.logger.WithError(err).Error("session verification failed")
			}
			writeError(w, status, "Sign in required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// Optional attaches a session when the request carries a valid token and
// otherwise lets it through anonymously.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.authenticate(r)
		if err != nil {
			if !errors.Is(err, ErrNoToken) {
				m.logger.WithError(err).Debug("ignoring invalid session token")
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
