package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

type providerUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// RemoteVerifier asks the provider's user endpoint who owns a token.
type RemoteVerifier struct {
	client *resty.Client
}

func NewRemoteVerifier(storeURL, anonKey string, timeout time.Duration) *RemoteVerifier {
	client := resty.New().
		SetBaseURL(storeURL).
		SetTimeout(timeout).
		SetHeader("apikey", anonKey).
		SetHeader("Accept", "application/json")

	return &RemoteVerifier{client: client}
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*Session, error) {
	var user providerUser
	resp, err := v.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&user).
		Get("/auth/v1/user")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized, resp.StatusCode() == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.IsError():
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode())
	}

	if user.ID == "" {
		return nil, ErrInvalidToken
	}

	return &Session{UserID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}, nil
}
