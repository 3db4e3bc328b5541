// Package userdir is the client of the external user directory used for
// identity verification. The engine never decides authorization itself; it
// exposes the directory data handlers need to decide.
package userdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/roda-fin/credit-service/internal/config"
)

// ErrUserNotFound is returned when the directory has no such user.
var ErrUserNotFound = errors.New("user not found")

// User is the directory's view of an account holder
type User struct {
	ID      uuid.UUID `json:"id"`
	Email   string    `json:"email"`
	Role    string    `json:"role"`
	IsAdmin bool      `json:"is_admin"`
}

// IsPrivileged reports whether the user may act on credits they do not own.
func (u *User) IsPrivileged() bool {
	return u.IsAdmin || u.Role == "admin"
}

// Client handles integration with the user directory service
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     *logrus.Logger
}

// NewClient initializes a new user directory client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		baseURL: cfg.UserServiceURL,
		token:   cfg.ServiceToken,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// GetUser fetches a user's directory record by id
func (c *Client) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	url := fmt.Sprintf("%s/api/v1/users/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user directory request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrUserNotFound
	default:
		return nil, fmt.Errorf("user directory returned status %d", resp.StatusCode)
	}

	// The directory wraps the record in a data envelope.
	var envelope struct {
		Data User `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode user directory response: %w", err)
	}
	return &envelope.Data, nil
}

// Exists reports whether the directory knows the user
func (c *Client) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	_, err := c.GetUser(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
