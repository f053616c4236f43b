package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mylaundry/internal/models"
	"mylaundry/internal/order"

	"github.com/google/uuid"
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	CurrentToken() (string, error)
}

// Error is a rejection from the remote API. Message carries the
// server's own message when it sent one.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Client talks to the laundry API. All endpoints share one base URL.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenSource
}

// NewClient creates a Client. Every request is bounded by the given
// timeout so an unreachable server fails rather than hangs.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// envelope is the response wrapper every endpoint uses: data on
// success, message on rejection.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	if authed {
		token, err := c.tokens.CurrentToken()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		// On an error status a malformed body just means no server
		// message; the fallback below covers it.
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil {
		if len(env.Data) == 0 {
			return errors.New("response missing data")
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var data struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &data, false); err != nil {
		return "", err
	}
	if data.Token == "" {
		return "", errors.New("login response missing token")
	}
	return data.Token, nil
}

// Register creates a new staff account.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	body := map[string]string{"username": username, "email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/api/auth/register", body, nil, false)
}

// ListPrices fetches the current service packages.
func (c *Client) ListPrices(ctx context.Context) ([]models.Package, error) {
	var pkgs []models.Package
	if err := c.do(ctx, http.MethodGet, "/api/prices", nil, &pkgs, true); err != nil {
		return nil, err
	}
	return pkgs, nil
}

// CreatePrice adds a new service package.
func (c *Client) CreatePrice(ctx context.Context, name string, price float64) (*models.Package, error) {
	body := map[string]any{"packageName": name, "price": price}
	var pkg models.Package
	if err := c.do(ctx, http.MethodPost, "/api/prices", body, &pkg, true); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// UpdatePrice changes the name and unit price of an existing package.
func (c *Client) UpdatePrice(ctx context.Context, id, name string, price float64) (*models.Package, error) {
	body := map[string]any{"packageName": name, "price": price}
	var pkg models.Package
	if err := c.do(ctx, http.MethodPut, "/api/prices/"+id, body, &pkg, true); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// DeletePrice removes a service package.
func (c *Client) DeletePrice(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/prices/"+id, nil, nil, true)
}

// Profile fetches the account behind the current session.
func (c *Client) Profile(ctx context.Context) (*models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, http.MethodGet, "/api/profile", nil, &p, true); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateOrder submits a validated order payload and returns the order
// the server persisted.
func (c *Client) CreateOrder(ctx context.Context, payload order.Payload) (*models.Order, error) {
	var o models.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", payload, &o, true); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrders fetches all submitted orders.
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &orders, true); err != nil {
		return nil, err
	}
	return orders, nil
}
