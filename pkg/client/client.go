package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/tableside/pkg/log"
	"github.com/cuemby/tableside/pkg/metrics"
	"github.com/cuemby/tableside/pkg/types"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is used when no base URL is configured
	DefaultBaseURL = "http://localhost:8000/api"

	// DefaultTimeout bounds every upstream request
	DefaultTimeout = 10 * time.Second
)

// Endpoint paths
const (
	pathServing    = "/dat-ban-an/serving"
	pathOrderItems = "/dat-ban-an/order-items"
	pathCategories = "/menu-categories"
	pathMenus      = "/menus"
)

// APIError is a non-2xx response from the upstream API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Message)
}

// Config holds client settings
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the restaurant back-office API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a client; zero config values fall back to the defaults
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    httpClient,
		logger:  log.WithComponent("client"),
	}
}

// OrderItem is one dish line sent to the order-items endpoint
type OrderItem struct {
	ID       int         `json:"id"`
	Quantity int         `json:"quantity"`
	Price    types.Price `json:"price"`
}

type orderItemsRequest struct {
	ReservationID string      `json:"reservation_id"`
	Menus         []OrderItem `json:"menus"`
}

// Response is the generic success envelope of write endpoints
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type categoriesResponse struct {
	Success bool             `json:"success"`
	Data    []types.Category `json:"data"`
}

type menusResponse struct {
	Success bool         `json:"success"`
	Data    []types.Dish `json:"data"`
}

// GetServingReservations fetches the in-progress reservations with their tables and menu lines
func (c *Client) GetServingReservations(ctx context.Context) (*types.Envelope, error) {
	var envelope types.Envelope
	if err := c.do(ctx, http.MethodGet, pathServing, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

// AddOrderItems submits dishes for a reservation
func (c *Client) AddOrderItems(ctx context.Context, reservationID string, menus []OrderItem) (*Response, error) {
	var resp Response
	req := orderItemsRequest{ReservationID: reservationID, Menus: menus}
	if err := c.do(ctx, http.MethodPost, pathOrderItems, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCategories lists menu categories
func (c *Client) GetCategories(ctx context.Context) ([]types.Category, error) {
	var resp categoriesResponse
	if err := c.do(ctx, http.MethodGet, pathCategories, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetMenus lists dishes, optionally restricted to one category
func (c *Client) GetMenus(ctx context.Context, categoryID int) ([]types.Dish, error) {
	path := pathMenus
	if categoryID > 0 {
		path += "?" + url.Values{"category_id": {strconv.Itoa(categoryID)}}.Encode()
	}

	var resp menusResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	endpoint := strings.SplitN(path, "?", 2)[0]
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, endpoint)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.APIRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
			apiErr.Message = payload.Message
		}
		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("upstream request failed")
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
