package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"travelbook/internal/models"
	"travelbook/internal/service"
	"travelbook/internal/validation"

	"github.com/redis/go-redis/v9"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("travelbook api: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client calls the travelbook REST API. After Login the session token is
// sent with every request.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string

	redis    *redis.Client
	cacheTTL time.Duration
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache enables caching of catalog reads.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Register validates the form locally and only then calls the server.
// It returns the server message.
func (c *Client) Register(ctx context.Context, form validation.Registration) (string, error) {
	if err := form.Validate(); err != nil {
		return "", err
	}
	var resp struct {
		Msg string `json:"msg"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/users/register", form, &resp); err != nil {
		return "", err
	}
	return resp.Msg, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*service.LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	var res service.LoginResult
	if err := c.doJSON(ctx, http.MethodPost, "/users/login", body, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodPost, "/users/logout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Places lists a category ("all" for every place).
func (c *Client) Places(ctx context.Context, category string) ([]models.Place, error) {
	cacheKey := "places:" + strings.ToLower(category)
	var places []models.Place
	if c.readCache(ctx, cacheKey, &places) {
		return places, nil
	}

	if err := c.doJSON(ctx, http.MethodGet, "/places/places/"+url.PathEscape(category), nil, &places); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, places)
	return places, nil
}

func (c *Client) Place(ctx context.Context, id string) (*models.Place, error) {
	var place models.Place
	if err := c.doJSON(ctx, http.MethodGet, "/places/placedetails/"+url.PathEscape(id), nil, &place); err != nil {
		return nil, err
	}
	return &place, nil
}

func (c *Client) Cart(ctx context.Context) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := c.doJSON(ctx, http.MethodGet, "/cart", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) AddToCart(ctx context.Context, item models.CartItem) (*models.CartItem, error) {
	var added models.CartItem
	if err := c.doJSON(ctx, http.MethodPost, "/cart/items", item, &added); err != nil {
		return nil, err
	}
	return &added, nil
}

// RemoveFromCart returns the items left in the cart.
func (c *Client) RemoveFromCart(ctx context.Context, key string) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := c.doJSON(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(key), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CheckoutResult is the payment confirmation.
type CheckoutResult struct {
	Success string         `json:"success"`
	Booking models.Booking `json:"booking"`
	Payment models.Payment `json:"payment"`
}

func (c *Client) Checkout(ctx context.Context, placeID string, req service.CheckoutRequest) (*CheckoutResult, error) {
	var res CheckoutResult
	if err := c.doJSON(ctx, http.MethodPost, "/payment/post/"+url.PathEscape(placeID), req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) MyBookings(ctx context.Context, username string) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := c.doJSON(ctx, http.MethodGet, "/payment/mybookings/"+url.PathEscape(username), nil, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
