package shop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	"log/slog"
)

const maxErrorBody = 2048

// Client talks to the Moltin-style v2 commerce API. Every call is bounded by
// the HTTP client timeout; any non-2xx response becomes a *BackendError.
type Client struct {
	baseURL  string
	clientID string
	http     *http.Client
}

// NewClient builds a client for the given API root. timeout bounds every
// request including image downloads.
func NewClient(baseURL, clientID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		http:     &http.Client{Timeout: timeout},
	}
}

// Authenticate performs the implicit-grant token exchange and returns the
// bearer token with its expiry.
func (c *Client) Authenticate(ctx context.Context) (Token, error) {
	form := url.Values{
		"client_id":  {c.clientID},
		"grant_type": {"implicit"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("shop: build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var payload struct {
		AccessToken string `json:"access_token"`
		Expires     int64  `json:"expires"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := c.doJSON(req, &payload); err != nil {
		return Token{}, err
	}
	if payload.AccessToken == "" {
		return Token{}, &BackendError{Status: http.StatusOK, Body: "auth response without access_token"}
	}

	expiry := time.Unix(payload.Expires, 0)
	if payload.Expires == 0 {
		expiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	return Token{Value: payload.AccessToken, Expiry: expiry}, nil
}

type productData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Meta        struct {
		DisplayPrice struct {
			WithTax struct {
				Formatted string `json:"formatted"`
			} `json:"with_tax"`
		} `json:"display_price"`
		Stock struct {
			Level int `json:"level"`
		} `json:"stock"`
	} `json:"meta"`
	Relationships struct {
		MainImage struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"main_image"`
	} `json:"relationships"`
}

func (p productData) toProduct() Product {
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Meta.DisplayPrice.WithTax.Formatted,
		Stock:       p.Meta.Stock.Level,
		MainImageID: p.Relationships.MainImage.Data.ID,
	}
}

// Products lists the whole catalog.
func (c *Client) Products(ctx context.Context, token string) ([]Product, error) {
	var payload struct {
		Data []productData `json:"data"`
	}
	if err := c.get(ctx, token, "/v2/products", &payload); err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(payload.Data))
	for _, d := range payload.Data {
		products = append(products, d.toProduct())
	}
	return products, nil
}

// Product fetches one catalog entry by id.
func (c *Client) Product(ctx context.Context, token, productID string) (Product, error) {
	var payload struct {
		Data productData `json:"data"`
	}
	if err := c.get(ctx, token, "/v2/products/"+url.PathEscape(productID), &payload); err != nil {
		return Product{}, err
	}
	return payload.Data.toProduct(), nil
}

// ImageURL resolves a file id to its public download link.
func (c *Client) ImageURL(ctx context.Context, token, fileID string) (string, error) {
	var payload struct {
		Data struct {
			Link struct {
				Href string `json:"href"`
			} `json:"link"`
		} `json:"data"`
	}
	if err := c.get(ctx, token, "/v2/files/"+url.PathEscape(fileID), &payload); err != nil {
		return "", err
	}
	return payload.Data.Link.Href, nil
}

// Download fetches raw bytes from a previously resolved link.
func (c *Client) Download(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("shop: build download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shop: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, backendError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Cart fetches cart-level aggregates for the given cart reference.
func (c *Client) Cart(ctx context.Context, token, ref string) (Cart, error) {
	var payload struct {
		Data struct {
			Meta struct {
				DisplayPrice struct {
					WithTax struct {
						Formatted string `json:"formatted"`
					} `json:"with_tax"`
				} `json:"display_price"`
			} `json:"meta"`
		} `json:"data"`
	}
	if err := c.get(ctx, token, "/v2/carts/"+url.PathEscape(ref), &payload); err != nil {
		return Cart{}, err
	}
	return Cart{Total: payload.Data.Meta.DisplayPrice.WithTax.Formatted}, nil
}

// CartItems lists the cart lines for the given cart reference.
func (c *Client) CartItems(ctx context.Context, token, ref string) ([]CartItem, error) {
	var payload struct {
		Data []struct {
			ID          string `json:"id"`
			ProductID   string `json:"product_id"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Quantity    int    `json:"quantity"`
			Meta        struct {
				DisplayPrice struct {
					WithTax struct {
						Unit struct {
							Formatted string `json:"formatted"`
						} `json:"unit"`
						Value struct {
							Formatted string `json:"formatted"`
						} `json:"value"`
					} `json:"with_tax"`
				} `json:"display_price"`
			} `json:"meta"`
		} `json:"data"`
	}
	if err := c.get(ctx, token, "/v2/carts/"+url.PathEscape(ref)+"/items", &payload); err != nil {
		return nil, err
	}
	items := make([]CartItem, 0, len(payload.Data))
	for _, d := range payload.Data {
		items = append(items, CartItem{
			ID:          d.ID,
			ProductID:   d.ProductID,
			Name:        d.Name,
			Description: d.Description,
			Quantity:    d.Quantity,
			UnitPrice:   d.Meta.DisplayPrice.WithTax.Unit.Formatted,
			LineTotal:   d.Meta.DisplayPrice.WithTax.Value.Formatted,
		})
	}
	return items, nil
}

// AddToCart puts quantity units of a product into the cart.
func (c *Client) AddToCart(ctx context.Context, token, ref, productID string, quantity int) error {
	body := map[string]any{
		"data": map[string]any{
			"id":       productID,
			"type":     "cart_item",
			"quantity": quantity,
		},
	}
	return c.send(ctx, token, http.MethodPost, "/v2/carts/"+url.PathEscape(ref)+"/items", body)
}

// RemoveFromCart deletes a product's line from the cart. Removing an id the
// cart does not hold surfaces as a *BackendError from the API.
func (c *Client) RemoveFromCart(ctx context.Context, token, ref, productID string) error {
	path := "/v2/carts/" + url.PathEscape(ref) + "/items/" + url.PathEscape(productID)
	return c.send(ctx, token, http.MethodDelete, path, nil)
}

// CreateCustomer records the buyer's email as a customer entity.
func (c *Client) CreateCustomer(ctx context.Context, token, email string) error {
	body := map[string]any{
		"data": map[string]any{
			"type":  "customer",
			"name":  email,
			"email": email,
		},
	}
	return c.send(ctx, token, http.MethodPost, "/v2/customers", body)
}

func (c *Client) get(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("shop: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.doJSON(req, out)
}

func (c *Client) send(ctx context.Context, token, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("shop: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("shop: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.doJSON(req, nil)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error(req.Context(), "shop", "backend.call",
			slog.String("status", "fail"),
			slog.String("op", req.Method+" "+req.URL.Path),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("shop: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	logger.Debug(req.Context(), "shop", "backend.call",
		slog.String("status", "ok"),
		slog.String("op", req.Method+" "+req.URL.Path),
		slog.Int("http_code", resp.StatusCode),
		slog.Duration("duration", logger.Took(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return backendError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("shop: decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func backendError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &BackendError{
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(body)),
	}
}
