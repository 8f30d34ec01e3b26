package shop

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "client-123", 5*time.Second)
}

func TestAuthenticate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/oauth/access_token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-123", r.PostForm.Get("client_id"))
		assert.Equal(t, "implicit", r.PostForm.Get("grant_type"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-abc",
			"expires":      time.Now().Add(time.Hour).Unix(),
		})
	})

	tok, err := client.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", tok.Value)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, 5*time.Second)
}

func TestAuthenticateExpiresInFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-abc",
			"expires_in":   3600,
		})
	})

	tok, err := client.Authenticate(context.Background())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, 5*time.Second)
}

func TestAuthenticateRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"title":"unknown client"}]}`, http.StatusUnauthorized)
	})

	_, err := client.Authenticate(context.Background())
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusUnauthorized, backendErr.Status)
	assert.Contains(t, backendErr.Body, "unknown client")
}

const productJSON = `{
	"id": "p1",
	"name": "Tuna",
	"description": "Fresh tuna",
	"meta": {
		"display_price": {"with_tax": {"formatted": "$10.00"}},
		"stock": {"level": 12}
	},
	"relationships": {"main_image": {"data": {"id": "img1"}}}
}`

func TestProducts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/products", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[` + productJSON + `]}`))
	})

	products, err := client.Products(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, Product{
		ID:          "p1",
		Name:        "Tuna",
		Description: "Fresh tuna",
		Price:       "$10.00",
		Stock:       12,
		MainImageID: "img1",
	}, products[0])
}

func TestProductByID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/products/p1", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":` + productJSON + `}`))
	})

	product, err := client.Product(context.Background(), "tok", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Tuna", product.Name)
}

func TestProductNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := client.Product(context.Background(), "tok", "ghost")
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusNotFound, backendErr.Status)
}

func TestImageURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/files/img1", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"link":{"href":"https://files.test/img1.jpg"}}}`))
	})

	link, err := client.ImageURL(context.Background(), "tok", "img1")
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/img1.jpg", link)
}

func TestDownload(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)

	client := NewClient("http://unused", "client-123", 5*time.Second)
	data, err := client.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestCartTotal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/carts/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"meta":{"display_price":{"with_tax":{"formatted":"$50.00"}}}}}`))
	})

	cart, err := client.Cart(context.Background(), "tok", "42")
	require.NoError(t, err)
	assert.Equal(t, "$50.00", cart.Total)
}

func TestCartItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/carts/42/items", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{
			"id": "line1",
			"product_id": "p1",
			"name": "Tuna",
			"description": "Fresh tuna",
			"quantity": 5,
			"meta": {"display_price": {"with_tax": {
				"unit": {"formatted": "$10.00"},
				"value": {"formatted": "$50.00"}
			}}}
		}]}`))
	})

	items, err := client.CartItems(context.Background(), "tok", "42")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, CartItem{
		ID:          "line1",
		ProductID:   "p1",
		Name:        "Tuna",
		Description: "Fresh tuna",
		Quantity:    5,
		UnitPrice:   "$10.00",
		LineTotal:   "$50.00",
	}, items[0])
}

func TestAddToCart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/carts/42/items", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			Data struct {
				ID       string `json:"id"`
				Type     string `json:"type"`
				Quantity int    `json:"quantity"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "p1", body.Data.ID)
		assert.Equal(t, "cart_item", body.Data.Type)
		assert.Equal(t, 5, body.Data.Quantity)

		w.WriteHeader(http.StatusCreated)
	})

	err := client.AddToCart(context.Background(), "tok", "42", "p1", 5)
	require.NoError(t, err)
}

func TestRemoveFromCart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v2/carts/42/items/p1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.RemoveFromCart(context.Background(), "tok", "42", "p1")
	require.NoError(t, err)
}

func TestCreateCustomer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/customers", r.URL.Path)

		var body struct {
			Data struct {
				Type  string `json:"type"`
				Name  string `json:"name"`
				Email string `json:"email"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "customer", body.Data.Type)
		assert.Equal(t, "buyer@example.com", body.Data.Email)

		w.WriteHeader(http.StatusCreated)
	})

	err := client.CreateCustomer(context.Background(), "tok", "buyer@example.com")
	require.NoError(t, err)
}

func TestBackendErrorBodyTruncated(t *testing.T) {
	huge := make([]byte, maxErrorBody*2)
	for i := range huge {
		huge[i] = 'x'
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(huge)
	})

	_, err := client.Products(context.Background(), "tok")
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Len(t, backendErr.Body, maxErrorBody)
}
