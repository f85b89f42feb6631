package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-checkout/internal/domain"
	"github.com/utafrali/storefront-checkout/pkg/httpclient"
)

func newProvider(t *testing.T, h http.HandlerFunc) *HTTPProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	return NewHTTPProvider(httpclient.New(cfg), srv.URL+"/")
}

func TestHTTPProvider_Cart(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/cart", r.URL.Path)
		assert.Equal(t, "sess-9", r.Header.Get("X-User-ID"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"c1","items":[
			{"product_id":"p1","name":"Alfajor","price":1500,"quantity":4},
			{"product_id":"p2","name":"Mate","price":20000,"quantity":1}
		]}}`))
	})

	c, err := p.Cart(context.Background(), "sess-9")
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.Equal(t, domain.LineItem{ProductID: "p1", Name: "Alfajor", UnitPrice: 1500, Quantity: 4}, c.Items[0])
	assert.Equal(t, int64(26000), c.TotalPrice)
}

func TestHTTPProvider_NotFoundIsEmptyCart(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"cart not found"}}`))
	})

	c, err := p.Cart(context.Background(), "sess-9")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestHTTPProvider_ServerError(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := p.Cart(context.Background(), "sess-9")
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	want := domain.NewCart([]domain.LineItem{{ProductID: "p", UnitPrice: 10, Quantity: 1}})
	got, err := Static(want).Cart(context.Background(), "any")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
