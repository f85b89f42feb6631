// Package processor submits confirmed checkouts to the order service (cash on
// delivery) or the payment service (hosted gateway checkout).
package processor

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront-checkout/internal/cart"
	apperrors "github.com/utafrali/storefront-checkout/pkg/errors"
	"github.com/utafrali/storefront-checkout/pkg/httpclient"
	"github.com/utafrali/storefront-checkout/pkg/tracing"
)

// Config holds the downstream endpoints.
type Config struct {
	OrderServiceURL   string
	PaymentServiceURL string
}

// Client is shared by every session; Session carries per-shopper state.
type Client struct {
	doer       httpclient.Doer
	carts      cart.Provider
	orderURL   string
	paymentURL string
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

func NewClient(doer httpclient.Doer, carts cart.Provider, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		doer:       doer,
		carts:      carts,
		orderURL:   strings.TrimRight(cfg.OrderServiceURL, "/"),
		paymentURL: strings.TrimRight(cfg.PaymentServiceURL, "/"),
		logger:     logger,
		tracer:     tracing.Tracer("checkout-processor"),
		now:        time.Now,
	}
}

// ForSession returns the collaborator for one checkout session.
func (c *Client) ForSession(sessionID string) *Session {
	return &Session{client: c, sessionID: sessionID}
}

// CircuitOpenFallback turns an open breaker into a 503 the shopper can retry
// instead of a raw ErrCircuitOpen.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("checkout is temporarily unavailable, please retry in a few seconds")
}
