package processor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/storefront-checkout/internal/domain"
	apperrors "github.com/utafrali/storefront-checkout/pkg/errors"
	"github.com/utafrali/storefront-checkout/pkg/httpclient"
	"github.com/utafrali/storefront-checkout/pkg/tracing"
)

// Session is the checkout-processing collaborator of one wizard. It keeps
// the last billing data it was given and exposes loading and error state.
type Session struct {
	client    *Client
	sessionID string

	mu      sync.Mutex
	billing domain.BillingData
	loading bool
	err     error
}

func (s *Session) UpdateBillingData(b domain.BillingData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.billing = b
}

// Billing returns the billing data last set with UpdateBillingData.
func (s *Session) Billing() domain.BillingData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.billing
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err is the error of the last call, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.err = nil
}

func (s *Session) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.err = err
}

// CreateCashOrder places a cash-on-delivery order with billing, which the
// caller passes explicitly rather than relying on UpdateBillingData.
func (s *Session) CreateCashOrder(ctx context.Context, express bool, billing domain.BillingData) (order *domain.CashOrder, err error) {
	s.begin()
	defer func() { s.end(err) }()

	ctx, span := tracing.StartClientSpan(ctx, s.client.tracer, "processor.CreateCashOrder",
		attribute.String("checkout.session_id", s.sessionID),
		attribute.Bool("checkout.express", express),
	)
	defer func() { tracing.End(span, err) }()

	c, err := s.cart(ctx)
	if err != nil {
		return nil, err
	}

	req := buildCashOrderRequest(c, billing, s.client.now())

	var resp cashOrderResponse
	_, err = httpclient.DoJSON(ctx, s.client.doer, httpclient.JSONRequest{
		Method:  http.MethodPost,
		URL:     s.client.orderURL + "/api/v1/orders/cash",
		Headers: map[string]string{"X-User-ID": s.sessionID},
		Body:    req,
		Service: "order-service",
	}, &resp)
	if err != nil {
		return nil, err
	}

	order = resp.toDomain()
	s.client.logger.InfoContext(ctx, "cash order created",
		slog.String("session_id", s.sessionID),
		slog.String("order_id", order.OrderID),
		slog.String("external_reference", req.ExternalReference),
	)
	return order, nil
}

// InitiateGatewayCheckout creates a hosted-checkout preference using the
// billing data last set with UpdateBillingData. Express checkouts are tagged
// in the external reference.
func (s *Session) InitiateGatewayCheckout(ctx context.Context, express bool) (pref *domain.GatewayCheckout, err error) {
	s.begin()
	defer func() { s.end(err) }()

	ctx, span := tracing.StartClientSpan(ctx, s.client.tracer, "processor.InitiateGatewayCheckout",
		attribute.String("checkout.session_id", s.sessionID),
		attribute.Bool("checkout.express", express),
	)
	defer func() { tracing.End(span, err) }()

	c, err := s.cart(ctx)
	if err != nil {
		return nil, err
	}

	req := buildPreferenceRequest(c, s.Billing(), express, s.client.now())

	var resp preferenceResponse
	_, err = httpclient.DoJSON(ctx, s.client.doer, httpclient.JSONRequest{
		Method:  http.MethodPost,
		URL:     s.client.paymentURL + "/api/v1/payments/preferences",
		Headers: map[string]string{"X-User-ID": s.sessionID},
		Body:    req,
		Service: "payment-service",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Data.InitPoint == "" {
		return nil, fmt.Errorf("payment-service: preference %q has no init point", resp.Data.PreferenceID)
	}

	s.client.logger.InfoContext(ctx, "gateway checkout initiated",
		slog.String("session_id", s.sessionID),
		slog.String("preference_id", resp.Data.PreferenceID),
		slog.String("external_reference", req.ExternalReference),
	)
	return &domain.GatewayCheckout{
		PreferenceID: resp.Data.PreferenceID,
		InitPoint:    resp.Data.InitPoint,
	}, nil
}

func (s *Session) cart(ctx context.Context) (domain.Cart, error) {
	c, err := s.client.carts.Cart(ctx, s.sessionID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	if c.IsEmpty() {
		return domain.Cart{}, apperrors.InvalidInput("cart is empty")
	}
	return c, nil
}
