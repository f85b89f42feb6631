// Package cart reads the shopper's cart from the cart service.
package cart

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/storefront-checkout/internal/domain"
	apperrors "github.com/utafrali/storefront-checkout/pkg/errors"
	"github.com/utafrali/storefront-checkout/pkg/httpclient"
	"github.com/utafrali/storefront-checkout/pkg/tracing"
)

// Provider returns the current cart of a checkout session.
type Provider interface {
	Cart(ctx context.Context, sessionID string) (domain.Cart, error)
}

// HTTPProvider calls GET {baseURL}/api/v1/cart on the cart service.
type HTTPProvider struct {
	doer    httpclient.Doer
	baseURL string
}

func NewHTTPProvider(doer httpclient.Doer, baseURL string) *HTTPProvider {
	return &HTTPProvider{doer: doer, baseURL: strings.TrimRight(baseURL, "/")}
}

type cartResponse struct {
	Data struct {
		Items []struct {
			ProductID string `json:"product_id"`
			Name      string `json:"name"`
			Price     int64  `json:"price"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
	} `json:"data"`
}

// Cart fetches the session's cart. A cart the service does not know is empty.
func (p *HTTPProvider) Cart(ctx context.Context, sessionID string) (c domain.Cart, err error) {
	ctx, span := tracing.StartClientSpan(ctx, tracing.Tracer("cart-client"), "cart.Get",
		attribute.String("checkout.session_id", sessionID),
	)
	defer func() { tracing.End(span, err) }()

	var resp cartResponse
	_, err = httpclient.DoJSON(ctx, p.doer, httpclient.JSONRequest{
		Method:  http.MethodGet,
		URL:     p.baseURL + "/api/v1/cart",
		Headers: map[string]string{"X-User-ID": sessionID},
		Service: "cart-service",
	}, &resp)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.Cart{}, nil
		}
		return domain.Cart{}, err
	}

	items := make([]domain.LineItem, 0, len(resp.Data.Items))
	for _, it := range resp.Data.Items {
		items = append(items, domain.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.Price,
			Quantity:  it.Quantity,
		})
	}
	return domain.NewCart(items), nil
}

// Static serves a fixed cart to every session.
type Static domain.Cart

func (s Static) Cart(context.Context, string) (domain.Cart, error) {
	return domain.Cart(s), nil
}
