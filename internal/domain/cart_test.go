package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Cart / Quote
// ============================================================================

func TestNewCart_ComputesTotal(t *testing.T) {
	c := NewCart([]LineItem{
		{UnitPrice: 1000, Quantity: 2},
		{UnitPrice: 500, Quantity: 3},
	})
	assert.Equal(t, int64(3500), c.TotalPrice)
	assert.Equal(t, 5, c.ItemCount())
	assert.False(t, c.IsEmpty())
	assert.True(t, Cart{}.IsEmpty())
}

func TestQuoteFor(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		shipping int64
		free     bool
		remain   int64
	}{
		{"below threshold", 30000, ShippingCost, false, 20000},
		{"at threshold", 50000, 0, true, 0},
		{"above threshold", 80000, 0, true, 0},
		{"empty", 0, ShippingCost, false, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuoteFor(Cart{TotalPrice: tt.subtotal})
			assert.Equal(t, tt.shipping, q.Shipping)
			assert.Equal(t, tt.free, q.FreeShipping)
			assert.Equal(t, tt.remain, q.Remaining)
			assert.Equal(t, tt.subtotal+tt.shipping, q.Total)
		})
	}
}

// ============================================================================
// Billing
// ============================================================================

func TestBillingFromForm_UsesFixedLocality(t *testing.T) {
	f := validForm()
	f.Shipping.Apartment = " 4B "
	b := BillingFromForm(f)

	assert.Equal(t, "María", b.FirstName)
	assert.Equal(t, "Pérez", b.LastName)
	assert.Equal(t, "Av. Colón 1234", b.StreetAddress)
	assert.Equal(t, "4B", b.Apartment)
	assert.Equal(t, "Córdoba", b.City)
	assert.Equal(t, "Córdoba", b.State)
	assert.Equal(t, "5000", b.ZipCode)
	assert.Equal(t, "Argentina", b.Country)
}

// ============================================================================
// Updates
// ============================================================================

func TestContactUpdate_ApplyOnlyTouchesSetFields(t *testing.T) {
	c := ContactData{FirstName: "Ana", LastName: "Gómez", Phone: "3511234567"}
	phone := "abc"

	touched := ContactUpdate{Phone: &phone}.Apply(&c)

	assert.Equal(t, []string{FieldPhone}, touched)
	assert.Equal(t, "Ana", c.FirstName)
	assert.Equal(t, "abc", c.Phone)
}

func TestShippingUpdate_ApplyCanClearField(t *testing.T) {
	s := ShippingData{StreetAddress: "Belgrano 55", Apartment: "2A"}
	empty := ""

	touched := ShippingUpdate{Apartment: &empty}.Apply(&s)

	assert.Equal(t, []string{FieldApartment}, touched)
	assert.Empty(t, s.Apartment)
	assert.Equal(t, "Belgrano 55", s.StreetAddress)
}

// ============================================================================
// Submission
// ============================================================================

func TestSubmission_Complete(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cash := &Submission{Status: SubmissionPending}
	cash.Complete(SubmitOutcome{PaymentMethod: PaymentCash, CashOrder: &CashOrder{OrderID: "ord-1"}}, now)
	assert.Equal(t, SubmissionSucceeded, cash.Status)
	assert.Equal(t, "ord-1", cash.OrderID)
	require.NotNil(t, cash.CompletedAt)

	gw := &Submission{Status: SubmissionPending}
	gw.Complete(SubmitOutcome{Checkout: &GatewayCheckout{PreferenceID: "pref-1", InitPoint: "https://pay/1"}}, now)
	assert.Equal(t, "pref-1", gw.OrderID)
	assert.Equal(t, "https://pay/1", gw.RedirectURL)

	failed := &Submission{Status: SubmissionPending}
	failed.Complete(SubmitOutcome{Error: "order service unavailable"}, now)
	assert.Equal(t, SubmissionFailed, failed.Status)
	assert.Equal(t, "order service unavailable", failed.FailureReason)
}

func TestSubmission_JSONDecodesWhatItEncodes(t *testing.T) {
	for _, sub := range []Submission{
		{ID: "sub-1", Status: SubmissionPending},
		{ID: "sub-2", PaymentMethod: PaymentMercadoPago, Status: SubmissionSucceeded},
	} {
		raw, err := json.Marshal(sub)
		require.NoError(t, err)

		var got Submission
		require.NoError(t, json.Unmarshal(raw, &got), string(raw))
		assert.Equal(t, sub.PaymentMethod, got.PaymentMethod)
	}
}
