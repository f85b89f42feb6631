package domain

import "strings"

// The storefront only delivers within one metro area.
const (
	BillingCity    = "Córdoba"
	BillingState   = "Córdoba"
	BillingZipCode = "5000"
	BillingCountry = "Argentina"
)

// BillingData is the shape the checkout processor expects.
type BillingData struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Phone         string `json:"phone"`
	StreetAddress string `json:"street_address"`
	Apartment     string `json:"apartment,omitempty"`
	Observations  string `json:"observations,omitempty"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZipCode       string `json:"zip_code"`
	Country       string `json:"country"`
}

// BillingFromForm maps wizard fields onto the processor's billing shape.
func BillingFromForm(f FormData) BillingData {
	return BillingData{
		FirstName:     strings.TrimSpace(f.Contact.FirstName),
		LastName:      strings.TrimSpace(f.Contact.LastName),
		Phone:         strings.TrimSpace(f.Contact.Phone),
		StreetAddress: strings.TrimSpace(f.Shipping.StreetAddress),
		Apartment:     strings.TrimSpace(f.Shipping.Apartment),
		Observations:  strings.TrimSpace(f.Shipping.Observations),
		City:          BillingCity,
		State:         BillingState,
		ZipCode:       BillingZipCode,
		Country:       BillingCountry,
	}
}

// CashOrder is the processor's answer to a cash-on-delivery order.
type CashOrder struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number,omitempty"`
	Total       int64  `json:"total"`
	WhatsAppURL string `json:"whatsapp_url,omitempty"`
}

// GatewayCheckout is a hosted-checkout preference to redirect the shopper to.
type GatewayCheckout struct {
	PreferenceID string `json:"preference_id"`
	InitPoint    string `json:"init_point"`
}

// SubmitOutcome is the result of the last submission attempt shown in the
// wizard snapshot.
type SubmitOutcome struct {
	PaymentMethod PaymentMethod    `json:"payment_method"`
	CashOrder     *CashOrder       `json:"cash_order,omitempty"`
	Checkout      *GatewayCheckout `json:"checkout,omitempty"`
	Error         string           `json:"error,omitempty"`
}

// Succeeded reports whether the attempt produced an order or a redirect.
func (o SubmitOutcome) Succeeded() bool {
	return o.Error == "" && (o.CashOrder != nil || o.Checkout != nil)
}
