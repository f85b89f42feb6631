package domain

import "fmt"

// PaymentMethod selects how a confirmed checkout is paid.
type PaymentMethod string

const (
	// PaymentMercadoPago redirects to the gateway's hosted checkout.
	PaymentMercadoPago PaymentMethod = "mercadopago"
	// PaymentCash is cash on delivery.
	PaymentCash PaymentMethod = "cash"
)

// DefaultPaymentMethod is preselected on a fresh wizard.
const DefaultPaymentMethod = PaymentCash

func (m PaymentMethod) Valid() bool {
	return m == PaymentMercadoPago || m == PaymentCash
}

func (m PaymentMethod) String() string { return string(m) }

func (m *PaymentMethod) UnmarshalText(b []byte) error {
	v := PaymentMethod(b)
	if !v.Valid() {
		return fmt.Errorf("unknown payment method %q", string(b))
	}
	*m = v
	return nil
}
