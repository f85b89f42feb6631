package domain

// Shipping pricing for home delivery, in ARS.
const (
	ShippingCost          int64 = 10000
	FreeShippingThreshold int64 = 50000
)

// LineItem is one product row of the shopper's cart.
type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Total is UnitPrice times Quantity.
func (li LineItem) Total() int64 {
	return li.UnitPrice * int64(li.Quantity)
}

// Cart is a read-only snapshot of the shopper's cart.
type Cart struct {
	Items      []LineItem `json:"items"`
	TotalPrice int64      `json:"total_price"`
}

// NewCart builds a cart and computes its total from the items.
func NewCart(items []LineItem) Cart {
	c := Cart{Items: items}
	for _, it := range items {
		c.TotalPrice += it.Total()
	}
	return c
}

// IsEmpty reports whether the cart has no units to buy.
func (c Cart) IsEmpty() bool {
	for _, it := range c.Items {
		if it.Quantity > 0 {
			return false
		}
	}
	return true
}

// ItemCount is the number of units in the cart.
func (c Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Quote is the price breakdown shown on the summary step.
type Quote struct {
	Subtotal     int64 `json:"subtotal"`
	Shipping     int64 `json:"shipping"`
	Total        int64 `json:"total"`
	FreeShipping bool  `json:"free_shipping"`
	// Remaining is how much more the shopper must add to get free shipping.
	Remaining int64 `json:"remaining_for_free_shipping"`
}

// QuoteFor prices the cart including home delivery.
func QuoteFor(c Cart) Quote {
	q := Quote{Subtotal: c.TotalPrice}
	if q.Subtotal >= FreeShippingThreshold {
		q.FreeShipping = true
	} else {
		q.Shipping = ShippingCost
		q.Remaining = FreeShippingThreshold - q.Subtotal
	}
	q.Total = q.Subtotal + q.Shipping
	return q
}
