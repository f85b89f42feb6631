package processor

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/utafrali/storefront-checkout/internal/domain"
)

// defaultAreaCode is used when a phone is too short to carry its own.
const defaultAreaCode = "351"

var streetNumberRe = regexp.MustCompile(`^(.*?)(\b\d{1,5}\b)(.*)$`)

type address struct {
	StreetName   string `json:"street_name"`
	StreetNumber string `json:"street_number"`
	CityName     string `json:"city_name"`
	StateName    string `json:"state_name"`
	ZipCode      string `json:"zip_code"`
}

// --- Cash order ---

type cashOrderRequest struct {
	Items             []cashOrderItem `json:"items"`
	Payer             cashPayer       `json:"payer"`
	Shipments         cashShipments   `json:"shipments"`
	Notes             string          `json:"notes,omitempty"`
	ExternalReference string          `json:"external_reference"`
}

type cashPayer struct {
	Name    string     `json:"name"`
	Surname string     `json:"surname"`
	Phone   splitPhone `json:"phone"`
}

type cashShipments struct {
	Cost            int64   `json:"cost"`
	ReceiverAddress address `json:"receiver_address"`
}

type cashOrderItem struct {
	ID        string `json:"id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type splitPhone struct {
	AreaCode string `json:"area_code"`
	Number   string `json:"number"`
}

type cashOrderResponse struct {
	Data cashOrderData `json:"data"`
}

type cashOrderData struct {
	Order       cashOrderRecord `json:"order"`
	WhatsAppURL string          `json:"whatsapp_url"`
}

type cashOrderRecord struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	Total       int64  `json:"total"`
	WhatsAppURL string `json:"whatsapp_url"`
}

func (r cashOrderResponse) toDomain() *domain.CashOrder {
	o := r.Data.Order
	url := r.Data.WhatsAppURL
	if url == "" {
		url = o.WhatsAppURL
	}
	return &domain.CashOrder{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Total:       o.Total,
		WhatsAppURL: url,
	}
}

func buildCashOrderRequest(c domain.Cart, b domain.BillingData, now time.Time) cashOrderRequest {
	var req cashOrderRequest
	for _, it := range c.Items {
		req.Items = append(req.Items, cashOrderItem{ID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	req.Payer = cashPayer{Name: b.FirstName, Surname: b.LastName, Phone: splitAreaCode(b.Phone)}
	req.Shipments = cashShipments{Cost: domain.QuoteFor(c).Shipping, ReceiverAddress: receiverAddress(b)}
	req.Notes = deliveryNotes(b)
	req.ExternalReference = fmt.Sprintf("cash_order_%d", now.UnixMilli())
	return req
}

// --- Gateway preference ---

type preferenceRequest struct {
	Items             []preferenceItem    `json:"items"`
	Payer             preferencePayer     `json:"payer"`
	Shipping          *preferenceShipping `json:"shipping,omitempty"`
	ExternalReference string              `json:"external_reference"`
}

type preferencePayer struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Phone   string `json:"phone"`
}

type preferenceShipping struct {
	Cost    int64   `json:"cost"`
	Address address `json:"address"`
}

type preferenceItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type preferenceResponse struct {
	Data struct {
		PreferenceID string `json:"preference_id"`
		InitPoint    string `json:"init_point"`
	} `json:"data"`
}

func buildPreferenceRequest(c domain.Cart, b domain.BillingData, express bool, now time.Time) preferenceRequest {
	var req preferenceRequest
	for _, it := range c.Items {
		req.Items = append(req.Items, preferenceItem{
			ID: it.ProductID, Name: it.Name, Price: it.UnitPrice, Quantity: it.Quantity,
		})
	}
	req.Payer = preferencePayer{Name: b.FirstName, Surname: b.LastName, Phone: gatewayPhone(b.Phone)}

	if cost := domain.QuoteFor(c).Shipping; cost > 0 {
		req.Shipping = &preferenceShipping{Cost: cost, Address: receiverAddress(b)}
	}

	prefix := "checkout"
	if express {
		prefix = "express_checkout"
	}
	req.ExternalReference = fmt.Sprintf("%s_%d", prefix, now.UnixMilli())
	return req
}

// --- Field mapping ---

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// splitAreaCode splits an Argentine phone into area code and subscriber
// number. The country code 54 is dropped from numbers of ten or more digits;
// ten digits are a landline with a four-digit area code, anything longer a
// mobile with a three-digit one. Short numbers get the Córdoba area code.
func splitAreaCode(phone string) splitPhone {
	digits := digitsOnly(phone)
	if len(digits) < 10 {
		return splitPhone{AreaCode: defaultAreaCode, Number: digits}
	}

	digits = strings.TrimPrefix(digits, "54")
	if len(digits) == 10 {
		return splitPhone{AreaCode: digits[:4], Number: digits[4:]}
	}
	return splitPhone{AreaCode: digits[:3], Number: digits[3:]}
}

// gatewayPhone is the digits of phone without the 54 country code.
func gatewayPhone(phone string) string {
	digits := digitsOnly(phone)
	if len(digits) > 11 {
		digits = strings.TrimPrefix(digits, "54")
	}
	return digits
}

// splitStreet separates the first standalone 1-5 digit number of a free-text
// address from the street name.
func splitStreet(full string) (name, number string) {
	full = strings.TrimSpace(full)
	m := streetNumberRe.FindStringSubmatch(full)
	if m == nil {
		return full, ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

func receiverAddress(b domain.BillingData) address {
	name, number := splitStreet(b.StreetAddress)
	return address{
		StreetName:   name,
		StreetNumber: number,
		CityName:     b.City,
		StateName:    b.State,
		ZipCode:      b.ZipCode,
	}
}

func deliveryNotes(b domain.BillingData) string {
	var parts []string
	if b.Apartment != "" {
		parts = append(parts, "Depto: "+b.Apartment)
	}
	if b.Observations != "" {
		parts = append(parts, b.Observations)
	}
	return strings.Join(parts, " - ")
}
