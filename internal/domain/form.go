package domain

// Field names, as used in error maps and JSON payloads.
const (
	FieldCart          = "cart"
	FieldFirstName     = "first_name"
	FieldLastName      = "last_name"
	FieldPhone         = "phone"
	FieldStreetAddress = "street_address"
	FieldApartment     = "apartment"
	FieldObservations  = "observations"
	FieldPaymentMethod = "payment_method"
)

// ContactData is collected on the contact step.
type ContactData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// ShippingData is collected on the shipping step.
type ShippingData struct {
	StreetAddress string `json:"street_address"`
	Apartment     string `json:"apartment,omitempty"`
	Observations  string `json:"observations,omitempty"`
}

// FormData holds everything the shopper has entered so far.
type FormData struct {
	Contact       ContactData   `json:"contact"`
	Shipping      ShippingData  `json:"shipping"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

// NewFormData returns an empty form with the default payment method.
func NewFormData() FormData {
	return FormData{PaymentMethod: DefaultPaymentMethod}
}

// WizardState is the persistent part of a wizard: where the shopper is and
// what they typed. Errors and validity are derived from it.
type WizardState struct {
	CurrentStep Step     `json:"current_step"`
	FormData    FormData `json:"form_data"`
}

// NewWizardState returns the state of a wizard that was never touched.
func NewWizardState() WizardState {
	return WizardState{CurrentStep: StepSummary, FormData: NewFormData()}
}

// ContactUpdate is a partial update of ContactData; nil fields are kept.
type ContactUpdate struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// Apply writes the non-nil fields into c and returns the names of the fields
// it touched.
func (u ContactUpdate) Apply(c *ContactData) []string {
	var touched []string
	if u.FirstName != nil {
		c.FirstName = *u.FirstName
		touched = append(touched, FieldFirstName)
	}
	if u.LastName != nil {
		c.LastName = *u.LastName
		touched = append(touched, FieldLastName)
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
		touched = append(touched, FieldPhone)
	}
	return touched
}

// ShippingUpdate is a partial update of ShippingData; nil fields are kept.
type ShippingUpdate struct {
	StreetAddress *string `json:"street_address,omitempty" validate:"omitempty,max=200"`
	Apartment     *string `json:"apartment,omitempty" validate:"omitempty,max=50"`
	Observations  *string `json:"observations,omitempty" validate:"omitempty,max=500"`
}

func (u ShippingUpdate) Apply(s *ShippingData) []string {
	var touched []string
	if u.StreetAddress != nil {
		s.StreetAddress = *u.StreetAddress
		touched = append(touched, FieldStreetAddress)
	}
	if u.Apartment != nil {
		s.Apartment = *u.Apartment
		touched = append(touched, FieldApartment)
	}
	if u.Observations != nil {
		s.Observations = *u.Observations
		touched = append(touched, FieldObservations)
	}
	return touched
}

// FieldValue returns the current value of a form field by name.
func (f FormData) FieldValue(field string) (string, bool) {
	switch field {
	case FieldFirstName:
		return f.Contact.FirstName, true
	case FieldLastName:
		return f.Contact.LastName, true
	case FieldPhone:
		return f.Contact.Phone, true
	case FieldStreetAddress:
		return f.Shipping.StreetAddress, true
	case FieldApartment:
		return f.Shipping.Apartment, true
	case FieldObservations:
		return f.Shipping.Observations, true
	case FieldPaymentMethod:
		return string(f.PaymentMethod), true
	}
	return "", false
}
