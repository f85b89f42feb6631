package domain

import (
	"maps"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	minNameLength  = 2
	minPhoneDigits = 8
	maxPhoneDigits = 13
)

// FieldError is a failed field rule.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

type fieldRule func(field, value string) *FieldError

// stepFields lists, per step, the form fields validated there and their rule.
var stepFields = map[Step][]struct {
	name string
	rule fieldRule
}{
	StepContact: {
		{FieldFirstName, validateName},
		{FieldLastName, validateName},
		{FieldPhone, validatePhone},
	},
	StepShipping: {
		{FieldStreetAddress, validateRequired},
		{FieldApartment, nil},
		{FieldObservations, nil},
	},
}

// ValidateField checks one field of a step. It returns nil when value is
// acceptable, when the field has no rule, or when the field does not belong
// to step.
func ValidateField(step Step, field, value string) *FieldError {
	for _, f := range stepFields[step] {
		if f.name != field {
			continue
		}
		if f.rule == nil {
			return nil
		}
		return f.rule(field, value)
	}
	return nil
}

// ValidateStep returns the error message of every field of step that fails
// its rule, keyed by field name. An empty map means the step is complete.
func ValidateStep(step Step, form FormData, cart Cart) map[string]string {
	errs := make(map[string]string)

	switch step {
	case StepSummary:
		if cart.IsEmpty() {
			errs[FieldCart] = "your cart is empty"
		}
	case StepContact, StepShipping:
		for _, f := range stepFields[step] {
			if f.rule == nil {
				continue
			}
			value, _ := form.FieldValue(f.name)
			if fe := f.rule(f.name, value); fe != nil {
				errs[f.name] = fe.Message
			}
		}
	case StepPayment:
		if !form.PaymentMethod.Valid() {
			errs[FieldPaymentMethod] = "select a payment method"
		}
	case StepConfirmation:
		for _, s := range []Step{StepSummary, StepContact, StepShipping, StepPayment} {
			maps.Copy(errs, ValidateStep(s, form, cart))
		}
	}

	return errs
}

// Validity reports, for every step, whether it is currently satisfiable.
func Validity(form FormData, cart Cart) map[Step]bool {
	v := make(map[Step]bool, len(stepNames))
	for _, s := range Steps() {
		if s == StepConfirmation {
			continue
		}
		v[s] = len(ValidateStep(s, form, cart)) == 0
	}
	v[StepConfirmation] = v[StepSummary] && v[StepContact] && v[StepShipping] && v[StepPayment]
	return v
}

func validateRequired(field, value string) *FieldError {
	if strings.TrimSpace(value) == "" {
		return &FieldError{Field: field, Message: "this field is required"}
	}
	return nil
}

// validateName requires at least two characters, one of them a letter.
// Characters are counted after NFC normalisation so a decomposed accent is
// not counted twice.
func validateName(field, value string) *FieldError {
	if fe := validateRequired(field, value); fe != nil {
		return fe
	}

	name := norm.NFC.String(strings.TrimSpace(value))
	if utf8.RuneCountInString(name) < minNameLength {
		return &FieldError{Field: field, Message: "must be at least 2 characters"}
	}
	if strings.IndexFunc(name, unicode.IsLetter) < 0 {
		return &FieldError{Field: field, Message: "must contain at least one letter"}
	}
	return nil
}

// validatePhone accepts digits with spaces, hyphens, parentheses and an
// optional leading plus, carrying 8 to 13 digits in total.
func validatePhone(field, value string) *FieldError {
	if fe := validateRequired(field, value); fe != nil {
		return fe
	}

	// Only plain spaces are trimmed; any other whitespace is rejected below.
	phone := strings.Trim(value, " ")
	digits := 0
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ', r == '-', r == '(', r == ')':
		case r == '+' && i == 0:
		default:
			return &FieldError{
				Field:   field,
				Message: "may only contain digits, spaces, hyphens, parentheses and a leading +",
			}
		}
	}

	if digits < minPhoneDigits || digits > maxPhoneDigits {
		return &FieldError{Field: field, Message: "must have between 8 and 13 digits"}
	}
	return nil
}
