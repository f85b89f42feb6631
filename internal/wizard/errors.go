package wizard

import "errors"

var (
	// ErrSubmissionInFlight is returned by Submit while a previous submission
	// has not finished.
	ErrSubmissionInFlight = errors.New("a checkout submission is already in progress")
	// ErrNoProcessor is returned by Submit when the wizard has no collaborator.
	ErrNoProcessor          = errors.New("no checkout processor configured")
	ErrUnknownStep          = errors.New("unknown checkout step")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
)
