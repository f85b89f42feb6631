package domain

import "time"

// Submission status constants.
const (
	SubmissionPending   = "pending"
	SubmissionSucceeded = "succeeded"
	SubmissionFailed    = "failed"
)

// Submission is the audit record of one submit attempt.
type Submission struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"session_id"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	Status        string        `json:"status"`
	Total         int64         `json:"total"`
	OrderID       string        `json:"order_id,omitempty"`
	RedirectURL   string        `json:"redirect_url,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// Complete fills in the final status from an outcome.
func (s *Submission) Complete(o SubmitOutcome, at time.Time) {
	s.CompletedAt = &at
	if !o.Succeeded() {
		s.Status = SubmissionFailed
		s.FailureReason = o.Error
		return
	}
	s.Status = SubmissionSucceeded
	if o.CashOrder != nil {
		s.OrderID = o.CashOrder.OrderID
	}
	if o.Checkout != nil {
		s.OrderID = o.Checkout.PreferenceID
		s.RedirectURL = o.Checkout.InitPoint
	}
}
