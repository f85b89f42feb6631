package wizard

import (
	"context"
	"log/slog"

	"github.com/utafrali/storefront-checkout/internal/domain"
)

// Processor is the checkout-processing collaborator. It owns billing data
// for the session and performs the two payment paths. Retries, if any, are
// its responsibility.
type Processor interface {
	UpdateBillingData(billing domain.BillingData)
	CreateCashOrder(ctx context.Context, express bool, billing domain.BillingData) (*domain.CashOrder, error)
	InitiateGatewayCheckout(ctx context.Context, express bool) (*domain.GatewayCheckout, error)
	Loading() bool
	Err() error
}

// SubmitResult is delivered once per submission.
type SubmitResult struct {
	Outcome domain.SubmitOutcome
	Err     error
}

// Submit sends the form to the processor. The submitting flag is set before
// Submit returns; the processor call runs in the background, detached from
// ctx cancellation. The returned channel receives exactly one result and is
// then closed.
//
// On success the wizard is reset and the outcome is kept as the last result.
// On failure the form is kept and the processor's error is recorded.
func (w *Wizard) Submit(ctx context.Context) (<-chan SubmitResult, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	if w.processor == nil {
		w.mu.Unlock()
		return nil, ErrNoProcessor
	}
	w.submitting = true
	billing := domain.BillingFromForm(w.state.FormData)
	method := w.state.FormData.PaymentMethod
	w.mu.Unlock()

	w.processor.UpdateBillingData(billing)

	results := make(chan SubmitResult, 1)
	bgCtx := context.WithoutCancel(ctx)

	go func() {
		defer close(results)

		outcome := domain.SubmitOutcome{PaymentMethod: method}
		var err error
		switch method {
		case domain.PaymentMercadoPago:
			outcome.Checkout, err = w.processor.InitiateGatewayCheckout(bgCtx, true)
		default:
			outcome.CashOrder, err = w.processor.CreateCashOrder(bgCtx, true, billing)
		}

		w.finishSubmit(bgCtx, &outcome, err)
		results <- SubmitResult{Outcome: outcome, Err: err}
	}()

	return results, nil
}

func (w *Wizard) finishSubmit(ctx context.Context, outcome *domain.SubmitOutcome, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		reported := w.processor.Err()
		if reported == nil {
			reported = err
		}
		outcome.Error = reported.Error()
		outcome.CashOrder, outcome.Checkout = nil, nil

		w.logger.ErrorContext(ctx, "checkout submission failed",
			slog.String("payment_method", outcome.PaymentMethod.String()),
			slog.String("error", outcome.Error),
		)
		w.setLastLocked(*outcome)
		w.submitting = false
		return
	}

	w.logger.InfoContext(ctx, "checkout submitted",
		slog.String("payment_method", outcome.PaymentMethod.String()),
	)
	w.setLastLocked(*outcome)
	w.resetLocked(ctx)
	w.submitting = false
}

func (w *Wizard) setLastLocked(o domain.SubmitOutcome) {
	w.last = &o
}
