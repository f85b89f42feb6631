// Package wizard holds the checkout wizard state container: a linear,
// validation-gated sequence of steps over a form that is persisted after
// every change.
package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/utafrali/storefront-checkout/internal/domain"
	"github.com/utafrali/storefront-checkout/internal/store"
)

// Wizard is the state of one shopper's checkout. All methods are safe for
// concurrent use.
type Wizard struct {
	mu sync.Mutex

	key       string
	store     store.Store
	processor Processor
	logger    *slog.Logger

	state      domain.WizardState
	cart       domain.Cart
	errors     map[string]string
	submitting bool
	last       *domain.SubmitOutcome
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithStore persists the wizard under its key. Without a store the wizard
// lives only in memory.
func WithStore(s store.Store) Option {
	return func(w *Wizard) { w.store = s }
}

// WithProcessor sets the collaborator that receives submissions.
func WithProcessor(p Processor) Option {
	return func(w *Wizard) { w.processor = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Wizard) { w.logger = l }
}

// WithCart seeds the cart snapshot used by the summary step.
func WithCart(c domain.Cart) Option {
	return func(w *Wizard) { w.cart = c }
}

// New creates the wizard for key, rehydrating it from the store when a
// persisted copy exists.
func New(ctx context.Context, key string, opts ...Option) *Wizard {
	w := &Wizard{
		key:    key,
		logger: slog.Default(),
		state:  domain.NewWizardState(),
		errors: make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(slog.String("wizard_key", key))

	w.state = w.load(ctx)
	return w
}

// Snapshot is a read-only view of the wizard.
type Snapshot struct {
	CurrentStep  domain.Step           `json:"current_step"`
	FormData     domain.FormData       `json:"form_data"`
	Errors       map[string]string     `json:"errors"`
	IsValid      map[domain.Step]bool  `json:"is_valid"`
	IsSubmitting bool                  `json:"is_submitting"`
	Cart         domain.Cart           `json:"cart"`
	Quote        domain.Quote          `json:"quote"`
	LastResult   *domain.SubmitOutcome `json:"last_result,omitempty"`
}

// Snapshot returns the current state. Validity is recomputed on every call.
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Wizard) snapshotLocked() Snapshot {
	s := Snapshot{
		CurrentStep:  w.state.CurrentStep,
		FormData:     w.state.FormData,
		Errors:       maps.Clone(w.errors),
		IsValid:      domain.Validity(w.state.FormData, w.cart),
		IsSubmitting: w.isSubmittingLocked(),
		Cart:         w.cart,
		Quote:        domain.QuoteFor(w.cart),
	}
	if w.last != nil {
		last := *w.last
		s.LastResult = &last
	}
	return s
}

// Advance validates the current step. When it passes the wizard moves to the
// next step and errors are cleared; otherwise errors hold the failing fields
// and the step is unchanged. Advance returns whether the step changed. The
// confirmation step has no successor: it validates and returns false.
func (w *Wizard) Advance(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	current := w.state.CurrentStep
	if errs := domain.ValidateStep(current, w.state.FormData, w.cart); len(errs) > 0 {
		w.errors = errs
		w.logger.DebugContext(ctx, "step incomplete",
			slog.String("step", current.String()),
			slog.Int("errors", len(errs)),
		)
		return false
	}

	clear(w.errors)
	next, ok := current.Next()
	if !ok {
		return false
	}

	w.state.CurrentStep = next
	w.saveLocked(ctx)
	return true
}

// Retreat moves one step back without validation. It is a no-op at the
// first step.
func (w *Wizard) Retreat(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	prev, ok := w.state.CurrentStep.Prev()
	if !ok {
		return
	}
	w.state.CurrentStep = prev
	clear(w.errors)
	w.saveLocked(ctx)
}

// JumpTo moves to step without validation.
func (w *Wizard) JumpTo(ctx context.Context, step domain.Step) error {
	if !step.Valid() {
		return fmt.Errorf("jump to %s: %w", step, ErrUnknownStep)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.state.CurrentStep = step
	clear(w.errors)
	w.saveLocked(ctx)
	return nil
}

// IsSubmitting reports whether a submission is in flight, without building a
// full snapshot.
func (w *Wizard) IsSubmitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isSubmittingLocked()
}

func (w *Wizard) isSubmittingLocked() bool {
	return w.submitting || (w.processor != nil && w.processor.Loading())
}

// UpdateContact applies a partial contact update and revalidates the edited
// fields. The form is frozen while a submission is in flight.
func (w *Wizard) UpdateContact(ctx context.Context, u domain.ContactUpdate) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return fmt.Errorf("update contact: %w", ErrSubmissionInFlight)
	}
	touched := u.Apply(&w.state.FormData.Contact)
	w.revalidateLocked(domain.StepContact, touched)
	w.saveLocked(ctx)
	return nil
}

// UpdateShipping applies a partial shipping update and revalidates the edited
// fields. The form is frozen while a submission is in flight.
func (w *Wizard) UpdateShipping(ctx context.Context, u domain.ShippingUpdate) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return fmt.Errorf("update shipping: %w", ErrSubmissionInFlight)
	}
	touched := u.Apply(&w.state.FormData.Shipping)
	w.revalidateLocked(domain.StepShipping, touched)
	w.saveLocked(ctx)
	return nil
}

// SetPaymentMethod selects how the order will be paid.
func (w *Wizard) SetPaymentMethod(ctx context.Context, m domain.PaymentMethod) error {
	if !m.Valid() {
		return fmt.Errorf("set payment method %q: %w", m, ErrUnknownPaymentMethod)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return fmt.Errorf("set payment method: %w", ErrSubmissionInFlight)
	}
	w.state.FormData.PaymentMethod = m
	delete(w.errors, domain.FieldPaymentMethod)
	w.saveLocked(ctx)
	return nil
}

// SetCart replaces the cart snapshot. The cart is not persisted.
func (w *Wizard) SetCart(c domain.Cart) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cart = c
	if !c.IsEmpty() {
		delete(w.errors, domain.FieldCart)
	}
}

// Reset returns the wizard to its initial state and removes the persisted
// copy. The cart snapshot is kept. A wizard with a submission in flight
// cannot be reset.
func (w *Wizard) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return fmt.Errorf("reset: %w", ErrSubmissionInFlight)
	}
	w.resetLocked(ctx)
	w.last = nil
	return nil
}

func (w *Wizard) resetLocked(ctx context.Context) {
	w.state = domain.NewWizardState()
	clear(w.errors)
	w.removeLocked(ctx)
}

func (w *Wizard) revalidateLocked(step domain.Step, fields []string) {
	for _, f := range fields {
		value, _ := w.state.FormData.FieldValue(f)
		if fe := domain.ValidateField(step, f, value); fe != nil {
			w.errors[f] = fe.Message
		} else {
			delete(w.errors, f)
		}
	}
}
