package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront-checkout/internal/cart"
	"github.com/utafrali/storefront-checkout/internal/domain"
	"github.com/utafrali/storefront-checkout/internal/event"
	"github.com/utafrali/storefront-checkout/internal/repository"
	"github.com/utafrali/storefront-checkout/internal/store"
	"github.com/utafrali/storefront-checkout/internal/wizard"
	apperrors "github.com/utafrali/storefront-checkout/pkg/errors"
	"github.com/utafrali/storefront-checkout/pkg/pagination"
)

// ProcessorFactory returns the checkout collaborator for a session.
type ProcessorFactory func(sessionID string) wizard.Processor

// EventPublisher publishes wizard analytics events.
type EventPublisher interface {
	PublishStepCompleted(ctx context.Context, data event.StepCompletedData) error
	PublishSubmitted(ctx context.Context, s *domain.Submission) error
	PublishSubmissionFailed(ctx context.Context, s *domain.Submission) error
}

type session struct {
	wizard   *wizard.Wizard
	lastSeen time.Time
}

// WizardService keeps one wizard per shopper session and connects it to the
// cart, the checkout processor, the submission audit trail and analytics.
type WizardService struct {
	mu       sync.Mutex
	sessions map[string]*session

	store      store.Store
	carts      cart.Provider
	processors ProcessorFactory
	repo       repository.SubmissionRepository
	events     EventPublisher
	logger     *slog.Logger
	now        func() time.Time

	inflight sync.WaitGroup
}

// NewWizardService creates a new wizard service.
func NewWizardService(
	st store.Store,
	carts cart.Provider,
	processors ProcessorFactory,
	repo repository.SubmissionRepository,
	events EventPublisher,
	logger *slog.Logger,
) *WizardService {
	return &WizardService{
		sessions:   make(map[string]*session),
		store:      st,
		carts:      carts,
		processors: processors,
		repo:       repo,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// wizardFor returns the session's wizard, rehydrating it from the store on
// first use, and refreshes its cart.
func (s *WizardService) wizardFor(ctx context.Context, sessionID string) (*wizard.Wizard, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		sess.lastSeen = s.now()
	}
	s.mu.Unlock()

	if !ok {
		w := wizard.New(ctx, sessionID,
			wizard.WithStore(s.store),
			wizard.WithProcessor(s.processors(sessionID)),
			wizard.WithLogger(s.logger),
		)

		s.mu.Lock()
		// Another request for the same session may have won the race.
		if sess, ok = s.sessions[sessionID]; !ok {
			sess = &session{wizard: w}
			s.sessions[sessionID] = sess
			activeSessions.Inc()
		}
		sess.lastSeen = s.now()
		s.mu.Unlock()
	}

	s.refreshCart(ctx, sessionID, sess.wizard)
	return sess.wizard, nil
}

// refreshCart loads the current cart. On failure the previous snapshot is
// kept.
func (s *WizardService) refreshCart(ctx context.Context, sessionID string, w *wizard.Wizard) {
	c, err := s.carts.Cart(ctx, sessionID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to refresh cart",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return
	}
	w.SetCart(c)
}

// Snapshot returns the session's wizard state.
func (s *WizardService) Snapshot(ctx context.Context, sessionID string) (*wizard.Snapshot, error) {
	w, err := s.wizardFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snap := w.Snapshot()
	return &snap, nil
}

// UpdateContact applies a partial contact update.
func (s *WizardService) UpdateContact(ctx context.Context, sessionID string, u domain.ContactUpdate) (*wizard.Snapshot, error) {
	w, err := s.wizardFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := w.UpdateContact(ctx, u); err != nil {
		return nil, mutationError(err)
	}
	snap := w.Snapshot()
	return &snap, nil
}

// UpdateShipping applies a partial shipping update.
func (s *WizardService) UpdateShipping(ctx context.Context, sessionID string, u domain.ShippingUpdate) (*wizard.Snapshot, error) {
	w, err := s.wizardFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := w.UpdateShipping(ctx, u); err != nil {
		return nil, mutationError(err)
	}
	snap := w.Snapshot()
	return &snap, nil
}

// SetPaymentMethod selects the payment method.
func (s *WizardService) SetPaymentMethod(ctx context.Context, sessionID string, m domain.PaymentMethod) (*wizard.Snapshot, error) {
	w, err := s.wizardFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := w.SetPaymentMethod(ctx, m); err != nil {
		return nil, mutationError(err)
	}
	snap := w.Snapshot()
	return &snap, nil
}

// Advance moves to the next step when the current one is valid. A blocked
// advance returns the snapshot together with a 422 carrying the field errors.
func (s *WizardService) Advance(ctx context.Context, sessionID string) (*wizard.Snapshot, error) {
	w, err := s.wizardFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	from := w.Snapshot().CurrentStep
	advanced := w.Advance(ctx)
	snap := w.Snapshot()

	if !advanced {
		if len(snap.Errors) == 0 {
			// Confirmation has no successor.
			return &snap, nil
		}
		stepRejectionsTotal.WithLabelValues(from.String()).Inc()
		return &snap, apperrors.Unprocessable("STEP_INCOMPLETE", "the current step has invalid fields", snap.Errors)
	}

	stepsCompletedTotal.WithLabelValues(from.String()).Inc()
	if err := s.events.PublishStepCompleted(ctx, event.StepCompletedData{
		SessionID: sessionID,
		Step:      from,
		NextStep:  snap.CurrentStep,
		ItemCount: snap.Cart.ItemCount(),
		Subtotal:  snap.Quote.Subtotal,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish step completed event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	return &snap, nil
}

// Retreat moves one step back.
func (s *WizardService) Retreat(ctx context.Context, sessionID string) (*wizard.Snapshot, error) {
	w, err := s.wizardFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	w.Retreat(ctx)
	snap := w.Snapshot()
	return &snap, nil
}

// JumpTo moves directly to step.
func (s *WizardService) JumpTo(ctx context.Context, sessionID string, step domain.Step) (*wizard.Snapshot, error) {
	w, err := s.wizardFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := w.JumpTo(ctx, step); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	snap := w.Snapshot()
	return &snap, nil
}

// Reset clears the session's wizard.
func (s *WizardService) Reset(ctx context.Context, sessionID string) (*wizard.Snapshot, error) {
	w, err := s.wizardFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := w.Reset(ctx); err != nil {
		return nil, mutationError(err)
	}
	snap := w.Snapshot()
	return &snap, nil
}

// mutationError maps a rejected wizard edit onto an application error.
func mutationError(err error) error {
	if errors.Is(err, wizard.ErrSubmissionInFlight) {
		return apperrors.Conflict("a checkout submission is in progress")
	}
	return apperrors.InvalidInput(err.Error())
}

// Submit validates the whole form and hands it to the checkout processor.
// The returned snapshot reports the submission as in progress; the outcome
// is recorded once the processor answers.
func (s *WizardService) Submit(ctx context.Context, sessionID string) (*wizard.Snapshot, error) {
	w, err := s.wizardFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	before := w.Snapshot()
	if errs := domain.ValidateStep(domain.StepConfirmation, before.FormData, before.Cart); len(errs) > 0 {
		return nil, apperrors.Unprocessable("INVALID_INPUT", "the checkout form is incomplete", errs)
	}

	results, err := w.Submit(ctx)
	if err != nil {
		if errors.Is(err, wizard.ErrSubmissionInFlight) {
			return nil, apperrors.Conflict(err.Error())
		}
		return nil, apperrors.Internal(err)
	}
	snap := w.Snapshot()

	sub := &domain.Submission{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		PaymentMethod: before.FormData.PaymentMethod,
		Status:        domain.SubmissionPending,
		Total:         before.Quote.Total,
		CreatedAt:     s.now().UTC(),
	}
	bgCtx := context.WithoutCancel(ctx)
	if err := s.repo.Create(bgCtx, sub); err != nil {
		s.logger.ErrorContext(ctx, "failed to record submission",
			slog.String("submission_id", sub.ID),
			slog.String("error", err.Error()),
		)
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.recordResult(bgCtx, sub, <-results)
	}()

	return &snap, nil
}

func (s *WizardService) recordResult(ctx context.Context, sub *domain.Submission, res wizard.SubmitResult) {
	sub.Complete(res.Outcome, s.now().UTC())
	submissionsTotal.WithLabelValues(sub.PaymentMethod.String(), sub.Status).Inc()

	if err := s.repo.Complete(ctx, sub); err != nil {
		s.logger.ErrorContext(ctx, "failed to complete submission record",
			slog.String("submission_id", sub.ID),
			slog.String("error", err.Error()),
		)
	}

	publish := s.events.PublishSubmitted
	if sub.Status == domain.SubmissionFailed {
		publish = s.events.PublishSubmissionFailed
	}
	if err := publish(ctx, sub); err != nil {
		s.logger.WarnContext(ctx, "failed to publish submission event",
			slog.String("submission_id", sub.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Submissions returns the session's submission history, newest first.
func (s *WizardService) Submissions(ctx context.Context, sessionID string, page pagination.Params) (*pagination.Page[domain.Submission], error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	items, total, err := s.repo.ListBySession(ctx, sessionID, page)
	if err != nil {
		return nil, err
	}
	p := pagination.NewPage(items, total, page)
	return &p, nil
}

// EvictIdle drops wizards not used for longer than idle. Their state stays in
// the store and is rehydrated on the next request. Wizards with a submission
// in flight are kept.
func (s *WizardService) EvictIdle(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.After(cutoff) || sess.wizard.IsSubmitting() {
			continue
		}
		delete(s.sessions, id)
		evicted++
	}
	activeSessions.Sub(float64(evicted))
	return evicted
}

// Wait blocks until every in-flight submission has been recorded or ctx is
// done.
func (s *WizardService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
