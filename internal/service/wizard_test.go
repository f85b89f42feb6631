package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-checkout/internal/cart"
	"github.com/utafrali/storefront-checkout/internal/domain"
	"github.com/utafrali/storefront-checkout/internal/event"
	"github.com/utafrali/storefront-checkout/internal/store/memory"
	"github.com/utafrali/storefront-checkout/internal/wizard"
	apperrors "github.com/utafrali/storefront-checkout/pkg/errors"
	"github.com/utafrali/storefront-checkout/pkg/pagination"
)

// --- Mock Submission Repository ---

type mockSubmissionRepository struct {
	mock.Mock
}

func (m *mockSubmissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockSubmissionRepository) Complete(ctx context.Context, s *domain.Submission) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockSubmissionRepository) ListBySession(ctx context.Context, sessionID string, page pagination.Params) ([]domain.Submission, int, error) {
	args := m.Called(ctx, sessionID, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Submission), args.Int(1), args.Error(2)
}

// --- Mock Event Publisher ---

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishStepCompleted(ctx context.Context, data event.StepCompletedData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *mockEvents) PublishSubmitted(ctx context.Context, s *domain.Submission) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockEvents) PublishSubmissionFailed(ctx context.Context, s *domain.Submission) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// --- Stub Processor ---

type stubProcessor struct {
	mu      sync.Mutex
	release chan struct{}
	order   *domain.CashOrder
	fail    error
	err     error
	billing domain.BillingData
}

func (p *stubProcessor) UpdateBillingData(b domain.BillingData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.billing = b
}

func (p *stubProcessor) CreateCashOrder(_ context.Context, _ bool, _ domain.BillingData) (*domain.CashOrder, error) {
	if p.release != nil {
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		p.err = p.fail
		return nil, p.fail
	}
	return p.order, nil
}

func (p *stubProcessor) InitiateGatewayCheckout(context.Context, bool) (*domain.GatewayCheckout, error) {
	return &domain.GatewayCheckout{PreferenceID: "pref-1", InitPoint: "https://gateway.example/init"}, nil
}

func (p *stubProcessor) Loading() bool { return false }

func (p *stubProcessor) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func ptr[T any](v T) *T { return &v }

func testCart() domain.Cart {
	return domain.NewCart([]domain.LineItem{
		{ProductID: "prod-1", Name: "Yerba 1kg", UnitPrice: 12000, Quantity: 2},
	})
}

type fixture struct {
	svc    *WizardService
	repo   *mockSubmissionRepository
	events *mockEvents
	proc   *stubProcessor
	store  *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:   new(mockSubmissionRepository),
		events: new(mockEvents),
		proc:   &stubProcessor{order: &domain.CashOrder{OrderID: "ord-77", Total: 34000}},
		store:  memory.New(),
	}
	f.svc = NewWizardService(
		f.store,
		cart.Static(testCart()),
		func(string) wizard.Processor { return f.proc },
		f.repo,
		f.events,
		newTestLogger(),
	)
	return f
}

func (f *fixture) fillForm(t *testing.T, sessionID string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.UpdateContact(ctx, sessionID, domain.ContactUpdate{
		FirstName: ptr("Lucía"),
		LastName:  ptr("Fernández"),
		Phone:     ptr("351 555-1234"),
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateShipping(ctx, sessionID, domain.ShippingUpdate{
		StreetAddress: ptr("Av. Vélez Sársfield 299"),
	})
	require.NoError(t, err)
	_, err = f.svc.JumpTo(ctx, sessionID, domain.StepConfirmation)
	require.NoError(t, err)
}

func waitInflight(t *testing.T, svc *WizardService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Wait(ctx))
}

func requireAppError(t *testing.T, err error, status int, code string) *apperrors.AppError {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, status, appErr.Status)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

// --- Registry Tests ---

func TestSnapshot_RequiresSessionID(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Snapshot(context.Background(), "")
	requireAppError(t, err, 400, "INVALID_INPUT")
}

func TestSnapshot_FreshWizardWithCart(t *testing.T) {
	f := newFixture(t)

	snap, err := f.svc.Snapshot(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.Equal(t, domain.StepSummary, snap.CurrentStep)
	assert.Equal(t, int64(24000), snap.Cart.TotalPrice)
	assert.Equal(t, int64(34000), snap.Quote.Total)
	assert.True(t, snap.IsValid[domain.StepSummary])
}

type flakyCarts struct {
	calls int
}

func (c *flakyCarts) Cart(context.Context, string) (domain.Cart, error) {
	c.calls++
	if c.calls > 1 {
		return domain.Cart{}, errors.New("cart service down")
	}
	return testCart(), nil
}

func TestSnapshot_KeepsPreviousCartWhenRefreshFails(t *testing.T) {
	f := newFixture(t)
	carts := &flakyCarts{}
	f.svc.carts = carts

	_, err := f.svc.Snapshot(context.Background(), "sess-1")
	require.NoError(t, err)

	snap, err := f.svc.Snapshot(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, carts.calls)
	assert.Equal(t, int64(24000), snap.Cart.TotalPrice)
}

func TestSessions_AreIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.JumpTo(ctx, "sess-a", domain.StepPayment)
	require.NoError(t, err)

	snap, err := f.svc.Snapshot(ctx, "sess-b")
	require.NoError(t, err)
	assert.Equal(t, domain.StepSummary, snap.CurrentStep)
}

func TestSessions_RehydrateFromStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillForm(t, "sess-1")

	other := NewWizardService(f.store, cart.Static(testCart()),
		func(string) wizard.Processor { return f.proc }, f.repo, f.events, newTestLogger())

	snap, err := other.Snapshot(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepConfirmation, snap.CurrentStep)
	assert.Equal(t, "Lucía", snap.FormData.Contact.FirstName)
}

func TestEvictIdle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	_, err := f.svc.JumpTo(ctx, "old", domain.StepContact)
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	_, err = f.svc.Snapshot(ctx, "fresh")
	require.NoError(t, err)

	assert.Equal(t, 1, f.svc.EvictIdle(10*time.Minute))
	assert.Len(t, f.svc.sessions, 1)
	assert.Contains(t, f.svc.sessions, "fresh")

	// The evicted wizard comes back from the store.
	snap, err := f.svc.Snapshot(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, domain.StepContact, snap.CurrentStep)
}

// --- Step Transition Tests ---

func TestAdvance_PublishesStepCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.events.On("PublishStepCompleted", mock.Anything, event.StepCompletedData{
		SessionID: "sess-1",
		Step:      domain.StepSummary,
		NextStep:  domain.StepContact,
		ItemCount: 2,
		Subtotal:  24000,
	}).Return(nil)

	snap, err := f.svc.Advance(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepContact, snap.CurrentStep)
	assert.Empty(t, snap.Errors)

	f.events.AssertExpectations(t)
}

func TestAdvance_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)

	f.events.On("PublishStepCompleted", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	snap, err := f.svc.Advance(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepContact, snap.CurrentStep)
}

func TestAdvance_BlockedReturnsFieldErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.JumpTo(ctx, "sess-1", domain.StepContact)
	require.NoError(t, err)
	_, err = f.svc.UpdateContact(ctx, "sess-1", domain.ContactUpdate{Phone: ptr("abc")})
	require.NoError(t, err)

	snap, err := f.svc.Advance(ctx, "sess-1")
	appErr := requireAppError(t, err, 422, "STEP_INCOMPLETE")
	require.NotNil(t, snap)
	assert.Equal(t, domain.StepContact, snap.CurrentStep)
	assert.Contains(t, appErr.Fields, domain.FieldFirstName)
	assert.Contains(t, appErr.Fields, domain.FieldPhone)

	f.events.AssertNotCalled(t, "PublishStepCompleted", mock.Anything, mock.Anything)
}

func TestAdvance_AtConfirmationIsNoop(t *testing.T) {
	f := newFixture(t)
	f.fillForm(t, "sess-1")

	snap, err := f.svc.Advance(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepConfirmation, snap.CurrentStep)
	f.events.AssertNotCalled(t, "PublishStepCompleted", mock.Anything, mock.Anything)
}

func TestRetreat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.JumpTo(ctx, "sess-1", domain.StepShipping)
	require.NoError(t, err)

	snap, err := f.svc.Retreat(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepContact, snap.CurrentStep)
}

func TestJumpTo_UnknownStep(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.JumpTo(context.Background(), "sess-1", domain.Step(42))
	requireAppError(t, err, 400, "INVALID_INPUT")
}

func TestSetPaymentMethod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snap, err := f.svc.SetPaymentMethod(ctx, "sess-1", domain.PaymentMercadoPago)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentMercadoPago, snap.FormData.PaymentMethod)

	_, err = f.svc.SetPaymentMethod(ctx, "sess-1", domain.PaymentMethod("barter"))
	requireAppError(t, err, 400, "INVALID_INPUT")
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillForm(t, "sess-1")

	snap, err := f.svc.Reset(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepSummary, snap.CurrentStep)
	assert.Equal(t, domain.NewFormData(), snap.FormData)
	assert.Equal(t, 0, f.store.Len())
}

// --- Submit Tests ---

func TestSubmit_IncompleteFormIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), "sess-1")
	appErr := requireAppError(t, err, 422, "INVALID_INPUT")
	assert.Contains(t, appErr.Fields, domain.FieldFirstName)
	assert.Contains(t, appErr.Fields, domain.FieldStreetAddress)

	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmit_CashSuccessIsRecordedAndPublished(t *testing.T) {
	f := newFixture(t)
	f.proc.release = make(chan struct{})
	ctx := context.Background()
	f.fillForm(t, "sess-1")

	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.Submission) bool {
		return s.SessionID == "sess-1" &&
			s.Status == domain.SubmissionPending &&
			s.PaymentMethod == domain.PaymentCash &&
			s.Total == 34000 &&
			s.ID != ""
	})).Return(nil)
	f.repo.On("Complete", mock.Anything, mock.MatchedBy(func(s *domain.Submission) bool {
		return s.Status == domain.SubmissionSucceeded && s.OrderID == "ord-77" && s.CompletedAt != nil
	})).Return(nil)
	f.events.On("PublishSubmitted", mock.Anything, mock.AnythingOfType("*domain.Submission")).Return(nil)

	snap, err := f.svc.Submit(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, snap.IsSubmitting)

	close(f.proc.release)
	waitInflight(t, f.svc)

	after, err := f.svc.Snapshot(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, after.IsSubmitting)
	assert.Equal(t, domain.StepSummary, after.CurrentStep)
	require.NotNil(t, after.LastResult)
	assert.Equal(t, "ord-77", after.LastResult.CashOrder.OrderID)

	assert.Equal(t, "Lucía", f.proc.billing.FirstName)
	assert.Equal(t, domain.BillingCity, f.proc.billing.City)

	f.repo.AssertExpectations(t)
	f.events.AssertExpectations(t)
	f.events.AssertNotCalled(t, "PublishSubmissionFailed", mock.Anything, mock.Anything)
}

func TestSubmit_FailureIsRecordedAndPublished(t *testing.T) {
	f := newFixture(t)
	f.proc.fail = apperrors.ServiceUnavailable("order service unavailable")
	ctx := context.Background()
	f.fillForm(t, "sess-1")

	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.repo.On("Complete", mock.Anything, mock.MatchedBy(func(s *domain.Submission) bool {
		return s.Status == domain.SubmissionFailed && s.FailureReason != ""
	})).Return(nil)
	f.events.On("PublishSubmissionFailed", mock.Anything, mock.AnythingOfType("*domain.Submission")).Return(nil)

	_, err := f.svc.Submit(ctx, "sess-1")
	require.NoError(t, err)
	waitInflight(t, f.svc)

	after, err := f.svc.Snapshot(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, after.IsSubmitting)
	assert.Equal(t, domain.StepConfirmation, after.CurrentStep, "form is kept for a retry")
	require.NotNil(t, after.LastResult)
	assert.Contains(t, after.LastResult.Error, "order service unavailable")

	f.repo.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestSubmit_InFlightIsConflict(t *testing.T) {
	f := newFixture(t)
	f.proc.release = make(chan struct{})
	ctx := context.Background()
	f.fillForm(t, "sess-1")

	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.repo.On("Complete", mock.Anything, mock.Anything).Return(nil)
	f.events.On("PublishSubmitted", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Submit(ctx, "sess-1")
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, "sess-1")
	requireAppError(t, err, 409, "CONFLICT")

	_, err = f.svc.UpdateContact(ctx, "sess-1", domain.ContactUpdate{FirstName: ptr("Otro")})
	requireAppError(t, err, 409, "CONFLICT")
	_, err = f.svc.UpdateShipping(ctx, "sess-1", domain.ShippingUpdate{Apartment: ptr("1A")})
	requireAppError(t, err, 409, "CONFLICT")
	_, err = f.svc.SetPaymentMethod(ctx, "sess-1", domain.PaymentMercadoPago)
	requireAppError(t, err, 409, "CONFLICT")
	_, err = f.svc.Reset(ctx, "sess-1")
	requireAppError(t, err, 409, "CONFLICT")

	close(f.proc.release)
	waitInflight(t, f.svc)
	f.repo.AssertNumberOfCalls(t, "Create", 1)
}

func TestEvictIdle_KeepsSubmittingWizards(t *testing.T) {
	f := newFixture(t)
	f.proc.release = make(chan struct{})
	ctx := context.Background()

	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }
	f.fillForm(t, "sess-1")

	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.repo.On("Complete", mock.Anything, mock.Anything).Return(nil)
	f.events.On("PublishSubmitted", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Submit(ctx, "sess-1")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	assert.Equal(t, 0, f.svc.EvictIdle(10*time.Minute))
	assert.Contains(t, f.svc.sessions, "sess-1")

	close(f.proc.release)
	waitInflight(t, f.svc)
	assert.Equal(t, 1, f.svc.EvictIdle(10*time.Minute))
}

func TestSubmit_AuditFailuresDoNotFailSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillForm(t, "sess-1")

	f.repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	f.repo.On("Complete", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	f.events.On("PublishSubmitted", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	_, err := f.svc.Submit(ctx, "sess-1")
	require.NoError(t, err)
	waitInflight(t, f.svc)

	after, err := f.svc.Snapshot(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, after.LastResult)
	assert.True(t, after.LastResult.Succeeded())
}

func TestSubmit_DetachedFromRequestContext(t *testing.T) {
	f := newFixture(t)
	f.proc.release = make(chan struct{})
	f.fillForm(t, "sess-1")

	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.repo.On("Complete", mock.Anything, mock.Anything).Return(nil)
	f.events.On("PublishSubmitted", mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.svc.Submit(ctx, "sess-1")
	require.NoError(t, err)
	cancel()

	close(f.proc.release)
	waitInflight(t, f.svc)
	f.events.AssertCalled(t, "PublishSubmitted", mock.Anything, mock.Anything)
}

// --- Submissions Tests ---

func TestSubmissions_Paginates(t *testing.T) {
	f := newFixture(t)
	page := pagination.Params{Page: 1, PerPage: 2}

	items := []domain.Submission{
		{ID: "sub-3", SessionID: "sess-1", Status: domain.SubmissionSucceeded},
		{ID: "sub-2", SessionID: "sess-1", Status: domain.SubmissionFailed},
	}
	f.repo.On("ListBySession", mock.Anything, "sess-1", page).Return(items, 3, nil)

	got, err := f.svc.Submissions(context.Background(), "sess-1", page)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, 3, got.TotalCount)
	assert.Equal(t, 2, got.TotalPages)
	assert.True(t, got.HasNext)
}

func TestSubmissions_RepositoryError(t *testing.T) {
	f := newFixture(t)
	page := pagination.Params{Page: 1, PerPage: 20}
	f.repo.On("ListBySession", mock.Anything, "sess-1", page).Return(nil, 0, errors.New("boom"))

	_, err := f.svc.Submissions(context.Background(), "sess-1", page)
	require.Error(t, err)
}
