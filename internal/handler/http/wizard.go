package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront-checkout/internal/domain"
	"github.com/utafrali/storefront-checkout/internal/service"
	"github.com/utafrali/storefront-checkout/internal/wizard"
	"github.com/utafrali/storefront-checkout/pkg/httputil"
	"github.com/utafrali/storefront-checkout/pkg/middleware"
	"github.com/utafrali/storefront-checkout/pkg/pagination"
	"github.com/utafrali/storefront-checkout/pkg/validator"
)

func init() {
	mustRegister("wizard_step", func(v string) bool {
		_, err := domain.ParseStep(v)
		return err == nil
	})
	mustRegister("payment_method", func(v string) bool {
		return domain.PaymentMethod(v).Valid()
	})
}

func mustRegister(tag string, fn func(string) bool) {
	if err := validator.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// WizardHandler handles HTTP requests for the checkout wizard.
type WizardHandler struct {
	service *service.WizardService
	logger  *slog.Logger
}

// NewWizardHandler creates a new wizard HTTP handler.
func NewWizardHandler(svc *service.WizardService, logger *slog.Logger) *WizardHandler {
	return &WizardHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// SetPaymentMethodRequest is the JSON request body for choosing how to pay.
type SetPaymentMethodRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,payment_method"`
}

// JumpRequest is the JSON request body for moving to an arbitrary step.
type JumpRequest struct {
	Step string `json:"step" validate:"required,wizard_step"`
}

// --- Handlers ---

// GetWizard handles GET /api/v1/checkout/wizard
func (h *WizardHandler) GetWizard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context(), middleware.SessionIDFromRequest(r))
	h.respond(w, r, http.StatusOK, snap, err)
}

// UpdateContact handles PATCH /api/v1/checkout/wizard/contact
func (h *WizardHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var req domain.ContactUpdate
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	snap, err := h.service.UpdateContact(r.Context(), middleware.SessionIDFromRequest(r), req)
	h.respond(w, r, http.StatusOK, snap, err)
}

// UpdateShipping handles PATCH /api/v1/checkout/wizard/shipping
func (h *WizardHandler) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	var req domain.ShippingUpdate
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	snap, err := h.service.UpdateShipping(r.Context(), middleware.SessionIDFromRequest(r), req)
	h.respond(w, r, http.StatusOK, snap, err)
}

// SetPaymentMethod handles PUT /api/v1/checkout/wizard/payment
func (h *WizardHandler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req SetPaymentMethodRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	snap, err := h.service.SetPaymentMethod(r.Context(), middleware.SessionIDFromRequest(r), domain.PaymentMethod(req.PaymentMethod))
	h.respond(w, r, http.StatusOK, snap, err)
}

// Advance handles POST /api/v1/checkout/wizard/advance. A blocked advance
// answers 422 with the failing fields.
func (h *WizardHandler) Advance(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Advance(r.Context(), middleware.SessionIDFromRequest(r))
	h.respond(w, r, http.StatusOK, snap, err)
}

// Retreat handles POST /api/v1/checkout/wizard/retreat
func (h *WizardHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Retreat(r.Context(), middleware.SessionIDFromRequest(r))
	h.respond(w, r, http.StatusOK, snap, err)
}

// Jump handles POST /api/v1/checkout/wizard/jump
func (h *WizardHandler) Jump(w http.ResponseWriter, r *http.Request) {
	var req JumpRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	// The validator already checked the name.
	step, _ := domain.ParseStep(req.Step)
	snap, err := h.service.JumpTo(r.Context(), middleware.SessionIDFromRequest(r), step)
	h.respond(w, r, http.StatusOK, snap, err)
}

// Submit handles POST /api/v1/checkout/wizard/submit. The submission runs in
// the background; poll GET /api/v1/checkout/wizard for the result.
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Submit(r.Context(), middleware.SessionIDFromRequest(r))
	h.respond(w, r, http.StatusAccepted, snap, err)
}

// Reset handles DELETE /api/v1/checkout/wizard
func (h *WizardHandler) Reset(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Reset(r.Context(), middleware.SessionIDFromRequest(r))
	h.respond(w, r, http.StatusOK, snap, err)
}

// ListSubmissions handles GET /api/v1/checkout/wizard/submissions
func (h *WizardHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromQuery(r.URL.Query())

	result, err := h.service.Submissions(r.Context(), middleware.SessionIDFromRequest(r), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

func (h *WizardHandler) respond(w http.ResponseWriter, r *http.Request, status int, snap *wizard.Snapshot, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, status, snap)
}
