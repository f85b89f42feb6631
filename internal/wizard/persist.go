package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/utafrali/storefront-checkout/internal/domain"
	"github.com/utafrali/storefront-checkout/internal/store"
)

// persistedState is the stored document. Errors are never stored; validity is
// stored for consumers of the raw document but recomputed on load.
type persistedState struct {
	CurrentStep domain.Step          `json:"current_step"`
	FormData    domain.FormData      `json:"form_data"`
	IsValid     map[domain.Step]bool `json:"is_valid"`
}

// load reads the persisted state and merges it over the defaults. Any
// failure yields the defaults.
func (w *Wizard) load(ctx context.Context) domain.WizardState {
	fresh := domain.NewWizardState()
	if w.store == nil {
		return fresh
	}

	data, err := w.store.Get(ctx, w.key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			w.logger.WarnContext(ctx, "failed to load wizard state, starting fresh",
				slog.String("error", err.Error()),
			)
		}
		return fresh
	}

	doc := persistedState{CurrentStep: fresh.CurrentStep, FormData: fresh.FormData}
	if err := json.Unmarshal(data, &doc); err != nil {
		w.logger.WarnContext(ctx, "discarding unreadable wizard state",
			slog.String("error", err.Error()),
		)
		return fresh
	}

	return domain.WizardState{CurrentStep: doc.CurrentStep, FormData: doc.FormData}
}

// saveLocked writes the current state. Failures are logged and otherwise
// ignored; the in-memory wizard keeps working.
func (w *Wizard) saveLocked(ctx context.Context) {
	if w.store == nil {
		return
	}

	data, err := json.Marshal(persistedState{
		CurrentStep: w.state.CurrentStep,
		FormData:    w.state.FormData,
		IsValid:     domain.Validity(w.state.FormData, w.cart),
	})
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to encode wizard state", slog.String("error", err.Error()))
		return
	}

	if err := w.store.Set(ctx, w.key, data); err != nil {
		w.logger.WarnContext(ctx, "failed to persist wizard state", slog.String("error", err.Error()))
	}
}

func (w *Wizard) removeLocked(ctx context.Context) {
	if w.store == nil {
		return
	}
	if err := w.store.Remove(ctx, w.key); err != nil {
		w.logger.WarnContext(ctx, "failed to remove wizard state", slog.String("error", err.Error()))
	}
}
