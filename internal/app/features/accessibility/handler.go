// internal/app/features/accessibility/handler.go
package accessibility

import (
	"context"
	"net/http"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/store/prefs"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/devicecookie"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the device's accessibility profile and onboarding wizard.
type Handler struct {
	Prefs  *prefs.Store
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(p *prefs.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Prefs: p, ErrLog: errLog, Log: logger}
}

type profileInput struct {
	TextScale    float64 `json:"text_scale" validate:"omitempty,min=0.8,max=2" label:"Text size"`
	BoldText     bool    `json:"bold_text"`
	HighContrast bool    `json:"high_contrast"`
	VisualNeeds  string  `json:"visual_needs" validate:"omitempty,oneof=normal low_vision blind" label:"Visual needs"`
	AudioNeeds   string  `json:"audio_needs" validate:"omitempty,oneof=normal hearing_loss deaf" label:"Audio needs"`
	MotorNeeds   string  `json:"motor_needs" validate:"omitempty,oneof=normal limited_dexterity" label:"Motor needs"`
	LanguageCode string  `json:"language_code" validate:"omitempty,language" label:"Language"`
}

func device(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := devicecookie.ID(r.Context())
	if id == "" {
		uierrors.RenderBadRequest(w, r, "This browser has no device id; enable cookies.")
		return "", false
	}
	return id, true
}

// ServeProfile handles GET /accessibility. New devices get the defaults
// with wizard_completed false.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	dev, ok := device(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Prefs.Accessibility(ctx, dev)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load accessibility profile", err, "Could not load your settings.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, p)
}

// HandleSave handles PUT /accessibility. The wizard flag is kept as stored.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	dev, ok := device(w, r)
	if !ok {
		return
	}
	var in profileInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode accessibility profile", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.RenderValidation(w, r, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cur, err := h.Prefs.Accessibility(ctx, dev)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load accessibility profile", err, "Could not save your settings.")
		return
	}
	saved, err := h.Prefs.SaveAccessibility(ctx, dev, models.AccessibilityProfile{
		TextScale:       in.TextScale,
		BoldText:        in.BoldText,
		HighContrast:    in.HighContrast,
		VisualNeeds:     in.VisualNeeds,
		AudioNeeds:      in.AudioNeeds,
		MotorNeeds:      in.MotorNeeds,
		LanguageCode:    in.LanguageCode,
		WizardCompleted: cur.WizardCompleted,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "save accessibility profile", err, "Could not save your settings.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, saved)
}

// HandleCompleteWizard handles POST /accessibility/wizard/complete.
func (h *Handler) HandleCompleteWizard(w http.ResponseWriter, r *http.Request) {
	dev, ok := device(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Prefs.CompleteWizard(ctx, dev)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "complete accessibility wizard", err, "Could not save your settings.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, p)
}

// HandleReset handles DELETE /accessibility: the device forgets its
// profile, watermark and permission state and starts over.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	dev, ok := device(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Prefs.Forget(ctx, dev); err != nil {
		h.ErrLog.LogServerError(w, r, "reset device preferences", err, "Could not reset your settings.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
