// internal/domain/models/accessibility.go
package models

// Needs categories chosen in the onboarding wizard.
const (
	NeedsNormal = "normal"

	VisualLowVision = "low_vision"
	VisualBlind     = "blind"

	AudioHearingLoss = "hearing_loss"
	AudioDeaf        = "deaf"

	MotorLimitedDexterity = "limited_dexterity"
)

// Text scale bounds.
const (
	MinTextScale = 0.8
	MaxTextScale = 2.0
)

// DefaultLanguage is used when a device has not picked one.
const DefaultLanguage = "fr"

// SupportedLanguages are the wizard's language choices.
var SupportedLanguages = []string{"fr", "en", "ar"}

// AccessibilityProfile is the per-device preference bundle.
type AccessibilityProfile struct {
	TextScale       float64 `json:"text_scale"`
	BoldText        bool    `json:"bold_text"`
	HighContrast    bool    `json:"high_contrast"`
	VisualNeeds     string  `json:"visual_needs"`
	AudioNeeds      string  `json:"audio_needs"`
	MotorNeeds      string  `json:"motor_needs"`
	LanguageCode    string  `json:"language_code"`
	WizardCompleted bool    `json:"wizard_completed"`
}

// DefaultAccessibilityProfile is what a new device starts with.
func DefaultAccessibilityProfile() AccessibilityProfile {
	return AccessibilityProfile{
		TextScale:    1,
		VisualNeeds:  NeedsNormal,
		AudioNeeds:   NeedsNormal,
		MotorNeeds:   NeedsNormal,
		LanguageCode: DefaultLanguage,
	}
}

// Normalized clamps and defaults every field. A blind visual category
// always turns high contrast on.
func (p AccessibilityProfile) Normalized() AccessibilityProfile {
	switch {
	case p.TextScale == 0:
		p.TextScale = 1
	case p.TextScale < MinTextScale:
		p.TextScale = MinTextScale
	case p.TextScale > MaxTextScale:
		p.TextScale = MaxTextScale
	}
	p.VisualNeeds = oneOf(p.VisualNeeds, VisualLowVision, VisualBlind)
	p.AudioNeeds = oneOf(p.AudioNeeds, AudioHearingLoss, AudioDeaf)
	p.MotorNeeds = oneOf(p.MotorNeeds, MotorLimitedDexterity)
	if p.VisualNeeds == VisualBlind {
		p.HighContrast = true
	}
	p.LanguageCode = oneOf(p.LanguageCode, SupportedLanguages...)
	if p.LanguageCode == NeedsNormal {
		p.LanguageCode = DefaultLanguage
	}
	return p
}

func oneOf(v string, allowed ...string) string {
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return NeedsNormal
}

// NotificationPermission is the desktop notification permission state of a device.
type NotificationPermission string

const (
	PermissionDefault NotificationPermission = "default"
	PermissionGranted NotificationPermission = "granted"
	PermissionDenied  NotificationPermission = "denied"
)

// IsValid reports whether p is a known state.
func (p NotificationPermission) IsValid() bool {
	return p == PermissionDefault || p == PermissionGranted || p == PermissionDenied
}

// IsSupportedLanguage reports whether code is one of SupportedLanguages.
func IsSupportedLanguage(code string) bool {
	for _, l := range SupportedLanguages {
		if code == l {
			return true
		}
	}
	return false
}
