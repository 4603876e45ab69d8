// Package enengine defines the platform exposure-matching engine as a
// black-box collaborator: keys and scoring configuration go in, a
// success/failure result and later-retrievable summaries come out.
package enengine

import (
	"context"

	"github.com/jellelicht/exposure-agent/internal/model"
)

// Config is the engine's native scoring configuration, derived from the
// backend's risk calculation parameters.
type Config struct {
	MinimumRiskScore                int   `json:"minimumRiskScore"`
	AttenuationScores               []int `json:"attenuationScores"`
	DaysSinceLastExposureScores     []int `json:"daysSinceLastExposureScores"`
	DurationScores                  []int `json:"durationScores"`
	TransmissionRiskScores          []int `json:"transmissionRiskScores"`
	DurationAtAttenuationThresholds []int `json:"durationAtAttenuationThresholds"`
}

// Summary is the engine's verdict for one submission token. A nil
// Summary means the engine found no qualifying exposure.
type Summary struct {
	DaysSinceLastExposure int `json:"daysSinceLastExposure"`
}

// Engine is the platform diagnosis-key matching capability.
type Engine interface {
	// Enabled reports whether exposure notifications are currently
	// enabled on the platform.
	Enabled(ctx context.Context) bool
	// ProvideDiagnosisKeys submits downloaded key set files together
	// with the scoring configuration under an opaque token.
	ProvideDiagnosisKeys(ctx context.Context, files []string, cfg Config, token string) error
	// GetSummary returns the exposure summary for a token, or nil if
	// the engine has no match for it.
	GetSummary(ctx context.Context, token string) (*Summary, error)
}

// ConfigFromRiskParameters translates backend risk calculation
// parameters into the engine's configuration format.
func ConfigFromRiskParameters(p *model.RiskCalculationParameters) Config {
	return Config{
		MinimumRiskScore:                p.MinimumRiskScore,
		AttenuationScores:               p.AttenuationScores,
		DaysSinceLastExposureScores:     p.DaysSinceLastExposureScores,
		DurationScores:                  p.DurationScores,
		TransmissionRiskScores:          p.TransmissionRiskScores,
		DurationAtAttenuationThresholds: p.DurationAtAttenuationThresholds,
	}
}
