// Package model holds the wire-level types exchanged with the
// exposure-notification backend and the platform matching engine.
package model

// Manifest describes which key sets and configuration are current for
// one processing cycle. It is fetched fresh every cycle and never
// persisted as a whole.
type Manifest struct {
	ExposureKeySetIDs           []string `json:"exposureKeysSetIds"`
	RiskCalculationParametersID string   `json:"riskCalculationParametersId"`
	AppConfigID                 string   `json:"appConfigId"`
}

// ExposureKeySet is one downloaded key set artifact. Path is empty when
// the download or the local save failed; the key set is then retried on
// the next cycle because it is never marked processed.
type ExposureKeySet struct {
	ID   string
	Path string
}

// Valid reports whether the key set file made it to local storage.
func (k ExposureKeySet) Valid() bool {
	return k.Path != ""
}

// RiskCalculationParameters holds the scoring configuration for the
// matching engine. The four score tables carry 8 entries each; the
// attenuation thresholds carry at least 2. Field names follow the
// backend's JSON casing exactly.
type RiskCalculationParameters struct {
	MinimumRiskScore                int   `json:"MinimumRiskScore"`
	AttenuationScores               []int `json:"AttenuationScores"`
	DaysSinceLastExposureScores     []int `json:"DaysSinceLastExposureScores"`
	DurationScores                  []int `json:"DurationScores"`
	TransmissionRiskScores          []int `json:"TransmissionRiskScores"`
	DurationAtAttenuationThresholds []int `json:"DurationAtAttenuationThresholds"`
}

// AppConfig carries server-controlled operational parameters. The core
// only consumes ManifestFrequencyMinutes; the remaining fields are
// parsed for completeness.
type AppConfig struct {
	Version                  int     `json:"version"`
	ManifestFrequencyMinutes int     `json:"manifestFrequencyMinutes"`
	DecoyProbability         float64 `json:"decoyProbability"`
	RequestMinimumSize       int     `json:"requestMinimumSize"`
	RequestMaximumSize       int     `json:"requestMaximumSize"`
}
