package config

import "time"

// CollaboratorsConfig holds the external stage service endpoints. Empty URLs
// disable the corresponding collaborator; the pipeline degrades per stage
// instead of failing.
type CollaboratorsConfig struct {
    SegmenterURL   string `mapstructure:"segmenter_url"`
    RefinerURL     string `mapstructure:"refiner_url"`
    TranscriberURL string `mapstructure:"transcriber_url"`
    EncoderURL     string `mapstructure:"encoder_url"`
    TelemetryURL   string `mapstructure:"telemetry_url"`

    // RefineTimeout bounds each coordinate-refinement call. Generous, to
    // tolerate cold starts in the remote detector.
    RefineTimeout time.Duration `mapstructure:"refine_timeout"`
    // CallTimeout bounds every other collaborator call.
    CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// DefaultCollaborators returns collaborator defaults.
func DefaultCollaborators() CollaboratorsConfig {
    return CollaboratorsConfig{
        TelemetryURL:  "http://manufacturing-iot-hub/v1/telemetry",
        RefineTimeout: 30 * time.Second,
        CallTimeout:   60 * time.Second,
    }
}
