// Package schema defines the data objects exchanged between the dispatcher,
// the worker tier, and downstream pathway consumers.
package schema

import "time"

// TaskSpec is the immutable unit of submitted work. TaskID doubles as the
// idempotency key and the storage namespace prefix for the produced artifact.
type TaskSpec struct {
    TaskID         string         `json:"task_id"`
    ClientID       string         `json:"client_id"`
    SourceURI      string         `json:"source_uri"`
    OutputLocation string         `json:"output_location"`
    Config         map[string]any `json:"config,omitempty"`
}

// TelemetryContext is a single sensor snapshot. It is fetched once per task
// and applied identically to every node.
type TelemetryContext struct {
    SensorID     string  `json:"sensor_id"`
    MachineState string  `json:"machine_state"`
    AmbientTempC float64 `json:"ambient_temp_c"`
}

// DefaultTelemetry is the degraded snapshot used when the telemetry source
// is unreachable.
func DefaultTelemetry() TelemetryContext {
    return TelemetryContext{SensorID: "default-sensor", MachineState: "IDLE"}
}

// SemanticStep is one step extracted by the segmenter, in temporal order.
type SemanticStep struct {
    Timestamp   float64 `json:"timestamp"`
    TargetLabel string  `json:"target_text"`
    Description string  `json:"description"`
    ActionType  string  `json:"action_type"`
}

// ActionNode is one timestamped, classified, localized interaction step
// within a pathway.
type ActionNode struct {
    ID             string  `json:"id"`
    TimestampStart float64 `json:"timestamp_start"`
    TimestampEnd   float64 `json:"timestamp_end"`

    Description string `json:"description"`
    ActionType  string `json:"action_type"`

    UIElementText string `json:"ui_element_text"`
    // UIRegion is [x, y, w, h] in frame pixels.
    UIRegion [4]int `json:"ui_region"`

    Confidence             float64 `json:"confidence"`
    ActiveRegionConfidence float64 `json:"active_region_confidence"`

    TemporalContextVector []float64         `json:"temporal_context_vector"`
    TelemetryContext      *TelemetryContext `json:"telemetry_context,omitempty"`

    // NextNodeID forward-links node order for consumers that serialize
    // nodes out of sequence; nil on the last node.
    NextNodeID *string `json:"next_node_id"`
}

// Pathway is the final artifact. Immutable once persisted.
type Pathway struct {
    PathwayID        string         `json:"pathway_id"`
    Title            string         `json:"title"`
    AuthorID         string         `json:"author_id"`
    SourceVideo      string         `json:"source_video"`
    CreatedAt        string         `json:"created_at"`
    TotalDurationSec float64        `json:"total_duration_sec"`
    Metadata         map[string]any `json:"metadata,omitempty"`
    Nodes            []ActionNode   `json:"nodes"`
}

// CompletionSignal is published after a successful pathway upload,
// one-to-one with a successfully processed TaskSpec.
type CompletionSignal struct {
    ResultURI string `json:"result_uri"`
    TraceID   string `json:"trace_id"`
}

// Timestamp formats t as the ISO-8601 form used in persisted pathways.
func Timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }
