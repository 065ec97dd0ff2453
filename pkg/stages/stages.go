// Package stages declares the narrow contracts to the external pipeline
// collaborators. The worker and builder depend on these interfaces only;
// HTTP clients live in the remote subpackage and blob stores in blob.
package stages

import (
    "context"

    "github.com/burnsgregm/TbD-V6/pkg/schema"
)

// Segmenter extracts ordered semantic steps from a video. Steps are
// expected in ascending timestamp order; the builder does not re-sort.
type Segmenter interface {
    Segment(ctx context.Context, videoRef, transcript string) ([]schema.SemanticStep, error)
}

// CoordinateRefiner locates a text label within a single frame, returning a
// bounding box and confidence.
type CoordinateRefiner interface {
    Refine(ctx context.Context, frame []byte, targetLabel string) (region [4]int, confidence float64, err error)
}

// Transcriber converts a staged audio object into transcript text.
type Transcriber interface {
    Transcribe(ctx context.Context, audioRef string) (string, error)
}

// TemporalEncoder embeds an ordered description sequence into a fixed-length
// vector.
type TemporalEncoder interface {
    Encode(ctx context.Context, descriptions []string) ([]float64, error)
}

// TelemetrySource returns the current sensor snapshot. Telemetry is
// task-scoped: one fetch per task, applied to every node.
type TelemetrySource interface {
    Snapshot(ctx context.Context) (schema.TelemetryContext, error)
}

// BlobStore is generic object storage addressed by URI.
type BlobStore interface {
    Get(ctx context.Context, uri string) ([]byte, error)
    Put(ctx context.Context, uri string, data []byte) error
}
