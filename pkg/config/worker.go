package config

import "time"

// WorkerConfig holds orchestration and pathway-assembly settings.
type WorkerConfig struct {
    // RefineConcurrency bounds the parallel coordinate-refinement fan-out.
    RefineConcurrency int `mapstructure:"refine_concurrency"`

    // DedupeTTL caps how long a completed task id is remembered by the
    // idempotency guard. Zero keeps records forever.
    DedupeTTL time.Duration `mapstructure:"dedupe_ttl"`

    // AuthorID is recorded on produced pathways.
    AuthorID string `mapstructure:"author_id"`
    // TargetVertical / ComplianceTag populate pathway metadata.
    TargetVertical string `mapstructure:"target_vertical"`
    ComplianceTag  string `mapstructure:"compliance_tag"`
}

// DefaultWorker returns worker defaults.
func DefaultWorker() WorkerConfig {
    return WorkerConfig{
        RefineConcurrency: 4,
        DedupeTTL:         7 * 24 * time.Hour,
        AuthorID:          "tbd-v6-engine",
        TargetVertical:    "manufacturing",
        ComplianceTag:     "AS9100",
    }
}

// BlobConfig describes object storage for sources, audio staging, and
// produced pathways.
type BlobConfig struct {
    // Kind: fs or mem
    Kind string `mapstructure:"kind"`
    // Root is the base directory for the fs store.
    Root string `mapstructure:"root"`
}
