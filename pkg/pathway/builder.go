// Package pathway assembles the final pathway document: one segmenter call
// produces ordered semantic steps, then each step is localized by the
// coordinate refiner and turned into a linked action node.
package pathway

import (
    "context"
    "path"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/burnsgregm/TbD-V6/pkg/schema"
    "github.com/burnsgregm/TbD-V6/pkg/stages"
)

// FrameSampler yields single frames from the task's local video copy.
// media.Sampler implements it; tests substitute fakes.
type FrameSampler interface {
    Duration() float64
    FrameAt(ctx context.Context, ts float64) ([]byte, error)
}

// Options tunes pathway assembly.
type Options struct {
    // RefineConcurrency bounds the parallel refinement fan-out.
    RefineConcurrency int
    // RefineTimeout bounds each refiner call.
    RefineTimeout time.Duration

    AuthorID       string
    TargetVertical string
    ComplianceTag  string
}

func (o Options) withDefaults() Options {
    if o.RefineConcurrency <= 0 {
        o.RefineConcurrency = 4
    }
    if o.RefineTimeout <= 0 {
        o.RefineTimeout = 30 * time.Second
    }
    return o
}

// Builder sequences segmentation and coordinate refinement.
type Builder struct {
    seg  stages.Segmenter
    ref  stages.CoordinateRefiner
    opts Options
}

// NewBuilder wires the two collaborators.
func NewBuilder(seg stages.Segmenter, ref stages.CoordinateRefiner, opts Options) *Builder {
    return &Builder{seg: seg, ref: ref, opts: opts.withDefaults()}
}

type refined struct {
    region     [4]int
    confidence float64
}

// Build produces a pathway for videoRef. The segmenter is called once; the
// per-step refinement calls fan out in parallel and are joined back into
// step order before node assembly. A failed segmentation fails the build; a
// failed refinement only degrades its own node.
func (b *Builder) Build(ctx context.Context, videoRef string, sampler FrameSampler, transcript string) (*schema.Pathway, error) {
    steps, err := b.seg.Segment(ctx, videoRef, transcript)
    if err != nil {
        return nil, err
    }
    zap.L().Info("segmenter returned steps", zap.String("video", videoRef), zap.Int("steps", len(steps)))
    for i := 1; i < len(steps); i++ {
        if steps[i].Timestamp < steps[i-1].Timestamp {
            // node order still follows the segmenter; surfaced for operators
            zap.L().Warn("segmenter steps out of temporal order",
                zap.Int("index", i), zap.Float64("ts", steps[i].Timestamp))
            break
        }
    }

    results := make([]refined, len(steps))
    sem := make(chan struct{}, b.opts.RefineConcurrency)
    var wg sync.WaitGroup
    for i := range steps {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            sem <- struct{}{}
            defer func() { <-sem }()
            results[i] = b.refineStep(ctx, sampler, steps[i])
        }(i)
    }
    wg.Wait()

    nodes := make([]schema.ActionNode, len(steps))
    for i, step := range steps {
        node := schema.ActionNode{
            ID:             nodeID(i),
            TimestampStart: step.Timestamp,
            TimestampEnd:   step.Timestamp + 1.0, // default step duration
            Description:    orDefault(step.Description, "No description"),
            ActionType:     orDefault(step.ActionType, "click"),
            UIElementText:  orDefault(step.TargetLabel, "Unlabeled"),
            UIRegion:       results[i].region,
            Confidence:     results[i].confidence,
            ActiveRegionConfidence: results[i].confidence,
            TemporalContextVector:  []float64{},
        }
        if i+1 < len(steps) {
            next := nodeID(i + 1)
            node.NextNodeID = &next
        }
        nodes[i] = node
    }

    base := path.Base(videoRef)
    return &schema.Pathway{
        PathwayID:        uuid.NewString(),
        Title:            "Native Insight: " + base,
        AuthorID:         b.opts.AuthorID,
        SourceVideo:      base,
        CreatedAt:        schema.Timestamp(time.Now()),
        TotalDurationSec: sampler.Duration(),
        Metadata: map[string]any{
            "target_vertical": b.opts.TargetVertical,
            "compliance_tag":  b.opts.ComplianceTag,
        },
        Nodes: nodes,
    }, nil
}

// refineStep samples the step's frame and calls the refiner under its own
// timeout. Any failure degrades to a zero-confidence placeholder; one bad
// detection never aborts the whole pathway.
func (b *Builder) refineStep(ctx context.Context, sampler FrameSampler, step schema.SemanticStep) refined {
    frame, err := sampler.FrameAt(ctx, step.Timestamp)
    if err != nil {
        zap.L().Warn("frame sampling failed, degrading step",
            zap.Float64("ts", step.Timestamp), zap.Error(err))
        frame = nil
    }

    rctx, cancel := context.WithTimeout(ctx, b.opts.RefineTimeout)
    defer cancel()
    region, conf, err := b.ref.Refine(rctx, frame, orDefault(step.TargetLabel, "Unlabeled"))
    if err != nil {
        zap.L().Warn("coordinate refinement failed, degrading step",
            zap.Float64("ts", step.Timestamp), zap.String("target", step.TargetLabel), zap.Error(err))
        return refined{}
    }
    return refined{region: region, confidence: conf}
}

func nodeID(i int) string {
    return "node_" + strconv.Itoa(i+1)
}

func orDefault(s, def string) string {
    if strings.TrimSpace(s) == "" {
        return def
    }
    return s
}
