// Package worker runs the per-message orchestration state machine: parse,
// dedupe, download, transcribe, build, enrich, persist, publish, commit.
package worker

import (
    "context"
    "fmt"
    "os"
    "path/filepath"

    "go.uber.org/zap"

    "github.com/burnsgregm/TbD-V6/pkg/broker"
    "github.com/burnsgregm/TbD-V6/pkg/codec"
    "github.com/burnsgregm/TbD-V6/pkg/dedupe"
    "github.com/burnsgregm/TbD-V6/pkg/media"
    "github.com/burnsgregm/TbD-V6/pkg/pathway"
    "github.com/burnsgregm/TbD-V6/pkg/schema"
    "github.com/burnsgregm/TbD-V6/pkg/stages"
    "github.com/burnsgregm/TbD-V6/pkg/stages/blob"
)

// State names the orchestrator's position in the pipeline. FAILED is
// reachable from any non-terminal state.
type State string

const (
    StateReceived     State = "RECEIVED"
    StateParsed       State = "PARSED"
    StateDeduped      State = "DEDUPED"
    StateDownloading  State = "DOWNLOADING"
    StateTranscribing State = "TRANSCRIBING"
    StateBuilding     State = "BUILDING_PATHWAY"
    StateEnriching    State = "ENRICHING"
    StatePersisting   State = "PERSISTING"
    StatePublishing   State = "PUBLISHING"
    StateAcknowledged State = "ACKNOWLEDGED"
    StateFailed       State = "FAILED"
)

// Degraded transcript sentinels, applied instead of aborting the task;
// transcription is advisory context, not a pipeline-blocking dependency.
const (
    transcriptMissing = " [Audio Missing] "
    transcriptFailed  = " [Transcription Failed] "
)

// SamplerFactory opens a frame sampler over a local video copy. Production
// wiring uses media.NewSampler; tests substitute fakes.
type SamplerFactory func(ctx context.Context, path string) (pathway.FrameSampler, error)

// MediaSampler is the production SamplerFactory.
func MediaSampler(ctx context.Context, path string) (pathway.FrameSampler, error) {
    return media.NewSampler(ctx, path)
}

// Deps are the injected collaborators. Everything is constructed once and
// passed in explicitly so tests can substitute fakes.
type Deps struct {
    Guard       dedupe.Guard
    Blobs       stages.BlobStore
    Transcriber stages.Transcriber
    Telemetry   stages.TelemetrySource
    Encoder     stages.TemporalEncoder
    Publisher   broker.Publisher
    Builder     *pathway.Builder
    NewSampler  SamplerFactory
    Codec       codec.Codec
}

// Options holds orchestration settings.
type Options struct {
    // WorkDir hosts the per-task scratch directories.
    WorkDir string
    // CompletionTopic receives CompletionSignal envelopes.
    CompletionTopic string
    // StagingBucket receives extracted audio tracks before transcription.
    StagingBucket string
}

// Orchestrator consumes task envelopes and produces pathway artifacts.
type Orchestrator struct {
    deps Deps
    opts Options
}

// New wires an orchestrator.
func New(deps Deps, opts Options) *Orchestrator {
    if deps.NewSampler == nil {
        deps.NewSampler = MediaSampler
    }
    if opts.StagingBucket == "" {
        opts.StagingBucket = "tbd-audio-staging"
    }
    if opts.WorkDir == "" {
        opts.WorkDir = os.TempDir()
    }
    return &Orchestrator{deps: deps, opts: opts}
}

// Handle processes one delivered envelope and returns the explicit retry
// decision. It implements broker.Handler.
func (o *Orchestrator) Handle(ctx context.Context, env broker.Envelope) broker.Disposition {
    err := o.process(ctx, env)
    disp := Classify(err)
    switch disp {
    case broker.Ack:
        zap.L().Info("task completed",
            zap.String("task_id", env.TaskID), zap.String("trace_id", env.TraceID))
    case broker.AckDrop:
        zap.L().Info("task dropped",
            zap.String("task_id", env.TaskID), zap.String("trace_id", env.TraceID), zap.Error(err))
    case broker.Redeliver:
        zap.L().Error("task failed, leaving for redelivery",
            zap.String("task_id", env.TaskID), zap.String("trace_id", env.TraceID),
            zap.Int("attempt", env.Attempt), zap.Error(err))
    }
    return disp
}

func (o *Orchestrator) process(ctx context.Context, env broker.Envelope) error {
    state := StateReceived
    log := zap.L().With(zap.String("task_id", env.TaskID), zap.String("trace_id", env.TraceID))

    // Parse. A payload that does not decode can never succeed.
    var spec schema.TaskSpec
    if err := o.deps.Codec.Unmarshal(env.Payload, &spec); err != nil {
        return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
    }
    if spec.TaskID == "" || spec.SourceURI == "" || spec.OutputLocation == "" {
        return fmt.Errorf("%w: incomplete task spec", ErrMalformedMessage)
    }
    state = o.advance(log, state, StateParsed)

    // Dedupe before any side-effecting stage begins.
    seen, err := o.deps.Guard.Seen(ctx, spec.TaskID)
    if err != nil {
        return fmt.Errorf("dedupe lookup: %w", err)
    }
    if seen {
        return fmt.Errorf("%w: %s", ErrDuplicateTask, spec.TaskID)
    }
    state = o.advance(log, state, StateDeduped)

    // Task-scoped scratch space; removed on every exit path so disk usage
    // stays bounded no matter which step fails.
    dir := filepath.Join(o.opts.WorkDir, "tbd-"+spec.TaskID)
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("workdir: %w", err)
    }
    defer os.RemoveAll(dir)

    // Download.
    state = o.advance(log, state, StateDownloading)
    videoPath := filepath.Join(dir, "video.mp4")
    src, err := o.deps.Blobs.Get(ctx, spec.SourceURI)
    if err != nil {
        return fmt.Errorf("download source: %w", err)
    }
    if err := os.WriteFile(videoPath, src, 0o644); err != nil {
        return fmt.Errorf("stage video: %w", err)
    }

    // Transcribe. Failures degrade to a sentinel, never abort.
    state = o.advance(log, state, StateTranscribing)
    transcript := o.transcribe(ctx, log, spec.TaskID, videoPath, dir)

    // Build.
    state = o.advance(log, state, StateBuilding)
    sampler, err := o.deps.NewSampler(ctx, videoPath)
    if err != nil {
        return fmt.Errorf("open sampler: %w", err)
    }
    pw, err := o.deps.Builder.Build(ctx, spec.SourceURI, sampler, transcript)
    if err != nil {
        return fmt.Errorf("build pathway: %w", err)
    }

    // Enrich. One telemetry fetch and one embedding call per task, the
    // identical result applied to every node; failures here must not lose
    // already-computed node data.
    state = o.advance(log, state, StateEnriching)
    o.enrich(ctx, log, pw)

    // Persist under a deterministic task-derived key; overwrite semantics
    // keep the re-upload after a retry idempotent.
    state = o.advance(log, state, StatePersisting)
    resultURI, err := o.persist(ctx, spec, pw)
    if err != nil {
        return fmt.Errorf("%w: %v", ErrPersistence, err)
    }

    // Publish the completion signal with the original trace id.
    state = o.advance(log, state, StatePublishing)
    if err := o.publishCompletion(ctx, env, resultURI); err != nil {
        return fmt.Errorf("publish completion: %w", err)
    }

    // Commit: only completed work enters the guard, never in-progress work.
    if _, err := o.deps.Guard.MarkDone(ctx, spec.TaskID); err != nil {
        return fmt.Errorf("dedupe mark: %w", err)
    }
    o.advance(log, state, StateAcknowledged)
    log.Info("pathway ready", zap.String("result_uri", resultURI), zap.Int("nodes", len(pw.Nodes)))
    return nil
}

func (o *Orchestrator) advance(log *zap.Logger, from, to State) State {
    log.Debug("state transition", zap.String("from", string(from)), zap.String("to", string(to)))
    return to
}

// transcribe rips the audio track, stages it, and calls the transcriber.
func (o *Orchestrator) transcribe(ctx context.Context, log *zap.Logger, taskID, videoPath, dir string) string {
    audioPath := filepath.Join(dir, "audio.mp3")
    if err := media.ExtractAudio(ctx, videoPath, audioPath); err != nil {
        log.Warn("audio extraction failed", zap.Error(err))
        return transcriptMissing
    }
    audio, err := os.ReadFile(audioPath)
    if err != nil {
        log.Warn("audio read failed", zap.Error(err))
        return transcriptMissing
    }

    audioURI := blob.JoinURI(o.opts.StagingBucket, taskID+"/audio.mp3")
    if err := o.deps.Blobs.Put(ctx, audioURI, audio); err != nil {
        log.Warn("audio staging failed", zap.Error(err))
        return transcriptFailed
    }
    transcript, err := o.deps.Transcriber.Transcribe(ctx, audioURI)
    if err != nil {
        log.Warn("transcription failed", zap.Error(err))
        return transcriptFailed
    }
    return transcript
}

// enrich applies the task-scoped telemetry snapshot and temporal embedding
// to every node.
func (o *Orchestrator) enrich(ctx context.Context, log *zap.Logger, pw *schema.Pathway) {
    telemetry, err := o.deps.Telemetry.Snapshot(ctx)
    if err != nil {
        log.Warn("telemetry fetch failed, using default snapshot", zap.Error(err))
        telemetry = schema.DefaultTelemetry()
    }
    for i := range pw.Nodes {
        t := telemetry
        pw.Nodes[i].TelemetryContext = &t
    }

    descriptions := make([]string, len(pw.Nodes))
    for i := range pw.Nodes {
        descriptions[i] = pw.Nodes[i].Description
    }
    vector, err := o.deps.Encoder.Encode(ctx, descriptions)
    if err != nil {
        log.Warn("temporal encoding failed, leaving vectors empty", zap.Error(err))
        return
    }
    for i := range pw.Nodes {
        pw.Nodes[i].TemporalContextVector = append([]float64(nil), vector...)
    }
}

func (o *Orchestrator) persist(ctx context.Context, spec schema.TaskSpec, pw *schema.Pathway) (string, error) {
    doc, err := codec.JSON().Marshal(pw)
    if err != nil {
        return "", fmt.Errorf("encode pathway: %w", err)
    }
    bucket, prefix, err := blob.ParseURI(spec.OutputLocation)
    if err != nil {
        return "", err
    }
    key := spec.TaskID + "/pathway.json"
    if prefix != "" {
        key = prefix + "/" + key
    }
    resultURI := blob.JoinURI(bucket, key)
    if err := o.deps.Blobs.Put(ctx, resultURI, doc); err != nil {
        return "", err
    }
    return resultURI, nil
}

func (o *Orchestrator) publishCompletion(ctx context.Context, env broker.Envelope, resultURI string) error {
    sig := schema.CompletionSignal{ResultURI: resultURI, TraceID: env.TraceID}
    payload, err := o.deps.Codec.Marshal(sig)
    if err != nil {
        return err
    }
    return o.deps.Publisher.Publish(ctx, o.opts.CompletionTopic, broker.Envelope{
        TaskID:  env.TaskID,
        TraceID: env.TraceID,
        Payload: payload,
    })
}
