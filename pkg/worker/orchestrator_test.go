package worker

import (
    "context"
    "errors"
    "testing"

    "github.com/burnsgregm/TbD-V6/pkg/broker"
    "github.com/burnsgregm/TbD-V6/pkg/codec"
    "github.com/burnsgregm/TbD-V6/pkg/dedupe"
    "github.com/burnsgregm/TbD-V6/pkg/pathway"
    "github.com/burnsgregm/TbD-V6/pkg/schema"
    "github.com/burnsgregm/TbD-V6/pkg/stages/blob"
)

type fakeSegmenter struct {
    steps []schema.SemanticStep
    err   error
}

func (s *fakeSegmenter) Segment(_ context.Context, _ string, _ string) ([]schema.SemanticStep, error) {
    return s.steps, s.err
}

type fakeRefiner struct{}

func (fakeRefiner) Refine(_ context.Context, _ []byte, _ string) ([4]int, float64, error) {
    return [4]int{5, 5, 50, 20}, 0.88, nil
}

type fakeTranscriber struct {
    text string
    err  error
}

func (t *fakeTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
    return t.text, t.err
}

type fakeTelemetry struct {
    snap schema.TelemetryContext
    err  error
}

func (t *fakeTelemetry) Snapshot(_ context.Context) (schema.TelemetryContext, error) {
    return t.snap, t.err
}

type fakeEncoder struct {
    vector []float64
    err    error
}

func (e *fakeEncoder) Encode(_ context.Context, _ []string) ([]float64, error) {
    return e.vector, e.err
}

type fakePublisher struct {
    envs []broker.Envelope
}

func (p *fakePublisher) Publish(_ context.Context, _ string, env broker.Envelope) error {
    p.envs = append(p.envs, env)
    return nil
}

type fakeSampler struct{ duration float64 }

func (s fakeSampler) Duration() float64 { return s.duration }

func (s fakeSampler) FrameAt(_ context.Context, _ float64) ([]byte, error) {
    return []byte{0xff, 0xd8}, nil
}

type fixture struct {
    orch  *Orchestrator
    store *blob.MemStore
    pub   *fakePublisher
    seg   *fakeSegmenter
    enc   *fakeEncoder
    tel   *fakeTelemetry
}

func newFixture(t *testing.T) *fixture {
    t.Helper()

    store := blob.NewMemStore()
    if err := store.Put(context.Background(), "store://in/demo.mp4", []byte("not a real video")); err != nil {
        t.Fatalf("seed source: %v", err)
    }

    seg := &fakeSegmenter{steps: []schema.SemanticStep{
        {Timestamp: 1.0, TargetLabel: "Start", Description: "Press start", ActionType: "click"},
        {Timestamp: 5.0, TargetLabel: "Confirm", Description: "Confirm the job", ActionType: "click"},
    }}
    enc := &fakeEncoder{vector: []float64{0.1, 0.2, 0.3}}
    tel := &fakeTelemetry{snap: schema.TelemetryContext{
        SensorID: "cnc-7", MachineState: "RUNNING", AmbientTempC: 21.5,
    }}
    pub := &fakePublisher{}

    builder := pathway.NewBuilder(seg, fakeRefiner{}, pathway.Options{
        AuthorID: "engine", TargetVertical: "manufacturing", ComplianceTag: "AS9100",
    })
    orch := New(Deps{
        Guard:       dedupe.NewMemoryGuard(),
        Blobs:       store,
        Transcriber: &fakeTranscriber{text: "press start then confirm"},
        Telemetry:   tel,
        Encoder:     enc,
        Publisher:   pub,
        Builder:     builder,
        NewSampler: func(_ context.Context, _ string) (pathway.FrameSampler, error) {
            return fakeSampler{duration: 30}, nil
        },
        Codec: codec.JSON(),
    }, Options{
        WorkDir:         t.TempDir(),
        CompletionTopic: "tbd:agent-tasks",
    })
    return &fixture{orch: orch, store: store, pub: pub, seg: seg, enc: enc, tel: tel}
}

func envelope(t *testing.T, spec schema.TaskSpec) broker.Envelope {
    t.Helper()
    payload, err := codec.JSON().Marshal(spec)
    if err != nil {
        t.Fatalf("marshal spec: %v", err)
    }
    return broker.Envelope{TaskID: spec.TaskID, TraceID: "trace-" + spec.TaskID, Payload: payload, Attempt: 1}
}

func testSpec() schema.TaskSpec {
    return schema.TaskSpec{
        TaskID:         "t1",
        ClientID:       "client-1",
        SourceURI:      "store://in/demo.mp4",
        OutputLocation: "store://out",
    }
}

func TestHandleProducesArtifactAndCompletion(t *testing.T) {
    f := newFixture(t)
    env := envelope(t, testSpec())

    if disp := f.orch.Handle(context.Background(), env); disp != broker.Ack {
        t.Fatalf("expected Ack, got %v", disp)
    }

    raw, err := f.store.Get(context.Background(), "store://out/t1/pathway.json")
    if err != nil {
        t.Fatalf("artifact missing: %v", err)
    }
    var pw schema.Pathway
    if err := codec.JSON().Unmarshal(raw, &pw); err != nil {
        t.Fatalf("decode artifact: %v", err)
    }
    if len(pw.Nodes) != 2 {
        t.Fatalf("expected 2 nodes, got %d", len(pw.Nodes))
    }
    if pw.Nodes[0].ID != "node_1" || pw.Nodes[1].ID != "node_2" {
        t.Fatalf("node ids %q %q", pw.Nodes[0].ID, pw.Nodes[1].ID)
    }
    if pw.Nodes[0].TimestampStart != 1.0 || pw.Nodes[1].TimestampStart != 5.0 {
        t.Fatalf("timestamps %v %v", pw.Nodes[0].TimestampStart, pw.Nodes[1].TimestampStart)
    }
    if pw.Nodes[0].NextNodeID == nil || *pw.Nodes[0].NextNodeID != "node_2" {
        t.Fatalf("first node link %v", pw.Nodes[0].NextNodeID)
    }
    if pw.Nodes[1].NextNodeID != nil {
        t.Fatalf("last node must not link forward")
    }
    for i, node := range pw.Nodes {
        if node.TelemetryContext == nil || node.TelemetryContext.SensorID != "cnc-7" {
            t.Fatalf("node %d telemetry %+v", i, node.TelemetryContext)
        }
        if len(node.TemporalContextVector) != 3 {
            t.Fatalf("node %d vector %v", i, node.TemporalContextVector)
        }
    }
    if pw.Metadata["target_vertical"] != "manufacturing" {
        t.Fatalf("metadata %v", pw.Metadata)
    }

    if len(f.pub.envs) != 1 {
        t.Fatalf("expected one completion, got %d", len(f.pub.envs))
    }
    comp := f.pub.envs[0]
    if comp.TaskID != "t1" || comp.TraceID != env.TraceID {
        t.Fatalf("completion identity %q %q", comp.TaskID, comp.TraceID)
    }
    var sig schema.CompletionSignal
    if err := codec.JSON().Unmarshal(comp.Payload, &sig); err != nil {
        t.Fatalf("decode completion: %v", err)
    }
    if sig.ResultURI != "store://out/t1/pathway.json" {
        t.Fatalf("result uri %q", sig.ResultURI)
    }
    if sig.TraceID != env.TraceID {
        t.Fatalf("completion trace %q", sig.TraceID)
    }
}

func TestHandleDuplicateDeliveryIsSuppressed(t *testing.T) {
    f := newFixture(t)
    env := envelope(t, testSpec())

    if disp := f.orch.Handle(context.Background(), env); disp != broker.Ack {
        t.Fatalf("first delivery: expected Ack, got %v", disp)
    }
    if disp := f.orch.Handle(context.Background(), env); disp != broker.AckDrop {
        t.Fatalf("duplicate delivery: expected AckDrop, got %v", disp)
    }

    if n := f.store.PutCount("store://out/t1/pathway.json"); n != 1 {
        t.Fatalf("expected exactly one artifact write, got %d", n)
    }
    if len(f.pub.envs) != 1 {
        t.Fatalf("expected exactly one completion, got %d", len(f.pub.envs))
    }
}

func TestHandleMalformedPayloadIsDropped(t *testing.T) {
    f := newFixture(t)
    env := broker.Envelope{TaskID: "bad", TraceID: "trace-bad", Payload: []byte("{{not json"), Attempt: 1}

    if disp := f.orch.Handle(context.Background(), env); disp != broker.AckDrop {
        t.Fatalf("expected AckDrop, got %v", disp)
    }
    if len(f.pub.envs) != 0 {
        t.Fatalf("malformed task must not publish, got %d envelopes", len(f.pub.envs))
    }
    // Only the seeded source object should exist.
    if f.store.Len() != 1 {
        t.Fatalf("malformed task must not write blobs, store has %d", f.store.Len())
    }
}

func TestHandleIncompleteSpecIsDropped(t *testing.T) {
    f := newFixture(t)
    spec := testSpec()
    spec.OutputLocation = ""
    if disp := f.orch.Handle(context.Background(), envelope(t, spec)); disp != broker.AckDrop {
        t.Fatalf("expected AckDrop, got %v", disp)
    }
}

func TestHandleMissingSourceRedelivers(t *testing.T) {
    f := newFixture(t)
    spec := testSpec()
    spec.SourceURI = "store://in/absent.mp4"

    if disp := f.orch.Handle(context.Background(), envelope(t, spec)); disp != broker.Redeliver {
        t.Fatalf("expected Redeliver, got %v", disp)
    }
    if len(f.pub.envs) != 0 {
        t.Fatalf("failed task must not publish")
    }
    // Guard must not remember the failed attempt; a later delivery runs.
    if disp := f.orch.Handle(context.Background(), envelope(t, testSpec())); disp != broker.Ack {
        t.Fatalf("subsequent valid delivery: expected Ack, got %v", disp)
    }
}

func TestHandleSegmenterFailureRedelivers(t *testing.T) {
    f := newFixture(t)
    f.seg.err = errors.New("model overloaded")

    if disp := f.orch.Handle(context.Background(), envelope(t, testSpec())); disp != broker.Redeliver {
        t.Fatalf("expected Redeliver, got %v", disp)
    }
    if n := f.store.PutCount("store://out/t1/pathway.json"); n != 0 {
        t.Fatalf("failed build must not persist, got %d writes", n)
    }

    // Redelivery after the segmenter recovers completes normally.
    f.seg.err = nil
    if disp := f.orch.Handle(context.Background(), envelope(t, testSpec())); disp != broker.Ack {
        t.Fatalf("recovered delivery: expected Ack, got %v", disp)
    }
}

func TestHandleEncoderDownLeavesVectorsEmpty(t *testing.T) {
    f := newFixture(t)
    f.enc.err = errors.New("encoder unreachable")

    if disp := f.orch.Handle(context.Background(), envelope(t, testSpec())); disp != broker.Ack {
        t.Fatalf("expected Ack, got %v", disp)
    }
    raw, err := f.store.Get(context.Background(), "store://out/t1/pathway.json")
    if err != nil {
        t.Fatalf("artifact missing: %v", err)
    }
    var pw schema.Pathway
    if err := codec.JSON().Unmarshal(raw, &pw); err != nil {
        t.Fatalf("decode artifact: %v", err)
    }
    for i, node := range pw.Nodes {
        if len(node.TemporalContextVector) != 0 {
            t.Fatalf("node %d: vector must stay empty, got %v", i, node.TemporalContextVector)
        }
        if node.Confidence != 0.88 {
            t.Fatalf("node %d: localization must survive encoder failure, conf %v", i, node.Confidence)
        }
    }
}

func TestHandleTelemetryDownUsesDefault(t *testing.T) {
    f := newFixture(t)
    f.tel.err = errors.New("sensor gateway down")

    if disp := f.orch.Handle(context.Background(), envelope(t, testSpec())); disp != broker.Ack {
        t.Fatalf("expected Ack, got %v", disp)
    }
    raw, err := f.store.Get(context.Background(), "store://out/t1/pathway.json")
    if err != nil {
        t.Fatalf("artifact missing: %v", err)
    }
    var pw schema.Pathway
    if err := codec.JSON().Unmarshal(raw, &pw); err != nil {
        t.Fatalf("decode artifact: %v", err)
    }
    def := schema.DefaultTelemetry()
    for i, node := range pw.Nodes {
        if node.TelemetryContext == nil || *node.TelemetryContext != def {
            t.Fatalf("node %d: expected default telemetry, got %+v", i, node.TelemetryContext)
        }
    }
}

func TestHandleOutputPrefixIsRespected(t *testing.T) {
    f := newFixture(t)
    spec := testSpec()
    spec.OutputLocation = "store://out/pathways/v1"

    if disp := f.orch.Handle(context.Background(), envelope(t, spec)); disp != broker.Ack {
        t.Fatalf("expected Ack, got %v", disp)
    }
    want := "store://out/pathways/v1/t1/pathway.json"
    if _, err := f.store.Get(context.Background(), want); err != nil {
        t.Fatalf("artifact not at %s: %v", want, err)
    }
    var sig schema.CompletionSignal
    if err := codec.JSON().Unmarshal(f.pub.envs[0].Payload, &sig); err != nil {
        t.Fatalf("decode completion: %v", err)
    }
    if sig.ResultURI != want {
        t.Fatalf("result uri %q, want %q", sig.ResultURI, want)
    }
}
