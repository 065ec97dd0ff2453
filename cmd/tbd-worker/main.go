package main

import (
    "context"
    "errors"
    "flag"
    "os/signal"
    "syscall"
    "time"

    "go.uber.org/zap"

    "github.com/burnsgregm/TbD-V6/pkg/broker/redisq"
    "github.com/burnsgregm/TbD-V6/pkg/codec"
    "github.com/burnsgregm/TbD-V6/pkg/config"
    "github.com/burnsgregm/TbD-V6/pkg/dedupe"
    "github.com/burnsgregm/TbD-V6/pkg/observability"
    "github.com/burnsgregm/TbD-V6/pkg/pathway"
    "github.com/burnsgregm/TbD-V6/pkg/stages"
    "github.com/burnsgregm/TbD-V6/pkg/stages/blob"
    "github.com/burnsgregm/TbD-V6/pkg/stages/remote"
    "github.com/burnsgregm/TbD-V6/pkg/worker"
)

func main() {
    cfgPath := flag.String("config", "", "path to config file (optional)")
    name := flag.String("name", "worker-1", "consumer name, scopes the processing list")
    flag.Parse()

    cfg := config.MustLoad(*cfgPath)
    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil {
        panic(err)
    }
    defer logger.Sync()

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
    q, err := redisq.New(dialCtx, cfg.Broker, *name)
    cancel()
    if err != nil {
        zap.L().Fatal("broker connect", zap.Error(err))
    }
    defer q.Close()

    blobs, err := newBlobStore(cfg.Blob)
    if err != nil {
        zap.L().Fatal("blob store", zap.Error(err))
    }

    cd, err := codec.ForName(cfg.Broker.Codec)
    if err != nil {
        zap.L().Fatal("codec", zap.Error(err))
    }

    col := cfg.Collaborators
    builder := pathway.NewBuilder(
        remote.NewSegmenter(col.SegmenterURL, col.CallTimeout),
        remote.NewRefiner(col.RefinerURL, col.RefineTimeout),
        pathway.Options{
            RefineConcurrency: cfg.Worker.RefineConcurrency,
            RefineTimeout:     col.RefineTimeout,
            AuthorID:          cfg.Worker.AuthorID,
            TargetVertical:    cfg.Worker.TargetVertical,
            ComplianceTag:     cfg.Worker.ComplianceTag,
        },
    )

    orch := worker.New(worker.Deps{
        Guard:       dedupe.NewRedisGuard(q.Client(), dedupe.WithTTL(cfg.Worker.DedupeTTL)),
        Blobs:       blobs,
        Transcriber: remote.NewTranscriber(col.TranscriberURL, col.CallTimeout),
        Telemetry:   remote.NewTelemetry(col.TelemetryURL, col.CallTimeout),
        Encoder:     remote.NewEncoder(col.EncoderURL, col.CallTimeout),
        Publisher:   q,
        Builder:     builder,
        Codec:       cd,
    }, worker.Options{
        WorkDir:         cfg.WorkDir,
        CompletionTopic: cfg.Broker.CompletionTopic,
    })

    zap.L().Info("worker consuming",
        zap.String("topic", cfg.Broker.TaskTopic), zap.String("consumer", *name))
    if err := q.Run(ctx, cfg.Broker.TaskTopic, orch); err != nil && !errors.Is(err, context.Canceled) {
        zap.L().Fatal("consume loop", zap.Error(err))
    }
}

func newBlobStore(cfg config.BlobConfig) (stages.BlobStore, error) {
    switch cfg.Kind {
    case "", "fs":
        return blob.NewFSStore(cfg.Root)
    case "mem":
        return blob.NewMemStore(), nil
    default:
        return nil, errors.New("unknown blob.kind: " + cfg.Kind)
    }
}
