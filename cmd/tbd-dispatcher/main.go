package main

import (
    "context"
    "errors"
    "flag"
    "net/http"
    "time"

    "github.com/gin-gonic/gin"
    "go.uber.org/zap"

    "github.com/burnsgregm/TbD-V6/pkg/broker"
    "github.com/burnsgregm/TbD-V6/pkg/broker/redisq"
    "github.com/burnsgregm/TbD-V6/pkg/codec"
    "github.com/burnsgregm/TbD-V6/pkg/config"
    "github.com/burnsgregm/TbD-V6/pkg/dispatch"
    "github.com/burnsgregm/TbD-V6/pkg/observability"
    "github.com/burnsgregm/TbD-V6/pkg/schema"
)

func main() {
    cfgPath := flag.String("config", "", "path to config file (optional)")
    flag.Parse()

    cfg := config.MustLoad(*cfgPath)
    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil {
        panic(err)
    }
    defer logger.Sync()

    cd, err := codec.ForName(cfg.Broker.Codec)
    if err != nil {
        zap.L().Fatal("codec", zap.Error(err))
    }

    // A broker outage at startup must not prevent accepting submissions;
    // the dispatcher reports accepted-local instead.
    var pub broker.Publisher
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    q, err := redisq.New(ctx, cfg.Broker, "dispatcher")
    cancel()
    if err != nil {
        zap.L().Warn("broker unreachable, running in local-accept mode", zap.Error(err))
    } else {
        pub = q
        defer q.Close()
    }

    d := dispatch.New(pub, cfg.Broker.TaskTopic, cd)

    router := gin.Default()
    router.POST("/submit", func(c *gin.Context) {
        var spec schema.TaskSpec
        if err := c.ShouldBindJSON(&spec); err != nil {
            c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
            return
        }
        res, err := d.Submit(c.Request.Context(), spec)
        switch {
        case errors.Is(err, dispatch.ErrValidation):
            c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        case err != nil:
            c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        default:
            c.JSON(http.StatusAccepted, res)
        }
    })
    router.GET("/healthz", func(c *gin.Context) {
        c.JSON(http.StatusOK, gin.H{"status": "ok", "app": cfg.AppName})
    })

    zap.L().Info("dispatcher listening", zap.String("addr", cfg.ListenAddr))
    if err := router.Run(cfg.ListenAddr); err != nil {
        zap.L().Fatal("http server", zap.Error(err))
    }
}
