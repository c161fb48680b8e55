package main

import (
    "context"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "isp-netops.com/engine/internal/coa"
    "isp-netops.com/engine/internal/compliance"
    "isp-netops.com/engine/internal/config"
    "isp-netops.com/engine/internal/provisioning"
    "isp-netops.com/engine/internal/queue"
    "isp-netops.com/engine/internal/radiusstore"
    "isp-netops.com/engine/pkg/database"
    "isp-netops.com/engine/pkg/logger"
    "isp-netops.com/engine/pkg/redis"
)

func main() {
    godotenv.Load()

    log := logger.New()
    log.Info("Starting ISP NetOps provisioning worker...")

    cfg := config.Load()

    db, err := database.Connect()
    if err != nil {
        log.Fatal("Failed to connect to database", "error", err)
    }
    defer db.Close()

    redisClient, err := redis.Connect()
    if err != nil {
        log.Warn("Redis unavailable, enforcement lease disabled", "error", err.Error())
        redisClient = nil
    }

    radiusStore := radiusstore.New(db)
    queueStore := queue.New(db)
    coaSender := coa.NewSender(cfg.RadiusCoAPort)
    orchestrator := provisioning.NewOrchestrator(db, radiusStore, queueStore, coaSender,
        log.With("sweep"), cfg.RouterTimeout, cfg.ConnectTimeout)
    checker := compliance.NewChecker(db, log.With("compliance"), cfg.RouterTimeout)
    enforcer := compliance.NewWorker(db, checker, queueStore, redisClient, log.With("enforcement"),
        cfg.RadiusServerIP, cfg.EnforceLeaseTTL, cfg.RouterTimeout)
    consumer := queue.NewConsumer(db, queueStore, log.With("queue"), cfg.RouterTimeout)

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    sweepOpts := provisioning.SweepOptions{BatchSize: cfg.SweepBatchSize, Workers: cfg.SweepWorkers}

    go runEvery(ctx, cfg.SweepInterval, func() {
        if summary, err := orchestrator.CheckAndProvisionActiveServices(ctx, sweepOpts); err != nil {
            log.Error("provision sweep failed", "error", err.Error())
        } else if summary.Scanned > 0 {
            log.Info("provision sweep finished", "scanned", summary.Scanned,
                "succeeded", summary.Succeeded, "failed", summary.Failed)
        }
    })

    go runEvery(ctx, cfg.SweepInterval, func() {
        if summary, err := orchestrator.CheckAndDeprovisionInactiveServices(ctx, sweepOpts); err != nil {
            log.Error("deprovision sweep failed", "error", err.Error())
        } else if summary.Scanned > 0 {
            log.Info("deprovision sweep finished", "scanned", summary.Scanned,
                "succeeded", summary.Succeeded, "failed", summary.Failed)
        }
    })

    go runEvery(ctx, cfg.EnforceInterval, func() {
        enforcer.EnforceAllRouters(ctx)
    })

    go runEvery(ctx, cfg.QueueInterval, func() {
        if done, failed := consumer.ProcessPending(ctx, cfg.SweepBatchSize); done+failed > 0 {
            log.Info("queue pass finished", "done", done, "failed", failed)
        }
    })

    <-ctx.Done()
    log.Info("Worker shutting down")
    // Give in-flight router calls a moment to unwind before the process
    // exits and drops them.
    time.Sleep(2 * time.Second)
}

func runEvery(ctx context.Context, interval time.Duration, fn func()) {
    ticker := time.NewTicker(interval)
    defer ticker.Stop()

    fn()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            fn()
        }
    }
}
