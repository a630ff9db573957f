package main

import (
    "context"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "go.uber.org/zap"

    "meshrelay/pkg/channel"
    "meshrelay/pkg/config"
    "meshrelay/pkg/mesh"
    "meshrelay/pkg/observability"
    "meshrelay/pkg/relay"
)

// run is the main entry point after CLI parsing.
func run(opts Options) int {
    cfg, err := config.Load(opts.ConfigPath)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
        return 1
    }

    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
        return 1
    }
    defer func() { _ = logger.Sync() }()

    // Startup logs + configuration dump
    zap.L().Info("meshrelay-node started", zap.String("app", cfg.AppName))
    zap.L().Info("effective configuration", zap.Any("config", cfg))

    rt := mesh.New(mesh.Options{
        NodeID:       cfg.NodeID,
        RelayCapable: cfg.RelayCapable,
        Relay: relay.Config{
            Enabled:      cfg.Relay.Enabled,
            MaxQueueSize: cfg.Relay.MaxQueueSize,
            HoldTime:     time.Duration(cfg.Relay.HoldTimeMS) * time.Millisecond,
        },
        PeerStaleness: time.Duration(cfg.Heartbeat.PeerStalenessMins) * time.Minute,
    })

    // Operators can pin channels up when probing cannot see the hardware.
    for _, name := range cfg.Channels.ForceUp {
        k := channel.KindByName(name)
        if k == channel.KindUnknown {
            zap.L().Warn("unknown channel in force_up", zap.String("channel", name))
            continue
        }
        rt.Registry().SetAvailable(k, true)
        zap.L().Info("channel forced up", zap.String("channel", name))
    }

    if cfg.MetricsAddr != "" {
        reg := prometheus.NewRegistry()
        if err := reg.Register(rt.Metrics()); err != nil {
            zap.L().Error("failed to register metrics", zap.Error(err))
            return 1
        }
        mux := http.NewServeMux()
        mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
        srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
        go func() {
            zap.L().Info("metrics endpoint listening", zap.String("addr", cfg.MetricsAddr))
            if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
                zap.L().Error("metrics endpoint failed", zap.Error(err))
            }
        }()
        defer func() {
            shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
            defer cancel()
            _ = srv.Shutdown(shutCtx)
        }()
    }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    interval := time.Duration(cfg.Heartbeat.IntervalMS) * time.Millisecond
    zap.L().Info("node is running; press Ctrl+C to exit",
        zap.String("node_id", rt.SelfID()), zap.Duration("heartbeat", interval))
    rt.Run(ctx, interval)

    snap := rt.Metrics().Snapshot()
    zap.L().Info("node stopped",
        zap.Uint64("transmissions", snap.Transmissions),
        zap.Uint64("receptions", snap.Receptions),
        zap.Uint64("relay_delivered", snap.RelayDelivered))
    return 0
}
