package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/config"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/console"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/export"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/intelligence"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/observability"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/privacy"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/recompute"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/rules"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/store"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/workflow"
)

// setupLogging configures slog; with LOG_FILE set, output rotates via
// lumberjack.
func setupLogging(cfg *config.Config) {
	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // MiB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
	}
	level := slog.LevelInfo
	if !cfg.Production() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})))
}

func runServe(stderr io.Writer) int {
	cfg := config.Load()
	setupLogging(cfg)
	logger := slog.Default().With("component", "main")

	if err := cfg.CheckStartup(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	for _, warning := range cfg.Validate().Warnings {
		logger.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("store init failed", "error", err)
		return 1
	}
	defer func() { _ = st.Close() }()

	engine, err := rules.NewEngine()
	if err != nil {
		logger.Error("rule engine init failed", "error", err)
		return 1
	}

	metrics, err := observability.New(ctx, &observability.Config{
		ServiceName:    "autocomply-core",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTLPEndpoint != "",
	})
	if err != nil {
		logger.Error("observability init failed", "error", err)
		return 1
	}
	defer func() { _ = metrics.Shutdown(context.Background()) }()

	repo := intelligence.NewRepository(st, engine)
	recomputer := recompute.New(repo, metrics)
	if cfg.RedisAddr != "" {
		claimer := recompute.NewRedisClaimer(cfg.RedisAddr)
		defer func() { _ = claimer.Close() }()
		recomputer = recomputer.WithClaimer(claimer)
		logger.Info("recompute throttle coordinated via redis", "addr", cfg.RedisAddr)
	}

	wf := workflow.NewService(st, recomputer, cfg.UploadsRoot)

	signer, err := export.NewSigner(cfg.SigningKey, cfg.Environment)
	if err != nil {
		logger.Error("signer init failed", "error", err)
		return 1
	}
	policy := privacy.Policy{
		EvidenceRetentionDays: cfg.EvidenceRetentionDays,
		PayloadRetentionDays:  cfg.PayloadRetentionDays,
	}
	exporter := export.NewExporter(st, signer, policy, metrics)

	sweeper := privacy.NewSweeper(st, cfg.UploadsRoot, policy)
	go sweeper.RunDaily(ctx)

	server, err := console.New(cfg, wf, repo, recomputer, exporter, metrics)
	if err != nil {
		logger.Error("console init failed", "error", err)
		return 1
	}

	logger.Info("autocomply starting",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"uploads_root", cfg.UploadsRoot)
	if err := server.ListenAndServe(ctx); err != nil {
		logger.Error("server error", "error", err)
		return 1
	}
	logger.Info("shutdown complete")
	return 0
}
