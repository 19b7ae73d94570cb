package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftools/internal/archive"
	"github.com/local/pdftools/internal/compress"
	cfgpkg "github.com/local/pdftools/internal/config"
	"github.com/local/pdftools/internal/filetype"
	"github.com/local/pdftools/internal/imagerender"
	"github.com/local/pdftools/internal/limiter"
	logpkg "github.com/local/pdftools/internal/logger"
	"github.com/local/pdftools/internal/merge"
	"github.com/local/pdftools/internal/metrics"
	"github.com/local/pdftools/internal/numbering"
	"github.com/local/pdftools/internal/orchestrator"
	"github.com/local/pdftools/internal/overlay"
	"github.com/local/pdftools/internal/pdfdoc"
	"github.com/local/pdftools/internal/session"
	"github.com/local/pdftools/internal/split"
	"github.com/local/pdftools/internal/statuscheck"
	"github.com/local/pdftools/internal/storage"
	"github.com/local/pdftools/internal/store"
)

func main() {
	cfg, err := cfgpkg.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Init logging
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Job store: Redis when configured, memory otherwise
	var jobs store.JobStore = store.NewMemory()
	statusOpts := statuscheck.Options{}
	if cfg.Redis.URL != "" {
		rj, err := store.NewRedisJobs(cfg.Redis.URL, cfg.Redis.JobTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init redis job store")
		}
		jobs = rj
		statusOpts.Redis = orchestrator.NewRedisPinger(rj.Client())
	}
	defer jobs.Close()

	// Result sink: S3 when a bucket is set, local directory otherwise
	local := storage.NewLocal(cfg.Storage.ResultDir)
	var sink storage.Sink = local
	var cleaner orchestrator.ResultCleaner = local
	if cfg.Storage.S3Bucket != "" {
		s3sink, err := storage.NewS3Sink(ctx, cfg.Storage.S3Bucket, cfg.Storage.S3Prefix)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init s3 result sink")
		}
		sink = s3sink
		cleaner = nil
	}
	statusOpts.Storage = sink

	model := pdfdoc.NewPDFCPU()
	raster := imagerender.NewFitz()

	numberer := numbering.New(model)
	numberer.Defaults.Format = cfg.Tools.NumberFormat
	numberer.Defaults.FontSize = cfg.Tools.DefaultFontSize
	numberer.Defaults.Margin = numbering.Margin(cfg.Tools.OverlayMargin)
	numberer.Defaults.Color = cfg.Tools.NumberColor
	if a, err := overlay.ParseAnchor(cfg.Tools.NumberPosition); err == nil {
		numberer.Defaults.Anchor = a
	} else {
		log.Warn().Str("position", cfg.Tools.NumberPosition).Msg("unknown default position; using bottom-center")
	}

	compressor := compress.New(model, raster, cfg.Tools.CompressionLevels)
	compressor.Scale = cfg.Tools.RasterScale
	compressor.Correction = cfg.Tools.SizeCorrection

	sessions := session.NewManager()
	lim := limiter.New(limiter.Options{MaxInflight: cfg.Tools.MaxConcurrentJobs})
	statusOpts.Slots = lim
	statusOpts.Sessions = sessions

	orch := orchestrator.New(orchestrator.Dependencies{
		Sessions:       sessions,
		Jobs:           jobs,
		Sink:           sink,
		Limiter:        lim,
		Types:          filetype.New(),
		Model:          model,
		Numberer:       numberer,
		Compress:       compressor,
		Split:          split.New(model, archive.Zip{}),
		Merge:          merge.New(model),
		Status:         statuscheck.New(statusOpts),
		DefaultLevel:   compress.Level(cfg.Tools.DefaultLevel),
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
	})
	mux := http.NewServeMux()
	orch.RegisterRoutes(mux)

	janitor := orchestrator.NewJanitor(sessions, cleaner, orchestrator.JanitorOptions{
		Interval:     cfg.Server.CleanupInterval,
		SessionTTL:   cfg.Server.SessionTTL,
		ResultMaxAge: cfg.Storage.ResultMaxAge,
	})
	go janitor.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           http.TimeoutHandler(mux, cfg.Server.RequestTimeout, "request timed out"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("sink", fmt.Sprint(sink)).Bool("redis", cfg.Redis.URL != "").Msgf("HTTP server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("shutdown complete")
}
