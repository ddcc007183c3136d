package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/beucismis/backupill/internal/codec"
	"github.com/beucismis/backupill/internal/config"
	"github.com/beucismis/backupill/internal/pipeline"
	"github.com/beucismis/backupill/internal/scan"
)

// ListenAndServe runs the pipeline and the HTTP API until ctx is cancelled,
// then drains both.
func ListenAndServe(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	stats := codec.NewStats(time.Hour)

	orch := pipeline.NewOrchestrator(cfg, stats, log)
	orch.Start(ctx)

	restorer := &pipeline.Restorer{
		Scanner: &scan.Zbar{Path: cfg.ScannerPath, Timeout: cfg.ScanTimeout},
		Log:     log,
	}
	srv, err := NewServer(orch, restorer, stats, log, cfg)
	if err != nil {
		orch.Stop()
		return err
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second + cfg.ScanTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting backupill", "port", cfg.Port, "workers", cfg.WorkerCount, "output_dir", cfg.OutputDir)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		orch.Stop()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	err = httpServer.Shutdown(shutdownCtx)
	orch.Stop()
	if err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
