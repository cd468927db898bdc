package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loan-approval/internal/cfg"
	"loan-approval/internal/metrics"
	"loan-approval/internal/ml"
	"loan-approval/internal/web"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Initialize components
	m := metrics.New()
	mw := metrics.NewWrapper(m)

	dir, err := c.ModelsPath()
	if err != nil {
		log.Fatal().Err(err).Msg("models directory invalid")
	}

	// Model load failures are fatal; there is no fallback model.
	models, err := ml.LoadModels(dir, ml.LoadOptions{
		ClassifierFile: c.ClassifierFile,
		RegressorFile:  c.RegressorFile,
		Metrics:        mw,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("model load failed")
	}

	predictor, err := ml.NewPredictor(models, c.ApprovalThreshold, mw)
	if err != nil {
		log.Fatal().Err(err).Msg("predictor init failed")
	}

	server := web.NewServer(web.Config{
		Port:           c.WebPort,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		PredictTimeout: c.APITimeout,
	}, models, predictor, m, prometheus.DefaultGatherer)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	log.Info().
		Str("addr", server.Addr()).
		Str("models_dir", dir).
		Float64("threshold", predictor.Threshold()).
		Msg("loan approval service ready")

	if err := waitForShutdown(errChan, server); err != nil {
		log.Fatal().Err(err).Msg("web server failed")
	}
}

// waitForShutdown waits for a shutdown signal or a server failure. A server
// that stops on its own is reported as an error.
func waitForShutdown(errChan <-chan error, server *web.Server) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case err := <-errChan:
		if err == nil {
			err = errors.New("server stopped unexpectedly")
		}
		return err
	}

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
		return nil
	}
	log.Info().Msg("server stopped")
	return nil
}
