package main

import (
	"context"
	"flag"
	"os"

	"loan-approval/internal/applicant"
	"loan-approval/internal/cfg"
	"loan-approval/internal/client"
	"loan-approval/internal/ml"
	"loan-approval/internal/report"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Parse command line arguments
	var (
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
		modelsDir  = flag.String("models", "", "Models directory (overrides config)")
		threshold  = flag.Float64("threshold", 0, "Approval threshold in (0,1) (overrides config)")
		serverURL  = flag.String("server", "", "Send the sample to a running server instead of loading models")
		outputPath = flag.String("output", "", "Write a JSON report to this file")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Setup logging
	level := c.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	// Override config with command line arguments
	if *modelsDir != "" {
		c.ModelsDir = *modelsDir
	}
	if *threshold != 0 {
		c.ApprovalThreshold = *threshold
	}

	rep := report.NewReporter(os.Stdout)
	rep.PrintBanner()
	rep.PrintSampleNotice()

	rec := applicant.Sample()
	ctx := context.Background()

	var res ml.Result
	if *serverURL != "" {
		if *threshold != 0 {
			log.Warn().Msg("threshold flag is ignored in server mode, the server decides")
		}
		res, err = client.New(*serverURL, c.APITimeout).Predict(ctx, rec)
	} else {
		res, err = predictLocal(ctx, c, rec)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Prediction failed")
	}

	rep.PrintResult(res)

	if *outputPath != "" {
		if err := rep.WriteJSON(*outputPath, rec, res); err != nil {
			log.Fatal().Err(err).Msg("Failed to write report")
		}
	}
}

// predictLocal loads both models from the configured directory and scores rec.
func predictLocal(ctx context.Context, c cfg.Settings, rec applicant.Record) (ml.Result, error) {
	dir, err := c.ModelsPath()
	if err != nil {
		return ml.Result{}, err
	}

	models, err := ml.LoadModels(dir, ml.LoadOptions{
		ClassifierFile: c.ClassifierFile,
		RegressorFile:  c.RegressorFile,
	})
	if err != nil {
		return ml.Result{}, err
	}

	predictor, err := ml.NewPredictor(models, c.ApprovalThreshold, nil)
	if err != nil {
		return ml.Result{}, err
	}
	return predictor.Predict(ctx, rec)
}
