package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/lucy3/Graphs-Embeddings/featurefit"
	"github.com/lucy3/Graphs-Embeddings/internal/app"
)

type cliOptions struct {
	configPath string
	pivot      string
	dataDir    string
	features   string
	workers    int
	verbose    bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		log.Fatalf("feature-fit: %v", err)
	}
	if err := run(opts); err != nil {
		log.Fatalf("feature-fit: %v", err)
	}
}

func parseFlags() (cliOptions, error) {
	var opts cliOptions
	flag.StringVar(&opts.configPath, "config", "", "Path to config.json (default: ./config.json)")
	flag.StringVar(&opts.pivot, "pivot", "", "Embedding source: mcrae, wikigiga, cc or onnx (overrides config)")
	flag.StringVar(&opts.dataDir, "data-dir", "", "Directory holding the norms, embeddings and correlation files (overrides config)")
	flag.StringVar(&opts.features, "features", "", "Path to the feature norms TSV (overrides config)")
	flag.IntVar(&opts.workers, "workers", 0, "Number of concurrent classifier fits (overrides config)")
	flag.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	opts.configPath = strings.TrimSpace(opts.configPath)
	opts.pivot = strings.TrimSpace(opts.pivot)
	opts.dataDir = strings.TrimSpace(opts.dataDir)
	opts.features = strings.TrimSpace(opts.features)
	if opts.workers < 0 {
		return opts, errors.New("--workers must not be negative")
	}
	return opts, nil
}

func run(opts cliOptions) error {
	cfg, err := featurefit.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.pivot != "" {
		cfg.Pivot = featurefit.Pivot(opts.pivot)
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.features != "" {
		cfg.FeaturesPath = opts.features
	}
	if opts.workers > 0 {
		cfg.Workers = opts.workers
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.New(cfg, logger).Run(ctx)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg = zap.NewDevelopmentConfig()
	}
	return zcfg.Build()
}
