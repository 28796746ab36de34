package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/pewinrate/config"
	"github.com/alejandrodnm/pewinrate/internal/adapters/cache"
	"github.com/alejandrodnm/pewinrate/internal/adapters/marketdata"
	"github.com/alejandrodnm/pewinrate/internal/adapters/notify"
	"github.com/alejandrodnm/pewinrate/internal/application/monitor"
	"github.com/alejandrodnm/pewinrate/internal/domain"
	"github.com/alejandrodnm/pewinrate/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one refresh cycle and exit")
	dryRun := flag.Bool("dry-run", false, "read the PE series from a local fixture instead of the provider")
	fixture := flag.String("fixture", "", "fixture path for --dry-run (overrides config)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full monitoring table (default: compact 1-line)")
	rows := flag.Int("rows", -1, "table rows to print, 0 = all (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *fixture != "" {
		cfg.Source.Fixture = *fixture
	}
	if *table {
		cfg.Report.Table = true
	}
	if *rows >= 0 {
		cfg.Report.Rows = *rows
	}
	setupLogger(cfg.Log)

	slog.Info("pewinrate starting",
		"config", *configPath,
		"interval", cfg.RefreshInterval(),
		"cache_ttl", cfg.CacheTTL(),
		"dry_run", *dryRun,
		"once", *once,
	)

	var source ports.SeriesProvider
	if *dryRun {
		source = marketdata.NewFileSource(cfg.Source.Fixture)
	} else {
		source = marketdata.NewClient(marketdata.ClientConfig{
			BaseURL:    cfg.Source.BaseURL,
			Path:       cfg.Source.Path,
			Timeout:    cfg.SourceTimeout(),
			RatePerSec: cfg.Source.RatePerSec,
		})
	}
	cached := cache.NewSeriesCache(source, cfg.CacheTTL())

	notifier := notify.NewConsole(cfg.Report.Table, cfg.Report.Rows)
	ranker := domain.NewRanker(domain.RankerConfig{RejectInvalid: cfg.Ranking.RejectInvalid})

	monCfg := monitor.DefaultConfig()
	monCfg.RefreshInterval = cfg.RefreshInterval()
	monCfg.WinRateLevels = cfg.Ranking.WinRateLevels
	monCfg.Once = *once

	m := monitor.New(monCfg, cached, notifier, ranker)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := m.Run(ctx); err != nil {
		slog.Error("monitor exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("pewinrate stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
