package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-prices/config"
	"github.com/aluiziolira/go-scrape-prices/models"
	"github.com/aluiziolira/go-scrape-prices/pipeline"
	"github.com/aluiziolira/go-scrape-prices/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	defaultCfg := config.DefaultConfig()
	baseURLDefault := defaultCfg.BaseURL
	if value, ok := config.EnvString("SCRAPER_BASE_URL"); ok {
		baseURLDefault = value
	}
	chunkSizeDefault := defaultCfg.ChunkSize
	if value, ok, err := config.EnvInt("SCRAPER_CHUNK_SIZE"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_CHUNK_SIZE: %v\n", err)
		os.Exit(1)
	} else if ok {
		chunkSizeDefault = value
	}
	chunkDelayDefault := defaultCfg.ChunkDelay
	if value, ok, err := config.EnvDuration("SCRAPER_CHUNK_DELAY"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_CHUNK_DELAY: %v\n", err)
		os.Exit(1)
	} else if ok {
		chunkDelayDefault = value
	}
	outputDefault := defaultCfg.OutputDir
	if value, ok := config.EnvString("SCRAPER_OUTPUT_DIR"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	baseURL := flag.String("base-url", baseURLDefault, "Index page listing the archives; archive links are appended to it")
	chunkSize := flag.Int("chunk-size", chunkSizeDefault, "URLs per chunk")
	chunkDelay := flag.Duration("chunk-delay", chunkDelayDefault, "Pause between chunks")
	requestDelay := flag.Duration("request-delay", defaultCfg.RequestDelay, "Pause before every request")
	timeout := flag.Duration("timeout", defaultCfg.Timeout, "Per-request timeout")
	retry := flag.Bool("retry", defaultCfg.RetryFailed, "Retry failed URLs once after the main pass")
	respectRobots := flag.Bool("respect-robots", false, "Respect robots.txt directives")
	outputDir := flag.String("output-dir", outputDefault, "Directory for base{N} and retried output files")
	outputFormat := flag.String("format", "csv", "Output format: csv, json, or dual")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.BaseURL = *baseURL
	cfg.ChunkSize = *chunkSize
	cfg.ChunkDelay = *chunkDelay
	cfg.RequestDelay = *requestDelay
	cfg.Timeout = *timeout
	cfg.RetryFailed = *retry
	cfg.RespectRobotsTxt = *respectRobots
	cfg.OutputDir = *outputDir
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.Verbose = *verbose
	cfg.MetricsAddr = *metricsAddr
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	sink, err := pipeline.NewFileSink(cfg.OutputDir, cfg.OutputFormat)
	if err != nil {
		slog.Error("creating output sink", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	result, err := s.Run(ctx, sink)
	shutdownMetrics(metricsServer)
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		os.Exit(1)
	}

	printSummary(result, sink.Written())
}

func shutdownMetrics(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func printSummary(result *models.ScraperResult, written map[string]int) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	fmt.Printf("  Archives:      %d\n", result.ArchiveCount)
	fmt.Printf("  Chunks:        %d\n", result.Main.Chunks)
	fmt.Printf("  Successful:    %d\n", result.SuccessCount())
	fmt.Printf("  Main failed:   %d\n", len(result.Main.Failed))
	if result.Retry != nil {
		fmt.Printf("  Retried:       %d (recovered %d)\n", len(result.Main.Failed), result.Retry.SuccessCount())
	}
	fmt.Printf("  Still failing: %d\n", len(result.PermanentFailures()))
	if result.Main.Duplicates > 0 {
		fmt.Printf("  Duplicates:    %d\n", result.Main.Duplicates)
	}
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))

	paths := make([]string, 0, len(written))
	for path := range written {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		fmt.Printf("  Output file:   %s (%d rows)\n", path, written[path])
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
