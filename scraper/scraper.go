package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-prices/config"
	"github.com/aluiziolira/go-scrape-prices/models"
	"github.com/aluiziolira/go-scrape-prices/parser"
	"github.com/aluiziolira/go-scrape-prices/pipeline"
	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	phaseIndex = "index"
	phaseMain  = "main"
	phaseRetry = "retry"
)

// Scraper drives the archive crawl: discovery, a chunked main pass and a
// single retry pass over failures. Requests are issued one at a time.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	delay     DelayFunc
	Metrics   *Metrics

	mu           sync.Mutex
	errorsByType map[string]int
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	s := &Scraper{
		cfg:          cfg,
		collector:    collector,
		delay:        SleepContext,
		Metrics:      NewMetrics(),
		errorsByType: make(map[string]int),
	}
	s.configureHandlers()
	return s, nil
}

// Run discovers the archives, fetches them, writes base{N} and, when
// anything failed, retries the failures once and writes "retried".
// Per-URL failures never make Run fail; discovery and output errors do.
func (s *Scraper) Run(ctx context.Context, sink pipeline.Sink) (result *models.ScraperResult, err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result = &models.ScraperResult{StartTime: time.Now()}
	defer func() {
		result.EndTime = time.Now()
		result.ErrorsByType = s.snapshotErrors()
	}()

	slog.Info("starting scrape", slog.String("base_url", s.cfg.BaseURL))

	archives, err := s.DiscoverArchives(ctx)
	if err != nil {
		return result, err
	}
	result.ArchiveCount = len(archives)
	urls := models.ArchiveURLs(s.cfg.BaseURL, archives)

	mainPass, err := s.FetchAll(ctx, urls)
	result.Main = mainPass
	if err != nil {
		return result, fmt.Errorf("main pass: %w", err)
	}

	path, err := sink.Write(fmt.Sprintf("base%d", mainPass.Chunks), mainPass.Batches())
	if err != nil {
		return result, fmt.Errorf("write main output: %w", err)
	}
	result.Outputs = append(result.Outputs, path)

	if len(mainPass.Failed) > 0 {
		if !s.cfg.RetryFailed {
			slog.Warn("requests failed, retry disabled", slog.Int("failed", len(mainPass.Failed)))
		} else {
			slog.Warn("requests failed, will retry", slog.Int("failed", len(mainPass.Failed)))

			retry, err := s.Retry(ctx, mainPass.FailedURLs())
			result.Retry = retry
			if err != nil {
				return result, fmt.Errorf("retry pass: %w", err)
			}

			path, err := sink.Write("retried", retry.Batches())
			if err != nil {
				return result, fmt.Errorf("write retry output: %w", err)
			}
			result.Outputs = append(result.Outputs, path)
		}
	}

	slog.Info("scrape complete",
		slog.Int("successful", result.SuccessCount()),
		slog.Int("total", len(urls)),
		slog.Int("permanently_failed", len(result.PermanentFailures())),
	)
	return result, nil
}

// DiscoverArchives fetches the index page and returns its archive links.
func (s *Scraper) DiscoverArchives(ctx context.Context) ([]models.ArchiveReference, error) {
	body, err := s.fetch(ctx, s.cfg.BaseURL, phaseIndex)
	if err != nil {
		s.recordError(s.cfg.BaseURL, err)
		return nil, ErrDiscovery{URL: s.cfg.BaseURL, Err: err}
	}

	refs, err := parser.ParseArchives(string(body))
	if err != nil {
		return nil, ErrDiscovery{URL: s.cfg.BaseURL, Err: err}
	}

	slog.Info("archives discovered", slog.Int("archives", len(refs)))
	return refs, nil
}

// FetchPage fetches one archive page and extracts its price records.
func (s *Scraper) FetchPage(ctx context.Context, target string) ([]*models.PriceRecord, error) {
	return s.fetchPage(ctx, target, phaseMain)
}

// FetchAll runs the main pass: urls are visited in order, in chunks of
// ChunkSize, with RequestDelay before every request and ChunkDelay between
// chunks. A failing URL lands in the failure set and the pass continues.
// The returned error is non-nil only when ctx is cancelled.
func (s *Scraper) FetchAll(ctx context.Context, urls []string) (*models.PassResult, error) {
	p, err := s.newPass(phaseMain)
	if err != nil {
		return nil, err
	}

	chunks := SliceIntoChunks(urls, s.cfg.ChunkSize)
	p.result.Chunks = len(chunks)
	slog.Info("scraping archive pages", slog.Int("urls", len(urls)), slog.Int("chunks", len(chunks)))

	for i, chunk := range chunks {
		slog.Info("processing chunk", slog.String("chunk", fmt.Sprintf("%d/%d", i+1, len(chunks))))

		for _, target := range chunk {
			if err := s.visit(ctx, p, target); err != nil {
				return p.result, err
			}
		}
		s.Metrics.IncChunks()

		slog.Info("chunk complete",
			slog.String("chunk", fmt.Sprintf("%d/%d", i+1, len(chunks))),
			slog.Int("succeeded", p.result.SuccessCount()),
			slog.Int("failed", len(p.result.Failed)),
			slog.Int("chunk_size", len(chunk)),
		)

		if i < len(chunks)-1 {
			if err := s.delay(ctx, s.cfg.ChunkDelay); err != nil {
				return p.result, err
			}
		}
	}

	return p.result, nil
}

// Retry revisits urls once, unchunked, with the same per-request delay.
func (s *Scraper) Retry(ctx context.Context, urls []string) (*models.PassResult, error) {
	p, err := s.newPass(phaseRetry)
	if err != nil {
		return nil, err
	}

	s.Metrics.AddRetries(len(urls))
	slog.Info("retrying failed urls", slog.Int("urls", len(urls)))

	for _, target := range urls {
		if err := s.visit(ctx, p, target); err != nil {
			return p.result, err
		}
	}

	slog.Info("retry complete",
		slog.Int("succeeded", p.result.SuccessCount()),
		slog.Int("failed", len(p.result.Failed)),
	)
	return p.result, nil
}

type pass struct {
	phase   string
	result  *models.PassResult
	visited *lru.Cache[string, struct{}]
}

func (s *Scraper) newPass(phase string) (*pass, error) {
	visited, err := lru.New[string, struct{}](s.cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create visited set: %w", err)
	}
	return &pass{
		phase:   phase,
		result:  &models.PassResult{},
		visited: visited,
	}, nil
}

func (s *Scraper) visit(ctx context.Context, p *pass, target string) error {
	if p.visited.Contains(target) {
		p.result.Duplicates++
		s.Metrics.IncDuplicates()
		slog.Debug("skipping duplicate url", slog.String("url", target), slog.String("phase", p.phase))
		return nil
	}
	p.visited.Add(target, struct{}{})

	if err := s.delay(ctx, s.cfg.RequestDelay); err != nil {
		return err
	}

	records, err := s.fetchPage(ctx, target, p.phase)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		label := s.recordError(target, err)
		p.result.Failed = append(p.result.Failed, models.FailedURL{
			URL:       target,
			ErrorType: label,
			Error:     err.Error(),
		})
		return nil
	}

	p.result.Pages = append(p.result.Pages, models.PageResult{URL: target, Records: records})
	s.Metrics.AddRecords(len(records))
	return nil
}

func (s *Scraper) fetchPage(ctx context.Context, target, phase string) ([]*models.PriceRecord, error) {
	body, err := s.fetch(ctx, target, phase)
	if err != nil {
		return nil, err
	}
	records, err := parser.ExtractRecords(string(body))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", target, err)
	}
	return records, nil
}

// fetch issues a synchronous GET through the collector and returns the body.
func (s *Scraper) fetch(ctx context.Context, target, phase string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reqCtx := colly.NewContext()
	reqCtx.Put("phase", phase)
	if err := s.collector.Request(http.MethodGet, target, nil, reqCtx, nil); err != nil {
		status, _ := reqCtx.GetAny("status").(int)
		return nil, classifyError(err, status)
	}

	body, _ := reqCtx.GetAny("body").([]byte)
	return body, nil
}

func (s *Scraper) configureHandlers() {
	s.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		s.Metrics.IncRequest(r.Ctx.Get("phase"))
		slog.Debug("fetching", slog.String("url", r.URL.String()), slog.String("phase", r.Ctx.Get("phase")))
	})

	s.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put("body", r.Body)
		s.observe(r)
	})

	s.collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Ctx == nil {
			return
		}
		r.Ctx.Put("status", r.StatusCode)
		s.observe(r)
	})
}

func (s *Scraper) observe(r *colly.Response) {
	if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
		s.Metrics.ObserveDuration(time.Since(start))
	}
}

func (s *Scraper) recordError(target string, err error) string {
	category := errorTypeLabel(err)

	s.mu.Lock()
	s.errorsByType[category]++
	s.mu.Unlock()

	slog.Error("request error",
		slog.String("url", target),
		slog.String("category", category),
		slog.Any("error", err),
	)
	s.Metrics.IncError(category)
	return category
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
		if statusCode >= http.StatusMultipleChoices {
			return ErrHTTPStatus{StatusCode: statusCode, Err: wrapped}
		}
	}

	return err
}
