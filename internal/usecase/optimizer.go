package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/smartshop/backend/internal/domain"
)

// Lookup modes
const (
	ModePerItem   = "per_item"
	ModeWholeList = "whole_list"
)

const instrumentationName = "github.com/smartshop/backend/internal/usecase"

var (
	nonWordRegex        = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
)

// OptimizerConfig holds configuration for the optimization service
type OptimizerConfig struct {
	Mode           string
	ChunkSize      int
	Concurrency    int
	ChunkDelay     time.Duration
	Markup         float64
	CurrencySymbol string
	CacheTTL       time.Duration
}

// Progress reports how many items of a run have been looked up
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

type optimizerMetrics struct {
	runs     metric.Int64Counter
	failures metric.Int64Counter
	lookups  metric.Int64Counter
	duration metric.Float64Histogram
}

// OptimizationService prices a grocery list across nearby stores
type OptimizationService struct {
	advisor domain.PriceAdvisor
	cache   domain.OfferCache
	config  OptimizerConfig
	tracer  trace.Tracer
	metrics optimizerMetrics
}

// NewOptimizationService creates a new optimization service. cache may be nil.
func NewOptimizationService(advisor domain.PriceAdvisor, cache domain.OfferCache, config OptimizerConfig) *OptimizationService {
	if config.Mode == "" {
		config.Mode = ModePerItem
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.ChunkDelay == 0 {
		config.ChunkDelay = time.Second
	}
	if config.Markup <= 0 {
		config.Markup = DefaultMarkup
	}
	if config.CurrencySymbol == "" {
		config.CurrencySymbol = "€"
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 6 * time.Hour
	}

	return &OptimizationService{
		advisor: advisor,
		cache:   cache,
		config:  config,
		tracer:  otel.Tracer(instrumentationName),
		metrics: newOptimizerMetrics(otel.Meter(instrumentationName)),
	}
}

func newOptimizerMetrics(meter metric.Meter) optimizerMetrics {
	var m optimizerMetrics
	var errs []error
	var err error

	m.runs, err = meter.Int64Counter("smartshop.optimizer.runs", metric.WithDescription("Optimization runs started"))
	errs = append(errs, err)
	m.failures, err = meter.Int64Counter("smartshop.optimizer.failures", metric.WithDescription("Optimization runs that failed"))
	errs = append(errs, err)
	m.lookups, err = meter.Int64Counter("smartshop.optimizer.lookups", metric.WithDescription("Price lookups by cache outcome"))
	errs = append(errs, err)
	m.duration, err = meter.Float64Histogram("smartshop.optimizer.duration", metric.WithUnit("s"), metric.WithDescription("Optimization run duration"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		zap.L().Warn("[Optimizer] metric instruments unavailable", zap.Error(err))
	}
	return m
}

// Optimize looks up every item near loc and returns the merged store comparison.
// onProgress, when set, receives monotonic progress updates.
func (s *OptimizationService) Optimize(
	ctx context.Context,
	items []domain.GroceryItem,
	loc domain.Location,
	onProgress func(Progress),
) (result *domain.OptimizationResult, err error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyList
	}
	if !loc.Valid() {
		return nil, domain.ErrLocationUnavailable
	}

	ctx, span := s.tracer.Start(ctx, "optimizer.Optimize", trace.WithAttributes(
		attribute.Int("items", len(items)),
		attribute.String("mode", s.config.Mode),
	))
	start := time.Now()
	s.metrics.runs.Add(ctx, 1)

	defer func() {
		s.metrics.duration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			s.metrics.failures.Add(ctx, 1)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	progress := newProgressTracker(len(items), onProgress)
	progress.report()

	agg := NewAggregator(loc)
	names := domain.ItemNames(items)

	if s.config.Mode == ModeWholeList {
		offers, err := s.advisor.CompareList(ctx, names, loc)
		if err != nil {
			return nil, err
		}
		progress.complete(len(items))
		agg.AddComparison(names, offers)
	} else {
		batcher := Batcher{Size: s.config.ChunkSize, Concurrency: s.config.Concurrency, Pause: s.config.ChunkDelay}
		results, err := RunBatches(ctx, batcher, names,
			func(ctx context.Context, _ int, name string) ([]domain.StoreOffer, error) {
				return s.lookup(ctx, name, loc)
			},
			func(int) { progress.complete(1) },
		)
		if err != nil {
			return nil, err
		}
		for i, offers := range results {
			agg.Add(names[i], offers)
		}
	}

	result, err = agg.Finalize(s.config.Markup, s.config.CurrencySymbol)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("markets", len(result.Markets)))
	zap.L().Info("[Optimizer] run completed",
		zap.Int("items", len(items)),
		zap.Int("markets", len(result.Markets)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// lookup fetches offers for one item, consulting the cache first
func (s *OptimizationService) lookup(ctx context.Context, name string, loc domain.Location) ([]domain.StoreOffer, error) {
	ctx, span := s.tracer.Start(ctx, "optimizer.lookup", trace.WithAttributes(attribute.String("item", name)))
	defer span.End()

	key := offerCacheKey(name, loc)

	if offers, ok := s.fromCache(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cached", true))
		s.metrics.lookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cached", true)))
		return offers, nil
	}

	s.metrics.lookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cached", false)))
	offers, err := s.advisor.FetchItemPrices(ctx, name, loc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.toCache(ctx, key, offers)
	return offers, nil
}

func (s *OptimizationService) fromCache(ctx context.Context, key string) ([]domain.StoreOffer, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			zap.L().Warn("[Optimizer] cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var offers []domain.StoreOffer
	if err := json.Unmarshal(data, &offers); err != nil {
		zap.L().Warn("[Optimizer] cached offers unreadable", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return offers, true
}

func (s *OptimizationService) toCache(ctx context.Context, key string, offers []domain.StoreOffer) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(offers)
	if err != nil {
		zap.L().Warn("[Optimizer] offers not cacheable", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, data, s.config.CacheTTL); err != nil {
		zap.L().Warn("[Optimizer] cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// offerCacheKey builds "offers:{normalized_name}:{lat}:{lng}" with coordinates rounded to ~1 km
func offerCacheKey(name string, loc domain.Location) string {
	return fmt.Sprintf("offers:%s:%.2f:%.2f", normalizeForCacheKey(name), loc.Latitude, loc.Longitude)
}

// normalizeForCacheKey lowercases and strips punctuation, keeping accented letters
func normalizeForCacheKey(s string) string {
	result := strings.ToLower(s)
	result = nonWordRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// progressTracker serializes progress callbacks so observers see a monotonic count
type progressTracker struct {
	mu        sync.Mutex
	completed int
	total     int
	notify    func(Progress)
}

func newProgressTracker(total int, notify func(Progress)) *progressTracker {
	return &progressTracker{total: total, notify: notify}
}

func (p *progressTracker) complete(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = min(p.completed+n, p.total)
	if p.notify != nil {
		p.notify(Progress{Completed: p.completed, Total: p.total})
	}
}

func (p *progressTracker) report() {
	p.complete(0)
}
