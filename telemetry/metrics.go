// Package telemetry provides Prometheus metrics, OpenTelemetry tracing setup
// and correlation-id aware logging helpers for the render pipeline.
package telemetry

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	// Counters
	FramesRendered     prometheus.Counter
	DirtyFrames        prometheus.Counter
	MessagesExtracted  prometheus.Counter
	AssetsFetched      prometheus.Counter
	AssetFetchFailures prometheus.Counter
	AssetCacheHits     prometheus.Counter

	// Histograms (seconds)
	PrefetchDuration    prometheus.Observer
	FrameLoopDuration   prometheus.Observer
	TotalRenderDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		FramesRendered = promauto.NewCounter(prometheus.CounterOpts{Name: "chatvid_frames_rendered_total", Help: "Number of raw frames written to the encoder"})
		DirtyFrames = promauto.NewCounter(prometheus.CounterOpts{Name: "chatvid_dirty_frames_total", Help: "Number of frames that required re-layout and re-raster"})
		MessagesExtracted = promauto.NewCounter(prometheus.CounterOpts{Name: "chatvid_messages_extracted_total", Help: "Number of normalized messages extracted from transcripts"})
		AssetsFetched = promauto.NewCounter(prometheus.CounterOpts{Name: "chatvid_assets_fetched_total", Help: "Number of avatar/emoji images fetched over HTTP"})
		AssetFetchFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "chatvid_asset_fetch_failures_total", Help: "Number of avatar/emoji fetches that failed"})
		AssetCacheHits = promauto.NewCounter(prometheus.CounterOpts{Name: "chatvid_asset_cache_hits_total", Help: "Number of asset lookups served from the cache"})
		PrefetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chatvid_asset_prefetch_duration_seconds", Help: "Asset prefetch pass duration seconds", Buckets: prometheus.DefBuckets})
		FrameLoopDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chatvid_frame_loop_duration_seconds", Help: "Frame loop duration seconds", Buckets: prometheus.DefBuckets})
		TotalRenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chatvid_render_total_duration_seconds", Help: "Total render duration seconds", Buckets: prometheus.DefBuckets})
	})
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// ServeMetrics exposes /metrics on addr until ctx is done. Intended for
// long renders where progress is watched externally; no-op when addr is empty.
func ServeMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		slog.Info("metrics listener started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics listener error", slog.Any("err", err))
		}
	}()
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the render correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
