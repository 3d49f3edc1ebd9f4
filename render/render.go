// Package render drives the chat-to-video pipeline: it turns a parsed
// transcript into a finite stream of raw frames and feeds them to the
// encoder. The whole pipeline is single-threaded and synchronous; the only
// concurrency is the encoder subprocess consuming the pixel stream.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/chatvid/assets"
	"github.com/onnwee/chatvid/chat"
	"github.com/onnwee/chatvid/config"
	"github.com/onnwee/chatvid/encoder"
	"github.com/onnwee/chatvid/layout"
	"github.com/onnwee/chatvid/telemetry"
	"github.com/onnwee/chatvid/timeline"
)

// Render executes one full render: load transcript, normalize, build the
// timeline, prefetch assets, then stream frames into ffmpeg. Asset
// resolution fully completes before the frame loop so no network latency
// interrupts frame pacing.
func Render(ctx context.Context, cfg *config.Config, opts *config.Options) error {
	telemetry.Init()
	logger := telemetry.LoggerWithCorr(ctx)
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "chatvid", "render",
		attribute.String("input", opts.Input), attribute.String("output", opts.Output))
	defer span.End()

	background, err := ParseHexColor(opts.Background)
	if err != nil {
		return fmt.Errorf("invalid background color: %w", err)
	}

	_, parseSpan := telemetry.StartSpan(ctx, "chatvid", "parse")
	actions, err := chat.LoadActions(opts.Input)
	if err != nil {
		telemetry.RecordError(parseSpan, err)
		parseSpan.End()
		telemetry.RecordError(span, err)
		return err
	}
	parseSpan.End()
	logger.Info("transcript loaded", slog.String("path", opts.Input), slog.Int("actions", len(actions)))

	_, tlSpan := telemetry.StartSpan(ctx, "chatvid", "timeline")
	endSet := opts.EndSec != 0
	msgs := chat.ExtractMessages(actions, opts.EndSec)
	telemetry.MessagesExtracted.Add(float64(len(msgs)))

	tl, err := timeline.Build(msgs, opts.StartSec, opts.EndSec, endSet, opts.FallbackGapMS)
	if err != nil {
		telemetry.RecordError(tlSpan, err)
		tlSpan.End()
		telemetry.RecordError(span, err)
		return err
	}
	tlSpan.End()
	logger.Info("timeline built",
		slog.Int("messages", len(tl.Messages)),
		slog.Float64("duration_s", tl.DurationSec),
		slog.Bool("retimed", tl.Retimed))

	st, err := layout.NewStyle(opts.Width, opts.Height, opts.Scale, opts.Padding)
	if err != nil {
		return err
	}

	proxy := opts.Proxy
	if proxy == "" {
		proxy = cfg.Proxy
	}
	cache, err := assets.New(assets.Options{
		Dir:        cfg.CacheDir,
		UseDisk:    opts.UseCache,
		AvatarSize: st.AvatarSize,
		EmojiSize:  st.EmojiSize,
		Timeout:    cfg.FetchTimeout,
		Proxy:      proxy,
	})
	if err != nil {
		return err
	}
	if !opts.UseCache {
		logger.Info("hint: add --use-cache to avoid re-downloading avatars and emojis next run")
	}
	_, prefetchSpan := telemetry.StartSpan(ctx, "chatvid", "prefetch")
	prefetchDur := telemetry.TimeFunc(telemetry.PrefetchDuration, func() {
		if !opts.SkipAvatars {
			cache.PrefetchAvatars(ctx, tl.Messages)
		}
		if !opts.SkipEmojis {
			cache.PrefetchEmojis(ctx, tl.Messages)
		}
	})
	prefetchSpan.End()
	logger.Info("assets resolved", slog.Int("cached", cache.Len()), slog.Duration("prefetch_duration", prefetchDur))

	enc, err := encoder.Start(ctx, encoder.Options{
		Output:      opts.Output,
		Width:       opts.Width,
		Height:      opts.Height,
		FrameRate:   opts.FrameRate,
		Transparent: opts.Transparent,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	ras := NewRasterizer(st, background, opts.Transparent)
	drv := NewDriver(tl, st, cache, ras, opts.FrameRate, !opts.NoClip)

	var frames int
	var runErr error
	_, loopSpan := telemetry.StartSpan(ctx, "chatvid", "frames")
	loopDur := telemetry.TimeFunc(telemetry.FrameLoopDuration, func() {
		frames, runErr = drv.Run(ctx, enc)
	})
	telemetry.RecordError(loopSpan, runErr)
	loopSpan.End()

	// Close the encoder's input and collect its status whether or not the
	// loop succeeded; a partially written output is considered failed.
	closeErr := enc.Close()
	waitErr := enc.Wait()

	if runErr != nil {
		telemetry.RecordError(span, runErr)
		return fmt.Errorf("render aborted after %d frames: %w", frames, runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close encoder input: %w", closeErr)
	}
	if waitErr != nil {
		telemetry.RecordError(span, waitErr)
		return waitErr
	}

	telemetry.TotalRenderDuration.Observe(time.Since(start).Seconds())
	logger.Info("render complete",
		slog.String("output", opts.Output),
		slog.Int("frames", frames),
		slog.Duration("frame_loop_duration", loopDur),
		slog.Duration("total_duration", time.Since(start)))
	telemetry.SetSpanSuccess(span)
	return nil
}
