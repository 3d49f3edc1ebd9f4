// Command chatvid renders a YouTube live chat transcript into a scrolling
// chat overlay video. It:
//   - Loads configuration and initializes structured logging.
//   - Parses the transcript, rebuilds the chat timeline, and prefetches
//     avatar/emoji bitmaps.
//   - Streams raw frames into an ffmpeg subprocess that writes the output
//     file (H.264 MP4, or VP9 WebM when transparency is requested).
//
// Shutdown is graceful on SIGINT/SIGTERM: the frame loop stops and ffmpeg is
// allowed to finalize what it received.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/onnwee/chatvid/config"
	"github.com/onnwee/chatvid/render"
	"github.com/onnwee/chatvid/telemetry"
)

const version = "1.0.0"

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	var opts config.Options
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "chatvid [flags] <transcript.json>",
		Short: "Render a YouTube live chat transcript into a chat overlay video",
		Long: `chatvid reads a live chat transcript (the JSON produced by chat downloaders
such as yt-dlp's live_chat output), reconstructs the message timeline, and
renders a scrolling chat overlay as an MP4 or transparent WebM via ffmpeg.`,
		Example: `  # Render chat.json to chat.mp4
  chatvid chat.json

  # 1080p-ready overlay strip with a persistent asset cache
  chatvid -W 400 -H 1080 -s 2 --use-cache chat.json

  # Transparent overlay for compositing, covering minutes 5 through 10
  chatvid --transparent --from 300 --to 600 -o overlay.webm chat.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Input = args[0]
			initLogging(debug)

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			telemetry.Init()
			shutdown, err := telemetry.InitTracing("chatvid", version)
			if err != nil {
				return err
			}
			defer shutdown()

			ctx := cmd.Context()
			telemetry.ServeMetrics(ctx, cfg.MetricsAddr)

			ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
			return render.Render(ctx, cfg, &opts)
		},
	}

	f := rootCmd.Flags()
	f.StringVarP(&opts.Output, "output", "o", "", "output video path (default: input with .mp4/.webm extension)")
	f.IntVarP(&opts.Width, "width", "W", 400, "video width in pixels (even, >= 100)")
	f.IntVarP(&opts.Height, "height", "H", 540, "video height in pixels (even, >= 32)")
	f.IntVarP(&opts.FrameRate, "frame-rate", "r", 10, "output frame rate")
	f.IntVarP(&opts.Scale, "scale", "s", 1, "integer supersampling scale for text and bitmaps")
	f.StringVarP(&opts.Background, "background", "b", "#0f0f0f", "background color as #rrggbb (ignored with --transparent)")
	f.BoolVar(&opts.Transparent, "transparent", false, "render with a transparent background (forces .webm output)")
	f.IntVarP(&opts.Padding, "padding", "p", 24, "horizontal padding in pixels (scaled)")
	f.Float64Var(&opts.StartSec, "from", 0, "start of the render window in seconds")
	f.Float64Var(&opts.EndSec, "to", 0, "end of the render window in seconds (0 = last message)")
	f.BoolVar(&opts.SkipAvatars, "skip-avatars", false, "do not fetch or draw author avatars")
	f.BoolVar(&opts.SkipEmojis, "skip-emojis", false, "do not fetch or draw emoji images")
	f.BoolVar(&opts.NoClip, "no-clip", false, "draw the partially visible message at the top instead of clipping it")
	f.BoolVar(&opts.UseCache, "use-cache", false, "persist fetched avatars and emojis to the on-disk cache")
	f.StringVar(&opts.Proxy, "proxy", "", "HTTP(S) proxy URL for asset fetching (overrides HTTPS_PROXY)")
	f.Int64Var(&opts.FallbackGapMS, "fallback-gap-ms", 1200, "synthetic gap between messages when the transcript has no usable timing")
	f.BoolVarP(&debug, "debug", "d", false, "enable debug logging (overrides LOG_LEVEL)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("render failed", slog.Any("err", err))
		stop()
		os.Exit(1)
	}
}

// initLogging configures slog from LOG_LEVEL and LOG_FORMAT. Defaults:
// level=info, format=text. --debug wins over the environment.
func initLogging(debug bool) {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	if debug {
		lvl = slog.LevelDebug
	}

	// Frame progress goes to stdout, so logs go to stderr.
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("logger initialized", slog.String("level", lvl.String()))
}
