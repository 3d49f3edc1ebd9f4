package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/onnwee/chatvid/chat"
	"github.com/onnwee/chatvid/layout"
	"github.com/onnwee/chatvid/telemetry"
	"github.com/onnwee/chatvid/timeline"
)

// ErrNoFrames indicates the resolved window rounds to zero output frames.
var ErrNoFrames = errors.New("computed frame count is zero")

// Driver advances the message cursor per output frame and streams raster
// frames to the encoder sink. Frames between chat events reuse the previous
// raster buffer; only cursor advances trigger re-layout.
type Driver struct {
	tl   *timeline.Timeline
	st   layout.Style
	imgs layout.ImageSource
	ras  *Rasterizer
	fps  int
	clip bool
}

// NewDriver wires a driver over a built timeline. clip selects the overflow
// policy for the layout walk.
func NewDriver(tl *timeline.Timeline, st layout.Style, imgs layout.ImageSource, ras *Rasterizer, fps int, clip bool) *Driver {
	return &Driver{tl: tl, st: st, imgs: imgs, ras: ras, fps: fps, clip: clip}
}

// frameTimeMS computes the absolute transcript time of a frame, truncated to
// whole milliseconds.
func frameTimeMS(startSec float64, frame, fps int) int64 {
	return int64((startSec + float64(frame)/float64(fps)) * 1000)
}

// advanceCursor moves the cursor while the next message's time is strictly
// below the frame time. A message landing exactly on a frame's timestamp
// becomes visible on the following frame.
func advanceCursor(msgs []chat.Message, cursor int, tMS int64) int {
	for cursor+1 < len(msgs) && tMS > msgs[cursor+1].TimeMS {
		cursor++
	}
	return cursor
}

// Run emits every frame to sink and returns the number of frames written.
// Any draw or write error aborts the remaining loop.
func (d *Driver) Run(ctx context.Context, sink io.Writer) (int, error) {
	frames := int(math.Round(float64(d.fps) * d.tl.DurationSec))
	if frames < 1 {
		return 0, fmt.Errorf("%w: fps=%d duration=%gs", ErrNoFrames, d.fps, d.tl.DurationSec)
	}

	msgs := d.tl.Messages
	cursor := -1
	dirty := true

	for i := 0; i < frames; i++ {
		select {
		case <-ctx.Done():
			return i, ctx.Err()
		default:
		}

		tMS := frameTimeMS(d.tl.StartSec, i, d.fps)
		if next := advanceCursor(msgs, cursor, tMS); next != cursor {
			cursor = next
			dirty = true
		}

		if dirty {
			blocks := layout.Compute(msgs, cursor, d.st, d.imgs, d.clip)
			if err := d.ras.Draw(blocks, d.imgs); err != nil {
				if errors.Is(err, ErrBitmapSize) {
					err = fmt.Errorf("%w (a disk cache written with a different --scale can cause this; delete the cache folder and retry)", err)
				}
				return i, fmt.Errorf("draw frame %d: %w", i, err)
			}
			dirty = false
			telemetry.DirtyFrames.Inc()
		}

		if _, err := sink.Write(d.ras.Pack()); err != nil {
			return i, fmt.Errorf("write frame %d: %w", i, err)
		}
		telemetry.FramesRendered.Inc()
		fmt.Printf("\rGenerating video frames... %d/%d (%d%%)", i+1, frames, int(math.Round(float64(i+1)/float64(frames)*100)))
	}
	fmt.Println()
	return frames, nil
}
