// Package encoder wraps the external ffmpeg process that consumes the raw
// pixel stream. Codec and pixel-format choices are fixed pass-through pairs
// keyed on transparency; no encoding logic lives here.
package encoder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
)

// Options selects the rawvideo input description and the output file.
type Options struct {
	Output      string
	Width       int
	Height      int
	FrameRate   int
	Transparent bool
}

// BuildArgs assembles the ffmpeg argument list. Opaque output encodes H.264
// from rgb24 input; transparent output encodes VP9 with an alpha-capable
// pixel format from rgba input.
func BuildArgs(o Options) []string {
	inPix, codec, outPix := "rgb24", "libx264", "yuv420p"
	if o.Transparent {
		inPix, codec, outPix = "rgba", "libvpx-vp9", "yuva420p"
	}
	return []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", inPix,
		"-s", fmt.Sprintf("%dx%d", o.Width, o.Height),
		"-r", strconv.Itoa(o.FrameRate),
		"-i", "-",
		"-an",
		"-vcodec", codec,
		"-pix_fmt", outPix,
		o.Output,
	}
}

// Encoder is a running ffmpeg process fed through its stdin pipe. Writes
// block when the encoder falls behind, which is the intended backpressure.
type Encoder struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// Start launches ffmpeg. A launch failure is fatal before any frame is
// computed; ffmpeg's own stderr is passed through for debugging.
func Start(ctx context.Context, o Options) (*Encoder, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", BuildArgs(o)...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch ffmpeg (is it installed and on PATH?): %w", err)
	}
	return &Encoder{cmd: cmd, stdin: stdin}, nil
}

// Write streams raw frame bytes into the encoder.
func (e *Encoder) Write(p []byte) (int, error) {
	return e.stdin.Write(p)
}

// Close signals end of input.
func (e *Encoder) Close() error {
	return e.stdin.Close()
}

// Wait blocks until ffmpeg exits and surfaces its status.
func (e *Encoder) Wait() error {
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg exited: %w", err)
	}
	return nil
}
