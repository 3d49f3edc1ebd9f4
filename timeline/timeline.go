// Package timeline orders normalized messages and derives the render window,
// repairing transcripts whose timestamps collapsed (all-equal or zero-length).
package timeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/onnwee/chatvid/chat"
)

var (
	// ErrNoMessages indicates the transcript held no renderable messages at all.
	ErrNoMessages = errors.New("no messages found in the chat file")
	// ErrEmptyWindow indicates the requested time window excluded every message.
	ErrEmptyWindow = errors.New("no messages within selected time window")
	// ErrZeroDuration indicates no usable timing even after fallback retiming.
	ErrZeroDuration = errors.New("computed duration is zero")
)

// Timeline is the sorted message sequence plus the resolved render window.
type Timeline struct {
	Messages    []chat.Message
	StartSec    float64
	EndSec      float64
	DurationSec float64
	// Retimed reports that the synthetic fallback spacing was applied.
	Retimed bool
}

// Build sorts messages by time and computes the render duration. endSet says
// whether endSec was user-supplied; when false the end defaults to the last
// message's time. Degenerate timing (zero-length window, or every message on
// one timestamp) is repaired by re-spacing messages gapMS apart.
func Build(msgs []chat.Message, startSec, endSec float64, endSet bool, gapMS int64) (*Timeline, error) {
	if len(msgs) == 0 {
		if endSet {
			return nil, ErrEmptyWindow
		}
		return nil, ErrNoMessages
	}

	sorted := make([]chat.Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TimeMS < sorted[j].TimeMS })

	tl := &Timeline{Messages: sorted, StartSec: startSec}

	maxDuration := float64(sorted[len(sorted)-1].TimeMS) / 1000.0
	tl.EndSec = endSec
	if !endSet {
		tl.EndSec = maxDuration
	}
	tl.DurationSec = tl.EndSec - tl.StartSec
	if tl.DurationSec < 0 {
		tl.DurationSec = 0
	}

	if tl.DurationSec <= 0 || allSameTime(sorted) {
		gap := gapMS
		if gap < 1 {
			gap = 1
		}
		for i := range sorted {
			sorted[i].TimeMS = int64(i) * gap
		}
		tl.Retimed = true
		maxDuration = float64(sorted[len(sorted)-1].TimeMS) / 1000.0
		if !endSet {
			tl.EndSec = maxDuration
		}
		tl.DurationSec = tl.EndSec - tl.StartSec
		if tl.DurationSec < 0 {
			tl.DurationSec = 0
		}
		slog.Info("timestamps collapsed, applied fallback spacing",
			slog.Int64("gap_ms", gap), slog.Int("messages", len(sorted)))
	}

	if tl.DurationSec <= 0 {
		return nil, fmt.Errorf("%w (start=%gs, end=%gs): input has no usable timing; try a different transcript or increase the fallback gap",
			ErrZeroDuration, tl.StartSec, tl.EndSec)
	}
	return tl, nil
}

func allSameTime(msgs []chat.Message) bool {
	for _, m := range msgs {
		if m.TimeMS != msgs[0].TimeMS {
			return false
		}
	}
	return true
}
