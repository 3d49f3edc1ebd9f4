package chat

import "strings"

// RunKind discriminates message content runs.
type RunKind int

const (
	RunText RunKind = iota
	RunEmoji
)

// Run is one content token sequence: either literal text or a custom emoji
// referenced by its thumbnail URL.
type Run struct {
	Kind     RunKind
	Text     string
	ImageURL string
}

// Message is a normalized chat message. Runs is never empty: extraction
// inserts a placeholder empty-text run so the author row still lays out.
type Message struct {
	TimeMS    int64
	AvatarURL string
	Author    string
	Runs      []Run
}

// preferredRenderers is the fixed priority list of payload kinds. The first
// one present and carrying a timestamp wins.
var preferredRenderers = []string{
	"liveChatTextMessageRenderer",
	"liveChatPaidMessageRenderer",
	"liveChatMembershipItemRenderer",
	"liveChatPaidStickerRenderer",
	"liveChatViewerEngagementMessageRenderer",
	"liveChatLegacyPaidMessageRenderer",
}

// pickRenderer selects the message payload out of an action item.
func pickRenderer(item map[string]any) map[string]any {
	if item == nil {
		return nil
	}
	for _, key := range preferredRenderers {
		if r, ok := mapAt(item, key); ok {
			if _, hasUsec := r["timestampUsec"]; hasUsec {
				return r
			}
			if _, hasText := r["timestampText"]; hasText {
				return r
			}
		}
	}
	// Fallback: any nested object exposing a microsecond timestamp.
	for _, v := range item {
		if m, ok := asMap(v); ok {
			if _, hasUsec := m["timestampUsec"]; hasUsec {
				return m
			}
		}
	}
	return nil
}

// rendererAndTimes unwraps one action. Replay wrappers carry a shared
// millisecond offset from stream start; live wrappers carry only the payload's
// microsecond timestamp.
func rendererAndTimes(obj Action) (renderer map[string]any, tsUsec int64, hasTS bool, offsetMS int64, hasOffset bool) {
	if replay, ok := mapAt(obj, keyReplayAction); ok {
		offsetMS, _ = int64At(replay, "videoOffsetTimeMsec")
		hasOffset = true
		if acts, ok := listAt(replay, "actions"); ok {
			for _, a := range acts {
				act, ok := asMap(a)
				if !ok {
					continue
				}
				add, ok := mapAt(act, keyLiveAction)
				if !ok {
					continue
				}
				item, _ := mapAt(add, "item")
				if r := pickRenderer(item); r != nil {
					renderer = r
					tsUsec, hasTS = int64At(r, "timestampUsec")
					return
				}
			}
		}
		return
	}

	if add, ok := mapAt(obj, keyLiveAction); ok {
		item, _ := mapAt(add, "item")
		if r := pickRenderer(item); r != nil {
			renderer = r
			tsUsec, hasTS = int64At(r, "timestampUsec")
		}
	}
	return
}

// ExtractMessages normalizes raw actions into messages. endSec caps the time
// window (0 means open); the filter never assumes input order, so no early
// termination. Actions without a renderer or without usable timing are
// silently skipped; malformed fields degrade to empty values.
func ExtractMessages(actions []Action, endSec float64) []Message {
	// First pass: the minimum microsecond timestamp establishes t=0 for
	// live-captured transcripts that carry no replay offsets.
	var firstUsec int64
	haveFirst := false
	for _, obj := range actions {
		if _, ts, ok, _, _ := rendererAndTimes(obj); ok {
			if !haveFirst || ts < firstUsec {
				firstUsec = ts
				haveFirst = true
			}
		}
	}

	var msgs []Message
	for _, obj := range actions {
		renderer, tsUsec, hasTS, offsetMS, hasOffset := rendererAndTimes(obj)
		if renderer == nil {
			continue
		}

		var timeMS int64
		switch {
		case hasOffset:
			timeMS = offsetMS
		case hasTS && haveFirst:
			timeMS = (tsUsec - firstUsec) / 1000
			if timeMS < 0 {
				timeMS = 0
			}
		default:
			continue // no usable timing
		}

		if endSec != 0 && timeMS > int64(endSec*1000) {
			continue
		}

		msgs = append(msgs, Message{
			TimeMS:    timeMS,
			AvatarURL: avatarURL(renderer),
			Author:    authorName(renderer),
			Runs:      messageRuns(renderer),
		})
	}
	return msgs
}

func authorName(renderer map[string]any) string {
	name, _ := mapAt(renderer, "authorName")
	return stringAt(name, "simpleText")
}

func avatarURL(renderer map[string]any) string {
	photo, _ := mapAt(renderer, "authorPhoto")
	return firstThumbnailURL(photo)
}

func firstThumbnailURL(m map[string]any) string {
	thumbs, ok := listAt(m, "thumbnails")
	if !ok || len(thumbs) == 0 {
		return ""
	}
	t, ok := asMap(thumbs[0])
	if !ok {
		return ""
	}
	return stringAt(t, "url")
}

// messageRuns extracts content runs. Stickers, paid messages and other odd
// payloads may have no message body; the placeholder run keeps the author row
// rendering with a stable height.
func messageRuns(renderer map[string]any) []Run {
	var runs []Run
	if body, ok := mapAt(renderer, "message"); ok {
		if list, ok := listAt(body, "runs"); ok {
			for _, v := range list {
				run, ok := asMap(v)
				if !ok {
					continue
				}
				if text, isText := run["text"].(string); isText {
					if trimmed := strings.TrimSpace(text); trimmed != "" {
						runs = append(runs, Run{Kind: RunText, Text: trimmed})
					}
					continue
				}
				if emoji, ok := mapAt(run, "emoji"); ok {
					img, _ := mapAt(emoji, "image")
					if url := firstThumbnailURL(img); url != "" {
						runs = append(runs, Run{Kind: RunEmoji, ImageURL: url})
					}
				}
			}
		}
	}
	if len(runs) == 0 {
		runs = append(runs, Run{Kind: RunText, Text: ""})
	}
	return runs
}
