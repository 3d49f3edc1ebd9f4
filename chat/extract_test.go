package chat_test

import (
	"testing"

	"github.com/onnwee/chatvid/chat"
	"github.com/onnwee/chatvid/testutil"
)

func TestReplayOffsetTakesPrecedence(t *testing.T) {
	// The renderer carries a timestamp, but the replay offset must win.
	actions := []chat.Action{
		testutil.ReplayAction(7500, testutil.TextRenderer(99_000_000, "alice", "hello")),
	}
	msgs := chat.ExtractMessages(actions, 0)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].TimeMS != 7500 {
		t.Errorf("TimeMS = %d, want replay offset 7500", msgs[0].TimeMS)
	}
}

func TestLiveTimestampsRelativeToMinimum(t *testing.T) {
	actions := []chat.Action{
		testutil.LiveAction(testutil.TextRenderer(5_000_000, "bob", "second")),
		testutil.LiveAction(testutil.TextRenderer(2_000_000, "alice", "first")),
	}
	msgs := chat.ExtractMessages(actions, 0)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	// Minimum timestamp establishes t=0 regardless of input order.
	if msgs[0].TimeMS != 3000 {
		t.Errorf("bob TimeMS = %d, want 3000", msgs[0].TimeMS)
	}
	if msgs[1].TimeMS != 0 {
		t.Errorf("alice TimeMS = %d, want 0", msgs[1].TimeMS)
	}
}

func TestStringEncodedTimestamps(t *testing.T) {
	r := testutil.TextRenderer(0, "alice", "hi")
	r["timestampUsec"] = "4000000"
	actions := []chat.Action{
		testutil.LiveAction(testutil.TextRenderer(1_000_000, "bob", "base")),
		testutil.LiveAction(r),
	}
	msgs := chat.ExtractMessages(actions, 0)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[1].TimeMS != 3000 {
		t.Errorf("TimeMS = %d, want 3000 from string timestamp", msgs[1].TimeMS)
	}
}

func TestActionWithoutTimingIsDropped(t *testing.T) {
	r := map[string]any{
		// timestampText satisfies renderer selection but provides no timing,
		// and there is no replay offset: the action must be discarded.
		"timestampText": map[string]any{"simpleText": "1:23"},
		"authorName":    map[string]any{"simpleText": "ghost"},
	}
	actions := []chat.Action{
		map[string]any{"addChatItemAction": map[string]any{"item": map[string]any{"liveChatTextMessageRenderer": r}}},
	}
	if msgs := chat.ExtractMessages(actions, 0); len(msgs) != 0 {
		t.Errorf("got %d messages, want 0 for action without timing", len(msgs))
	}
}

func TestTimestampTextRendererWithReplayOffset(t *testing.T) {
	r := map[string]any{
		"timestampText": map[string]any{"simpleText": "1:23"},
		"authorName":    map[string]any{"simpleText": "alice"},
	}
	actions := []chat.Action{
		map[string]any{"replayChatItemAction": map[string]any{
			"videoOffsetTimeMsec": "2500",
			"actions": []any{map[string]any{"addChatItemAction": map[string]any{
				"item": map[string]any{"liveChatTextMessageRenderer": r},
			}}},
		}},
	}
	msgs := chat.ExtractMessages(actions, 0)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].TimeMS != 2500 {
		t.Errorf("TimeMS = %d, want 2500", msgs[0].TimeMS)
	}
}

func TestRendererPriority(t *testing.T) {
	paid := map[string]any{
		"timestampUsec": float64(1_000_000),
		"authorName":    map[string]any{"simpleText": "patron"},
		"purchaseAmountText": map[string]any{"simpleText": "$5.00"},
	}
	actions := []chat.Action{
		map[string]any{"addChatItemAction": map[string]any{
			"item": map[string]any{"liveChatPaidMessageRenderer": paid},
		}},
	}
	msgs := chat.ExtractMessages(actions, 0)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Author != "patron" {
		t.Errorf("Author = %q, want patron", msgs[0].Author)
	}
	// No message body: placeholder run keeps layout stable.
	if len(msgs[0].Runs) != 1 || msgs[0].Runs[0].Kind != chat.RunText || msgs[0].Runs[0].Text != "" {
		t.Errorf("Runs = %+v, want single empty placeholder", msgs[0].Runs)
	}
}

func TestFallbackRendererByTimestamp(t *testing.T) {
	actions := []chat.Action{
		map[string]any{"addChatItemAction": map[string]any{
			"item": map[string]any{
				"someFutureRenderer": map[string]any{
					"timestampUsec": float64(3_000_000),
					"authorName":    map[string]any{"simpleText": "future"},
				},
			},
		}},
	}
	msgs := chat.ExtractMessages(actions, 0)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 via timestamp fallback", len(msgs))
	}
	if msgs[0].Author != "future" {
		t.Errorf("Author = %q, want future", msgs[0].Author)
	}
}

func TestEndWindowFilterUnordered(t *testing.T) {
	actions := []chat.Action{
		testutil.ReplayAction(9000, testutil.TextRenderer(0, "late", "dropped")),
		testutil.ReplayAction(1000, testutil.TextRenderer(0, "early", "kept")),
	}
	msgs := chat.ExtractMessages(actions, 5)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (filter must not stop at first over-window action)", len(msgs))
	}
	if msgs[0].Author != "early" {
		t.Errorf("Author = %q, want early", msgs[0].Author)
	}
}

func TestDegradedFields(t *testing.T) {
	r := map[string]any{
		"timestampUsec": float64(1_000_000),
		// no authorName, no authorPhoto
		"message": map[string]any{
			"runs": []any{
				map[string]any{"text": "  "},                       // blank text dropped
				map[string]any{"emoji": map[string]any{}},          // emoji without image dropped
				map[string]any{"unknownRunShape": "whatever"},      // ignored
			},
		},
	}
	actions := []chat.Action{
		map[string]any{"addChatItemAction": map[string]any{
			"item": map[string]any{"liveChatTextMessageRenderer": r},
		}},
	}
	msgs := chat.ExtractMessages(actions, 0)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	if m.Author != "" || m.AvatarURL != "" {
		t.Errorf("expected empty author and avatar, got %q %q", m.Author, m.AvatarURL)
	}
	if len(m.Runs) != 1 || m.Runs[0].Text != "" {
		t.Errorf("Runs = %+v, want placeholder run", m.Runs)
	}
}

func TestEmojiRunExtraction(t *testing.T) {
	r := testutil.TextRenderer(1_000_000, "alice", "gg")
	r["message"] = map[string]any{
		"runs": []any{
			map[string]any{"text": "gg "},
			map[string]any{"emoji": map[string]any{
				"image": map[string]any{
					"thumbnails": []any{map[string]any{"url": "https://example.com/e.png"}},
				},
			}},
		},
	}
	msgs := chat.ExtractMessages([]chat.Action{testutil.LiveAction(r)}, 0)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	runs := msgs[0].Runs
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Kind != chat.RunText || runs[0].Text != "gg" {
		t.Errorf("run 0 = %+v, want trimmed text gg", runs[0])
	}
	if runs[1].Kind != chat.RunEmoji || runs[1].ImageURL != "https://example.com/e.png" {
		t.Errorf("run 1 = %+v, want emoji url", runs[1])
	}
}
