package assets

import (
	"context"
	"image/color"
	"net/http"
	"testing"

	"github.com/onnwee/chatvid/chat"
	"github.com/onnwee/chatvid/telemetry"
	"github.com/onnwee/chatvid/testutil"
)

func init() { telemetry.Init() }

func TestKey(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://yt3.ggpht.com/a/photo.jpg", "yt3_ggpht_com_a_photo"},
		{"http://example.com/e.png", "example_com_e"},
		{"example.com/no/scheme.webp", "example_com_no_scheme"},
		{"https://host/path?size=32.png", "host_path_size_32"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		if got := Key(tc.url); got != tc.want {
			t.Errorf("Key(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestKeyDeterministic(t *testing.T) {
	if Key("https://a/b.png") != Key("https://a/b.png") {
		t.Errorf("Key is not a pure function of the URL")
	}
}

func avatarMsg(url string) chat.Message {
	return chat.Message{AvatarURL: url, Runs: []chat.Run{{Kind: chat.RunText, Text: "x"}}}
}

func emojiMsg(url string) chat.Message {
	return chat.Message{Runs: []chat.Run{{Kind: chat.RunEmoji, ImageURL: url}}}
}

func TestPrefetchResizesToClassDimension(t *testing.T) {
	srv := testutil.NewImageServer(t)
	avatarURL := srv.ServePNG(t, "/avatar.png", 48, 48, color.RGBA{R: 200, A: 255})
	emojiURL := srv.ServePNG(t, "/emoji.png", 64, 64, color.RGBA{G: 200, A: 255})

	c, err := New(Options{AvatarSize: 24, EmojiSize: 16})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	c.PrefetchAvatars(context.Background(), []chat.Message{avatarMsg(avatarURL)})
	c.PrefetchEmojis(context.Background(), []chat.Message{emojiMsg(emojiURL)})

	av, ok := c.Get(avatarURL)
	if !ok {
		t.Fatalf("avatar missing from cache")
	}
	if got := av.Bounds().Dx(); got != 24 {
		t.Errorf("avatar width = %d, want 24", got)
	}
	em, ok := c.Get(emojiURL)
	if !ok {
		t.Fatalf("emoji missing from cache")
	}
	if got := em.Bounds().Dx(); got != 16 {
		t.Errorf("emoji width = %d, want 16", got)
	}
}

func TestFetchFailureIsNonFatal(t *testing.T) {
	srv := testutil.NewImageServer(t)
	missing := srv.URL + "/nope.png" // unregistered: server answers 404

	c, err := New(Options{AvatarSize: 24, EmojiSize: 16})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	c.PrefetchAvatars(context.Background(), []chat.Message{avatarMsg(missing)})
	if _, ok := c.Get(missing); ok {
		t.Errorf("404 asset must stay absent")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestUndecodableBodyIsNonFatal(t *testing.T) {
	srv := testutil.NewImageServer(t)
	srv.Handlers["/bad.png"] = func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("this is not an image"))
	}

	c, err := New(Options{AvatarSize: 24, EmojiSize: 16})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	bad := srv.URL + "/bad.png"
	c.PrefetchAvatars(context.Background(), []chat.Message{avatarMsg(bad)})
	if _, ok := c.Get(bad); ok {
		t.Errorf("undecodable asset must stay absent")
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	srv := testutil.NewImageServer(t)
	url := srv.ServePNG(t, "/a.png", 24, 24, color.RGBA{B: 200, A: 255})
	dir := t.TempDir()

	c, err := New(Options{Dir: dir, UseDisk: true, AvatarSize: 24, EmojiSize: 16})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	c.PrefetchAvatars(context.Background(), []chat.Message{avatarMsg(url)})
	if c.Len() != 1 {
		t.Fatalf("Len = %d after prefetch, want 1", c.Len())
	}

	// A fresh cache over the same directory starts warm: no re-download needed.
	srv.Close()
	c2, err := New(Options{Dir: dir, UseDisk: true, AvatarSize: 24, EmojiSize: 16})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if c2.Len() != 1 {
		t.Fatalf("Len = %d after reload, want 1", c2.Len())
	}
	img, ok := c2.Get(url)
	if !ok {
		t.Fatalf("asset missing after disk reload")
	}
	if img.Bounds().Dx() != 24 {
		t.Errorf("reloaded width = %d, want 24", img.Bounds().Dx())
	}
	// Prefetch is now a cache hit; the closed server would fail any request.
	c2.PrefetchAvatars(context.Background(), []chat.Message{avatarMsg(url)})
	if c2.Len() != 1 {
		t.Errorf("Len = %d after warm prefetch, want 1", c2.Len())
	}
}

func TestInvalidProxy(t *testing.T) {
	if _, err := New(Options{Proxy: "://bad", AvatarSize: 24, EmojiSize: 16}); err == nil {
		t.Errorf("expected error for invalid proxy url")
	}
}
