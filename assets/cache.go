// Package assets resolves avatar and emoji URLs to decoded, pre-sized bitmaps.
// The whole prefetch pass runs before the frame loop so rendering never waits
// on the network. Fetch and decode failures leave the asset absent; drawing
// skips missing assets instead of failing.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/onnwee/chatvid/chat"
	"github.com/onnwee/chatvid/telemetry"
)

// Options configures the cache.
type Options struct {
	// Dir is the persistent cache directory; used only when UseDisk is set.
	Dir     string
	UseDisk bool

	AvatarSize int
	EmojiSize  int

	Timeout time.Duration
	Proxy   string
}

// Cache maps sanitized URL keys to decoded, pre-sized bitmaps. Entries are
// immutable once inserted for the duration of a render. The cache is owned by
// the single rendering goroutine; no locking.
type Cache struct {
	opts   Options
	client *http.Client
	images map[string]image.Image
}

var keyPattern = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Key derives the deterministic cache key for a URL: extension and scheme
// stripped, everything outside [a-zA-Z0-9_-] replaced by underscores.
// Distinct URLs colliding under this scheme reuse one bitmap.
func Key(rawURL string) string {
	noExt := rawURL
	if ext := path.Ext(rawURL); ext != "" {
		noExt = strings.TrimSuffix(rawURL, ext)
	}
	if i := strings.Index(noExt, "://"); i >= 0 {
		noExt = noExt[i+3:]
	}
	return keyPattern.ReplaceAllString(noExt, "_")
}

// New builds a cache. With UseDisk set, previously persisted entries are
// loaded from Dir immediately.
func New(opts Options) (*Cache, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	c := &Cache{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout, Transport: transport},
		images: make(map[string]image.Image),
	}
	if opts.UseDisk {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		c.loadDisk()
	}
	return c, nil
}

// loadDisk loads every decodable file in the cache directory, keyed by its
// filename. Undecodable files are skipped.
func (c *Cache) loadDisk() {
	entries, err := os.ReadDir(c.opts.Dir)
	if err != nil {
		slog.Warn("read cache dir failed", slog.Any("err", err))
		return
	}
	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(c.opts.Dir, e.Name()))
		if err != nil {
			continue
		}
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			continue
		}
		c.images[Key(e.Name())] = img
		loaded++
	}
	if loaded > 0 {
		slog.Info("loaded cached images from disk", slog.Int("count", loaded), slog.String("dir", c.opts.Dir))
	}
}

// Len returns the number of cached bitmaps.
func (c *Cache) Len() int { return len(c.images) }

// Get returns the cached bitmap for a URL.
func (c *Cache) Get(rawURL string) (image.Image, bool) {
	img, ok := c.images[Key(rawURL)]
	return img, ok
}

// PrefetchAvatars resolves every distinct avatar URL referenced by msgs.
func (c *Cache) PrefetchAvatars(ctx context.Context, msgs []chat.Message) {
	for _, m := range msgs {
		if m.AvatarURL == "" {
			continue
		}
		c.fetch(ctx, m.AvatarURL, c.opts.AvatarSize, "avatar")
	}
}

// PrefetchEmojis resolves every distinct emoji URL referenced by any run.
func (c *Cache) PrefetchEmojis(ctx context.Context, msgs []chat.Message) {
	for _, m := range msgs {
		for _, r := range m.Runs {
			if r.Kind != chat.RunEmoji || r.ImageURL == "" {
				continue
			}
			c.fetch(ctx, r.ImageURL, c.opts.EmojiSize, "emoji")
		}
	}
}

// fetch downloads, decodes and resizes one asset. Failures are logged and
// counted but never returned: the asset is simply absent afterwards.
func (c *Cache) fetch(ctx context.Context, rawURL string, size int, class string) {
	key := Key(rawURL)
	if _, ok := c.images[key]; ok {
		telemetry.AssetCacheHits.Inc()
		return
	}
	slog.Info("downloading asset", slog.String("class", class), slog.String("url", rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		c.fail(class, rawURL, err)
		return
	}
	req.Header.Set("User-Agent", "chatvid/1.0 (+https://github.com/onnwee/chatvid)")
	resp, err := c.client.Do(req)
	if err != nil {
		c.fail(class, rawURL, err)
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		c.fail(class, rawURL, fmt.Errorf("status %d", resp.StatusCode))
		return
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		c.fail(class, rawURL, err)
		return
	}
	src, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		c.fail(class, rawURL, fmt.Errorf("decode: %w", err))
		return
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	c.images[key] = dst
	telemetry.AssetsFetched.Inc()

	if c.opts.UseDisk {
		c.persist(key, dst)
	}
}

func (c *Cache) fail(class, rawURL string, err error) {
	slog.Warn("can't download asset", slog.String("class", class), slog.String("url", rawURL), slog.Any("err", err))
	telemetry.AssetFetchFailures.Inc()
}

func (c *Cache) persist(key string, img image.Image) {
	f, err := os.Create(filepath.Join(c.opts.Dir, key+".png"))
	if err != nil {
		slog.Warn("persist cached asset failed", slog.String("key", key), slog.Any("err", err))
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("close cached asset file failed", slog.Any("err", err))
		}
	}()
	if err := png.Encode(f, img); err != nil {
		slog.Warn("encode cached asset failed", slog.String("key", key), slog.Any("err", err))
	}
}
