// Package testutil provides shared fixtures for tests: transcript builders
// matching the YouTube live-chat action shapes, and an httptest server that
// serves generated images for asset-cache tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TextRenderer builds a liveChatTextMessageRenderer payload.
func TextRenderer(tsUsec int64, author, text string) map[string]any {
	return map[string]any{
		"timestampUsec": tsUsec,
		"authorName":    map[string]any{"simpleText": author},
		"authorPhoto": map[string]any{
			"thumbnails": []any{map[string]any{"url": "https://example.com/avatar/" + author + ".png"}},
		},
		"message": map[string]any{
			"runs": []any{map[string]any{"text": text}},
		},
	}
}

// LiveAction wraps a renderer in the live capture shape (addChatItemAction).
func LiveAction(renderer map[string]any) map[string]any {
	return map[string]any{
		"addChatItemAction": map[string]any{
			"item": map[string]any{"liveChatTextMessageRenderer": renderer},
		},
	}
}

// ReplayAction wraps a renderer in the replay shape with a millisecond offset.
func ReplayAction(offsetMS int64, renderer map[string]any) map[string]any {
	return map[string]any{
		"replayChatItemAction": map[string]any{
			"videoOffsetTimeMsec": offsetMS,
			"actions": []any{
				map[string]any{
					"addChatItemAction": map[string]any{
						"item": map[string]any{"liveChatTextMessageRenderer": renderer},
					},
				},
			},
		},
	}
}

// MarshalJSON encodes v, failing the test on error.
func MarshalJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return b
}

// MarshalJSONL encodes each action on its own line.
func MarshalJSONL(t *testing.T, actions []map[string]any) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, a := range actions {
		buf.Write(MarshalJSON(t, a))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// PNGBytes returns an encoded solid-color PNG of the given size.
func PNGBytes(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png fixture: %v", err)
	}
	return buf.Bytes()
}

// ImageServer serves registered payloads by path and returns 404 otherwise.
type ImageServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewImageServer creates a test server for asset fetches.
func NewImageServer(t *testing.T) *ImageServer {
	t.Helper()
	s := &ImageServer{Handlers: make(map[string]http.HandlerFunc)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := s.Handlers[r.URL.Path]; ok {
			h(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(s.Close)
	return s
}

// ServePNG registers a solid-color PNG under the given path.
func (s *ImageServer) ServePNG(t *testing.T, path string, w, h int, c color.RGBA) string {
	t.Helper()
	body := PNGBytes(t, w, h, c)
	s.Handlers[path] = func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "image/png")
		_, _ = rw.Write(body)
	}
	return s.URL + path
}
