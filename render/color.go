package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseHexColor parses "#rrggbb" (leading '#' optional) into an opaque color.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		ch[i] = uint8(v)
	}
	return color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: 255}, nil
}

// Blend mixes a over b at the given opacity, per channel.
func Blend(a, b color.RGBA, opacity float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x)*opacity + float64(y)*(1-opacity))
	}
	return color.RGBA{
		R: mix(a.R, b.R),
		G: mix(a.G, b.G),
		B: mix(a.B, b.B),
		A: 255,
	}
}
