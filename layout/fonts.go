package layout

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// loadFaces builds the author (medium weight) and message (regular) faces at
// the given pixel size from the embedded Go fonts.
func loadFaces(size float64) (author, message font.Face, err error) {
	authorFont, err := opentype.Parse(gomedium.TTF)
	if err != nil {
		return nil, nil, fmt.Errorf("parse author font: %w", err)
	}
	messageFont, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, nil, fmt.Errorf("parse message font: %w", err)
	}
	opts := &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull}
	author, err = opentype.NewFace(authorFont, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("author face: %w", err)
	}
	message, err = opentype.NewFace(messageFont, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("message face: %w", err)
	}
	return author, message, nil
}

// textWidth measures the advance of s in whole pixels, rounding up.
func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}
