// Package layout computes the bottom-anchored, word-wrapped stack of message
// blocks visible at a given cursor position. Blocks are ephemeral: they are
// recomputed whenever the cursor advances and carry positioned draw primitives
// for the rasterizer.
package layout

import (
	"image"
	"strings"

	"golang.org/x/image/font"

	"github.com/onnwee/chatvid/chat"
)

// ImageSource resolves an asset URL to a cached bitmap. Missing assets are
// simply absent; layout skips them.
type ImageSource interface {
	Get(url string) (image.Image, bool)
}

// Style holds the scaled pixel metrics of the chat canvas.
type Style struct {
	Width  int
	Height int
	Scale  int

	FontSize   int
	Padding    int
	AvatarSize int
	EmojiSize  int
	LineHeight int
	AvatarPad  int
	AuthorPad  int

	InnerX     int
	InnerWidth int

	AuthorFace  font.Face
	MessageFace font.Face
}

// NewStyle derives all metrics from canvas size, scale factor and the
// unscaled inner padding, and loads the two typefaces at the scaled size.
func NewStyle(width, height, scale, padding int) (Style, error) {
	st := Style{
		Width:      width,
		Height:     height,
		Scale:      scale,
		FontSize:   13 * scale,
		Padding:    padding * scale,
		AvatarSize: 24 * scale,
		EmojiSize:  16 * scale,
		LineHeight: 16 * scale,
		AvatarPad:  16 * scale,
		AuthorPad:  8 * scale,
	}
	st.InnerX = st.Padding
	st.InnerWidth = width - st.Padding*2

	var err error
	st.AuthorFace, st.MessageFace, err = loadFaces(float64(st.FontSize))
	if err != nil {
		return Style{}, err
	}
	return st, nil
}

// OpKind discriminates draw primitives.
type OpKind int

const (
	OpText OpKind = iota
	OpEmoji
)

// DrawOp is one positioned primitive inside a block. X is absolute on the
// canvas; Y is relative to the block's runs row.
type DrawOp struct {
	Kind  OpKind
	X, Y  int
	Text  string
	Image image.Image
}

// Block is one laid-out message with its computed height and row offsets.
// Offsets are relative to the block's top edge.
type Block struct {
	Msg    chat.Message
	Height int

	AvatarX, AvatarY int
	AuthorX, AuthorY int
	RunsY            int

	Ops []DrawOp
}

// layoutMessage word-wraps a single message. The pen starts after the
// avatar+author prefix; a token that would cross the inner content width
// wraps to the left text margin (authorX, not the canvas margin). Emoji
// tokens take their cached bitmap's width and are skipped when uncached.
func (st Style) layoutMessage(m chat.Message, imgs ImageSource) Block {
	avatarX := st.InnerX
	authorX := avatarX + st.AvatarSize + st.AvatarPad
	runsX := authorX + textWidth(st.AuthorFace, m.Author) + st.AuthorPad

	numLines := 1
	runX, runY := runsX, 0
	var ops []DrawOp

	wrap := func(w int) {
		if runX+w > st.InnerWidth {
			numLines++
			runX = authorX
			runY += st.LineHeight
		}
	}

	for _, run := range m.Runs {
		switch run.Kind {
		case chat.RunText:
			for _, word := range strings.Split(run.Text, " ") {
				w := textWidth(st.MessageFace, word+" ")
				wrap(w)
				ops = append(ops, DrawOp{Kind: OpText, X: runX, Y: runY, Text: word})
				runX += w
			}
		case chat.RunEmoji:
			img, ok := imgs.Get(run.ImageURL)
			if !ok {
				continue
			}
			w := img.Bounds().Dx()
			wrap(w)
			ops = append(ops, DrawOp{Kind: OpEmoji, X: runX, Y: runY, Image: img})
			runX += w
		}
	}

	b := Block{Msg: m, AvatarX: avatarX, AuthorX: authorX, Ops: ops}
	if numLines == 1 {
		// Single-line rows center the avatar against the text.
		b.Height = st.AvatarSize + 8*st.Scale
		b.AvatarY = 4 * st.Scale
		b.AuthorY = 8 * st.Scale
		b.RunsY = 8 * st.Scale
	} else {
		b.Height = numLines*st.LineHeight + 8*st.Scale
		b.AvatarY = 4 * st.Scale
		b.AuthorY = 4 * st.Scale
		b.RunsY = 4 * st.Scale
	}
	return b
}

// Compute walks messages backward from the cursor, accumulating block heights
// from the canvas bottom, and returns the blocks to draw, most recent first.
// With clip set (the default), the block that would overflow the canvas is
// excluded; otherwise it is included and the walk stops after it.
func Compute(msgs []chat.Message, cursor int, st Style, imgs ImageSource, clip bool) []Block {
	var blocks []Block
	y := 0
	for i := cursor; i >= 0; i-- {
		b := st.layoutMessage(msgs[i], imgs)
		y += b.Height
		overflow := y > st.Height
		if clip && overflow {
			break
		}
		blocks = append(blocks, b)
		if !clip && overflow {
			break
		}
	}
	return blocks
}
