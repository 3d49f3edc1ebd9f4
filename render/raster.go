package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/onnwee/chatvid/layout"
)

// ErrBitmapSize indicates a cached bitmap whose dimensions no longer match
// the current style, typically a disk cache written at a different scale.
var ErrBitmapSize = errors.New("cached bitmap dimensions do not match the current scale")

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Rasterizer owns the reusable canvas buffer and draws laid-out blocks into
// it. It is used by a single goroutine; the buffer is reused across frames.
type Rasterizer struct {
	st          layout.Style
	transparent bool

	background   color.RGBA
	authorColor  color.RGBA
	messageColor color.RGBA

	img    *image.RGBA
	mask   *image.Alpha
	packed []byte
}

// NewRasterizer allocates the canvas and the circular avatar mask. The author
// label color is white blended onto the background so it reads slightly
// dimmer than message text.
func NewRasterizer(st layout.Style, background color.RGBA, transparent bool) *Rasterizer {
	r := &Rasterizer{
		st:           st,
		transparent:  transparent,
		background:   background,
		authorColor:  Blend(white, background, 0.7),
		messageColor: white,
		img:          image.NewRGBA(image.Rect(0, 0, st.Width, st.Height)),
		mask:         circleMask(st.AvatarSize, 4),
	}
	if !transparent {
		r.packed = make([]byte, st.Width*st.Height*3)
	}
	return r
}

// BytesPerPixel reports the output pixel layout: 4 (RGBA) when transparent,
// 3 (RGB24) otherwise.
func (r *Rasterizer) BytesPerPixel() int {
	if r.transparent {
		return 4
	}
	return 3
}

// Draw clears the canvas and renders the blocks bottom-up. blocks arrive most
// recent first; each block's top edge is found by subtracting heights from
// the canvas bottom.
func (r *Rasterizer) Draw(blocks []layout.Block, imgs layout.ImageSource) error {
	bounds := r.img.Bounds()
	if r.transparent {
		draw.Draw(r.img, bounds, image.Transparent, image.Point{}, draw.Src)
	} else {
		draw.Draw(r.img, bounds, image.NewUniform(r.background), image.Point{}, draw.Src)
	}

	y := r.st.Height
	for _, b := range blocks {
		y -= b.Height

		if b.Msg.AvatarURL != "" {
			if avatar, ok := imgs.Get(b.Msg.AvatarURL); ok {
				if err := r.drawAvatar(avatar, b.AvatarX, y+b.AvatarY); err != nil {
					return err
				}
			}
		}

		r.drawText(r.st.AuthorFace, r.authorColor, b.AuthorX, y+b.AuthorY, b.Msg.Author)

		for _, op := range b.Ops {
			switch op.Kind {
			case layout.OpText:
				r.drawText(r.st.MessageFace, r.messageColor, op.X, y+b.RunsY+op.Y, op.Text)
			case layout.OpEmoji:
				if err := r.drawEmoji(op.Image, op.X, y+b.RunsY+op.Y); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *Rasterizer) drawAvatar(avatar image.Image, x, y int) error {
	size := r.st.AvatarSize
	if avatar.Bounds().Dx() != size || avatar.Bounds().Dy() != size {
		return fmt.Errorf("%w: avatar is %dx%d, want %dx%d",
			ErrBitmapSize, avatar.Bounds().Dx(), avatar.Bounds().Dy(), size, size)
	}
	rect := image.Rect(x, y, x+size, y+size)
	draw.DrawMask(r.img, rect, avatar, avatar.Bounds().Min, r.mask, image.Point{}, draw.Over)
	return nil
}

func (r *Rasterizer) drawEmoji(emoji image.Image, x, y int) error {
	size := r.st.EmojiSize
	if emoji.Bounds().Dx() != size || emoji.Bounds().Dy() != size {
		return fmt.Errorf("%w: emoji is %dx%d, want %dx%d",
			ErrBitmapSize, emoji.Bounds().Dx(), emoji.Bounds().Dy(), size, size)
	}
	rect := image.Rect(x, y, x+size, y+size)
	draw.Draw(r.img, rect, emoji, emoji.Bounds().Min, draw.Over)
	return nil
}

// drawText draws s with its top edge at y (the font's ascent puts the
// baseline below that).
func (r *Rasterizer) drawText(face font.Face, c color.RGBA, x, y int, s string) {
	if s == "" {
		return
	}
	d := font.Drawer{
		Dst:  r.img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

// Pack returns the frame in the output pixel layout. The returned slice is
// reused between calls; the caller must consume it before the next frame.
func (r *Rasterizer) Pack() []byte {
	if r.transparent {
		return r.img.Pix
	}
	src := r.img.Pix
	dst := r.packed
	for i, j := 0, 0; i < len(src); i, j = i+4, j+3 {
		dst[j] = src[i]
		dst[j+1] = src[i+1]
		dst[j+2] = src[i+2]
	}
	return dst
}

// circleMask builds a circular alpha mask at the given size, rendered at
// superSample resolution and downscaled for smooth edges.
func circleMask(size, superSample int) *image.Alpha {
	hires := size * superSample
	mask := image.NewAlpha(image.Rect(0, 0, hires, hires))
	center := float64(hires) / 2
	radius2 := center * center
	for py := 0; py < hires; py++ {
		for px := 0; px < hires; px++ {
			dx := float64(px) + 0.5 - center
			dy := float64(py) + 0.5 - center
			if dx*dx+dy*dy <= radius2 {
				mask.SetAlpha(px, py, color.Alpha{A: 255})
			}
		}
	}
	out := image.NewAlpha(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(out, out.Bounds(), mask, mask.Bounds(), xdraw.Src, nil)
	return out
}
