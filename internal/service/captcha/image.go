package captcha

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math/big"
	mrand "math/rand/v2"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	Alphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	DefaultLength = 6

	ImageWidth  = 200
	ImageHeight = 60

	glyphScale = 3
	noiseLines = 6
	noiseDots  = 250
)

// GenerateText draws length characters from Alphabet using crypto/rand.
func GenerateText(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	limit := big.NewInt(int64(len(Alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate captcha text: %w", err)
		}
		out[i] = Alphabet[n.Int64()]
	}
	return string(out), nil
}

// RenderPNG draws text on a ImageWidth x ImageHeight canvas with rotated
// glyphs, noise lines and dots.
func RenderPNG(text string) ([]byte, error) {
	canvas := image.NewNRGBA(image.Rect(0, 0, ImageWidth, ImageHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i := 0; i < noiseLines; i++ {
		drawLine(canvas,
			mrand.IntN(ImageWidth), mrand.IntN(ImageHeight),
			mrand.IntN(ImageWidth), mrand.IntN(ImageHeight),
			randomColor(120, 200))
	}

	if n := len(text); n > 0 {
		slot := (ImageWidth - 20) / n
		for i, ch := range text {
			g := glyph(ch, randomColor(0, 110))
			g = imaging.Rotate(g, float64(mrand.IntN(50)-25), color.Transparent)
			b := g.Bounds()
			x := 10 + i*slot + (slot-b.Dx())/2 + mrand.IntN(5) - 2
			y := (ImageHeight-b.Dy())/2 + mrand.IntN(7) - 3
			draw.Draw(canvas, image.Rect(x, y, x+b.Dx(), y+b.Dy()), g, b.Min, draw.Over)
		}
	}

	for i := 0; i < noiseDots; i++ {
		canvas.Set(mrand.IntN(ImageWidth), mrand.IntN(ImageHeight), randomColor(60, 180))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode captcha: %w", err)
	}
	return buf.Bytes(), nil
}

func glyph(ch rune, c color.Color) *image.NRGBA {
	face := basicfont.Face7x13
	img := image.NewNRGBA(image.Rect(0, 0, face.Advance, face.Height))
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(string(ch))
	return imaging.Resize(img, face.Advance*glyphScale, face.Height*glyphScale, imaging.NearestNeighbor)
}

func drawLine(img draw.Image, x0, y0, x1, y1 int, c color.Color) {
	dx, dy := x1-x0, y1-y0
	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	if steps == 0 {
		img.Set(x0, y0, c)
		return
	}
	for i := 0; i <= steps; i++ {
		img.Set(x0+dx*i/steps, y0+dy*i/steps, c)
	}
}

func randomColor(lo, hi int) color.NRGBA {
	v := func() uint8 { return uint8(lo + mrand.IntN(hi-lo+1)) }
	return color.NRGBA{R: v(), G: v(), B: v(), A: 255}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
