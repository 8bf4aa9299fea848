package captcha

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	mrand "math/rand/v2"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	ImageWidth  = 280
	ImageHeight = 80

	noisePoints = 1000
	lineCount   = 4
	// glyphs are drawn with the 7x13 bitmap face and scaled up
	glyphScale = 3
	jitter     = 5
)

var (
	noiseLight = color.RGBA{0xcc, 0xcc, 0xcc, 0xff}
	noiseDark  = color.RGBA{0x66, 0x66, 0x66, 0xff}
)

// RenderImage draws text onto a noisy PNG and returns it as a data URL.
func RenderImage(text string) (string, error) {
	img := image.NewRGBA(image.Rect(0, 0, ImageWidth, ImageHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for i := 0; i < noisePoints; i++ {
		c := noiseLight
		if mrand.IntN(2) == 1 {
			c = noiseDark
		}
		img.Set(mrand.IntN(ImageWidth), mrand.IntN(ImageHeight), c)
	}

	face := basicfont.Face7x13
	advance := face.Advance * glyphScale
	glyphH := face.Height * glyphScale

	x := (ImageWidth - advance*len(text)) / 2
	y := (ImageHeight - glyphH) / 2
	for _, r := range text {
		c := color.RGBA{
			uint8(mrand.IntN(101)),
			uint8(mrand.IntN(101)),
			uint8(mrand.IntN(101)),
			0xff,
		}
		dx := x + mrand.IntN(2*jitter+1) - jitter
		dy := y + mrand.IntN(2*jitter+1) - jitter
		drawGlyph(img, r, c, image.Pt(dx, dy))
		x += advance
	}

	for i := 0; i < lineCount; i++ {
		drawLine(img,
			image.Pt(mrand.IntN(ImageWidth+1), mrand.IntN(ImageHeight+1)),
			image.Pt(mrand.IntN(ImageWidth+1), mrand.IntN(ImageHeight+1)),
			noiseDark,
		)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode captcha image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// drawGlyph renders r at 1x on a transparent tile, then scales the tile onto dst at origin.
func drawGlyph(dst *image.RGBA, r rune, c color.Color, origin image.Point) {
	face := basicfont.Face7x13
	tile := image.NewRGBA(image.Rect(0, 0, face.Advance, face.Height))

	d := font.Drawer{
		Dst:  tile,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(string(r))

	target := image.Rect(origin.X, origin.Y,
		origin.X+face.Advance*glyphScale, origin.Y+face.Height*glyphScale)
	draw.NearestNeighbor.Scale(dst, target, tile, tile.Bounds(), draw.Over, nil)
}

// drawLine plots a two pixel wide Bresenham line.
func drawLine(dst *image.RGBA, a, b image.Point, c color.Color) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	for {
		dst.Set(a.X, a.Y, c)
		dst.Set(a.X, a.Y+1, c)
		if a == b {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			a.X += sx
		}
		if e2 <= dx {
			e += dx
			a.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
