package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Kindle portrait resolution.
const (
	Width  = 600
	Height = 800
)

const margin = 24

var (
	faceTitle   font.Face
	faceHeading font.Face
	faceBody    font.Face
	faceValue   font.Face
	faceSmall   font.Face
	fontOnce    sync.Once
	fontErr     error

	// opentype faces keep per-face rasterizer state; one render at a time.
	renderMu sync.Mutex
)

func newFace(data []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func loadFonts() {
	fontOnce.Do(func() {
		faces := []struct {
			dst  *font.Face
			data []byte
			size float64
		}{
			{&faceTitle, gobold.TTF, 40},
			{&faceHeading, gobold.TTF, 28},
			{&faceBody, goregular.TTF, 26},
			{&faceValue, gobold.TTF, 30},
			{&faceSmall, goregular.TTF, 20},
		}
		for _, f := range faces {
			face, err := newFace(f.data, f.size)
			if err != nil {
				fontErr = err
				return
			}
			*f.dst = face
		}
	})
}

// Frame is a device-independent description of one dashboard render.
type Frame struct {
	Title    string
	Subtitle string
	Sections []Section
	Footer   string
}

// Section is a headed block of rows.
type Section struct {
	Heading string
	Rows    []Row
}

// Row is a label on the left and a value right-aligned, with an optional
// detail line under the label.
type Row struct {
	Label  string
	Value  string
	Detail string
}

// Render draws f as a 600x800 grayscale PNG for e-ink screens.
func Render(f Frame) ([]byte, error) {
	loadFonts()
	if fontErr != nil {
		return nil, fmt.Errorf("load fonts: %w", fontErr)
	}

	renderMu.Lock()
	defer renderMu.Unlock()

	img := image.NewGray(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	y := margin + 36
	drawText(img, fit(faceTitle, f.Title, Width-2*margin), margin, y, color.Black, faceTitle)
	if f.Subtitle != "" {
		y += 30
		drawText(img, fit(faceSmall, f.Subtitle, Width-2*margin), margin, y, color.Gray{Y: 80}, faceSmall)
	}
	y += 20

	for _, s := range f.Sections {
		if y > Height-margin-60 {
			break
		}
		y += 40
		drawText(img, fit(faceHeading, s.Heading, Width-2*margin), margin, y, color.Black, faceHeading)
		y += 10
		fillRect(img, margin, y, Width-margin, y+2, color.Black)
		y += 8

		for _, r := range s.Rows {
			if y > Height-margin-40 {
				break
			}
			y += 34
			valueWidth := font.MeasureString(faceValue, r.Value).Ceil()
			drawText(img, r.Value, Width-margin-valueWidth, y, color.Black, faceValue)
			labelWidth := Width - 2*margin - valueWidth - 16
			drawText(img, fit(faceBody, r.Label, labelWidth), margin, y, color.Black, faceBody)
			if r.Detail != "" {
				y += 24
				drawText(img, fit(faceSmall, r.Detail, Width-2*margin), margin, y, color.Gray{Y: 80}, faceSmall)
			}
		}
	}

	if f.Footer != "" {
		drawText(img, fit(faceSmall, f.Footer, Width-2*margin), margin, Height-margin, color.Gray{Y: 80}, faceSmall)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode dashboard image: %w", err)
	}
	return buf.Bytes(), nil
}

// drawText draws text with its baseline at y.
func drawText(img draw.Image, text string, x, y int, col color.Color, face font.Face) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func fillRect(img draw.Image, x0, y0, x1, y1 int, col color.Color) {
	draw.Draw(img, image.Rect(x0, y0, x1, y1), image.NewUniform(col), image.Point{}, draw.Src)
}

// fit truncates text with an ellipsis so it renders within maxWidth pixels.
func fit(face font.Face, text string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if font.MeasureString(face, text).Ceil() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for n := len(runes) - 1; n > 0; n-- {
		s := string(runes[:n]) + "…"
		if font.MeasureString(face, s).Ceil() <= maxWidth {
			return s
		}
	}
	return ""
}
