// Package qr turns payload text plus per-user visual settings into a final
// PNG image. Composition is pure: identical inputs produce identical output.
package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"regexp"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/colornames"
	xdraw "golang.org/x/image/draw"
)

// Quality selects the module pixel size of the rendered code.
type Quality string

const (
	QualityNormal Quality = "normal"
	QualityHigh   Quality = "high"
)

const (
	normalBoxSize = 10
	highBoxSize   = 20

	// The emblem edge is the code edge divided by this (25%). The Highest
	// error-correction tier keeps the occluded center decodable.
	emblemDivisor = 4
)

func (q Quality) boxSize() int {
	if q == QualityHigh {
		return highBoxSize
	}
	return normalBoxSize
}

// Caption returns the user-facing name of the quality tier.
func (q Quality) Caption() string {
	if q == QualityHigh {
		return "HD"
	}
	return "Normal"
}

// Options carries the visual configuration for one composition.
type Options struct {
	Quality         Quality
	FillColor       string
	BackgroundColor string
	// Emblem holds the raw bytes of an image to composite over the center,
	// or nil for none.
	Emblem []byte
}

// Result is the composed artifact plus caption metadata.
type Result struct {
	PNG     []byte
	Label   string
	Quality Quality
}

var urlPattern = regexp.MustCompile(`^https?://`)

// Classify labels the payload for captions. It never affects encoding.
func Classify(text string) string {
	switch {
	case urlPattern.MatchString(text):
		return "Website URL 🌐"
	case strings.HasPrefix(text, "WIFI:"):
		return "WiFi Network 📶"
	case strings.HasPrefix(text, "mailto:"):
		return "Email Address 📧"
	case strings.HasPrefix(text, "tel:"):
		return "Phone Number 📞"
	default:
		return "Text/Data 📝"
	}
}

// ParseColor resolves an SVG color name ("red", "white", ...).
func ParseColor(name string) (color.Color, bool) {
	c, ok := colornames.Map[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Compose encodes text at the strongest error-correction tier, renders it
// with the configured colors and module size, and composites the emblem
// over the center when one is supplied. Emblem failures degrade to the
// plain code; encoding failures abort the request.
func Compose(text string, opts Options) (Result, error) {
	code, err := qrcode.New(text, qrcode.Highest)
	if err != nil {
		return Result{}, fmt.Errorf("encode payload: %w", err)
	}
	code.ForegroundColor = namedColor(opts.FillColor, color.Black)
	code.BackgroundColor = namedColor(opts.BackgroundColor, color.White)

	// Negative size renders at a fixed pixel count per module, with the
	// library's standard quiet border around the matrix.
	base := code.Image(-opts.Quality.boxSize())

	// Flatten onto an opaque raster so the output carries no alpha.
	bounds := base.Bounds()
	out := image.NewRGBA(bounds)
	xdraw.Draw(out, bounds, base, bounds.Min, xdraw.Src)

	if len(opts.Emblem) > 0 {
		if err := overlayEmblem(out, opts.Emblem); err != nil {
			log.Printf("emblem overlay failed, sending plain code: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return Result{}, fmt.Errorf("encode png: %w", err)
	}
	return Result{
		PNG:     buf.Bytes(),
		Label:   Classify(text),
		Quality: opts.Quality,
	}, nil
}

func namedColor(name string, fallback color.Color) color.Color {
	if c, ok := ParseColor(name); ok {
		return c
	}
	return fallback
}

func overlayEmblem(dst *image.RGBA, emblem []byte) error {
	src, _, err := image.Decode(bytes.NewReader(emblem))
	if err != nil {
		return fmt.Errorf("decode emblem: %w", err)
	}

	b := dst.Bounds()
	size := b.Dx() / emblemDivisor
	if size < 1 {
		return fmt.Errorf("code too small for emblem: %dpx", b.Dx())
	}

	scaled := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	// Composite over the opaque base so a translucent emblem cannot leak
	// an alpha channel into the output raster.
	x := b.Min.X + (b.Dx()-size)/2
	y := b.Min.Y + (b.Dy()-size)/2
	xdraw.Draw(dst, image.Rect(x, y, x+size, y+size), scaled, image.Point{}, xdraw.Over)
	return nil
}
