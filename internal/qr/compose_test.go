package qr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"https://example.com", "Website URL 🌐"},
		{"http://example.com/page", "Website URL 🌐"},
		{"WIFI:S:home;T:WPA;P:secret;;", "WiFi Network 📶"},
		{"mailto:a@x.com", "Email Address 📧"},
		{"tel:+15551234567", "Phone Number 📞"},
		{"just some text", "Text/Data 📝"},
		{"ftp://example.com", "Text/Data 📝"},
	}
	for _, tc := range cases {
		if got := Classify(tc.text); got != tc.want {
			t.Fatalf("Classify(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestParseColor(t *testing.T) {
	for _, name := range []string{"black", "white", "red", "  Blue "} {
		if _, ok := ParseColor(name); !ok {
			t.Fatalf("ParseColor(%q) failed", name)
		}
	}
	if _, ok := ParseColor("notacolor"); ok {
		t.Fatalf("ParseColor accepted garbage")
	}
}

func TestComposeDeterministic(t *testing.T) {
	opts := Options{Quality: QualityNormal, FillColor: "black", BackgroundColor: "white"}

	first, err := Compose("https://example.com", opts)
	if err != nil {
		t.Fatalf("first compose: %v", err)
	}
	second, err := Compose("https://example.com", opts)
	if err != nil {
		t.Fatalf("second compose: %v", err)
	}
	if !bytes.Equal(first.PNG, second.PNG) {
		t.Fatalf("identical inputs produced different images")
	}
	if first.Label != "Website URL 🌐" {
		t.Fatalf("unexpected label %q", first.Label)
	}
	if len(first.PNG) == 0 {
		t.Fatalf("empty image")
	}
}

func TestComposeQualityChangesSize(t *testing.T) {
	normal, err := Compose("hello", Options{Quality: QualityNormal})
	if err != nil {
		t.Fatalf("normal compose: %v", err)
	}
	high, err := Compose("hello", Options{Quality: QualityHigh})
	if err != nil {
		t.Fatalf("high compose: %v", err)
	}

	if decodeWidth(t, normal.PNG)*2 != decodeWidth(t, high.PNG) {
		t.Fatalf("high quality should double the module size: normal=%d high=%d",
			decodeWidth(t, normal.PNG), decodeWidth(t, high.PNG))
	}
}

func TestComposeUnreadableEmblemDegrades(t *testing.T) {
	opts := Options{Quality: QualityNormal, FillColor: "black", BackgroundColor: "white"}

	plain, err := Compose("https://example.com", opts)
	if err != nil {
		t.Fatalf("plain compose: %v", err)
	}

	opts.Emblem = []byte("definitely not an image")
	degraded, err := Compose("https://example.com", opts)
	if err != nil {
		t.Fatalf("compose with bad emblem must not fail: %v", err)
	}
	if !bytes.Equal(plain.PNG, degraded.PNG) {
		t.Fatalf("bad emblem should yield the plain code unchanged")
	}
}

func TestComposeEmblemIsComposited(t *testing.T) {
	opts := Options{Quality: QualityNormal}

	plain, err := Compose("https://example.com", opts)
	if err != nil {
		t.Fatalf("plain compose: %v", err)
	}

	opts.Emblem = solidPNG(t, color.RGBA{R: 255, A: 255}, 32)
	withEmblem, err := Compose("https://example.com", opts)
	if err != nil {
		t.Fatalf("compose with emblem: %v", err)
	}
	if bytes.Equal(plain.PNG, withEmblem.PNG) {
		t.Fatalf("emblem had no effect on the output")
	}

	// The center pixel must be the emblem color.
	img, err := png.Decode(bytes.NewReader(withEmblem.PNG))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	b := img.Bounds()
	r, g, bl, _ := img.At(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2).RGBA()
	if r>>8 != 255 || g>>8 != 0 || bl>>8 != 0 {
		t.Fatalf("center pixel is not the emblem color: r=%d g=%d b=%d", r>>8, g>>8, bl>>8)
	}
}

func TestComposeTranslucentEmblemStaysOpaque(t *testing.T) {
	emblem := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			emblem.Set(x, y, color.NRGBA{R: 255, A: 128})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, emblem); err != nil {
		t.Fatalf("encode emblem: %v", err)
	}

	result, err := Compose("https://example.com", Options{Emblem: buf.Bytes()})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(result.PNG))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				t.Fatalf("output carries alpha at (%d,%d): a=%d", x, y, a)
			}
		}
	}

	// The translucent red must have been blended, not copied verbatim.
	r, _, _, _ := img.At(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2).RGBA()
	if r>>8 == 0 {
		t.Fatalf("emblem was not composited at all")
	}
}

func TestComposeOversizedPayloadFails(t *testing.T) {
	if _, err := Compose(strings.Repeat("a", 4000), Options{}); err == nil {
		t.Fatalf("expected encoding failure for oversized payload")
	}
}

func decodeWidth(t *testing.T, data []byte) int {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	return cfg.Width
}

func solidPNG(t *testing.T, c color.Color, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode emblem: %v", err)
	}
	return buf.Bytes()
}
