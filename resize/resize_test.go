package resize

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestIsResizable(t *testing.T) {
	if !IsResizable("image/png") {
		t.Fatalf("expected image/png to be resizable")
	}
	if IsResizable("image/webp") {
		t.Fatalf("expected image/webp to not be resizable")
	}
	if IsResizable("text/plain") {
		t.Fatalf("expected text/plain to not be resizable")
	}
}

func TestParseDimensionsFixed(t *testing.T) {
	dims, err := ParseDimensions("100x200")
	if err != nil {
		t.Fatalf("ParseDimensions: %v", err)
	}
	if dims.Width.auto || dims.Width.value != 100 {
		t.Fatalf("bad width: %#v", dims.Width)
	}
	if dims.Height.auto || dims.Height.value != 200 {
		t.Fatalf("bad height: %#v", dims.Height)
	}
}

func TestParseDimensionsAuto(t *testing.T) {
	dims, err := ParseDimensions("autox50")
	if err != nil {
		t.Fatalf("ParseDimensions: %v", err)
	}
	if !dims.Width.auto {
		t.Fatalf("expected auto width")
	}
	if dims.Height.value != 50 {
		t.Fatalf("bad height: %#v", dims.Height)
	}
}

func TestParseDimensionsInvalid(t *testing.T) {
	cases := []string{"", "100", "0x100", "-5x10", "100xfoo"}
	for _, c := range cases {
		if _, err := ParseDimensions(c); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}

func TestResizeFixedDimensions(t *testing.T) {
	src := makePNG(t, 40, 20)
	dims := Dimensions{Width: axis{value: 20}, Height: axis{value: 10}}

	out, err := Resize(src, "image/png", dims)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode resized: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Fatalf("got %dx%d, want 20x10", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestResizeAutoPreservesAspectRatio(t *testing.T) {
	src := makePNG(t, 100, 50)
	dims := Dimensions{Width: axis{value: 40}, Height: axis{auto: true}}

	out, err := Resize(src, "image/png", dims)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode resized: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 20 {
		t.Fatalf("got %dx%d, want 40x20", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestResizeRejectsUnsupportedMime(t *testing.T) {
	if _, err := Resize([]byte("nope"), "image/webp", Dimensions{}); err == nil {
		t.Fatalf("expected error for unsupported mime")
	}
}
