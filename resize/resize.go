// Package resize is the pluggable on-read image transcode collaborator
// invoked when a fetch requests a resized image. It is built on the
// standard library's image codecs with a hand-rolled nearest-neighbor
// scaler.
package resize

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strconv"
	"strings"
)

// supportedMimes lists the MIME types this collaborator can decode
// and re-encode. webp and bmp are not in the standard library's image
// codecs and are deliberately left unsupported rather than hand-rolled.
var supportedMimes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
}

// IsResizable reports whether mime is one this collaborator can
// transcode.
func IsResizable(mime string) bool {
	return supportedMimes[mime]
}

// axis is one dimension of a resize request: either Auto (preserve
// aspect ratio from the other axis) or a fixed positive pixel count.
type axis struct {
	auto  bool
	value int
}

// Dimensions is a parsed "{W}x{H}" resize request.
type Dimensions struct {
	Width  axis
	Height axis
}

// ErrInvalidDimensions is returned by ParseDimensions on malformed
// input.
type ErrInvalidDimensions struct {
	Value string
}

func (e *ErrInvalidDimensions) Error() string {
	return fmt.Sprintf("invalid dimensions: %q", e.Value)
}

func parseAxis(s string) (axis, error) {
	if strings.EqualFold(s, "auto") {
		return axis{auto: true}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return axis{}, &ErrInvalidDimensions{Value: s}
	}
	return axis{value: n}, nil
}

// ParseDimensions parses a "{W}x{H}" string where each token is
// "auto" or a decimal positive integer.
func ParseDimensions(s string) (Dimensions, error) {
	w, h, found := strings.Cut(s, "x")
	if !found {
		return Dimensions{}, &ErrInvalidDimensions{Value: s}
	}
	width, err := parseAxis(w)
	if err != nil {
		return Dimensions{}, err
	}
	height, err := parseAxis(h)
	if err != nil {
		return Dimensions{}, err
	}
	return Dimensions{Width: width, Height: height}, nil
}

func decode(mime string, data []byte) (image.Image, error) {
	r := bytes.NewReader(data)
	switch mime {
	case "image/png":
		return png.Decode(r)
	case "image/jpeg":
		return jpeg.Decode(r)
	case "image/gif":
		return gif.Decode(r)
	default:
		return nil, fmt.Errorf("resize: unsupported mime type %q", mime)
	}
}

func encode(mime string, img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch mime {
	case "image/png":
		err = png.Encode(&buf, img)
	case "image/jpeg":
		err = jpeg.Encode(&buf, img, nil)
	case "image/gif":
		err = gif.Encode(&buf, img, nil)
	default:
		return nil, fmt.Errorf("resize: unsupported mime type %q", mime)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// targetDimensions resolves Auto axes against the source image size,
// preserving aspect ratio. Auto/Auto is an identity sizing.
func targetDimensions(dims Dimensions, srcW, srcH int) (int, int) {
	switch {
	case dims.Width.auto && dims.Height.auto:
		return srcW, srcH
	case dims.Width.auto:
		h := dims.Height.value
		w := int(float64(h) * float64(srcW) / float64(srcH))
		if w < 1 {
			w = 1
		}
		return w, h
	case dims.Height.auto:
		w := dims.Width.value
		h := int(float64(w) * float64(srcH) / float64(srcW))
		if h < 1 {
			h = 1
		}
		return w, h
	default:
		return dims.Width.value, dims.Height.value
	}
}

// nearestNeighborResize rescales src to exactly (dstW, dstH) using
// nearest-neighbor sampling.
func nearestNeighborResize(src image.Image, dstW, dstH int) *image.RGBA {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))

	for y := 0; y < dstH; y++ {
		srcY := bounds.Min.Y + y*srcH/dstH
		for x := 0; x < dstW; x++ {
			srcX := bounds.Min.X + x*srcW/dstW
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}

// Resize decodes data as mime, rescales it per dims, and re-encodes it
// in the same format. It fails if mime is not resizable or the data
// cannot be decoded.
func Resize(data []byte, mime string, dims Dimensions) ([]byte, error) {
	if !IsResizable(mime) {
		return nil, fmt.Errorf("resize: %q is not a resizable format", mime)
	}

	img, err := decode(mime, data)
	if err != nil {
		return nil, fmt.Errorf("resize: could not decode %s: %w", mime, err)
	}

	bounds := img.Bounds()
	dstW, dstH := targetDimensions(dims, bounds.Dx(), bounds.Dy())
	if dstW == bounds.Dx() && dstH == bounds.Dy() {
		return data, nil
	}

	resized := nearestNeighborResize(img, dstW, dstH)
	return encode(mime, resized)
}
