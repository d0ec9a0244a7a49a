package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	// Decoders for the accepted upload encodings. JPEG, PNG and GIF come with
	// imaging's own imports; WebP needs the x/image decoder.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

func decodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// fitDimensions scales (w, h) down so both fit within (maxW, maxH), preserving
// aspect ratio and never upscaling. The leading dimension is pinned to its
// bound and the other rounded to nearest; when rounding leaves the secondary
// dimension over its bound, the fit is recomputed from that bound instead.
func fitDimensions(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}

	var nw, nh int
	if w >= h {
		nw = maxW
		nh = int(math.Round(float64(h) * float64(maxW) / float64(w)))
	} else {
		nh = maxH
		nw = int(math.Round(float64(w) * float64(maxH) / float64(h)))
	}

	if nh > maxH {
		nw = int(math.Round(float64(nw) * float64(maxH) / float64(nh)))
		nh = maxH
	}
	if nw > maxW {
		nh = int(math.Round(float64(nh) * float64(maxW) / float64(nw)))
		nw = maxW
	}

	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

func resizeToFit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	nw, nh := fitDimensions(b.Dx(), b.Dy(), maxW, maxH)
	if nw == b.Dx() && nh == b.Dy() {
		return img
	}
	return imaging.Resize(img, nw, nh, imaging.Lanczos)
}

func flipHorizontal(img image.Image) image.Image {
	return imaging.FlipH(img)
}

// encodeImage serializes img in the given output format. PNG is lossless
// regardless of quality; WebP uses quality as its lossy parameter.
func encodeImage(img image.Image, format string, quality int) (data []byte, ext string, contentType string, err error) {
	var buf bytes.Buffer

	switch format {
	case "webp":
		if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return nil, "", "", fmt.Errorf("encode webp: %w", err)
		}
		return buf.Bytes(), ".webp", "image/webp", nil
	case "png", "":
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", "", fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), ".png", "image/png", nil
	default:
		return nil, "", "", fmt.Errorf("unsupported output format: %q", format)
	}
}

// encodePNG is the interchange encoding sent to the removal provider.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
