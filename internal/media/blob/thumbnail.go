package blob

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	// Registers the WebP decoder; imaging itself registers JPEG/PNG/GIF.
	_ "golang.org/x/image/webp"
)

// deriveThumbnail decodes src, scales it down to fit within maxDim on its
// longer side, and re-encodes it in the original format. Images already
// within bounds are re-encoded as-is so the thumbnail key always resolves.
// Returns the encoded bytes and the thumbnail content type.
func deriveThumbnail(src []byte, maxDim int) ([]byte, string, error) {
	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDim || bounds.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	encFormat, contentType, err := encodingFor(format)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, encFormat, imaging.JPEGQuality(82)); err != nil {
		return nil, "", fmt.Errorf("encode thumbnail: %w", err)
	}

	return buf.Bytes(), contentType, nil
}

// encodingFor maps a decoded image format name to an imaging encoder format
// and content type. GIF and WebP thumbnails are re-encoded as JPEG since
// animation is pointless at thumbnail size and imaging cannot encode WebP.
func encodingFor(format string) (imaging.Format, string, error) {
	switch format {
	case "jpeg":
		return imaging.JPEG, "image/jpeg", nil
	case "png":
		return imaging.PNG, "image/png", nil
	case "gif", "webp":
		return imaging.JPEG, "image/jpeg", nil
	default:
		return 0, "", fmt.Errorf("unsupported image format %q", format)
	}
}
