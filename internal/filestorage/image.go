package filestorage

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	"spa-comments/internal/domain"
)

func imageFormat(contentType string) (imaging.Format, error) {
	switch domain.NormalizeContentType(contentType) {
	case "image/png":
		return imaging.PNG, nil
	case "image/jpeg", "image/jpg":
		return imaging.JPEG, nil
	case "image/gif":
		return imaging.GIF, nil
	}
	return 0, fmt.Errorf("unsupported image type %q", contentType)
}

// fitImage scales the image down to fit maxWidth x maxHeight keeping the
// aspect ratio. Smaller images keep their size.
func fitImage(r io.Reader, contentType string, maxWidth, maxHeight int) ([]byte, image.Point, error) {
	format, err := imageFormat(contentType)
	if err != nil {
		return nil, image.Point{}, err
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	if maxWidth > 0 && maxHeight > 0 && (bounds.Dx() > maxWidth || bounds.Dy() > maxHeight) {
		img = imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, image.Point{}, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), img.Bounds().Size(), nil
}

// readLimited reads at most limit bytes and fails if there is more.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrContentTooLarge
	}
	return data, nil
}
