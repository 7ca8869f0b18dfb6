// Package media turns listing photo uploads into stored image references.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/config"
)

// Upload is one image as posted by the admin form: either a link to an
// already hosted image or the raw file bytes (base64 in JSON).
type Upload struct {
	Filename string `json:"nombre,omitempty"`
	URL      string `json:"url,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// Processor validates, downsizes and inlines uploaded photos.
type Processor struct {
	maxWidth int
	quality  int
	maxBytes int
}

// NewProcessor creates a processor from the images config
func NewProcessor(cfg config.ImagesConfig) *Processor {
	return &Processor{
		maxWidth: cfg.MaxWidth,
		quality:  cfg.JPEGQuality,
		maxBytes: cfg.MaxBytes,
	}
}

// Encode returns the reference to store for up: links are kept verbatim,
// file bytes become a data: URL after downscaling to the configured width.
func (p *Processor) Encode(ctx context.Context, propertyID string, up Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if up.URL != "" {
		return CheckURL(up.URL)
	}
	if len(up.Data) == 0 {
		return "", apperr.Validationf("image %q has no content", up.Filename)
	}
	if p.maxBytes > 0 && len(up.Data) > p.maxBytes {
		return "", apperr.Validationf("image %q exceeds %d bytes", up.Filename, p.maxBytes)
	}

	mime := mimetype.Detect(up.Data)
	format, err := imaging.FormatFromExtension(mime.Extension())
	if err != nil {
		if strings.HasPrefix(mime.String(), "image/") {
			// decodable by browsers but not by imaging (webp, avif): keep as is
			return DataURL(mime.String(), up.Data), nil
		}
		return "", apperr.Validationf("image %q has unsupported type %s", up.Filename, mime.String())
	}

	img, err := imaging.Decode(bytes.NewReader(up.Data), imaging.AutoOrientation(true))
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, fmt.Sprintf("image %q could not be decoded", up.Filename), err)
	}
	if p.maxWidth <= 0 || img.Bounds().Dx() <= p.maxWidth {
		return DataURL(mime.String(), up.Data), nil
	}

	resized := imaging.Resize(img, p.maxWidth, 0, imaging.Lanczos)
	return p.encode(resized, format)
}

func (p *Processor) encode(img image.Image, format imaging.Format) (string, error) {
	// PNG and GIF keep their format for transparency, everything else is JPEG
	if format != imaging.PNG && format != imaging.GIF {
		format = imaging.JPEG
	}
	var buf bytes.Buffer
	opts := []imaging.EncodeOption{}
	if p.quality > 0 {
		opts = append(opts, imaging.JPEGQuality(p.quality))
	}
	if err := imaging.Encode(&buf, img, format, opts...); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return DataURL(mimetype.Detect(buf.Bytes()).String(), buf.Bytes()), nil
}

// DataURL inlines data as a base64 data: URL
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// CheckURL accepts http(s) links and data: URLs
func CheckURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "data:image/") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.Validationf("image url %q is not a valid http(s) link", raw)
	}
	return raw, nil
}
