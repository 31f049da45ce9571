package chat

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// imageMarker prefixes every image interpretation before it enters a
// conversation, so grounding prompts can tell image-derived content apart
// from literal user text.
const imageMarker = "USER IMAGE: "

// interpretedImage is the outcome of the image sub-pipeline. Degraded is
// set when archival failed and StorageRef fell back to the raw message
// text; the fallback is visible here rather than hidden in a catch-all.
type interpretedImage struct {
	StorageRef string
	Summary    string
	Degraded   bool
}

// interpretImage validates, recompresses, best-effort archives and
// summarizes a data-URL-encoded image payload.
func (p *Processor) interpretImage(ctx context.Context, rawText string) (interpretedImage, error) {
	payload, ok := decodeImageDataURL(rawText)
	if !ok {
		return interpretedImage{}, ErrImageFormat
	}

	compressed, err := recompressImage(payload, p.opts.MaxImageWidth)
	if err != nil {
		return interpretedImage{}, fmt.Errorf("%w: %v", ErrImageCompression, err)
	}

	ref, degraded := p.archiveImage(ctx, rawText, compressed)

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(compressed)
	summary, err := p.vision.Describe(ctx, dataURL)
	if err != nil {
		return interpretedImage{}, fmt.Errorf("%w: %v", ErrImageSummarization, err)
	}
	if strings.TrimSpace(summary) == "" {
		return interpretedImage{}, ErrImageSummarization
	}

	return interpretedImage{StorageRef: ref, Summary: summary, Degraded: degraded}, nil
}

// archiveImage stores the compressed bytes under a fresh opaque identifier.
// Archival is not a critical path: on failure the storage reference falls
// back to the raw message text and processing continues.
func (p *Processor) archiveImage(ctx context.Context, rawText string, compressed []byte) (ref string, degraded bool) {
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ".jpg"
	if err := p.blobs.Put(ctx, p.opts.ImageBucket, name, compressed); err != nil {
		slog.Warn("image archival failed, storing raw payload instead", "error", err)
		return rawText, true
	}
	return name, false
}

// decodeImageDataURL extracts the binary payload of a data URL and checks
// that the decoded bytes actually sniff as an image.
func decodeImageDataURL(s string) ([]byte, bool) {
	if !strings.HasPrefix(s, "data:") {
		return nil, false
	}
	_, b64, found := strings.Cut(s, ",")
	if !found {
		return nil, false
	}
	payload, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, false
	}
	if !strings.HasPrefix(http.DetectContentType(payload), "image/") {
		return nil, false
	}
	return payload, true
}

// recompressImage normalizes the payload to a lossy JPEG, downscaling to
// maxWidth when the source is wider (aspect ratio preserved, never
// upscaled).
func recompressImage(payload []byte, maxWidth int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if maxWidth > 0 && bounds.Dx() > maxWidth {
		height := bounds.Dy() * maxWidth / bounds.Dx()
		scaled := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
