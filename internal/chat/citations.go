package chat

import (
	"context"
	"regexp"
	"time"

	"github.com/tomaskol/wrenchbot/internal/completion"
)

// Matches a bracketed citation marker such as [doc3], together with one
// leading run of whitespace so that surrounding punctuation stays intact.
var citationMarker = regexp.MustCompile(`\s*\[doc\d+\]`)

// stripCitationMarkers removes all inline citation markers from text that
// is fed back to the model (e.g. a retrieved summary), where raw citation
// syntax would only confuse it. Idempotent.
func stripCitationMarkers(text string) string {
	return citationMarker.ReplaceAllString(text, "")
}

// TranslateCitations rewrites each citation's document-store filepath into
// a time-limited read-only signed URL for the outbound payload. It never
// mutates its input: the persisted record keeps the original filepath.
func TranslateCitations(ctx context.Context, citations []completion.Citation, blobs BlobStore, bucket string, ttl time.Duration) ([]completion.Citation, error) {
	out := make([]completion.Citation, len(citations))
	for i, c := range citations {
		out[i] = c
		if c.Filepath == "" {
			continue
		}
		signed, err := blobs.SignedURL(ctx, bucket, c.Filepath, ttl)
		if err != nil {
			return nil, err
		}
		out[i].Filepath = signed
	}
	return out, nil
}
