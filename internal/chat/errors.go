package chat

import "errors"

// User-attributable failures. Each of these is converted into exactly one
// outbound error payload; everything else propagates to the hosting layer.
var (
	ErrImageFormat        = errors.New("message is not a URL encoded image")
	ErrImageCompression   = errors.New("image cannot be compressed")
	ErrImageSummarization = errors.New("image cannot be interpreted")
	ErrNoCompletion       = errors.New("no response from AI chat")
	ErrMalformedRequest   = errors.New("malformed chat request")
)
