package scanning

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when a hosted vision model is called without credentials.
var ErrMissingAPIKey = errors.New("vision model api key is not configured")

// Image is a receipt photo or PDF as uploaded.
type Image struct {
	Data     []byte
	MIMEType string
}

// Model sends a prompt and one receipt image to a vision model and returns the raw reply text.
type Model interface {
	Generate(ctx context.Context, prompt string, img Image) (string, error)
	// Close releases resources held by the model client
	Close() error
}
