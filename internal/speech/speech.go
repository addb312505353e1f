// Package speech turns recorded answers into text.
package speech

import "context"

// Transcriber returns the final transcript of a short audio clip.
// An empty transcript without error means nothing intelligible was said.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}
