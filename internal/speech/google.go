package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	speechapi "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	defaultLanguage = "en-US"
	requestTimeout  = time.Minute
)

type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// GoogleConfig configures the Cloud Speech-to-Text adapter.
type GoogleConfig struct {
	LanguageCode    string
	Model           string
	CredentialsFile string
}

// Google transcribes audio with the synchronous Cloud Speech-to-Text API.
type Google struct {
	client recognizer
	cfg    GoogleConfig
	logger *zap.Logger
}

var _ Transcriber = (*Google)(nil)

func NewGoogle(ctx context.Context, cfg GoogleConfig, logger *zap.Logger) (*Google, error) {
	var opts []option.ClientOption
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}

	client, err := speechapi.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}

	return newGoogle(client, cfg, logger), nil
}

func newGoogle(client recognizer, cfg GoogleConfig, logger *zap.Logger) *Google {
	if strings.TrimSpace(cfg.LanguageCode) == "" {
		cfg.LanguageCode = defaultLanguage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Google{client: client, cfg: cfg, logger: logger}
}

func (g *Google) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("audio must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               g.cfg.LanguageCode,
			Model:                      g.cfg.Model,
			Encoding:                   encodingFor(mimeType),
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	resp, err := g.client.Recognize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("recognize speech: %w", err)
	}

	transcript := joinTranscript(resp)
	g.logger.Debug("speech recognized",
		zap.Int("audio_bytes", len(audio)),
		zap.String("mime_type", mimeType),
		zap.Int("transcript_length", len(transcript)),
	)

	return transcript, nil
}

func (g *Google) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

func joinTranscript(resp *speechpb.RecognizeResponse) string {
	if resp == nil {
		return ""
	}

	var b strings.Builder
	for _, result := range resp.Results {
		if result == nil || len(result.Alternatives) == 0 || result.Alternatives[0] == nil {
			continue
		}
		text := strings.TrimSpace(result.Alternatives[0].Transcript)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(text)
	}
	return b.String()
}

func encodingFor(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mp3"), strings.Contains(m, "mpeg"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	case strings.Contains(m, "ogg"), strings.Contains(m, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
