package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/intraview/internal/logger"
	"github.com/spigell/intraview/internal/utils"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultMaxRetries = 3
	maxRetryDelay     = 30 * time.Second
	baseRetryDelay    = 2 * time.Second
	providerName      = "gemini"
)

var (
	waitFor = utils.WaitFor

	retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*s`)
)

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Response is the text produced by one call together with its token usage.
type Response struct {
	Text        string
	TotalTokens int
}

// Generator wraps the Google GenAI client to request structured JSON output.
type Generator struct {
	models     contentModels
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, log *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Generator{
		models:     client.Models,
		model:      model,
		maxRetries: maxRetries,
		logger:     logger.WithAIFields(log, providerName, model),
	}, nil
}

// GenerateJSON sends the prompt and asks for a JSON document matching schema.
// Transient API failures are retried with a growing delay.
func (g *Generator) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (*Response, error) {
	if g == nil || g.models == nil {
		return nil, errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
		Temperature:      genai.Ptr[float32](0.4),
	}

	attempts := g.maxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
		if err == nil {
			return collect(resp)
		}

		lastErr = fmt.Errorf("generate content: %w", err)

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == attempts {
			break
		}

		g.log().Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := waitFor(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func (g *Generator) log() *zap.Logger {
	if g.logger == nil {
		return zap.NewNop()
	}
	return g.logger
}

func collect(resp *genai.GenerateContentResponse) (*Response, error) {
	if resp == nil {
		return nil, errors.New("gemini api returned empty response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return nil, errors.New("gemini api returned empty response")
	}

	out := &Response{Text: output}
	if resp.UsageMetadata != nil {
		out.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// retryDelay decides whether err is worth another attempt and how long to wait.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		if m := retryAfterPattern.FindStringSubmatch(apiErr.Message); len(m) == 2 {
			seconds, perr := strconv.ParseFloat(m[1], 64)
			if perr == nil {
				delay := time.Duration(seconds * float64(time.Second))
				if delay > maxRetryDelay {
					return 0, false
				}
				return delay, true
			}
		}
		return baseRetryDelay * time.Duration(attempt), true
	case apiErr.Code >= http.StatusInternalServerError:
		return baseRetryDelay * time.Duration(attempt), true
	default:
		return 0, false
	}
}

