package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     []fakeCall
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeCall struct {
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prompt := ""
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		prompt = contents[0].Parts[0].Text
	}
	f.calls = append(f.calls, fakeCall{model: model, prompt: prompt, config: config})

	if len(f.responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.responses[0]
	f.responses = f.responses[1:]
	return res.resp, res.err
}

func textResponse(text string, tokens int32) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{TotalTokenCount: tokens},
	}
}

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	original := waitFor
	var slept []time.Duration
	waitFor = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	t.Cleanup(func() { waitFor = original })
	return &slept
}

func TestGeneratorBackoffStopsOnCancel(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusTooManyRequests, Message: "Please retry in 25s."})
	models.enqueue(textResponse("too late", 0), nil)

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 3, logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	started := time.Now()
	_, err := g.GenerateJSON(ctx, "prompt", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		t.Fatalf("backoff ignored cancellation, took %s", elapsed)
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call before giving up, got %d", len(models.calls))
	}
}

func TestGeneratorRequestsJSON(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse(`{"ok": true}`, 42), nil)

	g := &Generator{models: models, model: "gemini-test", maxRetries: 2, logger: zap.NewNop()}

	resp, err := g.GenerateJSON(context.Background(), "  prompt  ", feedbackResponseSchema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Text != `{"ok": true}` {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
	if resp.TotalTokens != 42 {
		t.Fatalf("expected 42 tokens, got %d", resp.TotalTokens)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.calls))
	}
	call := models.calls[0]
	if call.model != "gemini-test" || call.prompt != "prompt" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if call.config == nil || call.config.ResponseMIMEType != "application/json" || call.config.ResponseSchema != feedbackResponseSchema {
		t.Fatalf("expected JSON response config, got %+v", call.config)
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	slept := stubSleep(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(textResponse("retry ok", 0), nil)

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 2, logger: zap.NewNop()}

	resp, err := g.GenerateJSON(context.Background(), "prompt", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Text != "retry ok" {
		t.Fatalf("unexpected output: %q", resp.Text)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
	if len(*slept) != 1 || (*slept)[0] != baseRetryDelay {
		t.Fatalf("expected a single %s backoff, got %v", baseRetryDelay, *slept)
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	stubSleep(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 2, logger: zap.NewNop()}

	_, err := g.GenerateJSON(context.Background(), "prompt", nil)
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 3, logger: zap.NewNop()}

	if _, err := g.GenerateJSON(context.Background(), "prompt", nil); err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorHonoursShortQuotaDelay(t *testing.T) {
	slept := stubSleep(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Message: "Please retry in 1.5s",
	})
	models.enqueue(textResponse("ok", 0), nil)

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 3, logger: zap.NewNop()}

	if _, err := g.GenerateJSON(context.Background(), "prompt", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*slept) != 1 || (*slept)[0] != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s delay, got %v", *slept)
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 3, logger: zap.NewNop()}

	if _, err := g.GenerateJSON(context.Background(), "prompt", nil); err == nil {
		t.Fatal("expected error")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}}, nil)

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 1}

	if _, err := g.GenerateJSON(context.Background(), "prompt", nil); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestGeneratorRejectsEmptyPrompt(t *testing.T) {
	g := &Generator{models: &fakeModels{}, model: "gemini-pro", maxRetries: 1}
	if _, err := g.GenerateJSON(context.Background(), "   ", nil); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}
