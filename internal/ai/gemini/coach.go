package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/intraview/internal/ai"
	"github.com/spigell/intraview/internal/metrics"
	"github.com/spigell/intraview/internal/utils"
)

type jsonGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (*Response, error)
	Model() string
}

// Coach generates interview questions and scores answers with Gemini.
type Coach struct {
	generator jsonGenerator
	logger    *zap.Logger
	maxLogLen int
}

var (
	//go:embed prompts/questions.md
	questionsPrompt string
	//go:embed prompts/feedback.md
	feedbackPrompt string
)

const defaultMaxLogLength = 200

var _ ai.Coach = (*Coach)(nil)

func NewCoach(generator jsonGenerator, logger *zap.Logger, maxLogLength int) *Coach {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Coach{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (c *Coach) GenerateQuestions(ctx context.Context, jobDescription string) (*ai.QuestionSet, error) {
	jobDescription = strings.TrimSpace(jobDescription)
	if jobDescription == "" {
		return nil, fmt.Errorf("job description is required")
	}

	prompt := render(questionsPrompt, "JOB_DESCRIPTION", jobDescription)

	raw, err := c.call(ctx, "questions", prompt, questionsResponseSchema)
	if err != nil {
		return nil, err
	}

	cleaned := extractJSON(raw.Text)
	if err := ai.ValidateQuestions([]byte(cleaned)); err != nil {
		return nil, err
	}

	var set ai.QuestionSet
	if err := c.decode(cleaned, &set); err != nil {
		return nil, err
	}

	set.JobTitle = strings.TrimSpace(set.JobTitle)
	set.Employer = strings.TrimSpace(set.Employer)
	set.Category = strings.TrimSpace(set.Category)
	for i := range set.Categories {
		set.Categories[i].Category = strings.TrimSpace(set.Categories[i].Category)
		for j := range set.Categories[i].Questions {
			q := &set.Categories[i].Questions[j]
			q.Question = strings.TrimSpace(q.Question)
		}
	}

	return &set, nil
}

func (c *Coach) ScoreAnswer(ctx context.Context, req ai.AnswerRequest) (*ai.Feedback, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}
	if strings.TrimSpace(req.Answer) == "" {
		return nil, fmt.Errorf("answer is required")
	}

	prompt := render(feedbackPrompt,
		"QUESTION", strings.TrimSpace(req.Question),
		"ANSWER", strings.TrimSpace(req.Answer),
		"JOB_DESCRIPTION", strings.TrimSpace(req.JobDescription),
	)

	raw, err := c.call(ctx, "feedback", prompt, feedbackResponseSchema)
	if err != nil {
		return nil, err
	}

	if raw.TotalTokens > 0 {
		metrics.TokensUsed.WithLabelValues(c.generator.Model()).Add(float64(raw.TotalTokens))
	}

	cleaned := extractJSON(raw.Text)
	if err := ai.ValidateFeedback([]byte(cleaned)); err != nil {
		return nil, &ai.SpentError{Tokens: raw.TotalTokens, Err: err}
	}

	var feedback ai.Feedback
	if err := c.decode(cleaned, &feedback); err != nil {
		return nil, &ai.SpentError{Tokens: raw.TotalTokens, Err: err}
	}

	feedback.Feedback = strings.TrimSpace(feedback.Feedback)
	feedback.ImprovedAnswer = strings.TrimSpace(feedback.ImprovedAnswer)
	feedback.TotalTokens = raw.TotalTokens

	return &feedback, nil
}

func (c *Coach) call(ctx context.Context, kind, prompt string, schema *genai.Schema) (*Response, error) {
	c.logger.Debug("gemini generate content request",
		zap.String("prompt_kind", kind),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
	)

	resp, err := c.generator.GenerateJSON(ctx, prompt, schema)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("gemini generate content response",
		zap.String("prompt_kind", kind),
		zap.Int("response_length", utf8.RuneCountInString(resp.Text)),
		zap.Int("total_tokens", resp.TotalTokens),
		zap.String("response_preview", utils.TruncateForLog(resp.Text, c.maxLogLen)),
	)

	return resp, nil
}

// decode maps the validated JSON document onto out, tolerating numbers
// encoded as strings and extra keys.
func (c *Coach) decode(document string, out any) error {
	var data map[string]any
	if err := json.Unmarshal([]byte(document), &data); err != nil {
		return fmt.Errorf("%w: parse gemini response: %v", ai.ErrInvalidResponse, err)
	}

	var meta mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		Metadata:         &meta,
	})
	if err != nil {
		return fmt.Errorf("create response decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("%w: decode gemini response: %v", ai.ErrInvalidResponse, err)
	}

	if len(meta.Unused) > 0 {
		c.logger.Debug("ignoring unexpected keys in gemini response", zap.Strings("keys", meta.Unused))
	}

	return nil
}

// render fills {{KEY}} placeholders in a single pass, so placeholder-like
// text inside a value is never expanded.
func render(template string, keyValues ...string) string {
	pairs := make([]string, 0, len(keyValues))
	for i := 0; i+1 < len(keyValues); i += 2 {
		pairs = append(pairs, "{{"+keyValues[i]+"}}", keyValues[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
