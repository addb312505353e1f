package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Structured field keys shared by every component.
const (
	FieldComponent  = "component"
	FieldRunID      = "run_id"
	FieldQuestionID = "question_id"
	FieldTaskID     = "task_id"
	FieldTaskKind   = "task_kind"
	FieldProvider   = "ai_provider"
	FieldModel      = "ai_model"
)

// pairs turns alternating keys and values into string fields. Blank keys or
// values are skipped so optional identifiers such as a question id simply
// disappear from the entry.
func pairs(kv ...string) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key := strings.TrimSpace(kv[i])
		value := strings.TrimSpace(kv[i+1])
		if key == "" || value == "" {
			continue
		}
		fields = append(fields, zap.String(key, value))
	}
	return fields
}

// WithFields returns logger enriched with fields. A nil logger becomes a no-op
// logger, so callers never have to guard optional loggers themselves.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// RunFields identify the run and, when known, the question being worked on.
func RunFields(runID, questionID string) []zap.Field {
	return pairs(FieldRunID, runID, FieldQuestionID, questionID)
}

// TaskFields identify a background task together with the run it targets.
func TaskFields(taskID, kind, runID, questionID string) []zap.Field {
	return append(pairs(FieldTaskID, taskID, FieldTaskKind, kind), RunFields(runID, questionID)...)
}

// AIFields name the generative provider and model behind a call.
func AIFields(provider, model string) []zap.Field {
	return pairs(FieldProvider, provider, FieldModel, model)
}

// WithAIFields is WithFields with AIFields attached.
func WithAIFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, AIFields(provider, model)...)
}
