package ai

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	//go:embed schemas/questions.schema.json
	questionsSchemaJSON string
	//go:embed schemas/feedback.schema.json
	feedbackSchemaJSON string

	questionsSchema = mustSchema("questions", questionsSchemaJSON)
	feedbackSchema  = mustSchema("feedback", feedbackSchemaJSON)
)

// FieldError is a single schema violation.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every violation found in a model response.
// It matches ErrInvalidResponse with errors.Is.
type ValidationError struct {
	Schema string
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return fmt.Sprintf("%s response failed schema validation: %s", e.Schema, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidResponse
}

// ValidateQuestions checks a raw generation response.
func ValidateQuestions(document []byte) error {
	return validate("questions", questionsSchema, document)
}

// ValidateFeedback checks a raw scoring response.
func ValidateFeedback(document []byte) error {
	return validate("feedback", feedbackSchema, document)
}

func validate(name string, schema *gojsonschema.Schema, document []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("%w: %s response is not valid JSON: %v", ErrInvalidResponse, name, err)
	}

	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Schema: name, Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return verr
}

func mustSchema(name, content string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(content))
	if err != nil {
		panic(fmt.Sprintf("load %s schema: %v", name, err))
	}
	return schema
}
