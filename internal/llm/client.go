// Package llm defines the language-understanding collaborator contract.
// One client serves every language task the engine needs: field-kind hints
// during extraction, conversational phrasing of prompts, answer
// normalization, and translation. All calls are request/response with the
// caller's context governing the timeout.
package llm

import "context"

// Task names the operation requested from the collaborator.
type Task string

const (
	TaskFieldHints   Task = "field_hints"
	TaskPhrasePrompt Task = "phrase_prompt"
	TaskNormalize    Task = "normalize_answer"
	TaskTranslate    Task = "translate"
)

// Request carries a task, the text it applies to, and task-specific context
// such as language codes or a field label.
type Request struct {
	Task    Task              `json:"task"`
	Text    string            `json:"text"`
	Context map[string]string `json:"context,omitempty"`
}

// FieldHint is a semantic hint about one form field, produced by the
// collaborator from raw form text.
type FieldHint struct {
	Label    string `json:"label"`
	Kind     string `json:"kind"`
	Required bool   `json:"required"`
}

// Response holds a plain-text answer or, for TaskFieldHints, a small
// structured field list.
type Response struct {
	Text   string      `json:"text,omitempty"`
	Fields []FieldHint `json:"fields,omitempty"`
}

// Client is the language-understanding collaborator. Implementations must
// honor ctx cancellation; callers must tolerate multi-second latency and
// treat every failure as recoverable.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
