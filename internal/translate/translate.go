package translate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Youdahe123/fill.ai-hop-hacks/internal/llm"
)

// Translator converts text between languages. Implementations should honor
// the context's deadline; Apply treats a failure as a degraded passthrough
// rather than an error.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Result is a translation outcome. Degraded means the original text came
// back untranslated because no translator was available or it failed.
type Result struct {
	Text     string
	Degraded bool
}

// Apply translates text from sourceLang to targetLang. When the two
// languages match, or no translator is configured, the text passes through
// untouched and is not considered degraded. Translator errors and timeouts
// fall back to the original text with Degraded set.
func Apply(ctx context.Context, tr Translator, text, sourceLang, targetLang string) Result {
	if text == "" || sameLanguage(sourceLang, targetLang) {
		return Result{Text: text}
	}
	if tr == nil {
		return Result{Text: text, Degraded: true}
	}
	translated, err := tr.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		log.Printf("translate: %s -> %s failed, passing original through: %v", sourceLang, targetLang, err)
		return Result{Text: text, Degraded: true}
	}
	if strings.TrimSpace(translated) == "" {
		return Result{Text: text, Degraded: true}
	}
	return Result{Text: translated}
}

func sameLanguage(a, b string) bool {
	return a == "" || b == "" || strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// LLMTranslator translates through the language-understanding collaborator.
type LLMTranslator struct {
	client llm.Client
}

// NewLLMTranslator wraps an LLM client as a Translator.
func NewLLMTranslator(client llm.Client) *LLMTranslator {
	return &LLMTranslator{client: client}
}

func (t *LLMTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	resp, err := t.client.Complete(ctx, llm.Request{
		Task: llm.TaskTranslate,
		Text: text,
		Context: map[string]string{
			"source_language": sourceLang,
			"target_language": targetLang,
		},
	})
	if err != nil {
		return "", fmt.Errorf("translation request: %w", err)
	}
	return resp.Text, nil
}
