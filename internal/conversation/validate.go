package conversation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Youdahe123/fill.ai-hop-hacks/internal/schema"
)

// validateAnswer checks an answer against a field's kind and validation
// hint. Answers arrive already translated to the canonical language.
func validateAnswer(def schema.FieldDefinition, answer string) error {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return fmt.Errorf("answer for %q is empty", def.Label)
	}

	switch def.ValidationHint {
	case "email":
		if !strings.Contains(trimmed, "@") || !strings.Contains(trimmed, ".") {
			return fmt.Errorf("%q does not look like an email address", trimmed)
		}
		return nil
	case "phone":
		if !containsDigit(trimmed) {
			return fmt.Errorf("%q does not look like a phone number", trimmed)
		}
		return nil
	}

	switch def.Kind {
	case schema.KindDate:
		if !containsDigit(trimmed) {
			return fmt.Errorf("%q does not look like a date", trimmed)
		}
	case schema.KindCheckbox:
		if _, ok := ParseCheckbox(trimmed); !ok {
			return fmt.Errorf("%q is not a yes or no answer", trimmed)
		}
	}
	return nil
}

// ParseCheckbox maps the common yes/no spellings onto a boolean.
func ParseCheckbox(answer string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y", "true", "check", "checked", "x", "1":
		return true, true
	case "no", "n", "false", "uncheck", "unchecked", "0":
		return false, true
	}
	return false, false
}

// isAffirmative reports whether a confirmation reply accepts the answer.
func isAffirmative(reply string) bool {
	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "yes", "y", "ok", "okay", "correct", "right", "confirm", "sure":
		return true
	}
	return false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
