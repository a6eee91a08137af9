package translate

import (
	"context"
	"errors"
	"testing"
)

type stubTranslator struct {
	out string
	err error
}

func (s stubTranslator) Translate(_ context.Context, _, _, _ string) (string, error) {
	return s.out, s.err
}

func TestApplySameLanguagePassesThrough(t *testing.T) {
	res := Apply(context.Background(), stubTranslator{out: "should not be used"}, "hello", "English", "English")
	if res.Text != "hello" || res.Degraded {
		t.Errorf("expected untouched passthrough, got %+v", res)
	}

	res = Apply(context.Background(), nil, "hello", "", "Spanish")
	if res.Text != "hello" || res.Degraded {
		t.Errorf("empty source language should pass through, got %+v", res)
	}
}

func TestApplyWithoutTranslatorDegrades(t *testing.T) {
	res := Apply(context.Background(), nil, "hello", "English", "Spanish")
	if res.Text != "hello" {
		t.Errorf("expected original text, got %q", res.Text)
	}
	if !res.Degraded {
		t.Error("expected degraded passthrough without a translator")
	}
}

func TestApplyTranslates(t *testing.T) {
	res := Apply(context.Background(), stubTranslator{out: "hola"}, "hello", "English", "Spanish")
	if res.Text != "hola" || res.Degraded {
		t.Errorf("expected translation, got %+v", res)
	}
}

func TestApplyFailureFallsBackToOriginal(t *testing.T) {
	res := Apply(context.Background(), stubTranslator{err: errors.New("unavailable")}, "hello", "English", "Spanish")
	if res.Text != "hello" || !res.Degraded {
		t.Errorf("expected degraded original, got %+v", res)
	}

	res = Apply(context.Background(), stubTranslator{out: "   "}, "hello", "English", "Spanish")
	if res.Text != "hello" || !res.Degraded {
		t.Errorf("blank translation should fall back, got %+v", res)
	}
}

func TestApplyEmptyText(t *testing.T) {
	res := Apply(context.Background(), stubTranslator{out: "x"}, "", "English", "Spanish")
	if res.Text != "" || res.Degraded {
		t.Errorf("empty text should pass through untouched, got %+v", res)
	}
}
