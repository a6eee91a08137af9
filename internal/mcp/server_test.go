package mcp

import (
	"strings"
	"testing"
	"time"

	"github.com/Youdahe123/fill.ai-hop-hacks/internal/config"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/conversation"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/fillai"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/override"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/schema"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.FormDirectory = t.TempDir()
	cfg.OverrideDirectory = t.TempDir()
	cfg.OutputDirectory = t.TempDir()
	return cfg
}

func testFormService(t *testing.T, cfg *config.Config) *fillai.Service {
	t.Helper()
	store, err := override.NewStore(cfg.OverrideDirectory)
	if err != nil {
		t.Fatalf("failed to open override store: %v", err)
	}
	engine := conversation.NewEngine(conversation.Options{
		AnswerTimeout: 5 * time.Second,
	}, nil, nil)
	return fillai.NewService(nil, store, engine, nil)
}

func TestNewServer(t *testing.T) {
	cfg := testConfig(t)
	svc := testFormService(t, cfg)

	server, err := NewServer(cfg, svc)
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	if server == nil {
		t.Fatal("expected a server")
	}
	if server.mcpServer == nil {
		t.Error("expected the underlying MCP server to be created")
	}
}

func TestNewServerRequiresService(t *testing.T) {
	cfg := testConfig(t)

	if _, err := NewServer(cfg, nil); err == nil {
		t.Error("expected an error for a nil service")
	}
}

func TestFormatState(t *testing.T) {
	cfg := testConfig(t)
	svc := testFormService(t, cfg)
	server, err := NewServer(cfg, svc)
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}

	state := conversation.State{
		SessionID:      "abc",
		Status:         conversation.StatusAwaitingAnswer,
		Language:       "Spanish",
		CurrentFieldID: "full_name",
		Answers:        map[string]string{"email": "a@b.com"},
		Skipped:        []string{"nickname"},
		Progress:       conversation.Progress{Asked: 1, Total: 3},
	}

	text := server.formatState(state)
	for _, want := range []string{
		"Status: awaiting_answer",
		"Language: Spanish",
		"Current field: full_name",
		"Progress: 1 of 3",
		"Skipped: nickname",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("formatState() missing %q in:\n%s", want, text)
		}
	}
}

func TestFormatExtractSchemaResult(t *testing.T) {
	cfg := testConfig(t)
	svc := testFormService(t, cfg)
	server, err := NewServer(cfg, svc)
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}

	result := &fillai.ExtractSchemaResult{
		Hash:            "deadbeef",
		Filename:        "w4.pdf",
		PageCount:       2,
		OverrideApplied: true,
		Schema: schema.FieldSchema{Fields: []schema.FieldDefinition{
			{ID: "full_name", Label: "Full Name", Kind: schema.KindText, Required: true},
			{ID: "agree", Label: "I agree", Kind: schema.KindCheckbox},
		}},
		Positions: schema.FieldPositions{
			"full_name": {FieldID: "full_name", Page: 0, Point: schema.Coordinate{X: 0.25, Y: 0.5}},
		},
		Prefilled: map[string]string{"full_name": "Jordan"},
	}

	text := server.formatExtractSchemaResult(result)
	for _, want := range []string{
		"Form: w4.pdf",
		"Hash: deadbeef",
		"override record was applied",
		"Full Name (text) [required] page 1 at (0.250, 0.500)",
		`= "Jordan"`,
		"I agree (checkbox)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("formatExtractSchemaResult() missing %q in:\n%s", want, text)
		}
	}
}

func TestFormatPrompts(t *testing.T) {
	cfg := testConfig(t)
	svc := testFormService(t, cfg)
	server, err := NewServer(cfg, svc)
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}

	if got := server.formatPrompts(nil); got != "" {
		t.Errorf("expected empty output for no prompts, got %q", got)
	}
	got := server.formatPrompts([]string{"Question 1 of 2: What is your full name?"})
	if !strings.Contains(got, "What is your full name?") {
		t.Errorf("formatPrompts() missing prompt text in %q", got)
	}
}
