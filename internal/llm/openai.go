package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// System prompts per task. Kept as constants so prompt tweaks show up in
// review instead of hiding in call sites.
const (
	promptFieldHints = `You are given the raw text of a form. List the fillable fields you can
identify. Reply with a JSON array only, each element like
{"label": "...", "kind": "text|date|checkbox|signature|other", "required": true}.`

	promptPhrase = `You help people fill out forms. Rephrase the given field label as one short,
friendly question. Reply with the question only.`

	promptNormalize = `Normalize the given answer for writing onto a form. Fix obvious formatting
(dates, capitalization) without changing meaning. Reply with the value only.`

	promptTranslate = `Translate the given text from %s to %s. Reply with the translation only.`
)

// OpenAIClient talks to an OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIClient creates a client. baseURL should include the version
// path, e.g. "https://api.openai.com/v1".
func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	system, err := c.systemPrompt(req)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: req.Text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	defer httpResp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding completion response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("completion failed: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	resp := &Response{Text: text}
	if req.Task == TaskFieldHints {
		resp.Fields = parseFieldHints(text)
	}
	return resp, nil
}

func (c *OpenAIClient) systemPrompt(req Request) (string, error) {
	switch req.Task {
	case TaskFieldHints:
		return promptFieldHints, nil
	case TaskPhrasePrompt:
		return promptPhrase, nil
	case TaskNormalize:
		return promptNormalize, nil
	case TaskTranslate:
		return fmt.Sprintf(promptTranslate, req.Context["source_language"], req.Context["target_language"]), nil
	default:
		return "", fmt.Errorf("unknown task %q", req.Task)
	}
}

// parseFieldHints pulls the JSON array out of a reply, tolerating code
// fences and surrounding prose. A reply that doesn't parse means no hints.
func parseFieldHints(text string) []FieldHint {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil
	}
	var hints []FieldHint
	if err := json.Unmarshal([]byte(text[start:end+1]), &hints); err != nil {
		return nil
	}
	return hints
}
