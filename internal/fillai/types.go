package fillai

import (
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/conversation"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/override"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/schema"
)

// ExtractSchemaRequest asks for the fillable structure of a form file.
type ExtractSchemaRequest struct {
	Path string `json:"path"`
}

// ExtractSchemaResult is the extracted structure after any stored override
// has been layered on.
type ExtractSchemaResult struct {
	Hash            string                `json:"hash"`
	Filename        string                `json:"filename"`
	PageCount       int                   `json:"page_count"`
	Schema          schema.FieldSchema    `json:"schema"`
	Positions       schema.FieldPositions `json:"positions"`
	Prefilled       map[string]string     `json:"prefilled,omitempty"`
	OverrideApplied bool                  `json:"override_applied"`
}

// LoadOverrideRequest looks up the stored record for a form file.
type LoadOverrideRequest struct {
	Path string `json:"path"`
}

// LoadOverrideResult reports whether a record matched and returns it.
type LoadOverrideResult struct {
	Found  bool             `json:"found"`
	Record *override.Record `json:"record,omitempty"`
}

// SaveOverrideRequest stores a curated record for a form file.
type SaveOverrideRequest struct {
	Record override.Record `json:"record"`
}

// SaveOverrideResult acknowledges a stored record.
type SaveOverrideResult struct {
	Hash string `json:"hash"`
}

// StartConversationRequest begins an interview over a form file.
type StartConversationRequest struct {
	Path string `json:"path"`
	// Language pins the interview language; empty lets the user choose.
	Language string `json:"language,omitempty"`
}

// StartConversationResult returns the new session and its opening prompts.
type StartConversationResult struct {
	SessionID string             `json:"session_id"`
	State     conversation.State `json:"state"`
	Prompts   []string           `json:"prompts,omitempty"`
}

// SubmitAnswerRequest delivers one reply to a waiting session.
type SubmitAnswerRequest struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// SubmitAnswerResult returns the session state after the reply was
// processed, plus whatever the engine said next.
type SubmitAnswerResult struct {
	State   conversation.State `json:"state"`
	Prompts []string           `json:"prompts,omitempty"`
}

// GetStateRequest fetches a session snapshot.
type GetStateRequest struct {
	SessionID string `json:"session_id"`
}

// GetStateResult is the snapshot plus any prompts sent since last asked.
type GetStateResult struct {
	State   conversation.State `json:"state"`
	Prompts []string           `json:"prompts,omitempty"`
}

// AbortSessionRequest cancels a running session.
type AbortSessionRequest struct {
	SessionID string `json:"session_id"`
}

// AbortSessionResult is the terminal state after cancellation.
type AbortSessionResult struct {
	State conversation.State `json:"state"`
}

// RenderFilledImageRequest draws a completed session's answers onto page
// images of the form. PageImagePaths must be in page order.
type RenderFilledImageRequest struct {
	SessionID      string   `json:"session_id"`
	PageImagePaths []string `json:"page_image_paths"`
	OutputDir      string   `json:"output_dir,omitempty"`
}

// RenderFilledImageResult lists the written files and any fields that had
// no known position and were left off the page.
type RenderFilledImageResult struct {
	OutputPaths   []string `json:"output_paths"`
	PlacedFields  int      `json:"placed_fields"`
	DroppedFields []string `json:"dropped_fields,omitempty"`
}
