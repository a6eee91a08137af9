package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Youdahe123/fill.ai-hop-hacks/internal/config"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/conversation"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/fillai"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/override"
)

// Server represents the MCP server instance
type Server struct {
	config      *config.Config
	formService *fillai.Service
	mcpServer   *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, formService *fillai.Service) (*Server, error) {
	if formService == nil {
		return nil, fmt.Errorf("formService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:      cfg,
		formService: formService,
		mcpServer:   mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	extractSchemaTool := mcp.NewTool(
		"form_extract_schema",
		mcp.WithDescription("Extract the fillable fields and their page positions from a form file"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the form file (PDF or image)"),
		),
	)
	s.mcpServer.AddTool(extractSchemaTool, s.handleExtractSchema)

	loadOverrideTool := mcp.NewTool(
		"form_load_override",
		mcp.WithDescription("Look up the stored override record for a known form"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the form file"),
		),
	)
	s.mcpServer.AddTool(loadOverrideTool, s.handleLoadOverride)

	saveOverrideTool := mcp.NewTool(
		"form_save_override",
		mcp.WithDescription("Store a curated override record for a form"),
		mcp.WithString("record",
			mcp.Required(),
			mcp.Description("Override record as a JSON document"),
		),
	)
	s.mcpServer.AddTool(saveOverrideTool, s.handleSaveOverride)

	startConversationTool := mcp.NewTool(
		"form_start_conversation",
		mcp.WithDescription("Begin a question-and-answer session to fill out a form"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the form file"),
		),
		mcp.WithString("language",
			mcp.Description("Interview language (skips the language selection step)"),
		),
	)
	s.mcpServer.AddTool(startConversationTool, s.handleStartConversation)

	submitAnswerTool := mcp.NewTool(
		"form_submit_answer",
		mcp.WithDescription("Answer the question a session is currently asking"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier returned by form_start_conversation"),
		),
		mcp.WithString("answer",
			mcp.Required(),
			mcp.Description("The user's reply"),
		),
	)
	s.mcpServer.AddTool(submitAnswerTool, s.handleSubmitAnswer)

	getStateTool := mcp.NewTool(
		"form_get_state",
		mcp.WithDescription("Get the current state and pending prompts of a session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
	)
	s.mcpServer.AddTool(getStateTool, s.handleGetState)

	abortTool := mcp.NewTool(
		"form_abort",
		mcp.WithDescription("Cancel a running session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
	)
	s.mcpServer.AddTool(abortTool, s.handleAbort)

	renderTool := mcp.NewTool(
		"form_render",
		mcp.WithDescription("Draw a completed session's answers onto page images of the form"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier of a completed session"),
		),
		mcp.WithString("pages",
			mcp.Required(),
			mcp.Description("Comma-separated paths to the page images, in page order"),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory to write filled pages to (defaults to the first page's directory)"),
		),
	)
	s.mcpServer.AddTool(renderTool, s.handleRender)
}

// Handler functions
func (s *Server) handleExtractSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.formService.ExtractSchema(ctx, fillai.ExtractSchemaRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatExtractSchemaResult(result)), nil
}

func (s *Server) handleLoadOverride(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.formService.LoadOverride(ctx, fillai.LoadOverrideRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !result.Found {
		return mcp.NewToolResultText("No override record matched this form."), nil
	}
	data, err := json.MarshalIndent(result.Record, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleSaveOverride(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("record")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var rec override.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("record is not valid JSON: %v", err)), nil
	}

	result, err := s.formService.SaveOverride(ctx, fillai.SaveOverrideRequest{Record: rec})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stored override record for form %s", result.Hash)), nil
}

func (s *Server) handleStartConversation(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	language := ""
	if l, ok := args["language"].(string); ok {
		language = l
	}

	result, err := s.formService.StartConversation(ctx, fillai.StartConversationRequest{
		Path:     path,
		Language: language,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Session started: %s\n", result.SessionID)
	responseText += s.formatState(result.State)
	responseText += s.formatPrompts(result.Prompts)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleSubmitAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := request.RequireString("answer")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.formService.SubmitAnswer(ctx, fillai.SubmitAnswerRequest{
		SessionID: sessionID,
		Answer:    answer,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := s.formatState(result.State)
	responseText += s.formatPrompts(result.Prompts)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.formService.GetState(ctx, fillai.GetStateRequest{SessionID: sessionID})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := s.formatState(result.State)
	responseText += s.formatPrompts(result.Prompts)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleAbort(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.formService.AbortSession(ctx, fillai.AbortSessionRequest{SessionID: sessionID})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Session aborted.\n" + s.formatState(result.State)), nil
}

func (s *Server) handleRender(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pagesArg, err := request.RequireString("pages")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	outputDir := s.config.OutputDirectory
	if dir, ok := args["output_dir"].(string); ok && dir != "" {
		outputDir = dir
	}

	var pages []string
	for _, p := range strings.Split(pagesArg, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}

	result, err := s.formService.RenderFilledImage(ctx, fillai.RenderFilledImageRequest{
		SessionID:      sessionID,
		PageImagePaths: pages,
		OutputDir:      outputDir,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Rendered %d field(s) onto %d page(s)\n", result.PlacedFields, len(result.OutputPaths))
	for _, path := range result.OutputPaths {
		responseText += fmt.Sprintf("  %s\n", path)
	}
	if len(result.DroppedFields) > 0 {
		responseText += fmt.Sprintf("Fields without a known position were left off: %s\n",
			strings.Join(result.DroppedFields, ", "))
	}
	return mcp.NewToolResultText(responseText), nil
}

// Formatting methods
func (s *Server) formatExtractSchemaResult(result *fillai.ExtractSchemaResult) string {
	text := fmt.Sprintf("Form: %s\n", result.Filename)
	text += fmt.Sprintf("Hash: %s\n", result.Hash)
	text += fmt.Sprintf("Pages: %d\n", result.PageCount)
	if result.OverrideApplied {
		text += "A stored override record was applied.\n"
	}
	text += fmt.Sprintf("\nFields (%d):\n", len(result.Schema.Fields))

	for i, field := range result.Schema.Fields {
		text += fmt.Sprintf("%d. %s (%s)", i+1, field.Label, field.Kind)
		if field.Required {
			text += " [required]"
		}
		if pos, ok := result.Positions[field.ID]; ok {
			text += fmt.Sprintf(" page %d at (%.3f, %.3f)", pos.Page+1, pos.Point.X, pos.Point.Y)
		}
		if v, ok := result.Prefilled[field.ID]; ok {
			text += fmt.Sprintf(" = %q", v)
		}
		text += "\n"
	}

	return text
}

func (s *Server) formatState(state conversation.State) string {
	text := fmt.Sprintf("Status: %s\n", state.Status)
	if state.Language != "" {
		text += fmt.Sprintf("Language: %s", state.Language)
		if state.LanguageDegraded {
			text += " (fallback)"
		}
		text += "\n"
	}
	if state.CurrentFieldID != "" {
		text += fmt.Sprintf("Current field: %s\n", state.CurrentFieldID)
	}
	text += fmt.Sprintf("Progress: %d of %d questions\n", state.Progress.Asked, state.Progress.Total)
	if len(state.Answers) > 0 {
		text += fmt.Sprintf("Answers collected: %d\n", len(state.Answers))
	}
	if len(state.Skipped) > 0 {
		text += fmt.Sprintf("Skipped: %s\n", strings.Join(state.Skipped, ", "))
	}
	if state.FailureReason != "" {
		text += fmt.Sprintf("Failure: %s\n", state.FailureReason)
	}
	return text
}

func (s *Server) formatPrompts(prompts []string) string {
	if len(prompts) == 0 {
		return ""
	}
	text := "\nAssistant:\n"
	for _, p := range prompts {
		text += p + "\n"
	}
	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting form assistant MCP server in stdio mode")
		log.Printf("Form directory: %s", s.config.FormDirectory)
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
