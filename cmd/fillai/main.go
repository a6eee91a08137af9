package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Youdahe123/fill.ai-hop-hacks/internal/config"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/conversation"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/docai"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/fillai"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/llm"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/mcp"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/override"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/translate"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// defaultLanguages are the languages offered at the start of an interview.
func defaultLanguages() []conversation.Language {
	return []conversation.Language{
		{Name: "English", Aliases: []string{"en", "eng"}},
		{Name: "Spanish", Aliases: []string{"es", "español", "espanol"}},
		{Name: "French", Aliases: []string{"fr", "français", "francais"}},
		{Name: "Amharic", Aliases: []string{"am", "amh", "አማርኛ"}},
	}
}

// setupLogging configures logging based on the run mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// In stdio mode, redirect log output to stderr to avoid interfering with MCP protocol
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(os.NewFile(0, os.DevNull))
		}
	} else {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// runStdioMode handles MCP tool server execution
func runStdioMode(ctx context.Context, server *mcp.Server) {
	// In stdio mode, the parent process controls our lifecycle
	if err := server.Run(ctx); err != nil {
		if os.Getenv("DEBUG") != "" {
			log.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}
}

// runInterviewMode runs a full interview over the form given as the first
// positional argument, talking through the terminal.
func runInterviewMode(ctx context.Context, svc *fillai.Service, engine *conversation.Engine) error {
	formPath := pflag.Arg(0)
	if formPath == "" {
		return fmt.Errorf("interview mode needs a form file argument")
	}

	extracted, err := svc.ExtractSchema(ctx, fillai.ExtractSchemaRequest{Path: formPath})
	if err != nil {
		return err
	}
	if len(extracted.Schema.Fields) == 0 {
		return fmt.Errorf("no fillable fields found in %s", extracted.Filename)
	}

	sessionID, err := engine.StartSession(conversation.StartRequest{
		Schema:    extracted.Schema,
		Prefilled: extracted.Prefilled,
		Channel:   NewTerminalChannel(),
	})
	if err != nil {
		return err
	}

	done, err := engine.Done(sessionID)
	if err != nil {
		return err
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	select {
	case <-done:
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		if err := engine.Abort(sessionID); err != nil {
			return err
		}
	}

	state, err := engine.GetState(sessionID)
	if err != nil {
		return err
	}
	if state.Status == conversation.StatusFailed {
		return fmt.Errorf("interview did not complete: %s", state.FailureReason)
	}
	return nil
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && cfg.IsInterviewMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	store, err := override.NewStore(cfg.OverrideDirectory)
	if err != nil {
		log.Fatalf("Failed to open override store: %v", err)
	}

	var llmClient llm.Client
	var translator translate.Translator
	if cfg.LLMAPIKey != "" {
		client := llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
		llmClient = client
		translator = translate.NewLLMTranslator(client)
	}

	engine := conversation.NewEngine(conversation.Options{
		AnswerTimeout:     cfg.AnswerTimeout,
		MaxRetries:        cfg.MaxRetries,
		CanonicalLanguage: cfg.CanonicalLanguage,
		Languages:         defaultLanguages(),
	}, llmClient, translator)

	analyzer := docai.NewPDFAnalyzer(cfg.MaxFileSize)
	formService := fillai.NewService(analyzer, store, engine, llmClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsInterviewMode() {
		if err := runInterviewMode(ctx, formService, engine); err != nil {
			log.Fatalf("Interview failed: %v", err)
		}
		return
	}

	server, err := mcp.NewServer(cfg, formService)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	runStdioMode(ctx, server)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("fillai form assistant\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
