package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio     = "stdio"
	ModeInterview = "interview"

	// Default values
	DefaultLogLevel          = "info"
	DefaultMaxFileSize       = 50 * 1024 * 1024 // 50MB
	DefaultAnswerTimeout     = 60 * time.Second
	DefaultMaxRetries        = 3
	DefaultCanonicalLanguage = "English"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the form assistant
type Config struct {
	// Mode selects how the assistant talks to the user: "stdio" runs the
	// MCP tool server, "interview" runs the terminal dialogue directly.
	Mode string

	// Form configuration
	FormDirectory     string
	OverrideDirectory string
	OutputDirectory   string

	// Conversation configuration
	CanonicalLanguage string
	AnswerTimeout     time.Duration
	MaxRetries        int

	// LLM configuration. An empty API key disables the language
	// collaborator and the assistant falls back to templates.
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum form file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:              ModeStdio, // Default to stdio mode for MCP compatibility
		FormDirectory:     currentDir,
		OverrideDirectory: filepath.Join(currentDir, "overrides"),
		OutputDirectory:   currentDir,
		CanonicalLanguage: DefaultCanonicalLanguage,
		AnswerTimeout:     DefaultAnswerTimeout,
		MaxRetries:        DefaultMaxRetries,
		LLMBaseURL:        "https://api.openai.com/v1",
		LLMModel:          "gpt-4o-mini",
		Version:           "1.0.0",
		ServerName:        "fillai",
		LogLevel:          DefaultLogLevel,
		MaxFileSize:       DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	for _, dir := range []*string{&cfg.FormDirectory, &cfg.OverrideDirectory, &cfg.OutputDirectory} {
		if *dir != "" {
			if expandedPath, err := filepath.Abs(*dir); err == nil {
				*dir = expandedPath
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("FILLAI")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("dir", cfg.FormDirectory)
	viper.SetDefault("overridedir", cfg.OverrideDirectory)
	viper.SetDefault("outputdir", cfg.OutputDirectory)
	viper.SetDefault("language", cfg.CanonicalLanguage)
	viper.SetDefault("timeout", cfg.AnswerTimeout)
	viper.SetDefault("retries", cfg.MaxRetries)
	viper.SetDefault("llmbaseurl", cfg.LLMBaseURL)
	viper.SetDefault("llmapikey", cfg.LLMAPIKey)
	viper.SetDefault("llmmodel", cfg.LLMModel)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' for the MCP tool server, 'interview' for a terminal interview")
	pflag.String("dir", cfg.FormDirectory, "Directory containing form files")
	pflag.String("overridedir", cfg.OverrideDirectory, "Directory holding override records for known forms")
	pflag.String("outputdir", cfg.OutputDirectory, "Directory filled form images are written to")
	pflag.String("language", cfg.CanonicalLanguage, "Language answers are stored in")
	pflag.Duration("timeout", cfg.AnswerTimeout, "How long to wait for each answer")
	pflag.Int("retries", cfg.MaxRetries, "How many times a question is re-asked before giving up")
	pflag.String("llmbaseurl", cfg.LLMBaseURL, "Base URL of an OpenAI-compatible completion endpoint")
	pflag.String("llmapikey", cfg.LLMAPIKey, "API key for the completion endpoint (empty disables the LLM)")
	pflag.String("llmmodel", cfg.LLMModel, "Model name for the completion endpoint")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum form file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("dir", pflag.Lookup("dir"))
	_ = viper.BindPFlag("overridedir", pflag.Lookup("overridedir"))
	_ = viper.BindPFlag("outputdir", pflag.Lookup("outputdir"))
	_ = viper.BindPFlag("language", pflag.Lookup("language"))
	_ = viper.BindPFlag("timeout", pflag.Lookup("timeout"))
	_ = viper.BindPFlag("retries", pflag.Lookup("retries"))
	_ = viper.BindPFlag("llmbaseurl", pflag.Lookup("llmbaseurl"))
	_ = viper.BindPFlag("llmapikey", pflag.Lookup("llmapikey"))
	_ = viper.BindPFlag("llmmodel", pflag.Lookup("llmmodel"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nfillai - A conversational assistant for understanding and filling out forms\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/forms                    "+
			"# stdio mode with custom form directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=interview --dir=/path/to/forms   # interactive terminal interview\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FILLAI_MODE         Run mode\n")
		fmt.Fprintf(os.Stderr, "  FILLAI_DIR          Form directory\n")
		fmt.Fprintf(os.Stderr, "  FILLAI_OVERRIDEDIR  Override record directory\n")
		fmt.Fprintf(os.Stderr, "  FILLAI_OUTPUTDIR    Output directory\n")
		fmt.Fprintf(os.Stderr, "  FILLAI_LANGUAGE     Canonical answer language\n")
		fmt.Fprintf(os.Stderr, "  FILLAI_TIMEOUT      Answer timeout\n")
		fmt.Fprintf(os.Stderr, "  FILLAI_RETRIES      Retry budget per question\n")
		fmt.Fprintf(os.Stderr, "  FILLAI_LLMAPIKEY    Completion endpoint API key\n")
		fmt.Fprintf(os.Stderr, "  FILLAI_LOGLEVEL     Log level\n")
		fmt.Fprintf(os.Stderr, "  FILLAI_MAXFILESIZE  Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.FormDirectory = viper.GetString("dir")
	cfg.OverrideDirectory = viper.GetString("overridedir")
	cfg.OutputDirectory = viper.GetString("outputdir")
	cfg.CanonicalLanguage = viper.GetString("language")
	cfg.AnswerTimeout = viper.GetDuration("timeout")
	cfg.MaxRetries = viper.GetInt("retries")
	cfg.LLMBaseURL = viper.GetString("llmbaseurl")
	cfg.LLMAPIKey = viper.GetString("llmapikey")
	cfg.LLMModel = viper.GetString("llmmodel")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeInterview {
		return errors.New("mode must be either 'stdio' or 'interview'")
	}

	if c.FormDirectory == "" {
		return errors.New("form directory cannot be empty")
	}
	if _, err := os.Stat(c.FormDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.FormDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create form directory %s: %w", c.FormDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access form directory %s: %w", c.FormDirectory, err)
	}

	if c.OverrideDirectory == "" {
		return errors.New("override directory cannot be empty")
	}
	if c.OutputDirectory == "" {
		return errors.New("output directory cannot be empty")
	}

	if c.CanonicalLanguage == "" {
		return errors.New("canonical language cannot be empty")
	}
	if c.AnswerTimeout <= 0 {
		return errors.New("answer timeout must be positive")
	}
	if c.MaxRetries <= 0 {
		return errors.New("retry budget must be positive")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, FormDirectory: %s, OverrideDirectory: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.FormDirectory, c.OverrideDirectory, c.LogLevel, c.MaxFileSize)
}

// IsInterviewMode returns true if the assistant runs a terminal interview
func (c *Config) IsInterviewMode() bool {
	return c.Mode == ModeInterview
}

// IsStdioMode returns true if the assistant runs the MCP tool server
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
