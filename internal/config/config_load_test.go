package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Helper function to reset pflag.CommandLine for testing
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

// Helper function to clear environment variables
func clearEnvVars() {
	os.Unsetenv("FILLAI_MODE")
	os.Unsetenv("FILLAI_DIR")
	os.Unsetenv("FILLAI_OVERRIDEDIR")
	os.Unsetenv("FILLAI_OUTPUTDIR")
	os.Unsetenv("FILLAI_LANGUAGE")
	os.Unsetenv("FILLAI_TIMEOUT")
	os.Unsetenv("FILLAI_RETRIES")
	os.Unsetenv("FILLAI_LOGLEVEL")
	os.Unsetenv("FILLAI_MAXFILESIZE")
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	resetFlags()
	clearEnvVars()
	os.Args = []string{"fillai"}

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() failed: %v", err)
	}

	if cfg.Mode != ModeStdio {
		t.Errorf("Expected stdio mode, got '%s'", cfg.Mode)
	}
	if cfg.CanonicalLanguage != "English" {
		t.Errorf("Expected English, got '%s'", cfg.CanonicalLanguage)
	}
}

func TestLoadFromFlags_CustomFlags(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	resetFlags()
	clearEnvVars()
	dir := t.TempDir()
	os.Args = []string{
		"fillai",
		"--mode=interview",
		"--dir=" + dir,
		"--language=Spanish",
		"--timeout=30s",
		"--retries=5",
		"--loglevel=debug",
	}

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() failed: %v", err)
	}

	if cfg.Mode != ModeInterview {
		t.Errorf("Expected interview mode, got '%s'", cfg.Mode)
	}
	if cfg.FormDirectory != dir {
		t.Errorf("Expected form directory '%s', got '%s'", dir, cfg.FormDirectory)
	}
	if cfg.CanonicalLanguage != "Spanish" {
		t.Errorf("Expected Spanish, got '%s'", cfg.CanonicalLanguage)
	}
	if cfg.AnswerTimeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %s", cfg.AnswerTimeout)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("Expected 5 retries, got %d", cfg.MaxRetries)
	}
	if !cfg.IsDebug() {
		t.Error("Expected debug logging")
	}
}

func TestLoadFromFlags_InvalidMode(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	resetFlags()
	clearEnvVars()
	os.Args = []string{"fillai", "--mode=broken"}

	if _, err := LoadFromFlags(); err == nil {
		t.Error("Expected an error for an invalid mode")
	}
}

func TestLoadFromFlags_Environment(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	resetFlags()
	clearEnvVars()
	os.Args = []string{"fillai"}
	os.Setenv("FILLAI_LANGUAGE", "French")
	os.Setenv("FILLAI_RETRIES", "7")

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() failed: %v", err)
	}

	if cfg.CanonicalLanguage != "French" {
		t.Errorf("Expected French from environment, got '%s'", cfg.CanonicalLanguage)
	}
	if cfg.MaxRetries != 7 {
		t.Errorf("Expected 7 retries from environment, got %d", cfg.MaxRetries)
	}
}
