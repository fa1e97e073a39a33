package support

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// isolatedEnv lists the variables a scenario must not inherit from the
// developer's shell.
var isolatedEnv = []string{
	"TAROT_DECKS_DIR", "TAROT_DECK", "TAROT_LOG_LEVEL", "TAROT_VERBOSE",
	"TAROT_OUTPUT_FORMAT", "TAROT_OUTPUT_TARGET_HEIGHT", "TAROT_OUTPUT_DEBUG",
	"TAROT_METRICS_TEXTFILE", "TAROT_SCAN_DEVICE", "TAROT_SCAN_DPI", "SANE_DEVICE",
}

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastOutput    string
	LastStderr    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment
	TempDir  string
	DecksDir string

	savedEnv map[string]*string
}

// NewTestContext creates a scenario context with its own temporary
// directory, used as HOME, config home and decks directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "tarot-scan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	ctx := &TestContext{
		TempDir:  tempDir,
		DecksDir: filepath.Join(tempDir, "decks"),
		savedEnv: make(map[string]*string),
	}
	for _, key := range isolatedEnv {
		if err := ctx.SetEnv(key, ""); err != nil {
			return nil, err
		}
	}
	if err := ctx.SetEnv("HOME", tempDir); err != nil {
		return nil, err
	}
	if err := ctx.SetEnv("XDG_CONFIG_HOME", filepath.Join(tempDir, ".config")); err != nil {
		return nil, err
	}
	return ctx, nil
}

// SetEnv sets (or, with an empty value, unsets) a process environment
// variable until Cleanup. Commands run in-process, so they see it directly.
func (testCtx *TestContext) SetEnv(name, value string) error {
	if _, saved := testCtx.savedEnv[name]; !saved {
		if old, ok := os.LookupEnv(name); ok {
			testCtx.savedEnv[name] = &old
		} else {
			testCtx.savedEnv[name] = nil
		}
	}
	if value == "" {
		return os.Unsetenv(name)
	}
	return os.Setenv(name, value)
}

// Cleanup restores the environment and removes the temporary directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	for name, old := range testCtx.savedEnv {
		var err error
		if old == nil {
			err = os.Unsetenv(name)
		} else {
			err = os.Setenv(name, *old)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", name, err))
		}
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	return errors.Join(errs...)
}

// Path resolves a scenario-relative path inside the temporary directory.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, filepath.FromSlash(name))
}

// DeckDir returns the directory of the named deck.
func (testCtx *TestContext) DeckDir(deck string) string {
	return filepath.Join(testCtx.DecksDir, deck)
}

// substituteCommandVariables expands {tmp} and {decks} in a command line.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	return strings.NewReplacer(
		"{tmp}", testCtx.TempDir,
		"{decks}", testCtx.DecksDir,
	).Replace(command)
}
