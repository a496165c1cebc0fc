// Package testutil provides shared test utilities for CLI testing across packages.
// This enables co-located CLI tests while maintaining consistent test infrastructure.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"suitedash/cmd/suitedash/cmd"
	"suitedash/internal/credentials"
	"suitedash/internal/testutil/fakeapi"
)

// defaultTestConfig is the minimal config used by test constructors to ensure isolation.
const defaultTestConfig = "# test config\napi:\n  timeout: 5s\n"

// CLITest provides a test helper for running CLI commands in isolation
// against a fake API.
type CLITest struct {
	t          *testing.T
	cfg        *cmd.Config
	api        *fakeapi.Server
	keyring    *credentials.MockKeyring
	tmpDir     string
	configPath string
}

// NewCLITest creates a new CLI test helper with its own fake API, cache
// database, config file and in-memory keyring. Credentials are injected.
func NewCLITest(t *testing.T) *CLITest {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(defaultTestConfig), 0644); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}

	api := fakeapi.New()
	t.Cleanup(api.Close)

	kr := credentials.NewMockKeyring()
	cfg := &cmd.Config{
		ConfigPath: configPath,
		DBPath:     filepath.Join(tmpDir, "cache.db"),
		BaseURL:    api.URL,
		PublicID:   fakeapi.PublicID,
		SecretKey:  fakeapi.SecretKey,
		Keyring:    kr,
		Stdin:      strings.NewReader(""),
	}

	return &CLITest{
		t:          t,
		cfg:        cfg,
		api:        api,
		keyring:    kr,
		tmpDir:     tmpDir,
		configPath: configPath,
	}
}

// NewCLITestWithoutCredentials is like NewCLITest but credentials must be
// resolved from the keyring, environment or config file.
func NewCLITestWithoutCredentials(t *testing.T) *CLITest {
	t.Helper()
	c := NewCLITest(t)
	c.cfg.PublicID = ""
	c.cfg.SecretKey = ""
	return c
}

// Config returns the test configuration.
func (c *CLITest) Config() *cmd.Config {
	return c.cfg
}

// API returns the fake upstream API.
func (c *CLITest) API() *fakeapi.Server {
	return c.api
}

// Keyring returns the in-memory keyring.
func (c *CLITest) Keyring() *credentials.MockKeyring {
	return c.keyring
}

// TmpDir returns the temporary directory for the test.
func (c *CLITest) TmpDir() string {
	return c.tmpDir
}

// ConfigPath returns the path to the config file.
func (c *CLITest) ConfigPath() string {
	return c.configPath
}

// SetFullConfig replaces the entire config file with the given YAML content.
func (c *CLITest) SetFullConfig(yamlContent string) {
	c.t.Helper()
	if err := os.WriteFile(c.configPath, []byte(yamlContent), 0644); err != nil {
		c.t.Fatalf("failed to write config file: %v", err)
	}
}

// SetStdin sets the input read by interactive prompts.
func (c *CLITest) SetStdin(input string) {
	c.cfg.Stdin = strings.NewReader(input)
}

// Execute runs a CLI command with the given arguments and returns stdout, stderr, and exit code.
func (c *CLITest) Execute(args ...string) (stdout, stderr string, exitCode int) {
	c.t.Helper()

	var stdoutBuf, stderrBuf bytes.Buffer
	exitCode = cmd.Execute(args, &stdoutBuf, &stderrBuf, c.cfg)
	return stdoutBuf.String(), stderrBuf.String(), exitCode
}

// MustExecute runs a CLI command and fails the test if exit code is non-zero.
func (c *CLITest) MustExecute(args ...string) string {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode != 0 {
		c.t.Fatalf("expected exit code 0, got %d: stdout=%s stderr=%s", exitCode, stdout, stderr)
	}
	return stdout
}

// ExecuteAndFail runs a CLI command and fails the test if exit code is zero.
func (c *CLITest) ExecuteAndFail(args ...string) (stdout, stderr string) {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode == 0 {
		c.t.Fatalf("expected non-zero exit code, got 0: stdout=%s", stdout)
	}
	return stdout, stderr
}

// AssertContains fails the test if output doesn't contain expected string.
func AssertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// AssertNotContains fails the test if output contains unexpected string.
func AssertNotContains(t *testing.T, output, unexpected string) {
	t.Helper()
	if strings.Contains(output, unexpected) {
		t.Errorf("expected output NOT to contain %q, got:\n%s", unexpected, output)
	}
}

// AssertExitCode fails the test if exit code doesn't match expected.
func AssertExitCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("expected exit code %d, got %d", want, got)
	}
}
