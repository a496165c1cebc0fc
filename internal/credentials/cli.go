package credentials

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"suitedash/internal/config"
	"suitedash/internal/utils"
)

// CLIHandler handles CLI commands for credential management
type CLIHandler struct {
	manager *Manager
	stdin   io.Reader
	stdout  io.Writer
	term    TerminalReader
}

// NewCLIHandler creates a new CLI handler for credential commands.
// term may be nil, in which case the secret is read as a plain line from stdin.
func NewCLIHandler(manager *Manager, stdin io.Reader, stdout io.Writer, term TerminalReader) *CLIHandler {
	if stdin != nil {
		stdin = bufio.NewReader(stdin)
	}
	return &CLIHandler{
		manager: manager,
		stdin:   stdin,
		stdout:  stdout,
		term:    term,
	}
}

// Set stores the key pair in the keyring. When prompt is true the secret key
// is read interactively; publicID is prompted for if empty.
func (h *CLIHandler) Set(ctx context.Context, publicID string, prompt bool) error {
	if !prompt {
		return fmt.Errorf("--prompt flag is required for secure secret input")
	}

	var err error
	if publicID == "" {
		publicID, err = PromptLine(h.stdin, h.stdout, "Public ID")
		if err != nil {
			return fmt.Errorf("failed to read public ID: %w", err)
		}
	}
	secret, err := PromptSecret(h.stdin, h.stdout, publicID, h.term)
	if err != nil {
		return fmt.Errorf("failed to read secret key: %w", err)
	}

	if err := h.manager.Set(ctx, publicID, secret); err != nil {
		if errors.Is(err, ErrKeyringNotAvailable) {
			return keyringNotAvailableError(err)
		}
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	_, _ = fmt.Fprintf(h.stdout, "Credentials stored in system keyring\n")
	return nil
}

func keyringNotAvailableError(err error) error {
	return utils.WrapWithSuggestion(err, fmt.Sprintf(
		"Set the %s and %s environment variables instead, or add them to a .env file",
		config.EnvPublicID, config.EnvSecretKey))
}

// Get displays where each half of the key pair resolves from.
func (h *CLIHandler) Get(ctx context.Context, configPublicID string, jsonOutput bool) error {
	info, err := h.manager.Get(ctx, configPublicID)
	if err != nil {
		return fmt.Errorf("failed to get credentials: %w", err)
	}

	if jsonOutput {
		b, err := info.JSON()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(h.stdout, string(b))
		return nil
	}

	if !info.Found {
		_, _ = fmt.Fprintf(h.stdout, "No complete SuiteDash credentials found\n")
		_, _ = fmt.Fprintf(h.stdout, "  Public ID:  %s\n", describe(info.PublicID != "", info.PublicIDSource))
		_, _ = fmt.Fprintf(h.stdout, "  Secret key: %s\n", describe(info.SecretKey != "", info.SecretSource))
		_, _ = fmt.Fprintf(h.stdout, "\nSuggestion: Run 'suitedash credentials set --prompt'\n")
		return nil
	}

	_, _ = fmt.Fprintf(h.stdout, "Public ID: %s (%s)\n", info.PublicID, info.PublicIDSource)
	_, _ = fmt.Fprintf(h.stdout, "Secret key: ******** (%s)\n", info.SecretSource)
	_, _ = fmt.Fprintf(h.stdout, "Status: Available\n")
	return nil
}

func describe(found bool, src Source) string {
	if !found {
		return "not found"
	}
	return "found in " + string(src)
}

// Delete removes the key pair from the keyring
func (h *CLIHandler) Delete(ctx context.Context) error {
	if err := h.manager.Delete(ctx); err != nil {
		if errors.Is(err, ErrKeyringNotAvailable) {
			return keyringNotAvailableError(err)
		}
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	_, _ = fmt.Fprintf(h.stdout, "Credentials removed from system keyring\n")
	return nil
}
