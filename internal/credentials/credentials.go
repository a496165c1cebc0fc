// Package credentials stores and resolves the SuiteDash API key pair using
// the OS keyring, with fallback to environment variables and the config file.
package credentials

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"suitedash/internal/config"
)

// Source indicates where a credential was retrieved from
type Source string

const (
	SourceKeyring     Source = "keyring"
	SourceEnvironment Source = "environment"
	SourceConfig      Source = "config"
	SourceNone        Source = "none"
)

const (
	serviceName      = "suitedash"
	accountPublicID  = "public_id"
	accountSecretKey = "secret_key"
)

// ErrKeyringNotAvailable is returned when the OS keyring cannot be reached.
var ErrKeyringNotAvailable = errors.New("system keyring not available")

// ErrNotFound is returned by a Keyring when no secret is stored.
var ErrNotFound = errors.New("credential not found")

// CredentialInfo describes the resolved key pair.
type CredentialInfo struct {
	PublicID       string
	SecretKey      string
	PublicIDSource Source
	SecretSource   Source
	Found          bool
}

// JSON serializes the credential info to JSON. The secret key is never included.
func (c *CredentialInfo) JSON() ([]byte, error) {
	output := struct {
		PublicID       string `json:"public_id"`
		PublicIDSource string `json:"public_id_source"`
		SecretSource   string `json:"secret_key_source"`
		Found          bool   `json:"found"`
	}{
		PublicID:       c.PublicID,
		PublicIDSource: string(c.PublicIDSource),
		SecretSource:   string(c.SecretSource),
		Found:          c.Found,
	}
	return json.Marshal(output)
}

// Keyring is the interface for keyring operations
type Keyring interface {
	Set(service, account, secret string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
}

// Manager handles credential operations
type Manager struct {
	keyring Keyring
	getenv  func(string) string
}

// ManagerOption is a functional option for Manager
type ManagerOption func(*Manager)

// WithKeyring sets a custom keyring implementation
func WithKeyring(k Keyring) ManagerOption {
	return func(m *Manager) {
		m.keyring = k
	}
}

// WithEnv replaces os.Getenv for environment lookups.
func WithEnv(getenv func(string) string) ManagerOption {
	return func(m *Manager) {
		m.getenv = getenv
	}
}

// NewManager creates a new credential manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		keyring: &systemKeyring{},
		getenv:  os.Getenv,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Set stores the key pair in the keyring.
func (m *Manager) Set(ctx context.Context, publicID, secretKey string) error {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" || secretKey == "" {
		return errors.New("public ID and secret key are both required")
	}
	if err := m.keyring.Set(serviceName, accountPublicID, publicID); err != nil {
		return err
	}
	return m.keyring.Set(serviceName, accountSecretKey, secretKey)
}

// Get resolves the key pair. Each half is looked up in the keyring first,
// then in the environment. The public ID may also come from configPublicID.
func (m *Manager) Get(ctx context.Context, configPublicID string) (*CredentialInfo, error) {
	info := &CredentialInfo{PublicIDSource: SourceNone, SecretSource: SourceNone}

	info.PublicID, info.PublicIDSource = m.lookup(accountPublicID, config.EnvPublicID)
	if info.PublicID == "" && strings.TrimSpace(configPublicID) != "" {
		info.PublicID = strings.TrimSpace(configPublicID)
		info.PublicIDSource = SourceConfig
	}
	info.SecretKey, info.SecretSource = m.lookup(accountSecretKey, config.EnvSecretKey)

	info.Found = info.PublicID != "" && info.SecretKey != ""
	return info, nil
}

func (m *Manager) lookup(account, envVar string) (string, Source) {
	if v, err := m.keyring.Get(serviceName, account); err == nil && v != "" {
		return v, SourceKeyring
	}
	if v := strings.TrimSpace(m.getenv(envVar)); v != "" {
		return v, SourceEnvironment
	}
	return "", SourceNone
}

// Delete removes the key pair from the keyring. Missing entries are not an error.
func (m *Manager) Delete(ctx context.Context) error {
	for _, account := range []string{accountPublicID, accountSecretKey} {
		if err := m.keyring.Delete(serviceName, account); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

// TerminalReader reads a secret without echoing it.
type TerminalReader interface {
	ReadPassword() (string, error)
}

// PromptLine writes label and reads one line from reader. Pass a
// *bufio.Reader to read several lines from the same stream.
func PromptLine(reader io.Reader, writer io.Writer, label string) (string, error) {
	_, _ = fmt.Fprintf(writer, "%s: ", label)
	br, ok := reader.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(reader)
	}
	line, err := br.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptSecret prompts for the secret key. When term is non-nil input is read
// without echo; otherwise it falls back to a line from reader.
func PromptSecret(reader io.Reader, writer io.Writer, publicID string, term TerminalReader) (string, error) {
	if term == nil {
		return PromptLine(reader, writer, fmt.Sprintf("Enter secret key for %s", publicID))
	}
	_, _ = fmt.Fprintf(writer, "Enter secret key for %s: ", publicID)
	secret, err := term.ReadPassword()
	_, _ = fmt.Fprintln(writer)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(secret), nil
}
