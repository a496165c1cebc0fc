package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"suitedash/backend"
	"suitedash/backend/sqlite"
	"suitedash/backend/suitedash"
	"suitedash/internal/cache"
	"suitedash/internal/config"
	"suitedash/internal/credentials"
	"suitedash/internal/metrics"
	"suitedash/internal/ratelimit"
	"suitedash/internal/reporting"
	"suitedash/internal/shutdown"
	"suitedash/internal/transport"
	"suitedash/internal/utils"
)

// Version is set at build time
var Version = "dev"

// Config holds process-level settings. Zero values fall back to the config
// file, the keyring and the environment.
type Config struct {
	Verbose      bool
	OutputFormat string
	ConfigPath   string // Path to config.yaml (for testing)
	DBPath       string // Path to the cache database (for testing)
	BaseURL      string // API base URL override (for testing)
	PublicID     string
	SecretKey    string

	Keyring  credentials.Keyring        // Overrides the OS keyring (for testing)
	Stdin    io.Reader                  // Defaults to os.Stdin
	Terminal credentials.TerminalReader // Hidden input; nil reads plain lines from Stdin

	lifecycle *shutdown.Manager
}

type errorResponse struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
	Code       int    `json:"code"`
}

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	// Flags are applied to a copy; the caller's Config is left untouched.
	local := Config{}
	if cfg != nil {
		local = *cfg
	}
	cfg = &local
	cfg.lifecycle = shutdown.NewManager(context.Background())
	defer func() {
		if err := cfg.lifecycle.Close(shutdown.DefaultTimeout); err != nil {
			utils.Warnf("shutdown: %v", err)
		}
	}()
	rootCmd := NewSuiteDash(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(cfg.lifecycle.Context()); err != nil {
		if cfg.lifecycle.Interrupted() {
			_, _ = fmt.Fprintln(stderr, "Interrupted")
			return 130
		}
		if containsJSONFlag(args) || cfg.OutputFormat == "json" {
			outputErrorJSON(err, stdout)
		} else {
			_, _ = fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func containsJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--json" {
			return true
		}
	}
	return false
}

func outputErrorJSON(err error, stdout io.Writer) {
	response := errorResponse{Error: err.Error(), Code: 1}
	var sugg *utils.ErrorWithSuggestion
	if errors.As(err, &sugg) {
		response.Error = sugg.Err.Error()
		response.Suggestion = sugg.Suggestion
	}
	jsonBytes, _ := json.Marshal(response)
	_, _ = fmt.Fprintln(stdout, string(jsonBytes))
}

// NewSuiteDash creates the root command with injectable IO
func NewSuiteDash(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:     "suitedash",
		Short:   "A SuiteDash CRM client",
		Long:    "suitedash browses and edits SuiteDash contacts, projects, files and tasks with a local response cache.",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("verbose"); v {
				cfg.Verbose = true
			}
			if j, _ := cmd.Flags().GetBool("json"); j {
				cfg.OutputFormat = "json"
			}
			if p, _ := cmd.Flags().GetString("config"); p != "" {
				cfg.ConfigPath = p
			}
			utils.SetVerboseMode(cfg.Verbose)
		},
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file")
	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	for _, rt := range backend.AllResourceTypes() {
		cmd.AddCommand(newResourceCmd(rt, stdout, stderr, cfg))
	}
	cmd.AddCommand(newCacheCmd(stdout, cfg))
	cmd.AddCommand(newAuthCmd(stdout, cfg))
	cmd.AddCommand(newCredentialsCmd(stdout, cfg))
	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintf(stdout, "suitedash %s\n", Version)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// app is the per-invocation wiring: config, cache, client and reporter.
type app struct {
	cfg      *Config
	conf     *config.Config
	store    *cache.Store
	client   *suitedash.Client
	reporter reporting.Reporter
	stdout   io.Writer
	stderr   io.Writer
}

func (a *app) jsonOutput() bool {
	return a.conf.OutputFormat == "json"
}

// loadConfig reads the config file and .env files and applies flag overrides.
func loadConfig(cfg *Config) (*config.Config, error) {
	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = filepath.Join(config.GetConfigDir(), "config.yaml")
	}
	if err := config.LoadEnv(".env", filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
		return nil, err
	}

	conf, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, utils.WrapWithSuggestion(err, fmt.Sprintf("Fix %s and run again", configPath))
	}
	conf.ApplyFlags(cfg.OutputFormat)
	if cfg.BaseURL != "" {
		conf.API.BaseURL = cfg.BaseURL
	}
	if cfg.DBPath != "" {
		conf.Cache.Path = cfg.DBPath
	}
	utils.InitLogger(conf.Logging.Level, cfg.Verbose)
	return conf, nil
}

func newCredentialManager(cfg *Config) *credentials.Manager {
	if cfg.Keyring != nil {
		return credentials.NewManager(credentials.WithKeyring(cfg.Keyring))
	}
	return credentials.NewManager()
}

// openApp resolves credentials and opens the cache database. The database
// and the error reporter are released by lifecycle.
func openApp(ctx context.Context, cfg *Config, lifecycle *shutdown.Manager, stdout, stderr io.Writer) (*app, error) {
	conf, err := loadConfig(cfg)
	if err != nil {
		return nil, err
	}

	publicID, secretKey := cfg.PublicID, cfg.SecretKey
	if publicID == "" || secretKey == "" {
		info, err := newCredentialManager(cfg).Get(ctx, conf.API.PublicID)
		if err != nil {
			return nil, err
		}
		if !info.Found {
			return nil, utils.ErrCredentialsNotFound()
		}
		publicID, secretKey = info.PublicID, info.SecretKey
	}

	if path := conf.Metrics.Textfile; path != "" {
		lifecycle.Register("metrics", func(context.Context) error {
			return metrics.WriteTextfile(path)
		})
	}

	storage, err := sqlite.New(conf.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	lifecycle.Register("cache database", func(context.Context) error {
		return storage.Close()
	})
	store := cache.New(storage)

	client := suitedash.New(suitedash.Config{
		BaseURL:   conf.API.BaseURL,
		PublicID:  publicID,
		SecretKey: secretKey,
		Timeout:   conf.GetTimeout(),
		CacheTTL:  conf.GetCacheTTL(),
		Headers:   map[string]string{"User-Agent": "suitedash/" + Version},
		OnRateLimit: func(ev ratelimit.Event) {
			_, _ = fmt.Fprintf(stderr, "%s (%s)\n", ratelimit.Message, ev)
		},
	}, store)

	reporter := reporting.New(reporting.Config{
		APIKey: conf.Reporting.HoneybadgerAPIKey,
		Env:    conf.Reporting.Env,
	})
	lifecycle.Register("error reporter", func(context.Context) error {
		reporter.Flush()
		return nil
	})

	return &app{
		cfg:      cfg,
		conf:     conf,
		store:    store,
		client:   client,
		reporter: reporter,
		stdout:   stdout,
		stderr:   stderr,
	}, nil
}

// run executes fn against a freshly opened app and turns failures into
// user-facing errors, reporting the unexpected ones.
func run(cmd *cobra.Command, cfg *Config, stdout, stderr io.Writer, rt backend.ResourceType, id string, fn func(ctx context.Context, a *app) error) error {
	lifecycle := cfg.lifecycle
	if lifecycle == nil {
		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		lifecycle = shutdown.NewManager(parent)
		defer func() { _ = lifecycle.Close(shutdown.DefaultTimeout) }()
	}
	ctx := lifecycle.Context()

	a, err := openApp(ctx, cfg, lifecycle, stdout, stderr)
	if err != nil {
		return err
	}

	if err := fn(ctx, a); err != nil {
		a.reporter.Report(err, map[string]any{
			"command":  cmd.CommandPath(),
			"resource": string(rt),
			"id":       id,
		})
		return friendlyError(err, rt, id)
	}
	return nil
}

// friendlyError maps client errors to errors with a suggestion.
func friendlyError(err error, rt backend.ResourceType, id string) error {
	var sugg *utils.ErrorWithSuggestion
	switch {
	case errors.As(err, &sugg):
		return err
	case suitedash.IsAuthError(err):
		return utils.ErrAuthenticationFailed(err)
	case errors.Is(err, suitedash.ErrImmutable):
		return utils.ErrReadOnlyResource(string(rt))
	case transport.IsRateLimited(err):
		return utils.ErrRateLimited(err)
	case transport.IsNotFound(err) && id != "":
		return utils.ErrResourceNotFound(string(rt), id)
	case transport.IsNetwork(err) && !errors.Is(err, context.Canceled):
		return utils.ErrBackendOffline(err.Error())
	}
	return err
}

func resourceNames() []string {
	var names []string
	for _, rt := range backend.AllResourceTypes() {
		names = append(names, string(rt))
	}
	return names
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, string(b))
	return nil
}

func newCacheCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local response cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear [type]",
		Short: "Remove cached API responses",
		Long: "Remove every cached list and detail response, or only those of one resource type. " +
			"Saved first pages used for offline display are kept.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rt backend.ResourceType
			if len(args) == 1 {
				var err error
				if rt, err = backend.ParseResourceType(args[0]); err != nil {
					return utils.ErrUnknownResource(args[0], resourceNames())
				}
			}
			return run(cmd, cfg, stdout, cmd.ErrOrStderr(), rt, "", func(ctx context.Context, a *app) error {
				var n int
				if rt != "" {
					n = a.client.Invalidate(ctx, rt)
				} else {
					var ok bool
					if n, ok = a.client.ClearCache(ctx); !ok {
						return errors.New("failed to clear cache")
					}
				}
				if a.jsonOutput() {
					return writeJSON(stdout, map[string]any{"removed": n})
				}
				_, _ = fmt.Fprintf(stdout, "Cleared %d cached responses\n", n)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})
	return cacheCmd
}
