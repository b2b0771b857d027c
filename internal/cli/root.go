// Package cli contains the Cobra command tree of intensityctl.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"example.com/intensity/internal/cli/output"
	"example.com/intensity/internal/client"
	"example.com/intensity/internal/localstore"
	"example.com/intensity/internal/record"
)

// Option configures the command tree.
type Option func(*app)

// WithClock overrides the clock used for new records and local statistics.
func WithClock(now func() time.Time) Option {
	return func(a *app) {
		if now != nil {
			a.now = now
		}
	}
}

// WithStoreOpener overrides how the local store is opened.
func WithStoreOpener(open func(path string) (*localstore.Store, error)) Option {
	return func(a *app) {
		if open != nil {
			a.openStore = open
		}
	}
}

// WithClientOptions passes options to the API client.
func WithClientOptions(opts ...client.Option) Option {
	return func(a *app) {
		a.clientOpts = append(a.clientOpts, opts...)
	}
}

type app struct {
	cfg        Config
	now        func() time.Time
	openStore  func(path string) (*localstore.Store, error)
	clientOpts []client.Option
	logger     *logrus.Logger

	flagConfig  string
	flagSource  string
	flagAPIURL  string
	flagUser    string
	flagDB      string
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
}

// NewRootCommand builds the intensityctl command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{
		now:       time.Now,
		openStore: localstore.Open,
		logger:    logrus.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger.SetLevel(logrus.WarnLevel)

	root := &cobra.Command{
		Use:   "intensityctl",
		Short: "Log workouts and inspect their intensity",
		Long: `intensityctl records workouts with a 0-10 intensity rating and shows
statistics, filtered record lists and the friends leaderboard.

Records come from the device-local SQLite log (--source local, the default)
or from the intensity API (--source api).`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.loadConfig,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flagConfig, "config", "", "Config file path (default: ~/.config/intensity/config.yaml)")
	pf.StringVar(&a.flagSource, "source", "", "Record source: local or api")
	pf.StringVar(&a.flagAPIURL, "api-url", "", "Base URL of the intensity API")
	pf.StringVar(&a.flagUser, "user", "", "User id for the api source")
	pf.StringVar(&a.flagDB, "db", "", "Path of the local SQLite database")
	pf.BoolVar(&a.flagNoColor, "no-color", false, "Disable colored output")
	pf.BoolVar(&a.flagJSON, "json", false, "Output as JSON")
	pf.BoolVar(&a.flagVerbose, "verbose", false, "Enable verbose output")

	root.AddCommand(
		a.logCommand(),
		a.recordsCommand(),
		a.statsCommand(),
		a.deleteCommand(),
		a.leaderboardCommand(),
	)
	return root
}

// Execute is the entry point called from main.
func Execute(version string) {
	root := NewRootCommand()
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(a.flagConfig)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source = a.flagSource
	}
	if flags.Changed("api-url") {
		cfg.APIURL = a.flagAPIURL
	}
	if flags.Changed("user") {
		cfg.UserID = a.flagUser
	}
	if flags.Changed("db") {
		cfg.LocalDB = expandPath(a.flagDB)
	}
	if flags.Changed("no-color") {
		cfg.NoColor = a.flagNoColor
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	output.SetNoColor(cfg.NoColor)
	if a.flagVerbose {
		a.logger.SetLevel(logrus.DebugLevel)
	}
	a.logger.SetOutput(cmd.ErrOrStderr())
	return nil
}

func (a *app) client() *client.Client {
	opts := append([]client.Option{client.WithLogger(a.logger)}, a.clientOpts...)
	return client.New(a.cfg.APIURL, opts...)
}

func (a *app) backend() (backend, error) {
	if a.cfg.Source == SourceAPI {
		if a.cfg.UserID == "" {
			return nil, errUserRequired
		}
		return &apiBackend{client: a.client(), userID: a.cfg.UserID}, nil
	}

	store, err := a.openStore(a.cfg.LocalDB)
	if err != nil {
		return nil, fmt.Errorf("opening local database: %w", err)
	}
	return &localBackend{store: store, thresholds: record.DefaultThresholds, now: a.now}, nil
}

// withBackend opens the configured backend for the duration of fn.
func (a *app) withBackend(ctx context.Context, fn func(context.Context, backend) error) error {
	b, err := a.backend()
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()
	return fn(ctx, b)
}

func (a *app) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
