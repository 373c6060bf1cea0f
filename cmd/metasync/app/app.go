// Package app provides the application context and dependency management
// for the metasync CLI. It centralizes configuration, logging and the
// construction of the API clients a run needs.
package app

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/agentstation/metasync/internal/config"
	"github.com/agentstation/metasync/internal/sources/keyfactor"
	"github.com/agentstation/metasync/internal/sources/sectigo"
	"github.com/agentstation/metasync/internal/tablestore"
	"github.com/agentstation/metasync/internal/transport"
	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/logging"
	"github.com/agentstation/metasync/pkg/sync"
)

// App represents the metasync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// httpClient, when set, is shared by both API clients.
	httpClient *http.Client
	// lookupEnv, when set, replaces os.LookupEnv for config overrides and
	// credential references.
	lookupEnv func(string) (string, bool)
}

// New creates a new App instance with the given version information.
// The app is initialized with default configuration that can be
// customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		config:  LoadConfig(),
	}

	logger := NewLogger(app.config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// context attaches the application logger to ctx.
func (a *App) context(ctx context.Context) context.Context {
	return logging.WithLogger(ctx, a.logger)
}

// loadConfig reads config.json and fields.json from the configured directory.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	var opts []config.LoaderOption
	if a.lookupEnv != nil {
		opts = append(opts, config.WithEnv(a.lookupEnv))
	}
	cfg, err := config.NewLoader(a.config.ConfigDir, opts...).Load(ctx)
	if err != nil {
		return nil, errors.NewFatalError(errors.StageConfig, err)
	}
	return cfg, nil
}

// clients creates and authenticates both API clients.
func (a *App) clients(cfg *config.Config) (*sectigo.Client, *keyfactor.Client, error) {
	var opts []transport.Option
	if a.httpClient != nil {
		opts = append(opts, transport.WithHTTPClient(a.httpClient))
	}
	s := cfg.Settings

	source, err := sectigo.NewClient(s.SectigoAPIURL, opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := source.Authenticate(sectigo.Credentials{
		Login:       s.SectigoLogin,
		Password:    s.SectigoPassword,
		CustomerURI: s.SectigoCustomerURI,
	}); err != nil {
		return nil, nil, err
	}

	target, err := keyfactor.NewClient(s.KeyfactorAPIURL, opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := target.Authenticate(keyfactor.Credentials{
		Username: s.KeyfactorLogin,
		Password: s.KeyfactorPassword,
	}); err != nil {
		return nil, nil, err
	}
	return source, target, nil
}

// orchestrator wires a run for direction from the on-disk configuration.
func (a *App) orchestrator(ctx context.Context, direction sync.Direction) (*sync.Orchestrator, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	source, target, err := a.clients(cfg)
	if err != nil {
		return nil, errors.NewFatalError(errors.StageConfig, err)
	}

	store, err := tablestore.NewOS(cfg.Dir, cfg.TableFile)
	if err != nil {
		return nil, errors.NewFatalError(errors.StageConfig, err)
	}

	opts, err := cfg.SyncOptions(direction)
	if err != nil {
		return nil, errors.NewFatalError(errors.StageConfig, err)
	}

	a.logger.Debug().
		Str("table", store.Path()).
		Interface("settings", cfg.Settings.Redacted()).
		Msg("Run configuration")

	return sync.New(source, target, store, opts...)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for both APIs.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) error {
		a.httpClient = hc
		return nil
	}
}

// WithEnv replaces the environment lookup used while loading configuration.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(a *App) error {
		a.lookupEnv = lookup
		return nil
	}
}
