package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/lexiconnect/pkg/domain/types"
	"github.com/secmon-lab/lexiconnect/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Default poll settings used when the config file omits them
const (
	DefaultPollInterval = 10 * time.Second
)

// AppConfig represents the application configuration
type AppConfig struct {
	Viewer Viewer `toml:"viewer"`
	Poll   Poll   `toml:"poll"`
	Watch  Watch  `toml:"watch"`
}

// Viewer identifies whose read state is tracked
type Viewer struct {
	ID   string `toml:"id"`
	Role string `toml:"role"`
}

// Validate checks if the Viewer is valid
func (v *Viewer) Validate() error {
	if v.Role == "" {
		return nil
	}
	if _, err := types.ParseRole(v.Role); err != nil {
		return goerr.Wrap(ErrInvalidConfig, "invalid viewer role", goerr.V(FieldKey, "viewer.role"), goerr.V(ValueKey, v.Role))
	}
	return nil
}

// Namespace returns the namespace the viewer's state is stored under
func (v *Viewer) Namespace() string {
	if v.ID == "" {
		return usecase.DefaultNamespace
	}
	return v.ID
}

// Poll configures the unread poll worker
type Poll struct {
	Interval    string `toml:"interval"`
	Timeout     string `toml:"timeout"`
	Concurrency int    `toml:"concurrency"`
	// FetchConcurrency bounds review link requests per conversation
	FetchConcurrency int `toml:"fetch_concurrency"`
}

// Validate checks if the Poll is valid
func (p *Poll) Validate() error {
	if _, err := parseDuration("poll.interval", p.Interval); err != nil {
		return err
	}
	if _, err := parseDuration("poll.timeout", p.Timeout); err != nil {
		return err
	}
	if p.Concurrency < 0 {
		return goerr.Wrap(ErrInvalidConfig, "poll concurrency must not be negative", goerr.V(FieldKey, "poll.concurrency"), goerr.V(ValueKey, p.Concurrency))
	}
	if p.FetchConcurrency < 0 {
		return goerr.Wrap(ErrInvalidConfig, "fetch concurrency must not be negative", goerr.V(FieldKey, "poll.fetch_concurrency"), goerr.V(ValueKey, p.FetchConcurrency))
	}
	return nil
}

// IntervalDuration returns the poll interval, DefaultPollInterval when unset
func (p *Poll) IntervalDuration() time.Duration {
	d, err := parseDuration("poll.interval", p.Interval)
	if err != nil || d == 0 {
		return DefaultPollInterval
	}
	return d
}

// TimeoutDuration returns the per-tick timeout. Zero means the interval.
func (p *Poll) TimeoutDuration() time.Duration {
	d, _ := parseDuration("poll.timeout", p.Timeout)
	return d
}

// Watch configures the conversation watcher
type Watch struct {
	Interval string `toml:"interval"`
}

// Validate checks if the Watch is valid
func (w *Watch) Validate() error {
	_, err := parseDuration("watch.interval", w.Interval)
	return err
}

// IntervalDuration returns the watch interval, usecase.DefaultWatchInterval when unset
func (w *Watch) IntervalDuration() time.Duration {
	d, err := parseDuration("watch.interval", w.Interval)
	if err != nil || d == 0 {
		return usecase.DefaultWatchInterval
	}
	return d
}

// parseDuration parses an optional positive duration. Empty is zero.
func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, goerr.Wrap(ErrInvalidDuration, "failed to parse duration", goerr.V(FieldKey, field), goerr.V(ValueKey, s))
	}
	if d <= 0 {
		return 0, goerr.Wrap(ErrInvalidDuration, "duration must be positive", goerr.V(FieldKey, field), goerr.V(ValueKey, s))
	}
	return d, nil
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if err := a.Viewer.Validate(); err != nil {
		return goerr.Wrap(err, "invalid viewer section")
	}
	if err := a.Poll.Validate(); err != nil {
		return goerr.Wrap(err, "invalid poll section")
	}
	if err := a.Watch.Validate(); err != nil {
		return goerr.Wrap(err, "invalid watch section")
	}
	return nil
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML config", goerr.V(ConfigPathKey, path))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// App holds the CLI flags locating the application configuration
type App struct {
	path     string
	viewerID string
}

func (x *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML configuration file",
			Sources:     cli.EnvVars("LEXICONNECT_CONFIG"),
			Destination: &x.path,
		},
		&cli.StringFlag{
			Name:        "viewer-id",
			Usage:       "Viewer ID, overrides [viewer].id of the configuration file",
			Sources:     cli.EnvVars("LEXICONNECT_VIEWER_ID"),
			Destination: &x.viewerID,
		},
	}
}

// Path returns the configuration file path
func (x *App) Path() string {
	return x.path
}

// Configure loads the configuration file if one is given. Without a file
// every setting takes its default.
func (x *App) Configure() (*AppConfig, error) {
	cfg := &AppConfig{}
	if x.path != "" {
		loaded, err := LoadAppConfiguration(x.path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if x.viewerID != "" {
		cfg.Viewer.ID = x.viewerID
	}
	return cfg, nil
}
