package config

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/service/lexiconnect"
	"github.com/urfave/cli/v3"
)

// LexiConnect holds CLI flags for the LexiConnect REST API
type LexiConnect struct {
	baseURL string
	token   string
	timeout time.Duration
}

func (x *LexiConnect) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "api-url",
			Usage:       "LexiConnect API base URL (e.g., https://lexiconnect.example.com)",
			Category:    "LexiConnect",
			Sources:     cli.EnvVars("LEXICONNECT_API_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "api-token",
			Usage:       "LexiConnect API token of the viewer",
			Category:    "LexiConnect",
			Sources:     cli.EnvVars("LEXICONNECT_API_TOKEN"),
			Destination: &x.token,
		},
		&cli.DurationFlag{
			Name:        "api-timeout",
			Usage:       "Timeout of a single API request",
			Category:    "LexiConnect",
			Value:       lexiconnect.DefaultTimeout,
			Sources:     cli.EnvVars("LEXICONNECT_API_TIMEOUT"),
			Destination: &x.timeout,
		},
	}
}

type lexiConnectLog struct {
	BaseURL string
	Token   string `masq:"secret"`
	Timeout time.Duration
}

func (x LexiConnect) LogValue() slog.Value {
	return slog.AnyValue(lexiConnectLog{
		BaseURL: x.baseURL,
		Token:   x.token,
		Timeout: x.timeout,
	})
}

// Configure creates the API client
func (x *LexiConnect) Configure(version string) (lexiconnect.Service, error) {
	if x.baseURL == "" {
		return nil, goerr.Wrap(ErrMissingOption, "api-url is required", goerr.V(OptionKey, "api-url"))
	}

	opts := []lexiconnect.Option{
		lexiconnect.WithUserAgent("lexiconnect-unread/" + version),
	}
	if x.token != "" {
		opts = append(opts, lexiconnect.WithToken(x.token))
	}
	if x.timeout > 0 {
		opts = append(opts, lexiconnect.WithHTTPClient(&http.Client{Timeout: x.timeout}))
	}

	svc, err := lexiconnect.New(x.baseURL, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LexiConnect client")
	}
	return svc, nil
}
