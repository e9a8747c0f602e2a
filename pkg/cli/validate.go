package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/cli/config"
	"github.com/secmon-lab/lexiconnect/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var appCfg config.App

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the configuration file",
		Flags:   appCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			if appCfg.Path() == "" {
				return goerr.Wrap(config.ErrMissingOption, "--config is required", goerr.V(config.OptionKey, "config"))
			}

			cfg, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}

			logger.Info("Configuration validation passed",
				"path", appCfg.Path(),
				"namespace", cfg.Viewer.Namespace(),
				"role", cfg.Viewer.Role,
				"poll_interval", cfg.Poll.IntervalDuration().String(),
				"watch_interval", cfg.Watch.IntervalDuration().String(),
			)
			return nil
		},
	}
}
