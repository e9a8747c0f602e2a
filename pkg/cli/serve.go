package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/cli/config"
	httpctrl "github.com/secmon-lab/lexiconnect/pkg/controller/http"
	"github.com/secmon-lab/lexiconnect/pkg/service/toast"
	"github.com/secmon-lab/lexiconnect/pkg/service/worker"
	"github.com/secmon-lab/lexiconnect/pkg/usecase"
	"github.com/secmon-lab/lexiconnect/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var apiToken string
	var appCfg config.App
	var repoCfg config.Repository
	var lexiCfg config.LexiConnect
	var slackCfg config.Slack

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       "127.0.0.1:8080",
			Sources:     cli.EnvVars("LEXICONNECT_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "server-token",
			Usage:       "Bearer token required by the /api routes. Empty disables the check",
			Sources:     cli.EnvVars("LEXICONNECT_SERVER_TOKEN"),
			Destination: &apiToken,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, lexiCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the unread tracker HTTP API and poll worker",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// The slot is the rendering layer's toast; Slack only mirrors it
			slot := toast.NewSlot()
			var toaster toast.Toaster = slot

			slackToaster, err := slackCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure Slack")
			}
			if slackToaster != nil {
				toaster = toast.Tee(slot, slackToaster)
				channel, err := slackToaster.ChannelName(ctx)
				if err != nil {
					logging.Default().Warn("failed to resolve Slack toast channel", "error", err.Error())
				}
				logging.Default().Info("Slack toast mirroring enabled", "slack", slackCfg, "channel_name", channel)
			}

			env, err := setupUnread(ctx, version, &appCfg, &repoCfg, &lexiCfg, usecase.WithToaster(toaster))
			if err != nil {
				return err
			}
			defer env.Close()

			pollWorker := worker.NewUnreadPollWorker(env.uc.Unread, env.cfg.Poll.IntervalDuration(), env.cfg.Poll.TimeoutDuration())
			if err := pollWorker.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start unread poll worker")
			}

			httpOpts := []httpctrl.Options{
				httpctrl.WithToastQueue(slot),
			}
			if apiToken != "" {
				httpOpts = append(httpOpts, httpctrl.WithAPIToken(apiToken))
			} else {
				logging.Default().Warn("API token not configured, /api routes are unauthenticated")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(env.uc, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server",
					"addr", addr,
					"namespace", env.uc.Store().Namespace(),
				)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			shutdown := func() error {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				// No request may select a new watch once the loops below are stopped,
				// and all of them must be gone before the store is closed
				shutdownErr := server.Shutdown(shutdownCtx)
				pollWorker.Stop()
				env.uc.Watcher.Stop()

				if shutdownErr != nil {
					return goerr.Wrap(shutdownErr, "failed to shutdown server gracefully")
				}
				logging.Default().Info("Server shutdown completed")
				return nil
			}

			select {
			case err := <-errCh:
				_ = shutdown()
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)
				return shutdown()
			case <-ctx.Done():
				return shutdown()
			}
		},
	}
}
