package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/cli/config"
	"github.com/secmon-lab/lexiconnect/pkg/domain/interfaces"
	"github.com/secmon-lab/lexiconnect/pkg/usecase"
	"github.com/secmon-lab/lexiconnect/pkg/utils/logging"
)

// unreadEnv is the wiring shared by commands that track unread state
type unreadEnv struct {
	cfg *config.AppConfig
	kv  interfaces.KVStore
	uc  *usecase.UseCases
}

func (e *unreadEnv) Close() {
	if err := e.kv.Close(); err != nil {
		logging.Default().Error("failed to close repository", "error", err.Error())
	}
}

// setupUnread loads the app config, opens the backend and builds the use
// cases. The caller must Close the returned env.
func setupUnread(ctx context.Context, version string, appCfg *config.App, repoCfg *config.Repository, apiCfg *config.LexiConnect, opts ...usecase.Option) (*unreadEnv, error) {
	cfg, err := appCfg.Configure()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load configuration")
	}

	api, err := apiCfg.Configure(version)
	if err != nil {
		return nil, err
	}
	logging.Default().Info("LexiConnect API configured", "lexiconnect", *apiCfg)

	kv, err := repoCfg.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}

	store, err := usecase.NewUnreadStore(ctx, kv, cfg.Viewer.Namespace())
	if err != nil {
		_ = kv.Close()
		return nil, goerr.Wrap(err, "failed to load unread state")
	}

	ucOpts := []usecase.Option{
		usecase.WithPollConcurrency(cfg.Poll.Concurrency),
		usecase.WithFetchConcurrency(cfg.Poll.FetchConcurrency),
		usecase.WithWatchInterval(cfg.Watch.IntervalDuration()),
	}
	ucOpts = append(ucOpts, opts...)

	return &unreadEnv{
		cfg: cfg,
		kv:  kv,
		uc:  usecase.New(api, store, ucOpts...),
	}, nil
}
