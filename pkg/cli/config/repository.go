package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/domain/interfaces"
	"github.com/secmon-lab/lexiconnect/pkg/repository/firestore"
	"github.com/secmon-lab/lexiconnect/pkg/repository/memory"
	"github.com/secmon-lab/lexiconnect/pkg/repository/redis"
	"github.com/secmon-lab/lexiconnect/pkg/repository/sqlite"
	"github.com/secmon-lab/lexiconnect/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Repository holds CLI flags for the unread state backend
type Repository struct {
	backend          string
	projectID        string
	databaseID       string
	collectionPrefix string
	redisURL         string
	redisKeyPrefix   string
	sqlitePath       string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Unread state backend (memory, firestore, redis or sqlite)",
			Category:    "Repository",
			Value:       "sqlite",
			Sources:     cli.EnvVars("LEXICONNECT_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("LEXICONNECT_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Repository",
			Sources:     cli.EnvVars("LEXICONNECT_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix of the Firestore collection holding unread state",
			Category:    "Repository",
			Sources:     cli.EnvVars("LEXICONNECT_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Usage:       "Redis URL, e.g. redis://localhost:6379/0 (required when using redis backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("LEXICONNECT_REDIS_URL"),
			Destination: &r.redisURL,
		},
		&cli.StringFlag{
			Name:        "redis-key-prefix",
			Usage:       "Prefix of Redis keys",
			Category:    "Repository",
			Sources:     cli.EnvVars("LEXICONNECT_REDIS_KEY_PREFIX"),
			Destination: &r.redisKeyPrefix,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file",
			Category:    "Repository",
			Value:       "lexiconnect.db",
			Sources:     cli.EnvVars("LEXICONNECT_SQLITE_PATH"),
			Destination: &r.sqlitePath,
		},
	}
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// Configure opens the configured backend.
// The caller is responsible for calling Close() on the returned store.
func (r *Repository) Configure(ctx context.Context) (interfaces.KVStore, error) {
	switch r.backend {
	case "firestore":
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrMissingOption, "firestore-project-id is required when using firestore backend",
				goerr.V(OptionKey, "firestore-project-id"))
		}
		var opts []firestore.Option
		if r.collectionPrefix != "" {
			opts = append(opts, firestore.WithCollectionPrefix(r.collectionPrefix))
		}
		kv, err := firestore.New(ctx, r.projectID, r.databaseID, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return kv, nil

	case "redis":
		if r.redisURL == "" {
			return nil, goerr.Wrap(ErrMissingOption, "redis-url is required when using redis backend",
				goerr.V(OptionKey, "redis-url"))
		}
		var opts []redis.Option
		if r.redisKeyPrefix != "" {
			opts = append(opts, redis.WithKeyPrefix(r.redisKeyPrefix))
		}
		kv, err := redis.New(ctx, r.redisURL, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize redis repository")
		}
		logging.Default().Info("Using Redis repository")
		return kv, nil

	case "sqlite":
		if r.sqlitePath == "" {
			return nil, goerr.Wrap(ErrMissingOption, "sqlite-path is required when using sqlite backend",
				goerr.V(OptionKey, "sqlite-path"))
		}
		kv, err := sqlite.Open(r.sqlitePath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize sqlite repository")
		}
		logging.Default().Info("Using SQLite repository", "path", r.sqlitePath)
		return kv, nil

	case "memory":
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.Wrap(ErrInvalidBackend, "unknown repository backend", goerr.V(BackendKey, r.backend))
	}
}
