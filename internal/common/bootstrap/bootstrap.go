package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/mediarequest/backend/internal/auth/repository"
	"github.com/mediarequest/backend/internal/auth/repository/migrations"
	"github.com/mediarequest/backend/internal/common/config"
	"github.com/mediarequest/backend/internal/common/constants"
	"github.com/mediarequest/backend/internal/common/db"
	commonhttp "github.com/mediarequest/backend/internal/common/http"
	"github.com/mediarequest/backend/internal/common/logger"
	"github.com/mediarequest/backend/internal/common/server"
)

type App struct {
	Log    *logger.Logger
	Config config.AuthConfig
	Store
}

// Store is the credential store selected by STORE_DRIVER together with the
// hooks needed to check and release it.
type Store struct {
	Users       repository.UserRepository
	HealthCheck commonhttp.HealthCheck
	Shutdown    []server.ShutdownHook
}

func NewAuthApp(ctx context.Context) (*App, error) {
	log, err := initializeLogger("auth")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.LoadAuthConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.SharedSecrets() {
		log.Warn("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are identical; use distinct secrets")
	}

	store, err := NewStore(ctx, log, cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		Log:    log,
		Config: cfg,
		Store:  store,
	}, nil
}

func NewStore(ctx context.Context, log *logger.Logger, cfg config.AuthConfig) (Store, error) {
	switch cfg.StoreDriver {
	case constants.StoreDriverMemory:
		log.Warn("using in-memory credential store; accounts are lost on restart")
		return Store{Users: repository.NewMemoryUserRepository()}, nil
	case constants.StoreDriverPostgres:
		return newPostgresStore(ctx, log, cfg.DatabaseURL)
	default:
		return Store{}, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func newPostgresStore(ctx context.Context, log *logger.Logger, databaseURL string) (Store, error) {
	pool, err := db.NewPool(ctx, log, databaseURL)
	if err != nil {
		return Store{}, fmt.Errorf("failed to initialize database pool: %w", err)
	}

	if err := db.RunMigrations(ctx, log, pool, migrations.FS); err != nil {
		pool.Close()
		return Store{}, err
	}

	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	db.StartPoolMetrics(metricsCtx, pool, constants.DBPoolMetricsInterval)

	return Store{
		Users:       repository.NewPgUserRepository(pool),
		HealthCheck: pingCheck(pool),
		Shutdown: []server.ShutdownHook{
			func(context.Context) error {
				stopMetrics()
				log.Info("closing database pool")
				pool.Close()
				return nil
			},
		},
	}, nil
}

func pingCheck(pool *pgxpool.Pool) commonhttp.HealthCheck {
	return func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
}

func initializeLogger(serviceName string) (*logger.Logger, error) {
	return logger.New(os.Getenv("LOG_DIR"), serviceName, os.Getenv("LOG_LEVEL"))
}
