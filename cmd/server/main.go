package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pcbuilder/configurator/modules/account"
	"github.com/pcbuilder/configurator/pkg/config"
	"github.com/pcbuilder/configurator/pkg/email"
	"github.com/pcbuilder/configurator/pkg/httpserver"
	"github.com/pcbuilder/configurator/pkg/jwt"
	"github.com/pcbuilder/configurator/pkg/logger"
	"github.com/pcbuilder/configurator/pkg/password"
	"github.com/pcbuilder/configurator/pkg/pg"
	"github.com/pcbuilder/configurator/pkg/queue"
	"github.com/pcbuilder/configurator/pkg/ratelimiter"
	"github.com/pcbuilder/configurator/pkg/redis"
	"github.com/pcbuilder/configurator/pkg/requestid"
	"github.com/pcbuilder/configurator/pkg/token"
	accountsvc "github.com/pcbuilder/configurator/svc/account"
)

const (
	driverMemory   = "memory"
	driverPostgres = "postgres"
	driverRedis    = "redis"
)

type appConfig struct {
	Env              string `env:"APP_ENV" envDefault:"development"`
	Name             string `env:"APP_NAME" envDefault:"pcbuilder"`
	StoreDriver      string `env:"STORE_DRIVER" envDefault:"postgres"`
	RevocationDriver string `env:"REVOCATION_DRIVER" envDefault:"memory"`
	LogLevel         string `env:"LOG_LEVEL"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var app appConfig
	config.MustLoad(&app)

	logOpts := []logger.Option{
		logger.WithEnvironment(app.Env, app.Name),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if app.LogLevel != "" {
		logOpts = append(logOpts, logger.WithLevelName(app.LogLevel))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	checks := map[string]httpserver.Check{}

	store, closeStore, err := openStore(ctx, app.StoreDriver, log, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	var rdb *goredis.Client
	var rateCfg ratelimiter.Config
	config.MustLoad(&rateCfg)
	if app.RevocationDriver == driverRedis || (rateCfg.Enabled && rateCfg.Driver == ratelimiter.DriverRedis) {
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)
		rdb, err = redis.Connect(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		checks["redis"] = redis.Healthcheck(rdb)
	}

	var revocations jwt.RevocationList
	switch app.RevocationDriver {
	case driverRedis:
		revocations = jwt.NewRedisRevocationList(rdb)
	case driverMemory:
		revocations = jwt.NewMemoryRevocationList()
	default:
		return fmt.Errorf("unknown revocation driver %q", app.RevocationDriver)
	}

	var jwtCfg jwt.Config
	config.MustLoad(&jwtCfg)
	codec, err := jwt.NewFromConfig(jwtCfg)
	if err != nil {
		return fmt.Errorf("failed to create session codec: %w", err)
	}

	var accountCfg accountsvc.Config
	config.MustLoad(&accountCfg)
	hasher, err := password.New(password.WithCost(accountCfg.BcryptCost))
	if err != nil {
		return fmt.Errorf("failed to create password hasher: %w", err)
	}
	tokens, err := token.NewIssuer()
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	var mailCfg email.Config
	config.MustLoad(&mailCfg)
	transport, err := email.NewSender(mailCfg)
	if err != nil {
		return fmt.Errorf("failed to create email sender: %w", err)
	}
	mailer, stopMail, err := startMailQueue(transport, log)
	if err != nil {
		return err
	}
	defer stopMail()

	svc, err := accountsvc.NewService(store, hasher, tokens, codec,
		accountsvc.NewMailNotifier(mailer, accountCfg), accountCfg,
		accountsvc.WithLogger(log),
		accountsvc.WithRevocationList(revocations),
	)
	if err != nil {
		return fmt.Errorf("failed to create account service: %w", err)
	}

	limiter, closeLimiter, err := newLimiter(rateCfg, rdb)
	if err != nil {
		return err
	}
	defer closeLimiter()

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", httpserver.Liveness())
	r.Get("/health/ready", httpserver.Readiness(log, 2*time.Second, checks))
	r.Mount("/api/v1/accounts", account.Router(account.RouterOptions{
		Service:     svc,
		Codec:       codec,
		Revocations: revocations,
		Limiter:     limiter,
		Logger:      log,
	}))
	r.Get("/app-redirect", account.AppRedirect(svc, log))

	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)
	return httpserver.New(httpCfg, httpserver.WithLogger(log)).Run(ctx, r)
}

func openStore(ctx context.Context, driver string, log *slog.Logger, checks map[string]httpserver.Check) (accountsvc.Store, func(), error) {
	switch driver {
	case driverMemory:
		log.Warn("using in-memory account store, data is lost on restart")
		return accountsvc.NewMemoryStore(), func() {}, nil

	case driverPostgres:
		var pgCfg pg.Config
		config.MustLoad(&pgCfg)
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if pgCfg.AutoMigrate {
			if err := pg.Migrate(ctx, pool, accountsvc.Migrations, accountsvc.MigrationsDir, pgCfg, log); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		checks["postgres"] = pg.Healthcheck(pool)
		return accountsvc.NewPostgresStore(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", driver)
}

// startMailQueue runs mail delivery on an in-memory queue. The returned stop
// func stops the worker and delivers whatever is still ready.
func startMailQueue(transport email.EmailSender, log *slog.Logger) (*email.QueuedSender, func(), error) {
	var cfg queue.Config
	config.MustLoad(&cfg)

	storage := queue.NewMemoryStorage(
		queue.WithCapacity(cfg.Capacity),
		queue.WithRetryBackoff(cfg.RetryBackoff),
	)
	enq, err := queue.NewEnqueuer(storage)
	if err != nil {
		_ = storage.Close()
		return nil, nil, err
	}
	worker, err := queue.NewWorker(storage,
		queue.WithQueues(email.QueueName),
		queue.WithPullInterval(cfg.PollInterval),
		queue.WithLockTimeout(cfg.LockTimeout),
		queue.WithMaxConcurrentTasks(cfg.MaxConcurrentTasks),
		queue.WithWorkerLogger(log),
	)
	if err != nil {
		_ = storage.Close()
		return nil, nil, err
	}
	if err := worker.RegisterHandler(email.DeliveryHandler(transport)); err != nil {
		_ = storage.Close()
		return nil, nil, err
	}
	// The worker outlives request contexts; stop drives its shutdown.
	if err := worker.Start(context.Background()); err != nil {
		_ = storage.Close()
		return nil, nil, fmt.Errorf("failed to start email worker: %w", err)
	}

	stop := func() {
		_ = storage.Close()
		if err := worker.Stop(); err != nil {
			log.Error("failed to stop email worker", logger.Error(err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		n, err := worker.Drain(ctx)
		stats := storage.Stats()
		attrs := []any{
			slog.Int("drained", n),
			slog.Int("left", stats.Pending+stats.Processing),
			slog.Int("dead", stats.Dead),
		}
		if err != nil {
			log.Error("email queue did not drain", append(attrs, logger.Error(err))...)
			return
		}
		log.Info("email queue stopped", attrs...)
	}
	return email.NewQueuedSender(enq, queue.WithMaxAttempts(cfg.MaxAttempts)), stop, nil
}

func newLimiter(cfg ratelimiter.Config, rdb *goredis.Client) (*ratelimiter.FixedWindow, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}

	var (
		store   ratelimiter.Store
		release = func() {}
	)
	switch cfg.Driver {
	case ratelimiter.DriverMemory:
		mem := ratelimiter.NewMemoryStore()
		store, release = mem, mem.Close
	case ratelimiter.DriverRedis:
		if rdb == nil {
			return nil, nil, errors.New("redis rate limiting requires a redis connection")
		}
		store = ratelimiter.NewRedisStore(rdb, cfg.Prefix)
	default:
		return nil, nil, fmt.Errorf("unknown rate limit driver %q", cfg.Driver)
	}

	limiter, err := ratelimiter.NewFixedWindow(store, cfg.Limit, cfg.Window)
	if err != nil {
		release()
		return nil, nil, err
	}
	return limiter, release, nil
}
