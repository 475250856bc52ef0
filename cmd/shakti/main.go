package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/tejasnaveen/Shakti/common/database"
	"github.com/tejasnaveen/Shakti/common/logger"
	commonmqtt "github.com/tejasnaveen/Shakti/common/mqtt"
	commonredis "github.com/tejasnaveen/Shakti/common/redis"
	"github.com/tejasnaveen/Shakti/internal/config"
	httpapi "github.com/tejasnaveen/Shakti/internal/http"
	"github.com/tejasnaveen/Shakti/internal/metrics"
	"github.com/tejasnaveen/Shakti/internal/repository"
	"github.com/tejasnaveen/Shakti/internal/seed"
	"github.com/tejasnaveen/Shakti/internal/service"
	"github.com/tejasnaveen/Shakti/internal/store"
	"github.com/tejasnaveen/Shakti/internal/supabase"
	"github.com/tejasnaveen/Shakti/internal/tenancy"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "shakti")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("shakti stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	repos, db, err := openRepositories(cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer database.Close(db)
	}

	var (
		kv          store.KV
		redisClient *redis.Client
	)
	if cfg.RedisEnabled {
		redisClient = commonredis.NewRedisClient(&cfg.Redis)
		defer commonredis.Close(redisClient)
		if err := commonredis.Ping(ctx, redisClient); err != nil {
			return fmt.Errorf("redis unreachable at %s: %w", cfg.Redis.Addr, err)
		}
		kv = store.NewRedisKV(redisClient)
	} else {
		log.Warn("Redis disabled, sessions are kept in process memory")
		kv = store.NewMemoryKV()
	}

	publisher, closePublisher := buildPublisher(cfg, redisClient, log)
	defer closePublisher()

	hasher := service.NewBcryptHasher(0)
	tenantSvc := service.NewTenantService(repos, m, log)
	adminSvc := service.NewAdminService(repos, hasher, m, log)
	employeeSvc := service.NewEmployeeService(repos, hasher, m, log)

	lockout := service.LockoutPolicy{}
	if cfg.Lockout.Enabled {
		lockout = service.LockoutPolicy{MaxAttempts: cfg.Lockout.MaxAttempts, Window: cfg.Lockout.Window}
	}
	authSvc := service.NewAuthService(
		tenantSvc,
		repos,
		hasher,
		store.NewSessionStore(kv, cfg.Session.KeyPrefix, cfg.Session.TTL),
		log,
		service.WithLockoutPolicy(lockout),
		service.WithEventPublisher(publisher),
		service.WithMetrics(m),
	)

	if cfg.SeedFile != "" {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		if _, err := seed.NewSeeder(repos, tenantSvc, adminSvc, hasher, log).Apply(ctx, f); err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
	}

	domains := tenancy.DomainConfig{
		Environment: cfg.Domain.Environment,
		BaseDomain:  cfg.Domain.BaseDomain,
		Scheme:      cfg.Domain.Scheme,
	}
	tenantsHandler := httpapi.NewTenantsHandler(tenantSvc, adminSvc, domains, log)
	go resetBaseDomainOnHangup(ctx, tenantsHandler, log)

	router := httpapi.NewRouter(m, log)
	router.RegisterRoutes(httpapi.Handlers{
		Auth:      httpapi.NewAuthHandler(authSvc, log),
		Tenant:    httpapi.NewTenantContextHandler(tenantSvc, log),
		Tenants:   tenantsHandler,
		Admins:    httpapi.NewAdminsHandler(adminSvc, log),
		Employees: httpapi.NewEmployeesHandler(employeeSvc, log),
		Sessions:  httpapi.NewSessionMiddleware(authSvc, log),
		Metrics:   m,
	})

	err = service.NewServer(cfg.HTTP.Addr, router, log).Run(ctx)
	log.Info("Shakti HTTP server stopped")
	return err
}

// resetBaseDomainOnHangup drops the learned login-URL host on SIGHUP, for
// deployments without BASE_DOMAIN that move to a new host.
func resetBaseDomainOnHangup(ctx context.Context, h *httpapi.TenantsHandler, log *zap.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			h.ResetBaseDomain()
			log.Info("Login URL base domain reset")
		}
	}
}

func openRepositories(cfg *config.Config, log *zap.Logger) (*repository.Repositories, *sql.DB, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using Postgres store",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database),
		)
		return repository.NewPostgresRepositories(db), db, nil
	case config.BackendRest:
		client := supabase.NewClient(supabase.Config{
			BaseURL:    cfg.Rest.BaseURL,
			APIKey:     cfg.Rest.APIKey,
			Timeout:    cfg.Rest.Timeout,
			RetryCount: cfg.Rest.RetryCount,
		}, log)
		log.Info("Using hosted REST store", zap.String("url", cfg.Rest.BaseURL))
		return repository.NewRestRepositories(client), nil, nil
	case config.BackendMemory:
		log.Warn("Using in-memory store, data is lost on restart")
		return repository.NewMemoryRepositories(), nil, nil
	default:
		return nil, nil, errors.New("unsupported store backend " + cfg.StoreBackend)
	}
}

// buildPublisher fans auth events out to the Redis stream and, when enabled, MQTT.
func buildPublisher(cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (service.EventPublisher, func()) {
	var sinks service.MultiPublisher
	closer := func() {}

	if redisClient != nil && cfg.Audit.Stream != "" {
		sinks = append(sinks, service.NewStreamEventPublisher(redisClient, cfg.Audit.Stream, cfg.Audit.StreamMaxLen))
	}
	if cfg.MQTT.Enabled {
		client, err := commonmqtt.NewClient(&cfg.MQTT.MQTTConfig, log)
		if err != nil {
			log.Warn("MQTT audit sink disabled", zap.Error(err))
		} else {
			sinks = append(sinks, service.NewMQTTEventPublisher(client, cfg.MQTT.Topic))
			closer = client.Disconnect
		}
	}

	if len(sinks) == 0 {
		return service.NopPublisher{}, closer
	}
	return sinks, closer
}
