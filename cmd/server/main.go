package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"backend-queueflex/internal/audit"
	"backend-queueflex/internal/auth"
	"backend-queueflex/internal/catalog"
	"backend-queueflex/internal/config"
	"backend-queueflex/internal/http/handler"
	"backend-queueflex/internal/http/middleware"
	"backend-queueflex/internal/http/router"
	"backend-queueflex/internal/janitor"
	"backend-queueflex/internal/logger"
	"backend-queueflex/internal/metrics"
	"backend-queueflex/internal/queue"
	"backend-queueflex/internal/realtime"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	config.LoadEnv()
	cfg, err := config.Load()
	logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.UseDatabase() {
		db, err = config.OpenDB(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()
	}

	var rdb *redis.Client
	if cfg.UseRedis() {
		rdb, err = config.NewRedis(ctx, cfg)
		if err != nil {
			// The cache is optional; run straight against the registry.
			log.Warn().Err(err).Msg("redis unavailable, catalog cache disabled")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	cat, err := buildCatalog(cfg, db, rdb)
	if err != nil {
		log.Fatal().Err(err).Msg("catalog setup failed")
	}

	verifier, err := buildVerifier(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("auth setup failed")
	}

	engine := queue.New(cat, queue.WithLookupTimeout(cfg.CatalogTimeout))

	m := metrics.New()
	engine.Subscribe(m.Listen)

	hub := realtime.NewHub(engine.Waiting, 0)
	engine.Subscribe(hub.Listen)

	var authHandler *handler.AuthHandler
	if db != nil {
		trail := audit.NewTrail(audit.NewMySQL(db), cfg.AuditBuffer, 5*time.Second)
		defer trail.Close()
		engine.Subscribe(trail.Listen)

		if cfg.JWTSecret != "" {
			issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
			login := auth.NewLogin(auth.NewMySQLUsers(db), issuer, auth.NewRoles(cfg.OperatorRoles...))
			authHandler = handler.NewAuthHandler(login)
		}
	}

	sweeper, err := janitor.New(engine, cfg.RetentionCron, cfg.Retention)
	if err != nil {
		log.Fatal().Err(err).Msg("janitor setup failed")
	}
	sweeper.Start()
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE",
	}))

	router.Setup(app, router.Deps{
		Verifier:        verifier,
		Queue:           handler.NewQueueHandler(engine, m),
		Services:        handler.NewServiceHandler(cat, engine),
		Auth:            authHandler,
		Hub:             hub,
		Metrics:         m.Handler(),
		MetricsUser:     cfg.MetricsUser,
		MetricsPassword: cfg.MetricsPassword,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().
		Str("addr", cfg.Addr()).
		Str("catalog", cfg.CatalogMode).
		Str("auth", cfg.AuthMode).
		Msg("server starting")
	if err := app.Listen(cfg.Addr()); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}

func buildCatalog(cfg config.Config, db *sql.DB, rdb *redis.Client) (catalog.Catalog, error) {
	var cat catalog.Catalog
	switch cfg.CatalogMode {
	case config.CatalogMySQL:
		if db == nil {
			return nil, errors.New("CATALOG_MODE=mysql needs a database")
		}
		cat = catalog.NewMySQL(db)
	case config.CatalogHTTP:
		cat = catalog.NewHTTP(cfg.CatalogURL, cfg.CatalogToken, cfg.CatalogTimeout)
	default:
		services, err := catalog.ParseServices(cfg.StaticServices)
		if err != nil {
			return nil, err
		}
		cat = catalog.NewStatic(services...)
	}

	if rdb != nil {
		cat = catalog.NewCached(cat, rdb, cfg.CacheTTL)
	}
	if cfg.OpenHours != "" {
		hours, err := catalog.ParseOpeningHours(cfg.OpenHours, cfg.TZLocation)
		if err != nil {
			return nil, err
		}
		cat = catalog.NewScheduled(cat, hours, time.Now)
	}
	return cat, nil
}

func buildVerifier(cfg config.Config) (auth.Verifier, error) {
	if cfg.AuthMode == config.AuthRemote {
		return auth.NewRemoteVerifier(cfg.AuthURL, cfg.AuthTimeout), nil
	}
	return auth.NewJWTVerifier(cfg.JWTSecret, auth.NewRoles(cfg.OperatorRoles...)), nil
}
