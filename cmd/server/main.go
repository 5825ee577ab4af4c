package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/distributor-portal/internal/config"
	"github.com/iliyamo/distributor-portal/internal/database"
	"github.com/iliyamo/distributor-portal/internal/handler"
	"github.com/iliyamo/distributor-portal/internal/middleware"
	"github.com/iliyamo/distributor-portal/internal/queue"
	"github.com/iliyamo/distributor-portal/internal/repository"
	"github.com/iliyamo/distributor-portal/internal/router"
	"github.com/iliyamo/distributor-portal/internal/service"
)

func main() {
	// .env is a development convenience; in production the variables come
	// from the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client degrades rate limiting and response
	// caching to pass-through.
	rdb := config.NewRedisClient()

	// Repositories.
	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	tokens := repository.NewTokenRepo(db)
	orders := repository.NewOrderRepo(db)
	apps := repository.NewAppRepo(db)
	appUsers := repository.NewAppUserRepo(db)
	purchases := repository.NewPurchaseRepo(db)

	// Services.
	issuer := service.NewTokenIssuer(apps, tokens, cfg.TokenTTLDays)
	registrar := service.NewRegistrar(tokens, purchases, appUsers, users, cfg.BcryptCost, queue.PublishCommission)
	sweeper := service.NewSweeper(orders, appUsers, users, cfg.SweepBatchSize)

	// Handlers.
	authH := handler.NewAuthHandler(cfg, users, sessions)
	portalH := handler.NewPortalHandler(issuer, registrar, sweeper, tokens, orders, appUsers, users)
	catalogH := handler.NewCatalogHandler(apps)
	webhookH := handler.NewWebhookHandler(purchases)

	// Portal action registry, validated for completeness before serving.
	reg := handler.NewActionRegistry()
	portalH.RegisterActions(reg)
	if err := reg.Validate(); err != nil {
		log.Fatalf("action registry: %v", err)
	}

	// Commission events are consumed into an audit log; the consumer
	// reconnects on its own and must not block startup.
	go func() {
		if err := queue.StartCommissionConsumer(); err != nil {
			log.Printf("commission consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPortal(e, reg, cfg.JWTSecret)
	router.RegisterPublic(e, catalogH, webhookH, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
