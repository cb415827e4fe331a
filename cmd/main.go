package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pharmacy/internal/cart"
	"pharmacy/internal/config"
	"pharmacy/internal/domain"
	"pharmacy/internal/events"
	httpapi "pharmacy/internal/http"
	"pharmacy/internal/logger"
	"pharmacy/internal/repository"
	"pharmacy/internal/service"

	_ "pharmacy/docs"
)

// @title Pharmacy Storefront API
// @version 1.0
// @description Каталог аптеки, корзина, доставка и оформление заказов.
// @BasePath /api/v1
func main() {
	_ = godotenv.Load() // .env необязателен
	cfg := config.LoadEnv()

	logCfg := logger.Config{
		Level:             cfg.Logger.Level,
		Encoding:          cfg.Logger.Encoding,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logCfg.IsDevelopment = true
	}
	appLogger := logger.NewZapLogger(logCfg)
	defer appLogger.Sync()

	ctx := context.Background()

	var (
		catalog repository.CatalogRepository
		writer  repository.CatalogWriter
		orders  repository.OrderRepository
		tx      repository.TxManager
	)
	switch cfg.Store.Driver {
	case "postgres":
		db, err := sqlx.Connect("pgx", cfg.Postgres.DSN())
		if err != nil {
			appLogger.Fatal("Could not connect to database", zap.Error(err))
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second)
		db.SetConnMaxIdleTime(time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second)

		pg := repository.NewPGStore(db)
		if err := pg.Migrate(ctx); err != nil {
			appLogger.Fatal("Could not apply schema", zap.Error(err))
		}
		appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))
		catalog, writer, orders, tx = pg, pg, pg, pg
	case "memory":
		store := repository.NewMemoryStore()
		catalog, writer, orders, tx = store, store, repository.NewMemoryOrders(store), repository.NewMemoryTx(store)
		appLogger.Info("Using in-memory store")
	default:
		appLogger.Fatal("Unknown store driver", zap.String("driver", cfg.Store.Driver))
	}

	if cfg.Store.SeedCatalog {
		if err := repository.SeedCatalog(ctx, writer); err != nil {
			appLogger.Fatal("Could not seed catalog", zap.Error(err))
		}
		appLogger.Info("Demo catalog seeded", zap.Int("products", len(repository.DemoProducts)))
	}

	orderOpts := []service.OrderOption{
		service.WithLogger(appLogger.With(zap.String("component", "orders"))),
		service.WithConfirmDelay(cfg.Checkout.ConfirmDelay),
	}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Fatal("Could not connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

		rc := repository.NewRedisCache(redisClient)
		cached := repository.NewCachedCatalog(catalog, rc, cfg.Redis.CacheTTL, func(op string, err error) {
			appLogger.Warn("branch cache error", zap.String("op", op), zap.Error(err))
		})
		if err := cached.Invalidate(ctx); err != nil {
			appLogger.Warn("branch cache invalidate failed", zap.Error(err))
		}
		catalog = cached
		orderOpts = append(orderOpts, service.WithLocker(repository.NewRedisLocker(rc, 5*time.Second)))
	}

	if cfg.RabbitMQ.Host != "" {
		mq, err := events.Dial(events.Config{
			Host:     cfg.RabbitMQ.Host,
			Port:     cfg.RabbitMQ.Port,
			User:     cfg.RabbitMQ.User,
			Password: cfg.RabbitMQ.Password,
			VHost:    cfg.RabbitMQ.VHost,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to RabbitMQ", zap.Error(err))
		}
		defer mq.Close()
		if err := mq.DeclareTopic(cfg.RabbitMQ.Exchange); err != nil {
			appLogger.Fatal("Could not declare exchange", zap.Error(err))
		}
		appLogger.Info("Connected to RabbitMQ", zap.String("exchange", cfg.RabbitMQ.Exchange))
		orderOpts = append(orderOpts, service.WithNotifier(events.NewPublisher(mq, cfg.RabbitMQ.Exchange)))
	}

	catalogSvc := service.NewCatalogService(catalog, cfg.Checkout.FeaturedCount)
	ordersSvc := service.NewOrderService(orders, tx, orderOpts...)

	cartLogger := appLogger.With(zap.String("component", "cart"))
	carts := cart.NewRegistry(cfg.Server.CartSessionTTL, func(sessionID string, s *cart.Store) {
		s.Subscribe(func(items []domain.CartItem) {
			cartLogger.Debug("cart changed", zap.String("session_id", sessionID), zap.Int("lines", len(items)))
		})
	})

	srv := httpapi.NewServer(catalogSvc, ordersSvc, carts, appLogger.With(zap.String("component", "http")))

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPPort,
		Handler: srv.Engine(),
	}

	stopEvict := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				if n := carts.Evict(now); n > 0 {
					appLogger.Debug("idle carts evicted", zap.Int("count", n))
				}
			case <-stopEvict:
				return
			}
		}
	}()

	go func() {
		appLogger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("shutdown error", zap.Error(err))
	}
	close(stopEvict)
	// ожидающие автоподтверждения отбрасываются
	ordersSvc.Close()
}
