package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/router"
	"github.com/iliyamo/cinema-booking/internal/scheduler"
	"github.com/iliyamo/cinema-booking/internal/service"
)

func main() {
	cfg := config.Load()
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db := openStore(ctx, cfg, log)
	if db != nil {
		defer db.Close()
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	}

	var publisher service.EventPublisher = queue.LogPublisher{Log: log}
	if cfg.Events.Enabled {
		publisher = queue.NewAMQPPublisher(cfg.Events.URL, log)
		if cfg.Events.StartConsumer {
			consumer := &queue.Consumer{URL: cfg.Events.URL, LogDir: cfg.Events.LogDir, Log: log}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("booking consumer stopped")
				}
			}()
		}
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithHoldTTL(cfg.Booking.HoldTTL),
		service.WithRefundPercent(cfg.Booking.RefundPercent),
		service.WithRetentionDays(cfg.Scheduler.RetentionDays),
		service.WithPublisher(publisher),
	}
	seats := service.NewSeatService(store, opts...)
	bookings := service.NewBookingService(store, opts...)
	showtimes := service.NewShowtimeService(store, opts...)
	retention := service.NewRetentionService(store, opts...)
	payments := service.NewPaymentService(store, bookings, service.MockGateway{},
		cfg.Payment.KeyID, cfg.Payment.KeySecret, cfg.Payment.Currency, opts...)

	var jobs *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		var err error
		if jobs, err = scheduler.New(cfg.Scheduler, seats, retention, log); err != nil {
			log.WithError(err).Fatal("scheduler setup failed")
		}
		jobs.Start()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))

	cacheCfg := config.LoadCacheConfig()
	deps := map[string]handler.Pinger{}
	if db != nil {
		deps["mysql"] = db
	}
	if rdb != nil {
		deps["redis"] = redisPinger{rdb}
	}
	router.RegisterRoutes(e, deps)
	router.RegisterPublic(e, handler.NewPublicHandler(showtimes, seats), middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterCustomer(e, handler.NewCustomerHandler(seats, bookings), handler.NewPaymentHandler(payments), cfg.JWTSecret, router.Limits{
		Holds:    middleware.NewTokenBucket(config.LoadRateLimitConfig("holds", 20), rdb, log),
		Bookings: middleware.NewTokenBucket(config.LoadRateLimitConfig("bookings", 5), rdb, log),
	})
	admin := handler.NewAdminHandler(showtimes, seats, bookings)
	admin.ScreenChanged = func(ctx context.Context, id uint64) {
		if err := middleware.Invalidate(ctx, cacheCfg, rdb, "/v1/screens/"+strconv.FormatUint(id, 10)); err != nil {
			log.WithError(err).WithField("screen_id", id).Warn("cache invalidation failed")
		}
	}
	router.RegisterAdmin(e, admin, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.StoreDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if jobs != nil {
		if err := jobs.Stop(); err != nil {
			log.WithError(err).Warn("scheduler shutdown")
		}
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.StandardLogger()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// openStore returns the configured store.  The *sql.DB is nil for the
// memory driver.
func openStore(ctx context.Context, cfg config.Config, log *logrus.Logger) (repository.Store, *sql.DB) {
	if cfg.StoreDriver == config.StoreMemory {
		mem := repository.NewMemoryStore()
		seedMemory(mem)
		log.Warn("using in-memory store; data is lost on restart")
		return mem, nil
	}
	db, err := database.Open(database.Options{
		User:         cfg.DBUser,
		Pass:         cfg.DBPass,
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		Name:         cfg.DBName,
		MaxOpenConns: 25,
		MaxIdleConns: 10,
		ConnLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.WithError(err).Fatal("database open failed")
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("database migration failed")
		}
	}
	return repository.NewSQLStore(db), db
}

// seedMemory adds a demo customer (id 1) and admin (id 2) so tokens for
// those ids work against the memory store.
func seedMemory(mem *repository.MemoryStore) {
	now := time.Now().UTC()
	mem.PutUser(model.User{ID: 1, Name: "Demo Customer", Email: "customer@example.com", Role: model.RoleCustomer, CreatedAt: now})
	mem.PutUser(model.User{ID: 2, Name: "Demo Admin", Email: "admin@example.com", Role: model.RoleAdmin, CreatedAt: now})
}

type redisPinger struct{ c *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error { return p.c.Ping(ctx).Err() }
