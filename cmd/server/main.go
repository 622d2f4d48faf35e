package main // Entry point of the parking billing API

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"

	"github.com/iliyamo/parking-lot-billing/internal/billing"
	"github.com/iliyamo/parking-lot-billing/internal/config"
	"github.com/iliyamo/parking-lot-billing/internal/database"
	"github.com/iliyamo/parking-lot-billing/internal/handler"
	"github.com/iliyamo/parking-lot-billing/internal/middleware"
	"github.com/iliyamo/parking-lot-billing/internal/queue"
	"github.com/iliyamo/parking-lot-billing/internal/realtime"
	"github.com/iliyamo/parking-lot-billing/internal/redislock"
	"github.com/iliyamo/parking-lot-billing/internal/repository"
	"github.com/iliyamo/parking-lot-billing/internal/router"
	"github.com/iliyamo/parking-lot-billing/internal/scheduler"
	"github.com/iliyamo/parking-lot-billing/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
	cfg := config.Load()
	bcfg := config.LoadBillingConfig()
	broker := config.LoadBrokerConfig()

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis: unavailable, running without locks, rate limiting and cache")
	} else {
		defer rdb.Close()
	}

	ids, err := billing.NewSnowflakeIDs(bcfg.SnowflakeNode)
	if err != nil {
		log.Fatalf("snowflake: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub()
	go hub.Run(ctx)

	notifiers := service.Multi{hub}
	if broker.Enabled {
		notifiers = append(notifiers, &service.Publisher{URL: broker.URL, Queue: broker.Queue})
		consumer := &queue.Consumer{URL: broker.URL, Queue: broker.Queue, LogDir: os.Getenv("EVENT_LOG_DIR")}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("event-consumer: stopped: %v", err)
			}
		}()
	}

	opts := []billing.Option{
		billing.WithPolicy(billing.Policy{
			FirstPaymentGrace:   bcfg.GracePeriod,
			ExitWindow:          bcfg.ExitWindow,
			CouponValidity:      bcfg.CouponValidity,
			UsedCouponRetention: bcfg.UsedCouponRetention,
		}),
		billing.WithNotifier(notifiers),
		billing.WithTransactionIDs(ids),
	}
	if rdb != nil {
		opts = append(opts, billing.WithLocker(redislock.New(rdb, 10*time.Second)))
	}

	ledger := repository.NewLedger(db)
	payments := billing.NewPayments(ledger, opts...)
	coupons := billing.NewCoupons(ledger, opts...)
	gate := billing.NewGate(ledger, opts...)

	sched := config.LoadSchedulerConfig()
	var cron *scheduler.Scheduler
	if sched.Enabled {
		cron, err = scheduler.New(sched, coupons)
		if err != nil {
			log.Fatalf("scheduler: invalid COUPON_SWEEP_SPEC %q: %v", sched.CouponSweepSpec, err)
		}
		cron.Start()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	if cfg.Env == "prod" {
		e.Logger.SetLevel(glog.INFO)
	} else {
		e.Logger.SetLevel(glog.DEBUG)
	}
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	cacheCfg := config.LoadCacheConfig()
	router.RegisterRoutes(e, handler.NewHealthHandler(db))
	router.RegisterKiosk(e,
		handler.NewKioskHandler(payments, coupons, gate),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterLots(e,
		handler.NewLotHandler(gate, coupons, ledger.Lots, ledger.Sessions, cacheCfg, rdb),
		middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterAdmin(e,
		handler.NewAdminHandler(cfg, repository.NewAdminRepo(db), ledger, payments, coupons, gate, hub),
		cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cron != nil {
		cron.Stop(shutdownCtx)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
