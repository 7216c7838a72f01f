package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpadp "loan-tracker/internal/adapter/http"
	"loan-tracker/internal/adapter/notify"
	"loan-tracker/internal/adapter/repository/memory"
	"loan-tracker/internal/adapter/repository/mysql"
	"loan-tracker/internal/config"
	domain "loan-tracker/internal/domain/loan"
	notifdomain "loan-tracker/internal/domain/notification"
	"loan-tracker/internal/domain/uow"
	"loan-tracker/internal/infrastructure/cache"
	"loan-tracker/internal/infrastructure/db"
	"loan-tracker/internal/infrastructure/lock"
	"loan-tracker/internal/infrastructure/logging"
	"loan-tracker/internal/infrastructure/messaging"
	"loan-tracker/internal/usecase/analytics"
	"loan-tracker/internal/usecase/loan"
	"loan-tracker/internal/usecase/notification"
)

type stores struct {
	loans         domain.Repository
	tx            uow.UnitOfWork
	notifications notifdomain.Repository
	ping          func(ctx context.Context) error
}

func openStores(cfg *config.Config) (stores, error) {
	var (
		gdb *gorm.DB
		err error
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		st := memory.NewStore()
		return stores{loans: st, tx: st, notifications: st.Notifications(), ping: func(context.Context) error { return nil }}, nil
	case config.DriverSQLite:
		gdb, err = db.OpenSQLite(cfg.SQLitePath)
	default:
		gdb, err = db.OpenGorm(cfg.MySQLDSN())
	}
	if err != nil {
		return stores{}, err
	}
	if err := mysql.Migrate(gdb); err != nil {
		return stores{}, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return stores{}, err
	}
	return stores{
		loans:         mysql.NewLoanRepository(gdb),
		tx:            mysql.NewGormUoW(gdb),
		notifications: mysql.NewNotificationRepository(gdb),
		ping:          sqlDB.PingContext,
	}, nil
}

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, os.Stdout)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(cfg)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}

	var (
		rdb    *redis.Client
		locker loan.Locker = lock.NoopLocker{}
		checks             = []httpadp.HealthCheck{{Name: cfg.StoreDriver, Probe: st.ping}}
	)
	if cfg.RedisAddr != "" {
		rdb, err = cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Fatal("open redis")
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, cfg.LoanLockTTL())
		checks = append(checks, httpadp.HealthCheck{Name: "redis", Probe: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	sinks := []notification.Sink{notify.NewStoreSink(st.notifications)}
	if cfg.SMTPHost != "" {
		sinks = append(sinks, notify.NewEmailSink(notify.SMTPConfig{
			Host: cfg.SMTPHost, Port: cfg.SMTPPort,
			Username: cfg.SMTPUser, Password: cfg.SMTPPass, From: cfg.SenderEmail,
		}))
	}
	var ps *pubsub.Client
	if cfg.PubSubProjectID != "" {
		var topic *pubsub.Topic
		ps, topic, err = messaging.OpenTopic(ctx, cfg.PubSubProjectID, cfg.PubSubTopic)
		if err != nil {
			log.WithError(err).Fatal("open pubsub topic")
		}
		sinks = append(sinks, notify.NewPubSubSink(topic))
	}
	dispatcher := notification.NewDispatcher(notification.DispatcherConfig{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueue,
	}, log, sinks...)

	loans := loan.NewUsecase(st.loans, st.tx,
		loan.WithLocker(locker),
		loan.WithEmitter(dispatcher),
		loan.WithLogger(log),
	)
	stats := analytics.NewUsecase(st.loans, rdb, log)
	refresher, err := analytics.NewRefresher(stats, cfg.AnalyticsCron, log)
	if err != nil {
		log.WithError(err).Fatal("analytics schedule")
	}
	refresher.Start()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger(), middleware.Recover())
	httpadp.Register(e, httpadp.Deps{
		Loans:          loans,
		Analytics:      stats,
		Notifications:  notification.NewUsecase(st.notifications),
		JWTSecret:      []byte(cfg.JWTSecret),
		Redis:          rdb,
		IdempotencyTTL: cfg.IdempotencyTTL(),
		Log:            log,
		HealthChecks:   checks,
	})

	go func() {
		addr := ":" + cfg.AppPort
		log.WithField("addr", addr).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	refresher.Stop()
	// drain queued notifications before closing their sinks
	dispatcher.Close()
	if ps != nil {
		_ = ps.Close()
	}
	log.WithFields(logrus.Fields{"driver": cfg.StoreDriver}).Info("stopped")
}
