package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Lee_Moments/internal/config"
	"Lee_Moments/internal/handler"
	"Lee_Moments/internal/middleware"
	"Lee_Moments/internal/pkg"
	"Lee_Moments/internal/repository/mysql"
	"Lee_Moments/internal/repository/redis"
	"Lee_Moments/internal/router"
	"Lee_Moments/internal/service"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pkg.AccessSecret = []byte(cfg.JWTAccessSecret)

	db, err := mysql.InitDB(cfg.MySQLDSN)
	if err != nil {
		return err
	}
	// 自动建表（开发阶段 OK）
	if cfg.AutoMigrate {
		if err := mysql.AutoMigrate(db); err != nil {
			return err
		}
	}

	// 连接redis
	rdb, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	var locker service.Locker = pkg.NewKeyedMutex()
	if cfg.RedisLocking {
		locker = &redis.MomentLock{RDB: rdb, TTL: cfg.LockTTL, Wait: cfg.LockWait}
	}

	users := &mysql.UserRepository{DB: db}
	outbox := &mysql.OutboxRepository{DB: db}
	deps := service.Deps{
		Circles:       &mysql.CircleRepository{DB: db},
		Members:       &mysql.CircleMemberRepository{DB: db},
		Follows:       &mysql.CircleFollowRepository{DB: db},
		Moments:       &mysql.MomentRepository{DB: db},
		Registrations: &mysql.RegistrationRepository{DB: db},
		Comments:      &mysql.CommentRepository{DB: db},
		Users:         users,
		Tx:            &mysql.TxManager{DB: db},
		Locker:        locker,
		Notifier:      service.NewOutboxNotifier(outbox),
		Logger:        logger,
	}

	// 通知出口
	var sender service.Sender
	switch cfg.NotifySink {
	case config.SinkKafka:
		producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			return err
		}
		defer producer.Close()
		sender = service.KafkaSender(producer)
	case config.SinkMail:
		sender = service.MailSender(pkg.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, users, cfg.PublicBaseURL)
	default:
		sender = service.LogSender(logger)
	}
	relayer := service.NewOutboxRelayer(outbox, sender, cfg.OutboxBatchSize, cfg.OutboxMaxRetry, cfg.OutboxInterval, logger)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relayer.Run(ctx)
	}()

	regs := service.NewRegistrationService(deps)
	h := router.Handlers{
		Circle:       handler.NewCircleHandler(service.NewCircleService(deps, regs), logger),
		Moment:       handler.NewMomentHandler(service.NewMomentService(deps, regs), logger),
		Registration: handler.NewRegistrationHandler(regs, logger),
		Comment:      handler.NewCommentHandler(service.NewCommentService(deps), logger),
	}
	auth := middleware.AuthMiddleware(&redis.TokenRepository{RDB: rdb}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.InitRouter(h, auth),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "sink", cfg.NotifySink, "redis_locking", cfg.RedisLocking)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-relayDone
	logger.Info("server stopped")
	return nil
}
