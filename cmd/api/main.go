package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"volunteerhub/internal/config"
	"volunteerhub/internal/model"
	"volunteerhub/internal/pkg"
	"volunteerhub/internal/repository/mysql"
	"volunteerhub/internal/repository/redis"
	"volunteerhub/internal/router"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}

	pkg.ConfigureJWT([]byte(cfg.JWTAccessSecret), []byte(cfg.JWTRefreshSecret))

	if err := mysql.InitDB(cfg.MySQLDSN); err != nil {
		log.Fatal("mysql connect failed", zap.Error(err))
	}
	if err := mysql.DB.AutoMigrate(
		&model.User{},
		&model.Event{},
		&model.Registration{},
		&model.CommunicationChannel{},
		&model.ChannelPost{},
		&model.PostComment{},
		&model.PostLike{},
		&model.PushSubscription{},
		&model.NotificationOutbox{},
	); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	if err := redis.Init(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		log.Fatal("redis connect failed", zap.Error(err))
	}
	defer redis.Close()

	deps := router.Deps{
		DB:         mysql.DB,
		Log:        log,
		Sessions:   &redis.SessionRepository{},
		ResetCodes: &redis.ResetCodeRepository{},
		LikeCache:  redis.NewLikeCacheRepository(),
		CacheLock:  &redis.DistLock{},
	}

	if cfg.SMTPHost != "" {
		smtp := pkg.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}
		deps.SendEmail = func(to, subject, htmlBody string) error {
			return pkg.SendEmail(smtp, to, subject, htmlBody)
		}
	}

	push := pkg.NewPushSender(pkg.VAPIDConfig{
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		Subject:    cfg.VAPIDSubject,
	})
	deps.Push = push
	if !push.Configured() {
		log.Warn("vapid keys not set, web push disabled")
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			log.Fatal("kafka connect failed", zap.Error(err))
		}
		defer producer.Close()
		deps.Publisher = producer
	}

	svcs := router.BuildServices(deps)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go svcs.Notifications.RunRelayer(ctx)

	r := router.InitRouter(deps, svcs)
	log.Info("listening", zap.String("addr", cfg.Addr))
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
