package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Storefront/config"
	"Storefront/jwt"
	"Storefront/logger"
	"Storefront/mailer"
	"Storefront/payment"
	"Storefront/rabbit"
	"Storefront/routers"
	"Storefront/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic("無法讀取設定檔: " + err.Error())
	}

	log := logger.New(cfg.Server.Name, cfg.Log.Level)
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.SetupDatabaseConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("無法連接到資料庫")
	}
	defer func() {
		dbInstance, _ := db.DB()
		_ = dbInstance.Close()
	}()

	rdb := config.SetupRedisConnection(cfg)
	if rdb != nil {
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("無法連接到Redis")
		}
		defer rdb.Close()
	} else {
		log.Warn().Msg("redis not configured, product cache and checkout lock disabled")
	}

	signer, err := jwt.LoadSigner(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("無法讀取JWT金鑰")
	}

	var sender mailer.Sender = &mailer.Log{Log: log, From: cfg.Mail.From}
	if cfg.Rabbit.URL != "" {
		conn, err := rabbit.Connect(cfg.Rabbit.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("無法連接到RabbitMQ")
		}
		defer conn.Close()

		if err := conn.DeclareQueue(cfg.Rabbit.Exchange, cfg.Rabbit.MailQueue); err != nil {
			log.Fatal().Err(err).Msg("無法宣告郵件佇列")
		}
		sender = &mailer.Queue{
			Publisher: rabbit.NewPublisher(conn.Ch, cfg.Rabbit.Exchange),
			Key:       cfg.Rabbit.MailQueue,
			From:      cfg.Mail.From,
		}
	}

	svc := services.New(services.Deps{
		DB:             db,
		Redis:          rdb,
		Gateway:        newGateway(cfg.Payment, log),
		Mailer:         sender,
		Signer:         signer,
		Log:            log,
		FrontendURL:    cfg.Mail.FrontendURL,
		TokenTTL:       cfg.JWT.TTL,
		PaymentTimeout: cfg.Payment.Timeout,
		LockTTL:        cfg.Payment.LockTTL,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           routers.SetupRouters(svc, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

func newGateway(cfg config.PaymentConfig, log zerolog.Logger) payment.Gateway {
	if cfg.Driver == "fake" {
		log.Warn().Msg("using fake payment gateway, every charge succeeds")
		return payment.NewFake()
	}
	return payment.NewStripe(cfg.BaseURL, cfg.SecretKey, cfg.Timeout)
}
