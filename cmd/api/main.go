package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"paymob-integration/internal/client"
	"paymob-integration/internal/config"
	"paymob-integration/internal/repository"
	"paymob-integration/internal/server"
	"paymob-integration/internal/service"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	db, err := client.InitDB(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("database init failed")
	}

	orderRepo := repository.NewOrderRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	payableRepo := repository.NewPayableRepository(db)

	deliverer := service.NewLogDeliverer(logger)
	notifier := service.NewLogNotifier(logger)
	successURL := service.NewStaticSuccessURL(cfg.Paymob.SuccessURL)

	orders := service.NewOrderService(db, orderRepo, paymentRepo, deliverer, notifier, logger)
	checkout := service.NewCheckoutService(accountRepo, service.NewDBPayableResolver(payableRepo), orders,
		client.NewPaymobClient, client.NewLegacyClient, cfg.Paymob.BaseURL, logger)
	callback := service.NewCallbackService(orderRepo, accountRepo, orders, notifier, successURL, logger)
	actions := service.NewActionService(orderRepo, accountRepo, orders, client.NewPaymobClient, logger)

	srv := server.NewServer(checkout, callback, actions, logger)
	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	logger.Info().Str("addr", serverAddr).Msg("starting http server")
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info().Msg("signal received, starting graceful shutdown")

	if err := srv.Shutdown(); err != nil {
		logger.Fatal().Err(err).Msg("http server shutdown error")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.Log.Format == "console" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}
