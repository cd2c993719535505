package main

import (
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"

	"library_auth/internal/auth"
	"library_auth/internal/config"
	"library_auth/internal/handler"
	"library_auth/internal/service"
	"library_auth/internal/storage"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "")

	flag.Parse()
	if configPath == "" {
		log.Fatal("failed get config path from flags")
	}

	cfg := config.MustLoadConfig(configPath)

	lgr := setupLogger(cfg.Env)
	lgr.Info("started library auth service", slog.String("env", cfg.Env))

	st, err := storage.NewPostgresStorage(cfg.DbURL)
	if err != nil {
		lgr.Error("failed to init storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.Close()

	codec := auth.NewTokenCodec(cfg.JWTSecret, cfg.TokenTTL)
	srvc := service.NewService(st, codec)
	hndlr := handler.NewHandler(srvc, lgr, cfg.Env)

	server := &http.Server{
		Addr:         cfg.Address,
		Handler:      hndlr.InitRoutes(),
		IdleTimeout:  cfg.IdleTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	lgr.Info("listening", slog.String("address", cfg.Address))

	if err := server.ListenAndServe(); err != nil {
		lgr.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
	return log
}
