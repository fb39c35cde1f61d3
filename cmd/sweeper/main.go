package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"fable-server/internal/config"
	internaldb "fable-server/internal/database"
	"fable-server/internal/sweeper"
	"fable-server/pkg/database"
	shareddb "fable-server/shared/database"
)

func main() {
	// Загрузка переменных окружения
	if err := godotenv.Load(); err != nil {
		// В production .env может не использоваться
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	initLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Репозитории внутри используют zap, как и остальной движок
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init zap logger")
	}
	defer zapLogger.Sync() //nolint:errcheck

	log.Info().Msg("connecting to database...")
	db, err := initDatabase(cfg, zapLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("database connection established")

	if cfg.ApplyMigrations {
		log.Info().Msg("applying database migrations...")
		if err := internaldb.ApplyMigrations(db.Pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
		log.Info().Msg("database migrations applied successfully")
	}

	// HTTP-сервер для эндпоинта /metrics в отдельной горутине
	go startMetricsServer(cfg.MetricsPort)

	scenes := shareddb.NewPgSceneRepository(db.Pool, zapLogger)
	narrations := shareddb.NewPgNarrationRepository(db.Pool, zapLogger)
	grants := shareddb.NewPgCreditGrantRepository(db.Pool, zapLogger)

	s := sweeper.New(scenes, narrations, grants, nil, cfg.RetentionWindow, log.Logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s.Run(ctx, cfg.SweepInterval)
	log.Info().Msg("consistency sweeper stopped")
}

func initLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.With().Caller().Logger()

	// В режиме разработки используем более читаемый вывод
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Caller().Logger()
	}

	logLevel := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logLevel = lvl
	}
	zerolog.SetGlobalLevel(logLevel)
}

func initDatabase(cfg *config.Config, logger *zap.Logger) (*database.Database, error) {
	port, err := strconv.Atoi(cfg.DBPort)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT %q: %w", cfg.DBPort, err)
	}
	return database.New(database.Config{
		Host:     cfg.DBHost,
		Port:     port,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		MaxConns: int32(cfg.DBMaxConns),
	}, logger)
}

// startMetricsServer запускает HTTP-сервер для эндпоинта /metrics
func startMetricsServer(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := ":" + port
	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
