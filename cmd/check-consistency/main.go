// Точка входа check-consistency — проверка согласованности источника SQLite
// и схемы content PostgreSQL после загрузки. Отчёт по тестам пишется
// в stdout, логи в stderr. Код выхода 1, если хотя бы один тест не пройден.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bigkaa/movies-etl/internal/config"
	"github.com/bigkaa/movies-etl/internal/database"
	"github.com/bigkaa/movies-etl/internal/metrics"
	"github.com/bigkaa/movies-etl/internal/repository"
	"github.com/bigkaa/movies-etl/internal/service"
	"github.com/bigkaa/movies-etl/internal/source"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Ошибка чтения .env", slog.String("error", err.Error()))
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		return 1
	}
	logger := config.SetupLogger(cfg)
	logger.Info("check-consistency запускается",
		slog.String("version", config.Version),
		slog.String("mode", cfg.KeyCheckMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	m := metrics.New()
	hostname, _ := os.Hostname()
	pusher := metrics.NewPusher(cfg.PushgatewayURL, hostname, logger)
	defer func() {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pusher.Push(pushCtx, m); err != nil {
			logger.Warn("Метрики не отправлены", slog.String("error", err.Error()))
		}
	}()

	sqliteDB, err := database.OpenSQLite(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка открытия SQLite", slog.String("error", err.Error()))
		return 1
	}
	defer sqliteDB.Close()

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		return 1
	}
	defer pool.Close()

	checker := service.NewChecker(
		source.NewExtractor(sqliteDB, logger),
		repository.NewContentRepository(pool, cfg.DBSchema, cfg.BatchSize),
		cfg.KeyCheckMode,
		os.Stdout,
		m,
		logger,
	)
	if err := checker.Run(ctx); err != nil {
		var checkErr *service.CheckError
		if errors.As(err, &checkErr) {
			logger.Error("Проверка согласованности не пройдена",
				slog.Int("test", checkErr.Test),
				slog.String("reason", checkErr.Message),
			)
		} else {
			logger.Error("Ошибка проверки согласованности", slog.String("error", err.Error()))
		}
		return 1
	}

	m.MarkSuccess()
	return 0
}
