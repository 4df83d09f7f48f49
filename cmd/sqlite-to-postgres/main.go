// Точка входа sqlite-to-postgres — пакетный перенос каталога фильмов
// из файла SQLite в схему content PostgreSQL.
// Загружает конфигурацию, открывает обе БД, читает снимок каталога,
// загружает его в одной транзакции и (с флагом -check) сразу проверяет
// согласованность. Метрики запуска отправляются в Pushgateway.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bigkaa/movies-etl/internal/config"
	"github.com/bigkaa/movies-etl/internal/database"
	"github.com/bigkaa/movies-etl/internal/domain/model"
	"github.com/bigkaa/movies-etl/internal/metrics"
	"github.com/bigkaa/movies-etl/internal/repository"
	"github.com/bigkaa/movies-etl/internal/service"
	"github.com/bigkaa/movies-etl/internal/source"
)

func main() {
	check := flag.Bool("check", false, "после загрузки проверить согласованность источника и цели")
	flag.Parse()

	os.Exit(run(*check))
}

func run(check bool) int {
	// 1. Переменные окружения из .env (если файл есть)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Ошибка чтения .env", slog.String("error", err.Error()))
	}

	// 2. Конфигурация и логирование
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		return 1
	}
	logger := config.SetupLogger(cfg)
	logger.Info("sqlite-to-postgres запускается",
		slog.String("version", config.Version),
		slog.String("sqlite_path", cfg.SQLitePath),
		slog.Bool("check", check),
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
		// Отдельный контекст: метрики отправляются и после отмены запуска
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pusher.Push(pushCtx, m); err != nil {
			logger.Warn("Метрики не отправлены", slog.String("error", err.Error()))
		}
	}()

	// 3. Схема целевой БД (опционально)
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			return 1
		}
	}

	// 4. Подключения к источнику и цели
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

	// 5. Извлечение
	extractStart := time.Now()
	extractor := source.NewExtractor(sqliteDB, logger)
	snap, err := extractor.Extract(ctx)
	if err != nil {
		logger.Error("Ошибка чтения источника", slog.String("error", err.Error()))
		return 1
	}
	m.ObserveStage(metrics.StageExtract, extractStart)
	for _, t := range model.Tables {
		m.RowsExtracted.WithLabelValues(t.String()).Add(float64(snap.Len(t)))
	}

	// 6. Загрузка
	loader := service.NewLoader(repository.NewTxRunner(pool), cfg.DBSchema, cfg.BatchSize, m, logger)
	res, err := loader.Load(ctx, snap)
	if err != nil {
		logger.Error("Ошибка загрузки в PostgreSQL", slog.String("error", err.Error()))
		return 1
	}
	logger.Info("Загрузка завершена",
		slog.Int("rows", snap.Total()),
		slog.Int("inserted", res.Inserted()),
		slog.Int("skipped", res.Skipped()),
		slog.Duration("duration", res.Duration),
	)

	// 7. Проверка согласованности (-check)
	if check {
		target := repository.NewContentRepository(pool, cfg.DBSchema, cfg.BatchSize)
		checker := service.NewChecker(extractor, target, cfg.KeyCheckMode, os.Stdout, m, logger)
		if err := checker.Run(ctx); err != nil {
			return checkExitCode(logger, err)
		}
	}

	m.MarkSuccess()
	return 0
}

// checkExitCode логирует ошибку проверки и возвращает код выхода.
func checkExitCode(logger *slog.Logger, err error) int {
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
