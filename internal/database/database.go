// Пакет database — подключение к PostgreSQL через pgxpool, открытие
// исходного файла SQLite и применение миграций схемы каталога (golang-migrate).
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/bigkaa/movies-etl/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connect создаёт пул подключений к PostgreSQL.
// Выполняет ping для проверки доступности.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	// Задача однопоточная, больше одного соединения не нужно.
	poolCfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}

	logger.Info("Подключение к PostgreSQL установлено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
		slog.String("schema", cfg.DBSchema),
	)

	return pool, nil
}

// OpenSQLite открывает исходный файл SQLite только на чтение
// (драйвер ncruces/go-sqlite3, database/sql).
func OpenSQLite(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := OpenSQLiteDSN(ctx, cfg.SQLiteDSN())
	if err != nil {
		return nil, err
	}

	logger.Info("Источник SQLite открыт", slog.String("path", cfg.SQLitePath))
	return db, nil
}

// OpenSQLiteDSN открывает SQLite по произвольному DSN и проверяет доступность.
func OpenSQLiteDSN(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия SQLite: %w", err)
	}
	// Одно соединение: in-memory базы видны только в рамках своего соединения.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к SQLite: %w", err)
	}
	return db, nil
}

// Migrate создаёт схему каталога (если её нет) и применяет SQL-миграции
// из embedded FS. Таблицы создаются в cfg.DBSchema через search_path.
func Migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := ensureSchema(ctx, cfg); err != nil {
		return err
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Миграции применены",
		slog.String("schema", cfg.DBSchema),
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)

	return nil
}

// ensureSchema создаёт схему каталога отдельным коротким подключением.
func ensureSchema(ctx context.Context, cfg *config.Config) error {
	conn, err := pgx.Connect(ctx, cfg.DatabaseDSN())
	if err != nil {
		return fmt.Errorf("ошибка подключения для создания схемы: %w", err)
	}
	defer conn.Close(ctx)

	query := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{cfg.DBSchema}.Sanitize()
	if _, err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("ошибка создания схемы %s: %w", cfg.DBSchema, err)
	}
	return nil
}
