package database

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/movies-etl/internal/config"
	"github.com/bigkaa/movies-etl/internal/domain/model"
)

// setupTestDB запускает PostgreSQL в Docker-контейнере через testcontainers.
func setupTestDB(t *testing.T) *config.Config {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("movies_test"),
		postgres.WithUsername("app"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	return &config.Config{
		DBHost:     host,
		DBPort:     mustAtoi(t, port.Port()),
		DBName:     "movies_test",
		DBUser:     "app",
		DBPassword: "test-password",
		DBSSLMode:  "disable",
		DBSchema:   "content",
	}
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	if err != nil {
		t.Fatalf("некорректный порт %q: %v", s, err)
	}
	return n
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// TestOpenSQLiteDSN проверяет открытие SQLite в памяти.
func TestOpenSQLiteDSN(t *testing.T) {
	ctx := context.Background()

	db, err := OpenSQLiteDSN(ctx, ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteDSN() вернул ошибку: %v", err)
	}
	defer db.Close()

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		t.Fatalf("SELECT 1: %v", err)
	}
	if one != 1 {
		t.Errorf("SELECT 1 = %d", one)
	}
}

// TestOpenSQLite_ReadOnly проверяет, что источник открывается только на чтение.
func TestOpenSQLite_ReadOnly(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.sqlite")

	rw, err := OpenSQLiteDSN(ctx, "file:"+path)
	if err != nil {
		t.Fatalf("OpenSQLiteDSN() вернул ошибку: %v", err)
	}
	if _, err := rw.ExecContext(ctx, "CREATE TABLE genre (id TEXT PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("CREATE TABLE: %v", err)
	}
	rw.Close()

	cfg := &config.Config{SQLitePath: path}
	ro, err := OpenSQLite(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("OpenSQLite() вернул ошибку: %v", err)
	}
	defer ro.Close()

	if _, err := ro.ExecContext(ctx, "INSERT INTO genre (id, name) VALUES ('x', 'y')"); err == nil {
		t.Error("запись в источник, открытый только на чтение, должна завершиться ошибкой")
	}
}

// TestOpenSQLite_MissingFile проверяет ошибку для несуществующего файла.
func TestOpenSQLite_MissingFile(t *testing.T) {
	cfg := &config.Config{SQLitePath: filepath.Join(t.TempDir(), "missing.sqlite")}

	db, err := OpenSQLite(context.Background(), cfg, testLogger())
	if err == nil {
		db.Close()
		t.Fatal("OpenSQLite() для несуществующего файла должен вернуть ошибку")
	}
}

// TestConnect проверяет подключение к PostgreSQL через pgxpool.
func TestConnect(t *testing.T) {
	cfg := setupTestDB(t)
	ctx := context.Background()

	pool, err := Connect(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("pool.Ping() вернул ошибку: %v", err)
	}
}

// TestMigrate проверяет создание схемы и таблиц каталога.
func TestMigrate(t *testing.T) {
	cfg := setupTestDB(t)
	ctx := context.Background()
	logger := testLogger()

	if err := Migrate(ctx, cfg, logger); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}

	// Повторное применение без ошибки (ErrNoChange)
	if err := Migrate(ctx, cfg, logger); err != nil {
		t.Fatalf("Повторный Migrate() вернул ошибку: %v", err)
	}

	pool, err := Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	for _, table := range model.Tables {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = $1 AND table_name = $2
			)`, cfg.DBSchema, string(table)).Scan(&exists)
		if err != nil {
			t.Fatalf("Ошибка проверки таблицы %s: %v", table, err)
		}
		if !exists {
			t.Errorf("Таблица %s.%s не создана", cfg.DBSchema, table)
		}
	}
}
