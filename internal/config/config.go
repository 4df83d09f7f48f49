// Пакет config — загрузка и валидация конфигурации ETL-задачи
// из переменных окружения (опционально из файла .env).
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Режимы проверки покрытия ключей (Test 3 в check-consistency).
const (
	// KeyCheckBidirectional — множества ключей источника и цели должны совпадать.
	KeyCheckBidirectional = "bidirectional"
	// KeyCheckTargetSubset — каждый ключ цели должен быть в источнике.
	KeyCheckTargetSubset = "target-subset"
)

// maxBatchSize — верхняя граница строк в одном INSERT.
const maxBatchSize = 65535

// identRe — допустимое имя схемы PostgreSQL без кавычек.
var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Config содержит все параметры конфигурации.
type Config struct {
	// --- Логирование ---

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- SQLite (источник) ---

	// Путь к файлу SQLite
	SQLitePath string

	// --- PostgreSQL (цель) ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Схема с таблицами каталога
	DBSchema string
	// Применять ли миграции схемы перед загрузкой
	DBMigrate bool

	// --- Загрузка ---

	// Максимум строк в одном INSERT (0: ограничение только по числу параметров)
	BatchSize int
	// Общий таймаут запуска (0: без таймаута)
	RunTimeout time.Duration

	// --- Проверка согласованности ---

	// Режим Test 3: bidirectional или target-subset
	KeyCheckMode string

	// --- Метрики ---

	// URL Prometheus Pushgateway (опционально)
	PushgatewayURL string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Логирование ---

	// ETL_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("ETL_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("ETL_LOG_LEVEL: %w", err)
	}

	// ETL_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("ETL_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("ETL_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- SQLite ---

	// ETL_SQLITE_PATH — путь к файлу SQLite (по умолчанию db.sqlite)
	cfg.SQLitePath = getEnvDefault("ETL_SQLITE_PATH", "db.sqlite")

	// --- PostgreSQL ---

	// ETL_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("ETL_DB_HOST")
	if err != nil {
		return nil, err
	}

	// ETL_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("ETL_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("ETL_DB_PORT: %w", err)
	}
	if cfg.DBPort < 1 || cfg.DBPort > 65535 {
		return nil, fmt.Errorf("ETL_DB_PORT: значение %d вне допустимого диапазона 1-65535", cfg.DBPort)
	}

	// ETL_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("ETL_DB_NAME")
	if err != nil {
		return nil, err
	}

	// ETL_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("ETL_DB_USER")
	if err != nil {
		return nil, err
	}

	// ETL_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("ETL_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// ETL_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("ETL_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("ETL_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// ETL_DB_SCHEMA — схема каталога (по умолчанию content)
	cfg.DBSchema = getEnvDefault("ETL_DB_SCHEMA", "content")
	if !identRe.MatchString(cfg.DBSchema) {
		return nil, fmt.Errorf("ETL_DB_SCHEMA: недопустимое имя схемы %q", cfg.DBSchema)
	}

	// ETL_DB_MIGRATE — применять миграции (по умолчанию false)
	cfg.DBMigrate, err = getEnvBool("ETL_DB_MIGRATE", false)
	if err != nil {
		return nil, fmt.Errorf("ETL_DB_MIGRATE: %w", err)
	}

	// --- Загрузка ---

	// ETL_BATCH_SIZE — строк в одном INSERT (по умолчанию 0, без ограничения)
	cfg.BatchSize, err = getEnvInt("ETL_BATCH_SIZE", 0)
	if err != nil {
		return nil, fmt.Errorf("ETL_BATCH_SIZE: %w", err)
	}
	if cfg.BatchSize < 0 || cfg.BatchSize > maxBatchSize {
		return nil, fmt.Errorf("ETL_BATCH_SIZE: значение %d вне допустимого диапазона 0-%d", cfg.BatchSize, maxBatchSize)
	}

	// ETL_RUN_TIMEOUT — общий таймаут (по умолчанию 0, без таймаута)
	cfg.RunTimeout, err = getEnvDuration("ETL_RUN_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("ETL_RUN_TIMEOUT: %w", err)
	}
	if cfg.RunTimeout < 0 {
		return nil, fmt.Errorf("ETL_RUN_TIMEOUT: отрицательная длительность %s", cfg.RunTimeout)
	}

	// --- Проверка согласованности ---

	// ETL_KEY_CHECK_MODE — режим Test 3 (по умолчанию bidirectional)
	cfg.KeyCheckMode = getEnvDefault("ETL_KEY_CHECK_MODE", KeyCheckBidirectional)
	if cfg.KeyCheckMode != KeyCheckBidirectional && cfg.KeyCheckMode != KeyCheckTargetSubset {
		return nil, fmt.Errorf("ETL_KEY_CHECK_MODE: недопустимое значение %q, допустимые: %s, %s",
			cfg.KeyCheckMode, KeyCheckBidirectional, KeyCheckTargetSubset)
	}

	// --- Метрики ---

	// ETL_PUSHGATEWAY_URL — Pushgateway (опционально)
	cfg.PushgatewayURL = strings.TrimRight(getEnvDefault("ETL_PUSHGATEWAY_URL", ""), "/")
	if cfg.PushgatewayURL != "" {
		u, parseErr := url.Parse(cfg.PushgatewayURL)
		if parseErr != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("ETL_PUSHGATEWAY_URL: некорректный URL %q", cfg.PushgatewayURL)
		}
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
// search_path указывает на схему каталога, поэтому миграции
// создают таблицы без явного префикса схемы.
func (c *Config) MigrateURL() string {
	u := url.URL{
		Scheme: "pgx5",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	q := url.Values{}
	q.Set("sslmode", c.DBSSLMode)
	q.Set("search_path", c.DBSchema)
	u.RawQuery = q.Encode()
	return u.String()
}

// SQLiteDSN возвращает DSN для открытия файла SQLite только на чтение.
func (c *Config) SQLiteDSN() string {
	return "file:" + c.SQLitePath + "?mode=ro"
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает логическое значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
