// Пакет config — загрузка и валидация конфигурации NFT Store
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// ServiceName — имя сервиса в health-ответах и метриках.
const ServiceName = "nft-store"

// Config содержит все параметры конфигурации NFT Store.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Базовый URL RPC API IPFS-узла (например, http://127.0.0.1:5001)
	IPFSAPIURL string
	// Таймаут HTTP-запросов к IPFS-узлу (add/cat)
	IPFSTimeout time.Duration
	// Таймаут liveness probe IPFS-узла
	IPFSPingTimeout time.Duration
	// Публичный IPFS gateway для QR-кодов (хост, без схемы)
	IPFSGateway string
	// Путь к директории файлов записей индекса
	MetadataDir string
	// Максимальный размер загружаемого содержимого в байтах
	MaxUploadSize int64
	// Максимальное количество записей в LRU-кэше
	CacheSize int
	// Время жизни записи в LRU-кэше
	CacheTTL time.Duration
	// URL JWKS endpoint (опционально; пусто — аутентификация выключена)
	JWKSUrl string
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration
	// Имя вершины графа сервиса в метриках topologymetrics
	ServiceID string
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Имя зависимости (IPFS-узла) в метриках topologymetrics
	DephealthDepName string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Таймаут чтения HTTP-сервера
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера
	HTTPIdleTimeout time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// NFT_PORT — порт HTTP-сервера (по умолчанию 7070)
	cfg.Port, err = getEnvInt("NFT_PORT", 7070)
	if err != nil {
		return nil, fmt.Errorf("NFT_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("NFT_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// NFT_IPFS_API_URL — адрес RPC API IPFS-узла (по умолчанию локальный узел)
	cfg.IPFSAPIURL = getEnvDefault("NFT_IPFS_API_URL", "http://127.0.0.1:5001")
	parsed, parseErr := url.Parse(cfg.IPFSAPIURL)
	if parseErr != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("NFT_IPFS_API_URL: некорректный URL %q", cfg.IPFSAPIURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("NFT_IPFS_API_URL: недопустимая схема %q, допустимые: http, https", parsed.Scheme)
	}

	// NFT_IPFS_TIMEOUT — таймаут запросов add/cat (по умолчанию 30s)
	cfg.IPFSTimeout, err = getEnvDuration("NFT_IPFS_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("NFT_IPFS_TIMEOUT: %w", err)
	}

	// NFT_IPFS_PING_TIMEOUT — таймаут liveness probe (по умолчанию 5s)
	cfg.IPFSPingTimeout, err = getEnvDuration("NFT_IPFS_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("NFT_IPFS_PING_TIMEOUT: %w", err)
	}

	// NFT_IPFS_GATEWAY — публичный gateway для QR-кодов (по умолчанию ipfs.io)
	cfg.IPFSGateway = getEnvDefault("NFT_IPFS_GATEWAY", "ipfs.io")

	// NFT_METADATA_DIR — директория файлов записей (по умолчанию ./data/metadata)
	cfg.MetadataDir = getEnvDefault("NFT_METADATA_DIR", "./data/metadata")

	// NFT_MAX_UPLOAD_SIZE — максимальный размер загрузки (по умолчанию 100 MiB)
	cfg.MaxUploadSize, err = getEnvInt64("NFT_MAX_UPLOAD_SIZE", 100*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("NFT_MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("NFT_MAX_UPLOAD_SIZE: значение должно быть положительным")
	}

	// NFT_CACHE_SIZE — размер LRU-кэша записей (по умолчанию 1024)
	cfg.CacheSize, err = getEnvInt("NFT_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("NFT_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("NFT_CACHE_SIZE: значение должно быть положительным")
	}

	// NFT_CACHE_TTL — время жизни записи в кэше (по умолчанию 5m)
	cfg.CacheTTL, err = getEnvDuration("NFT_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("NFT_CACHE_TTL: %w", err)
	}

	// NFT_JWKS_URL — JWKS endpoint (опционально, пусто — без аутентификации)
	cfg.JWKSUrl = getEnvDefault("NFT_JWKS_URL", "")

	// NFT_JWT_LEEWAY — допуск времени при проверке JWT (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("NFT_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("NFT_JWT_LEEWAY: %w", err)
	}

	// NFT_SERVICE_ID — имя вершины графа topologymetrics (по умолчанию "nft-store")
	cfg.ServiceID = getEnvDefault("NFT_SERVICE_ID", ServiceName)

	// NFT_DEPHEALTH_GROUP — имя группы в метриках (по умолчанию "nft-store")
	cfg.DephealthGroup = getEnvDefault("NFT_DEPHEALTH_GROUP", ServiceName)

	// NFT_DEPHEALTH_DEP_NAME — имя зависимости в метриках (по умолчанию "ipfs-node")
	cfg.DephealthDepName = getEnvDefault("NFT_DEPHEALTH_DEP_NAME", "ipfs-node")

	// NFT_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("NFT_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("NFT_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- HTTP Server Timeouts ---

	// NFT_HTTP_READ_TIMEOUT — таймаут чтения (по умолчанию 30s)
	cfg.HTTPReadTimeout, err = getEnvDuration("NFT_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("NFT_HTTP_READ_TIMEOUT: %w", err)
	}

	// NFT_HTTP_WRITE_TIMEOUT — таймаут записи (по умолчанию 60s)
	cfg.HTTPWriteTimeout, err = getEnvDuration("NFT_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("NFT_HTTP_WRITE_TIMEOUT: %w", err)
	}

	// NFT_HTTP_IDLE_TIMEOUT — таймаут простоя (по умолчанию 120s)
	cfg.HTTPIdleTimeout, err = getEnvDuration("NFT_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("NFT_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// NFT_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("NFT_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("NFT_SHUTDOWN_TIMEOUT: %w", err)
	}

	// NFT_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("NFT_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("NFT_LOG_LEVEL: %w", err)
	}

	// NFT_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("NFT_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("NFT_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

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

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 5m, 1h)", val)
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
