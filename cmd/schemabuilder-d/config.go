package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rmax-ai/schemabuilder/pkg/source"
)

const (
	defaultAddr    = "127.0.0.1:8090"
	defaultCache   = "badger"
	defaultGuard   = "sqlite"
	defaultLogMode = "prod"
	defaultLockTTL = 2 * time.Minute
)

type Config struct {
	DBPath          string
	Addr            string
	SourceURL       string
	CacheKind       string
	CacheDir        string
	RedisAddr       string
	GuardKind       string
	RefreshInterval time.Duration
	ArchiveDir      string
	ProfilePath     string
	AdminToken      string
	LogMode         string
	Lock            bool
	LockTTL         time.Duration
	TLSCertFile     string
	TLSKeyFile      string
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	defaultDBPath := filepath.Join(cwd, "schemabuilder.db")
	defaultCacheDir := filepath.Join(cwd, ".schemabuilder-cache")

	dbPath := envOrDefault("SCHEMABUILDER_DB_PATH", defaultDBPath)
	addr := addrFromEnv(defaultAddr)
	sourceURL := envOrDefault("SCHEMABUILDER_SOURCE_URL", source.DefaultURL)
	cacheKind := envOrDefault("SCHEMABUILDER_CACHE", defaultCache)
	cacheDir := envOrDefault("SCHEMABUILDER_CACHE_DIR", defaultCacheDir)
	redisAddr := os.Getenv("SCHEMABUILDER_REDIS_ADDR")
	guardKind := envOrDefault("SCHEMABUILDER_GUARD", defaultGuard)
	archiveDir := os.Getenv("SCHEMABUILDER_ARCHIVE_DIR")
	profilePath := os.Getenv("SCHEMABUILDER_PROFILE")
	logMode := envOrDefault("SCHEMABUILDER_LOG_MODE", defaultLogMode)
	tlsCert := os.Getenv("SCHEMABUILDER_TLS_CERT")
	tlsKey := os.Getenv("SCHEMABUILDER_TLS_KEY")

	var refreshInterval time.Duration
	if env := os.Getenv("SCHEMABUILDER_REFRESH_INTERVAL"); env != "" {
		parsed, err := time.ParseDuration(env)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCHEMABUILDER_REFRESH_INTERVAL: %w", err)
		}
		if parsed < 0 {
			return Config{}, fmt.Errorf("SCHEMABUILDER_REFRESH_INTERVAL must not be negative, got %v", parsed)
		}
		refreshInterval = parsed
	}

	lockTTL := defaultLockTTL
	if env := os.Getenv("SCHEMABUILDER_LOCK_TTL"); env != "" {
		parsed, err := time.ParseDuration(env)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCHEMABUILDER_LOCK_TTL: %w", err)
		}
		lockTTL = parsed
	}

	lock := false
	if env := os.Getenv("SCHEMABUILDER_LOCK"); env != "" {
		parsed, err := strconv.ParseBool(env)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCHEMABUILDER_LOCK: %w", err)
		}
		lock = parsed
	}

	flagSet := flag.NewFlagSet("schemabuilder-d", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagDB := flagSet.String("db", dbPath, "path to SQLite database")
	flagAddr := flagSet.String("addr", addr, "HTTP listen address")
	flagSourceURL := flagSet.String("source-url", sourceURL, "vocabulary JSON-LD document URL")
	flagCache := flagSet.String("cache", cacheKind, "graph cache: badger|redis|memory")
	flagCacheDir := flagSet.String("cache-dir", cacheDir, "badger cache directory")
	flagRedisAddr := flagSet.String("redis-addr", redisAddr, "redis address for cache=redis or guard=redis")
	flagGuard := flagSet.String("guard", guardKind, "run guard backend: sqlite|redis")
	flagRefresh := flagSet.String("refresh-interval", refreshInterval.String(), "pipeline refresh interval, 0 runs once at start")
	flagArchiveDir := flagSet.String("archive-dir", archiveDir, "directory for archived graph documents")
	flagProfile := flagSet.String("profile", profilePath, "YAML vocabulary profile")
	flagLogMode := flagSet.String("log-mode", logMode, "log output: prod|dev")
	flagLock := flagSet.Bool("lock", lock, "hold the materialize lock during each pass")
	flagLockTTL := flagSet.String("lock-ttl", lockTTL.String(), "materialize lock TTL")
	flagTLSCert := flagSet.String("tls-cert", tlsCert, "TLS certificate file")
	flagTLSKey := flagSet.String("tls-key", tlsKey, "TLS key file")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	refreshParsed, err := time.ParseDuration(*flagRefresh)
	if err != nil {
		return Config{}, fmt.Errorf("invalid refresh interval: %w", err)
	}
	if refreshParsed < 0 {
		return Config{}, fmt.Errorf("refresh interval must not be negative, got %v", refreshParsed)
	}

	lockTTLParsed, err := time.ParseDuration(*flagLockTTL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid lock ttl: %w", err)
	}

	config := Config{
		DBPath:          resolvePath(*flagDB, cwd),
		Addr:            strings.TrimSpace(*flagAddr),
		SourceURL:       strings.TrimSpace(*flagSourceURL),
		CacheKind:       strings.ToLower(strings.TrimSpace(*flagCache)),
		CacheDir:        resolvePath(*flagCacheDir, cwd),
		RedisAddr:       strings.TrimSpace(*flagRedisAddr),
		GuardKind:       strings.ToLower(strings.TrimSpace(*flagGuard)),
		RefreshInterval: refreshParsed,
		ArchiveDir:      resolvePath(*flagArchiveDir, cwd),
		ProfilePath:     resolvePath(*flagProfile, cwd),
		AdminToken:      os.Getenv("SCHEMABUILDER_ADMIN_TOKEN"),
		LogMode:         *flagLogMode,
		Lock:            *flagLock,
		LockTTL:         lockTTLParsed,
		TLSCertFile:     resolvePath(*flagTLSCert, cwd),
		TLSKeyFile:      resolvePath(*flagTLSKey, cwd),
	}

	if config.Addr == "" {
		return Config{}, errors.New("addr cannot be empty")
	}
	if config.DBPath == "" {
		return Config{}, errors.New("db cannot be empty")
	}

	switch config.CacheKind {
	case "memory":
	case "badger":
		if config.CacheDir == "" {
			return Config{}, errors.New("cache=badger requires cache-dir")
		}
	case "redis":
		if config.RedisAddr == "" {
			return Config{}, errors.New("cache=redis requires redis-addr")
		}
	default:
		return Config{}, fmt.Errorf("unsupported cache: %s", config.CacheKind)
	}

	switch config.GuardKind {
	case "sqlite":
	case "redis":
		if config.RedisAddr == "" {
			return Config{}, errors.New("guard=redis requires redis-addr")
		}
	default:
		return Config{}, fmt.Errorf("unsupported guard: %s", config.GuardKind)
	}

	if config.Lock && config.LockTTL <= 0 {
		return Config{}, fmt.Errorf("lock ttl must be positive, got %v", config.LockTTL)
	}

	if (config.TLSCertFile == "") != (config.TLSKeyFile == "") {
		return Config{}, errors.New("tls-cert and tls-key must be set together")
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func addrFromEnv(fallback string) string {
	if value := os.Getenv("SCHEMABUILDER_ADDR"); value != "" {
		return value
	}
	if port := os.Getenv("SCHEMABUILDER_PORT"); port != "" {
		return fmt.Sprintf("127.0.0.1:%s", port)
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
