package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/infra/setup"
)

// Config 结构体用于存储从环境变量或文件加载的配置
type Config struct {
	AppEnv     string
	LogLevel   string
	ServerPort string

	DB setup.DBConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string // Redis Key 前缀，同时用于推送频道

	JWTSecret      string
	JWTExpiryHours int

	CORSAllowedOrigins []string
	RateLimitMax       int
	RateLimitWindow    time.Duration

	DocumentDebounce  time.Duration
	HeartbeatInterval time.Duration
	PresenceExpiry    time.Duration
	CheckpointKeep    int

	Judge0URL        string
	Judge0APIKey     string
	Judge0LanguageID int
	ExecutionTimeout time.Duration
}

var defaultAllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// LoadConfig 从 .env 文件和环境变量加载配置
func LoadConfig() (*Config, error) {
	// 忽略错误，允许只使用环境变量
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:     envOr("APP_ENV", "development"),
		LogLevel:   envOr("LOG_LEVEL", "info"),
		ServerPort: envOr("SERVER_PORT", "8080"),
		DB: setup.DBConfig{
			Driver:     envOr("DB_DRIVER", setup.DriverMySQL),
			User:       os.Getenv("DB_USER"),
			Password:   os.Getenv("DB_PASSWORD"),
			Host:       os.Getenv("DB_HOST"),
			Port:       os.Getenv("DB_PORT"),
			Name:       os.Getenv("DB_NAME"),
			SQLitePath: envOr("SQLITE_PATH", "studio.db"),
		},
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            envInt("REDIS_DB", 0),
		KeyPrefix:          envOr("REDIS_KEY_PREFIX", "cs:"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTExpiryHours:     envInt("JWT_EXPIRY_HOURS", 24),
		CORSAllowedOrigins: envCSV("CORS_ALLOWED_ORIGINS", defaultAllowedOrigins),
		RateLimitMax:       envInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow:    time.Duration(envInt("RATE_LIMIT_WINDOW_SEC", 1)) * time.Second,
		DocumentDebounce:   time.Duration(envInt("DOCUMENT_DEBOUNCE_MS", 500)) * time.Millisecond,
		HeartbeatInterval:  time.Duration(envInt("PRESENCE_HEARTBEAT_SEC", 10)) * time.Second,
		PresenceExpiry:     time.Duration(envInt("PRESENCE_EXPIRY_SEC", 30)) * time.Second,
		CheckpointKeep:     envInt("CHECKPOINT_KEEP", 20),
		Judge0URL:          os.Getenv("JUDGE0_API_URL"),
		Judge0APIKey:       os.Getenv("JUDGE0_API_KEY"),
		Judge0LanguageID:   envInt("JUDGE0_LANGUAGE_ID", 54),
		ExecutionTimeout:   time.Duration(envInt("EXECUTION_TIMEOUT_SEC", 20)) * time.Second,
	}

	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}
	if cfg.DB.Driver != setup.DriverMySQL && cfg.DB.Driver != setup.DriverSQLite {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}
	if cfg.PresenceExpiry <= cfg.HeartbeatInterval {
		return nil, fmt.Errorf("PRESENCE_EXPIRY_SEC must be greater than PRESENCE_HEARTBEAT_SEC")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// envOr 返回环境变量的值，未设置时返回默认值
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt 解析整数环境变量，无效值回退到默认值
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			logrus.Warnf("Invalid %s=%s, fallback to default (%d)", key, v, def)
			return def
		}
		return i
	}
	return def
}

// envCSV 解析逗号分隔的列表
func envCSV(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
