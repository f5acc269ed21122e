package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv" // 引入這個庫來讀取 .env 檔案
	"github.com/rs/zerolog/log"
)

// Config 結構體用於儲存應用程式的配置
type Config struct {
	Port string `env:"PORT" env-default:"8080"`

	StoreDriver string `env:"STORE_DRIVER" env-default:"mongo"`
	MongoDBURI  string `env:"MONGODB_URI" env-default:"mongodb://localhost:27017"`
	DBName      string `env:"DB_NAME" env-default:"chat_app_db"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	// RedisURL 為空時不啟用房間快取
	RedisURL     string        `env:"REDIS_URL"`
	RoomCacheTTL time.Duration `env:"ROOM_CACHE_TTL" env-default:"5m"`

	JWTSecret string        `env:"JWT_SECRET" env-default:"change-me"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" env-default:"1h"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000,http://localhost:5173"`

	PersistTimeout time.Duration `env:"PERSIST_TIMEOUT" env-default:"5s"`
	SendBuffer     int           `env:"SEND_BUFFER" env-default:"256"`
	SignalRouting  string        `env:"SIGNAL_ROUTING" env-default:"direct"`
	HistoryLimit   int64         `env:"HISTORY_LIMIT" env-default:"50"`

	// MessageRetention 為 0 表示永久保存
	MessageRetention  time.Duration `env:"MESSAGE_RETENTION" env-default:"0s"`
	RetentionSchedule string        `env:"RETENTION_SCHEDULE" env-default:"@every 10m"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"console"`
}

// LoadConfig 載入配置，優先從環境變數讀取，其次從 .env 檔案讀取
func LoadConfig() (*Config, error) {
	// 嘗試載入 .env 檔案，如果不存在也不會報錯
	if err := godotenv.Load(); err != nil {
		log.Debug().Str("module", "config").Msg("no .env file found, relying on environment variables")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "mongo", "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required when STORE_DRIVER=postgres")
	}
	switch c.SignalRouting {
	case "direct", "broadcast":
	default:
		return fmt.Errorf("unknown SIGNAL_ROUTING %q", c.SignalRouting)
	}
	if c.PersistTimeout <= 0 {
		return fmt.Errorf("PERSIST_TIMEOUT must be positive")
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("SEND_BUFFER must be positive")
	}
	return nil
}

// Addr 回傳 HTTP 伺服器監聽位址
func (c *Config) Addr() string {
	return ":" + c.Port
}
