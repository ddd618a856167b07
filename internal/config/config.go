package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr        string
		CORSOrigins []string `mapstructure:"cors_origins"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Storage struct {
		Driver string // postgres | memory
	} `mapstructure:"storage"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Auth struct {
		SessionTTL time.Duration `mapstructure:"session_ttl"`
	} `mapstructure:"auth"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	Inventory struct {
		LowStockThreshold int64 `mapstructure:"low_stock_threshold"`
	} `mapstructure:"inventory"`

	Reports struct {
		DigestCron string `mapstructure:"digest_cron"`
	} `mapstructure:"reports"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("auth.session_ttl", "24h")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_chat_id", 0)
	v.SetDefault("inventory.low_stock_threshold", 5)
	v.SetDefault("reports.digest_cron", "0 20 * * *")
}

// Load читает YAML, затем переопределяет значения из окружения (APP_POSTGRES_DSN и т.п.).
// .env в рабочем каталоге подхватывается, если есть.
func Load(path string) (Config, error) {
	var c Config
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return c, err
	}

	v := viper.New()
	defaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	if c.Storage.Driver != "postgres" && c.Storage.Driver != "memory" {
		return c, errors.New("storage.driver must be postgres or memory")
	}
	if c.Storage.Driver == "postgres" && c.Postgres.DSN == "" {
		return c, errors.New("postgres.dsn is required")
	}
	return c, nil
}

// Location — часовой пояс для «календарного дня» в отчётах; пусто — локальный.
func (c Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.App.Timezone)
}
