package config

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	NodeID     int64  `mapstructure:"NODE_ID"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Enable bool   `mapstructure:"ENABLE"`
		Addr   string `mapstructure:"ADDR"`
	} `mapstructure:"OTEL"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		Path           string `mapstructure:"PATH"`
		AutoMigrate    bool   `mapstructure:"AUTO_MIGRATE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	AccessControl struct {
		Model  string `mapstructure:"MODEL"`
		Policy string `mapstructure:"POLICY"`
	} `mapstructure:"ACCESS_CONTROL"`
	Game struct {
		RegistrationSpins int           `mapstructure:"REGISTRATION_SPINS"`
		PrizeCacheTTL     time.Duration `mapstructure:"PRIZE_CACHE_TTL"`
		RedeemAttempts    int64         `mapstructure:"REDEEM_ATTEMPTS"`
		RedeemWindow      time.Duration `mapstructure:"REDEEM_WINDOW"`
	} `mapstructure:"GAME"`
	Seed struct {
		Enable        bool   `mapstructure:"ENABLE"`
		AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
		AdminName     string `mapstructure:"ADMIN_NAME"`
		AdminBalance  string `mapstructure:"ADMIN_BALANCE"`
		DemoCodesOnly bool   `mapstructure:"DEMO_CODES_ONLY"`
	} `mapstructure:"SEED"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "tsmarket")
	v.SetDefault("NODE_ID", 1)
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("DATABASE.TYPE", "sqlite")
	v.SetDefault("DATABASE.PATH", "tsmarket.db")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")
	v.SetDefault("DATABASE.AUTO_MIGRATE", true)
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_IDLE_CONN", 5)
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_OPEN_CONNS", 20)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_IDLE_TIME", 5*time.Minute)
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("REDIS.POOL_TIMEOUT", 5*time.Second)
	v.SetDefault("GAME.REGISTRATION_SPINS", 1)
	v.SetDefault("GAME.PRIZE_CACHE_TTL", time.Minute)
	v.SetDefault("GAME.REDEEM_ATTEMPTS", 5)
	v.SetDefault("GAME.REDEEM_WINDOW", 15*time.Minute)
	v.SetDefault("SEED.ADMIN_EMAIL", "admin@tsmarket.local")
	v.SetDefault("SEED.ADMIN_NAME", "Admin")
	v.SetDefault("SEED.ADMIN_BALANCE", "10000")
}

// Load reads config.yaml from the working directory when present and
// overlays environment variables (DATABASE.HOST -> DATABASE_HOST).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func LoadConfig(p Params) *Config {
	cfg, err := Load()
	if err != nil {
		zap.L().Error("failed to load config", zap.Error(err))
		os.Exit(1)
	}

	if p.Vault != nil {
		if err := applyVaultSecrets(context.Background(), p.Vault, cfg); err != nil {
			zap.L().Error("failed get secret from vault", zap.Error(err))
			os.Exit(1)
		}
	}

	return cfg
}

func applyVaultSecrets(ctx context.Context, client *vault.Client, cfg *Config) error {
	zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
	secret, err := client.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath("secret"))
	if err != nil {
		return err
	}
	zap.L().Info("Success Get Secret")

	get := func(key, fallback string) string {
		if val, ok := secret.Data.Data[key].(string); ok && val != "" {
			return val
		}
		return fallback
	}

	cfg.Database.User = get("database_user", cfg.Database.User)
	cfg.Database.Password = get("database_password", cfg.Database.Password)
	cfg.Redis.Password = get("redis_password", cfg.Redis.Password)

	return nil
}
