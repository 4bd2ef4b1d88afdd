package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	ServicePort  int
	DB           DBConfig
	Redis        RedisConfig
	SMTP         SMTPConfig
	Upload       UploadConfig
	CORSOrigins  []string
	FrontendURL  string
	EscalateSpec string // cron spec for the escalation sweep
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type UploadConfig struct {
	Dir         string
	MaxFiles    int
	MaxFileSize int64
}

// New loads configuration from configs/config.toml with environment overrides.
// A missing config file is not fatal; env values and defaults apply.
func New() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("service.port", 8080)
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.name", "postgres")
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("upload.dir", "uploads")
	viper.SetDefault("upload.max_files", 10)
	viper.SetDefault("upload.max_file_size", 10<<20)
	viper.SetDefault("cors.origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	viper.SetDefault("frontend.url", "http://localhost:5173")
	viper.SetDefault("escalation.cron", "0 2 * * *")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		log.Info("no config file found, using env and defaults")
	}

	cfg := &Config{
		ServicePort: viper.GetInt("service.port"),
		DB: DBConfig{
			Host:     envOr("DB_HOST", viper.GetString("db.host")),
			Port:     envOr("DB_PORT", viper.GetString("db.port")),
			User:     envOr("DB_USER", viper.GetString("db.user")),
			Password: envOr("DB_PASSWORD", viper.GetString("db.password")),
			Name:     envOr("DB_NAME", viper.GetString("db.name")),
			SSLMode:  envOr("DB_SSLMODE", viper.GetString("db.sslmode")),
		},
		Redis: RedisConfig{
			Addr:        envOr("REDIS_ADDR", viper.GetString("redis.addr")),
			Password:    envOr("REDIS_PASSWORD", viper.GetString("redis.password")),
			DB:          viper.GetInt("redis.db"),
			DialTimeout: 10 * time.Second,
			ReadTimeout: 10 * time.Second,
		},
		SMTP: SMTPConfig{
			Host:     envOr("SMTP_HOST", viper.GetString("smtp.host")),
			Port:     envOr("SMTP_PORT", viper.GetString("smtp.port")),
			Username: envOr("SMTP_USERNAME", viper.GetString("smtp.username")),
			Password: envOr("SMTP_PASSWORD", viper.GetString("smtp.password")),
			From:     envOr("SMTP_FROM", viper.GetString("smtp.from")),
		},
		Upload: UploadConfig{
			Dir:         envOr("UPLOAD_DIR", viper.GetString("upload.dir")),
			MaxFiles:    viper.GetInt("upload.max_files"),
			MaxFileSize: viper.GetInt64("upload.max_file_size"),
		},
		CORSOrigins:  viper.GetStringSlice("cors.origins"),
		FrontendURL:  envOr("FRONTEND_URL", viper.GetString("frontend.url")),
		EscalateSpec: viper.GetString("escalation.cron"),
	}

	if p := os.Getenv("PORT"); p != "" {
		var port int
		if _, err := fmt.Sscanf(p, "%d", &port); err == nil {
			cfg.ServicePort = port
		}
	}

	log.Info("config parsed")
	return cfg, nil
}

// DSN builds the postgres connection string
func (c DBConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=" + c.SSLMode
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
