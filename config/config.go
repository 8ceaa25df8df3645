package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Name string `yaml:"name" env:"SERVICE_NAME"`
	Addr string `yaml:"addr" env:"HTTP_ADDR"`
}

type LogConfig struct {
	Level     string `yaml:"level" env:"LOG_LEVEL"`
	GormLevel string `yaml:"gorm_level" env:"GORM_LOG_LEVEL"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DB_DRIVER"`
	DSN      string `yaml:"dsn" env:"DATABASE_URL"`
	Username string `yaml:"username" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     string `yaml:"port" env:"DB_PORT"`
	Database string `yaml:"database" env:"DB_NAME"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	Database int    `yaml:"database" env:"REDIS_DB"`
}

type RabbitConfig struct {
	URL       string `yaml:"url" env:"RABBIT_URL"`
	Exchange  string `yaml:"exchange" env:"RABBIT_EXCHANGE"`
	MailQueue string `yaml:"mail_queue" env:"RABBIT_MAIL_QUEUE"`
}

type JWTConfig struct {
	PrivateKeyPath string        `yaml:"private_key_path" env:"JWT_PRIVATE_KEY_PATH"`
	PublicKeyPath  string        `yaml:"public_key_path" env:"JWT_PUBLIC_KEY_PATH"`
	TTL            time.Duration `yaml:"ttl" env:"JWT_TTL"`
}

type PaymentConfig struct {
	Driver    string        `yaml:"driver" env:"PAYMENT_DRIVER"`
	SecretKey string        `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	BaseURL   string        `yaml:"base_url" env:"STRIPE_BASE_URL"`
	Timeout   time.Duration `yaml:"timeout" env:"PAYMENT_TIMEOUT"`
	LockTTL   time.Duration `yaml:"lock_ttl" env:"CHECKOUT_LOCK_TTL"`
}

type MailConfig struct {
	From        string `yaml:"from" env:"DEFAULT_FROM_EMAIL"`
	FrontendURL string `yaml:"frontend_url" env:"FRONTEND_URL"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins" env:"CORS_ALLOW_ORIGINS" envSeparator:","`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Rabbit   RabbitConfig   `yaml:"rabbitmq"`
	JWT      JWTConfig      `yaml:"jwt"`
	Payment  PaymentConfig  `yaml:"payment"`
	Mail     MailConfig     `yaml:"mail"`
	CORS     CORSConfig     `yaml:"cors"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{Name: "storefront", Addr: ":3000"},
		Log:    LogConfig{Level: "info", GormLevel: "warn"},
		Database: DatabaseConfig{
			Driver: "mysql",
			Host:   "127.0.0.1",
			Port:   "3306",
		},
		Rabbit: RabbitConfig{Exchange: "storefront", MailQueue: "mail.outbound"},
		JWT: JWTConfig{
			PrivateKeyPath: "jwt/private_key.pem",
			PublicKeyPath:  "jwt/public_key.pem",
			TTL:            24 * time.Hour,
		},
		Payment: PaymentConfig{
			Driver:  "stripe",
			BaseURL: "https://api.stripe.com",
			Timeout: 10 * time.Second,
			LockTTL: time.Minute,
		},
		Mail: MailConfig{From: "no-reply@vmarket.local", FrontendURL: "http://localhost:8080"},
		CORS: CORSConfig{AllowOrigins: []string{"*"}},
	}
}

// LoadConfig 依序套用預設值、YAML設定檔、.env與環境變數
func LoadConfig(filename string) (Config, error) {
	config := Default()

	file, err := os.Open(filename)
	switch {
	case err == nil:
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(&config); err != nil {
			return config, fmt.Errorf("decode %s: %w", filename, err)
		}
	case errors.Is(err, os.ErrNotExist):
		//設定檔不存在時只使用環境變數
	default:
		return config, err
	}

	_ = godotenv.Load()
	if err := env.Parse(&config); err != nil {
		return config, fmt.Errorf("parse env: %w", err)
	}

	return config, config.Validate()
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Payment.Driver {
	case "fake":
	case "stripe":
		if c.Payment.SecretKey == "" {
			return errors.New("payment driver stripe requires STRIPE_SECRET_KEY")
		}
	default:
		return fmt.Errorf("unsupported payment driver %q", c.Payment.Driver)
	}
	if c.Payment.Timeout <= 0 {
		return errors.New("payment timeout must be positive")
	}
	return nil
}
