package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:5173"`
	}

	Postgres struct {
		Host            string `env:"DB_HOST" envDefault:"localhost"`
		Port            int    `env:"DB_PORT" envDefault:"5432"`
		Database        string `env:"DB_NAME" envDefault:"loyalty"`
		User            string `env:"DB_USER" envDefault:"postgres"`
		Password        string `env:"DB_PASSWORD" envDefault:""`
		SSLMode         string `env:"DB_SSLMODE" envDefault:"disable"`
		MaxOpenConns    int    `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
		MaxIdleConns    int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
		ConnMaxLifeMins int    `env:"DB_CONN_MAX_LIFETIME_MINUTES" envDefault:"30"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	JWT struct {
		Secret      string `env:"JWT_SECRET,required"`
		ExpiryHours int    `env:"JWT_EXPIRY_HOURS" envDefault:"8"`
	}

	OTP struct {
		ExpiryMinutes         int `env:"OTP_EXPIRY_MINUTES" envDefault:"10"`
		MaxAttempts           int `env:"OTP_MAX_ATTEMPTS" envDefault:"3"`
		ResendCooldownSeconds int `env:"OTP_RESEND_COOLDOWN_SECONDS" envDefault:"60"`

		// When set, every generated code equals this value. Deterministic
		// OTPs for dev and test environments only; must stay empty in
		// production.
		TestCode string `env:"OTP_TEST_CODE" envDefault:""`
	}
}

// PostgresDSN builds a lib/pq connection string from the Postgres section.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.Database,
		c.Postgres.User, c.Postgres.Password, c.Postgres.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func Load() (*Config, error) {
	// Missing .env is fine, production sets variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}
