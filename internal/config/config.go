package config

import (
	"fmt"
	"log"
	"time"

	"fable-server/shared/utils"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию для Consistency Sweeper
type Config struct {
	// Настройки процесса
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsPort string `envconfig:"SWEEPER_METRICS_PORT" default:"9104"`

	// Настройки PostgreSQL
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns int    `envconfig:"DB_MAX_CONNECTIONS" default:"5"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Настройки самого sweeper'а
	SweepInterval   time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`
	RetentionWindow time.Duration `envconfig:"RETENTION_WINDOW" default:"720h"`
	ApplyMigrations bool          `envconfig:"APPLY_MIGRATIONS" default:"false"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов
func LoadConfig() (*Config, error) {
	var cfg Config
	// Загружаем НЕсекретные переменные
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации sweeper: %w", err)
	}

	// Загружаем ОБЯЗАТЕЛЬНЫЙ секрет
	cfg.DBPassword, err = utils.ReadSecret("db_password")
	if err != nil {
		return nil, err
	}

	log.Printf("Конфигурация Consistency Sweeper загружена (секреты из файлов):")
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  Metrics Port: %s", cfg.MetricsPort)
	log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	log.Printf("  DB Max Conns: %d", cfg.DBMaxConns)
	log.Printf("  Sweep Interval: %v", cfg.SweepInterval)
	log.Printf("  Retention Window: %v", cfg.RetentionWindow)
	log.Printf("  Apply Migrations: %v", cfg.ApplyMigrations)

	return &cfg, nil
}
