// Package engine — конфигурация сервиса сохранений.
package engine

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Бэкенды хранилища.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config хранит параметры запуска сервиса.
//
// Источники, по возрастанию приоритета: дефолты -> YAML-файл (флаг
// -config) -> переменные окружения RV_*.
type Config struct {
	// Port — HTTP-порт сервиса.
	Port string `yaml:"port"`

	// DataDir — корень файлового бэкенда и каталог для файла SQLite.
	DataDir string `yaml:"dataDir"`

	// Backend — file или sqlite.
	Backend string `yaml:"backend"`

	// QuotaBytes — мягкий лимит места под сохранения.
	QuotaBytes int64 `yaml:"quotaBytes"`

	// AsyncCompression — гонять компрессор через фонового воркера.
	// В тестах выключено: синхронный режим завершается в момент вызова.
	AsyncCompression bool `yaml:"asyncCompression"`
}

// NewConfig возвращает конфиг по умолчанию.
func NewConfig() Config {
	return Config{
		Port:             "8080",
		DataDir:          "./data",
		Backend:          BackendSQLite,
		QuotaBytes:       64 << 20, // 64 MiB, в духе квот браузерных хранилищ
		AsyncCompression: true,
	}
}

// LoadConfig читает YAML-файл поверх дефолтов. Пустой путь — только
// дефолты плюс окружение.
func LoadConfig(path string) (Config, error) {
	cfg := NewConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.Backend != BackendFile && cfg.Backend != BackendSQLite {
		return cfg, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("RV_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("RV_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("RV_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("RV_QUOTA_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.QuotaBytes = n
		}
	}
}
