package config

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Vault layout
	VaultDir    string `env:"VAULT_DIR"`
	DatabaseDSN string `env:"DATABASE_URI"`

	// Key derivation cost (Argon2id). Ниже рекомендованного минимума
	// значения не опускаются — см. crypto.KDFParams.
	KDFTime      uint `env:"KDF_TIME_COST"`
	KDFMemoryKiB uint `env:"KDF_MEMORY_KIB"`
	KDFThreads   uint `env:"KDF_THREADS"`

	// Lockout policy
	MaxAttempts    int `env:"AUTH_MAX_ATTEMPTS"`
	LockoutSeconds int `env:"AUTH_LOCKOUT_SECONDS"`
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	flag.StringVar(&cfg.VaultDir, "vault-dir", cfg.VaultDir, "каталог vault-а (учётная запись и БД)")
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (путь SQLite или postgres://)")
	flag.UintVar(&cfg.KDFTime, "kdf-time", cfg.KDFTime, "Argon2id time cost")
	flag.UintVar(&cfg.KDFMemoryKiB, "kdf-memory", cfg.KDFMemoryKiB, "Argon2id memory cost, KiB")
	flag.UintVar(&cfg.KDFThreads, "kdf-threads", cfg.KDFThreads, "Argon2id parallelism")
	flag.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "число неудачных попыток до блокировки")
	flag.IntVar(&cfg.LockoutSeconds, "lockout", cfg.LockoutSeconds, "длительность блокировки, секунды")

	flag.Parse()

	// Defaults
	if cfg.VaultDir == "" {
		home, _ := os.UserHomeDir()
		cfg.VaultDir = filepath.Join(home, ".secure-notes")
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = filepath.Join(cfg.VaultDir, "notes.db")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.LockoutSeconds <= 0 {
		cfg.LockoutSeconds = 300
	}

	return cfg
}
