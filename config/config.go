package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config captures the convertord service configuration. Values are loaded
// from a TOML file and may be selectively overridden through environment
// variables.
type Config struct {
	ListenAddress     string `toml:"ListenAddress"`
	DataDir           string `toml:"DataDir"`
	AdminAccount      string `toml:"AdminAccount"`
	Environment       string `toml:"Environment"`
	LogFile           string `toml:"LogFile"`
	LogMaxSizeMB      int    `toml:"LogMaxSizeMB"`
	LogMaxBackups     int    `toml:"LogMaxBackups"`
	QuotaByteCost     string `toml:"QuotaByteCost"`
	CreatePoolDeposit string `toml:"CreatePoolDeposit"`
	AllowMigrate      bool   `toml:"AllowMigrate"`
	TokenBridgeURL    string `toml:"TokenBridgeURL"`
}

// Default returns the configuration applied when no file is present.
func Default() Config {
	return Config{
		ListenAddress: ":8546",
		DataDir:       "./convertord-data",
		AdminAccount:  "admin",
		Environment:   "dev",
		LogMaxSizeMB:  100,
		LogMaxBackups: 5,
		QuotaByteCost: "10000000000000000000",
	}
}

// Load reads the configuration file at path, creating it with defaults when
// missing, then applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path, cfg); err != nil {
			return Config{}, err
		}
	} else if err != nil {
		return Config{}, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for internally consistent values.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if strings.TrimSpace(c.AdminAccount) == "" {
		return fmt.Errorf("config: AdminAccount must not be empty")
	}
	if _, err := c.ParsedQuotaByteCost(); err != nil {
		return err
	}
	if _, err := c.ParsedCreatePoolDeposit(); err != nil {
		return err
	}
	return nil
}

// ParsedQuotaByteCost returns QuotaByteCost as a big integer. An empty string
// yields nil, leaving the engine default in place.
func (c Config) ParsedQuotaByteCost() (*big.Int, error) {
	return parseAmount("QuotaByteCost", c.QuotaByteCost)
}

// ParsedCreatePoolDeposit returns CreatePoolDeposit as a big integer. An
// empty string yields nil, leaving the engine default in place.
func (c Config) ParsedCreatePoolDeposit() (*big.Int, error) {
	return parseAmount("CreatePoolDeposit", c.CreatePoolDeposit)
}

func parseAmount(field, raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("config: %s must be a non-negative decimal integer, got %q", field, raw)
	}
	return value, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CONVERTORD_LISTEN"); v != "" {
		cfg.ListenAddress = v
	}
	if v := os.Getenv("CONVERTORD_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CONVERTORD_ADMIN"); v != "" {
		cfg.AdminAccount = v
	}
	if v := os.Getenv("CONVERTORD_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("CONVERTORD_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("CONVERTORD_BRIDGE_URL"); v != "" {
		cfg.TokenBridgeURL = v
	}
}

func writeDefault(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode defaults: %w", err)
	}
	return nil
}
