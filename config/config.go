package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"crp/crypto"
)

// Config is the node configuration loaded from a TOML file. Missing files
// are created with sane defaults so a fresh checkout can start a node.
type Config struct {
	RPCAddress     string `toml:"RPCAddress"`
	MetricsAddress string `toml:"MetricsAddress"`
	DataDir        string `toml:"DataDir"`
	JournalPath    string `toml:"JournalPath"`
	LogFile        string `toml:"LogFile"`
	Environment    string `toml:"Environment"`
	// GenesisAdmin is the bech32 address seeded with the admin role on an
	// empty data directory.
	GenesisAdmin string `toml:"GenesisAdmin"`
	// RPCAuthToken guards the mutating RPC methods. Empty disables them.
	RPCAuthToken string `toml:"RPCAuthToken"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(path, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values for obvious misconfiguration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress must not be empty")
	}
	if admin := strings.TrimSpace(c.GenesisAdmin); admin != "" {
		if _, err := crypto.DecodeAddress(admin); err != nil {
			return fmt.Errorf("config: GenesisAdmin: %w", err)
		}
	}
	return nil
}

// AdminAddress decodes the configured genesis admin. Returns false when the
// field is unset.
func (c *Config) AdminAddress() ([20]byte, bool, error) {
	admin := strings.TrimSpace(c.GenesisAdmin)
	if admin == "" {
		return [20]byte{}, false, nil
	}
	decoded, err := crypto.DecodeAddress(admin)
	if err != nil {
		return [20]byte{}, false, err
	}
	var out [20]byte
	copy(out[:], decoded.Bytes())
	return out, true, nil
}

func applyDefaults(path string, cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = filepath.Join(filepath.Dir(path), "data")
	}
	if strings.TrimSpace(cfg.JournalPath) == "" {
		cfg.JournalPath = filepath.Join(cfg.DataDir, "journal.db")
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(path, cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
