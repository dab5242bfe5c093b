// Package config loads a router node's process-level settings: listen
// addresses, the data directory, and the validator/operator key used to
// sign governance instructions. Runtime risk policy (margin bps, pause
// list, rate limits) lives in Policy, not here, since it is expected to
// change far more often than a node's network settings (see types.go).
package config

import (
	"encoding/hex"
	"os"

	"github.com/BurntSushi/toml"

	"perpcore/crypto"
)

// Config is a router node's static process configuration.
type Config struct {
	ListenAddress  string   `toml:"ListenAddress"`
	RPCAddress     string   `toml:"RPCAddress"`
	DataDir        string   `toml:"DataDir"`
	ValidatorKey   string   `toml:"ValidatorKey"`
	BootstrapPeers []string `toml:"BootstrapPeers"`

	// LogFile, if set, is a rotated log file path (see observability/logging);
	// empty means stdout only.
	LogFile string `toml:"LogFile"`
}

// Load reads the configuration from path, creating a default file (with a
// freshly generated validator key) if none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if cfg.ValidatorKey == "" {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		cfg.ValidatorKey = hex.EncodeToString(key.Bytes())

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, os.ModePerm)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// createDefault writes a fresh configuration file with a generated
// validator key.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress:  ":6001",
		RPCAddress:     ":8080",
		DataDir:        "./router-data",
		ValidatorKey:   hex.EncodeToString(key.Bytes()),
		BootstrapPeers: []string{},
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
