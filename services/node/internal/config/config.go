// Package config loads the node's YAML configuration with environment
// overrides for the deployment-specific bits.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

type Config struct {
	// Port the gateway listens on. SERVICE_PORT overrides.
	Port string `yaml:"port"`

	// DatabaseURL selects Postgres; empty means the in-memory store.
	// DATABASE_URL overrides.
	DatabaseURL string `yaml:"database_url"`

	// Namespace is the hex program namespace all addresses derive under.
	Namespace keys.Pubkey `yaml:"namespace"`

	// Authority is the protocol admin key.
	Authority keys.Pubkey `yaml:"authority"`

	// TrustSigners skips signature verification. Local development only.
	TrustSigners bool `yaml:"trust_signers"`

	// Mints registered at startup.
	Mints []MintConfig `yaml:"mints"`

	// Webhooks receive every committed event as a signed HTTP POST.
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type MintConfig struct {
	Mint     keys.Pubkey `yaml:"mint"`
	Decimals uint8       `yaml:"decimals"`
}

type WebhookConfig struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{Port: "8080"}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	}
	if v := os.Getenv("SERVICE_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	return cfg, nil
}
