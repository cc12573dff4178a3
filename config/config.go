// Package config loads the node's TOML configuration, creating a default
// file (with a freshly generated RPC signing secret) the first time a node
// starts against an empty data directory, mirroring the teacher's
// load-or-create-default config.Load.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk node configuration.
type Config struct {
	// RPCAddress is the listen address for the JSON-RPC HTTP boundary.
	RPCAddress string `toml:"RPCAddress"`
	// DataDir holds the SQLite database and Parquet archive output.
	DataDir string `toml:"DataDir"`
	// BlockInterval is the network's slot duration (§6); the only network
	// constant the spec leaves to runtime configuration rather than fixing
	// in core/types/constants.go.
	BlockInterval time.Duration `toml:"BlockInterval"`
	// JWTSecret signs bearer tokens issued by rpc's login method. Generated
	// once and persisted on first run; rotating it invalidates every
	// outstanding token.
	JWTSecret string `toml:"JWTSecret"`
	// RPCUser and RPCPassword are the single operator credential checked by
	// login (§6); spec.md does not define an account system for the RPC
	// boundary, only that login succeeds or fails.
	RPCUser     string `toml:"RPCUser"`
	RPCPassword string `toml:"RPCPassword"`
	// ArchiveInterval is how often storage/archive flushes pending
	// Observation rows to Parquet.
	ArchiveInterval time.Duration `toml:"ArchiveInterval"`
	// Environment is attached to every log line by observability/logging.
	Environment string `toml:"Environment"`
	// SelfAddress is the bech32 owner address the RPC boundary's local
	// wallet bookkeeping spends from and receives change into (§6).
	SelfAddress string `toml:"SelfAddress"`
	// TracingEndpoint is the OTLP/HTTP collector address for block
	// validation spans. Empty disables export and installs a no-op
	// tracer provider (observability/tracing).
	TracingEndpoint string `toml:"TracingEndpoint"`
	// TracingInsecure disables TLS when dialing TracingEndpoint, for
	// collectors running as a local sidecar.
	TracingInsecure bool `toml:"TracingInsecure"`
}

// Load reads path, creating a default configuration (with a fresh JWT
// secret) if it does not exist yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.JWTSecret = secret

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

func createDefault(path string) (*Config, error) {
	secret, err := randomSecret()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:      ":8080",
		DataDir:         "./dposd-data",
		BlockInterval:   3 * time.Second,
		JWTSecret:       secret,
		RPCUser:         "admin",
		RPCPassword:     secret[:16],
		ArchiveInterval: time.Hour,
		Environment:     "development",
		// SelfAddress is left blank: the operator must fill in the bech32
		// owner address this node's wallet bookkeeping spends from before
		// dposd will start.
		SelfAddress: "",
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

func randomSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
