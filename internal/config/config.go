package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.talk/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`

	Server   Server   `toml:"server"`
	Store    Store    `toml:"store"`
	Identity Identity `toml:"identity"`
	Media    Media    `toml:"media"`
}

// Server configures the daemon's HTTP listener.
type Server struct {
	Listen string `toml:"listen"`
}

// Store selects the keyed store backend.
type Store struct {
	// Backend is "sqlite" (default) or "memory".
	Backend string `toml:"backend"`
}

// Identity configures how the daemon learns who the local user is.
// When TokenPath is set the identity comes from a signed token on disk;
// otherwise the static UID/Email/Name fields are used directly.
type Identity struct {
	TokenPath string `toml:"token_path"`
	Secret    string `toml:"secret"`

	UID   string `toml:"uid"`
	Email string `toml:"email"`
	Name  string `toml:"name"`
}

// Media selects the attachment storage backend.
type Media struct {
	// Backend is "dir" (default) or "s3".
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`

	Region       string `toml:"region"`
	Bucket       string `toml:"bucket"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	BaseEndpoint string `toml:"base_endpoint"`
}

// Default returns the config used when no file exists yet.
func Default() *Config {
	return &Config{
		Server: Server{Listen: "127.0.0.1:7070"},
		Store:  Store{Backend: "sqlite"},
		Media:  Media{Backend: "dir"},
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Validate rejects backend combinations the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Media.Backend {
	case "", "dir":
	case "s3":
		if c.Media.Bucket == "" {
			return fmt.Errorf("media backend s3 requires a bucket")
		}
	default:
		return fmt.Errorf("unknown media backend %q", c.Media.Backend)
	}
	if c.Identity.TokenPath == "" && c.Identity.UID == "" {
		return fmt.Errorf("identity requires token_path or a static uid")
	}
	return nil
}
