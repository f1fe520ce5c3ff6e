// Package app wires configuration, storage and the API client into the
// pitchctl command surface.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/reelpitch/reelpitch/pkg/pitchsdk"
)

// Config is the pitchctl configuration. Sources, in priority order:
//  1. explicit path passed to Load;
//  2. the CONFIG_PATH environment variable;
//  3. environment variables alone.
type Config struct {
	// APIURL, when set, becomes the first candidate host for every service
	// family. The built-in host lists stay behind it as fallbacks.
	APIURL string `yaml:"api_url" env:"REELPITCH_API_URL"`

	Env       string `yaml:"env"        env:"ENV"        env-default:"prod"`
	LogLevel  string `yaml:"log_level"  env:"LOG_LEVEL"  env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"text"`

	// DataDir holds the vault database and device key. Defaults to
	// ~/.reelpitch (resolved in Load when left empty).
	DataDir       string `yaml:"data_dir"        env:"REELPITCH_DATA_DIR"`
	VaultFile     string `yaml:"vault_file"      env:"REELPITCH_VAULT_FILE"      env-default:"vault.db"`
	DeviceKeyFile string `yaml:"device_key_file" env:"REELPITCH_DEVICE_KEY_FILE" env-default:"device.key"`

	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig holds the per-attempt timeouts for each service family.
type TimeoutConfig struct {
	Auth      time.Duration `yaml:"auth"      env:"TIMEOUT_AUTH"      env-default:"8s"`
	Video     time.Duration `yaml:"video"     env:"TIMEOUT_VIDEO"     env-default:"10s"`
	Upload    time.Duration `yaml:"upload"    env:"TIMEOUT_UPLOAD"    env-default:"60s"`
	Community time.Duration `yaml:"community" env:"TIMEOUT_COMMUNITY" env-default:"8s"`
	Chat      time.Duration `yaml:"chat"      env:"TIMEOUT_CHAT"      env-default:"6s"`
}

// MustLoad wraps Load and panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration. A missing file is only an error when a path
// was requested explicitly; with no file at all the environment still
// produces a complete config thanks to the defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	read := func(p string) error {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("config file does not exist: %s", p)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		return nil
	}

	switch {
	case path != "":
		if err := read(path); err != nil {
			return nil, err
		}
	case os.Getenv("CONFIG_PATH") != "":
		if err := read(os.Getenv("CONFIG_PATH")); err != nil {
			return nil, err
		}
	default:
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".reelpitch")
	}

	return &cfg, nil
}

// VaultPath returns the absolute path of the vault database file.
func (c *Config) VaultPath() string {
	return filepath.Join(c.DataDir, c.VaultFile)
}

// DeviceKeyPath returns the absolute path of the device key file.
func (c *Config) DeviceKeyPath() string {
	return filepath.Join(c.DataDir, c.DeviceKeyFile)
}

// Endpoints builds the per-family candidate host lists, prepending APIURL
// when the operator pinned one.
func (c *Config) Endpoints() pitchsdk.Endpoints {
	eps := pitchsdk.DefaultEndpoints()
	if c.APIURL == "" {
		return eps
	}
	eps.Auth = prepend(c.APIURL, eps.Auth)
	eps.Video = prepend(c.APIURL, eps.Video)
	eps.Community = prepend(c.APIURL, eps.Community)
	eps.Chat = prepend(c.APIURL, eps.Chat)
	eps.Notify = prepend(c.APIURL, eps.Notify)
	return eps
}

// SDKTimeouts converts the config timeouts into the client's shape.
func (c *Config) SDKTimeouts() pitchsdk.Timeouts {
	return pitchsdk.Timeouts{
		Auth:      c.Timeouts.Auth,
		Video:     c.Timeouts.Video,
		Upload:    c.Timeouts.Upload,
		Community: c.Timeouts.Community,
		Chat:      c.Timeouts.Chat,
	}
}

func prepend(head string, rest []string) []string {
	out := make([]string, 0, len(rest)+1)
	out = append(out, head)
	for _, r := range rest {
		if r != head {
			out = append(out, r)
		}
	}
	return out
}
