package cli

import (
	"errors"
	"fmt"
	"io"
	"math/bits"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"
)

type ScryptConfig struct {
	N uint32 `yaml:"n"`
	R uint32 `yaml:"r"`
	P uint32 `yaml:"p"`
}

// Config is resolved from defaults, then the optional YAML file, then flags
// and environment variables.
type Config struct {
	VaultPath      string        `yaml:"vault_path"`
	LogLevel       string        `yaml:"log_level"`
	Scrypt         ScryptConfig  `yaml:"scrypt"`
	ClipboardClear time.Duration `yaml:"clipboard_clear"`

	Logger *logrus.Logger `yaml:"-"`
}

func DefaultConfig() *Config {
	path, err := DefaultVaultPath()
	if err != nil {
		path = "vault.bin"
	}
	return &Config{
		VaultPath:      path,
		LogLevel:       "info",
		Scrypt:         ScryptConfig{N: 1 << 15, R: 8, P: 1},
		ClipboardClear: 30 * time.Second,
	}
}

// LoadConfigFile overlays the YAML file at path onto cfg. Unknown keys are
// rejected.
func LoadConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.VaultPath) == "" {
		return errors.New("vault path is required")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q (expected debug|info|warn|error)", c.LogLevel)
	}
	s := c.Scrypt
	if s.N <= 1 || bits.OnesCount32(s.N) != 1 {
		return fmt.Errorf("scrypt N must be a power of two greater than 1, got %d", s.N)
	}
	if s.R == 0 || s.P == 0 || uint64(s.R)*uint64(s.P) >= 1<<30 {
		return fmt.Errorf("scrypt r and p must be positive with r*p < 2^30, got r=%d p=%d", s.R, s.P)
	}
	if c.ClipboardClear < 0 {
		return fmt.Errorf("clipboard_clear must not be negative, got %s", c.ClipboardClear)
	}
	return nil
}

// NewLogger builds the text logger used by every command.
func NewLogger(level string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

func NewConfigFromCLI(c *cli.Context) (*Config, error) {
	cfg := DefaultConfig()
	if path := c.String(ConfigFileFlag.Name); path != "" {
		if err := LoadConfigFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if c.IsSet(VaultPathFlag.Name) {
		cfg.VaultPath = c.String(VaultPathFlag.Name)
	}
	if c.IsSet(LogLevelFlag.Name) {
		cfg.LogLevel = c.String(LogLevelFlag.Name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	errOut := c.App.ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	cfg.Logger = NewLogger(cfg.LogLevel, errOut)
	return cfg, nil
}

var (
	ConfigFileFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "YAML configuration file",
		EnvVars: []string{"WIFI_VAULT_CONFIG"},
	}

	VaultPathFlag = &cli.StringFlag{
		Name:    "vault",
		Usage:   "Path to the encrypted vault file",
		EnvVars: []string{"WIFI_VAULT_PATH"},
	}

	LogLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		Usage:   "Log level (debug, info, warn, error)",
		EnvVars: []string{"LOG_LEVEL"},
	}
)
