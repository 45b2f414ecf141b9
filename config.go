package fibsterm

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Default server address
const (
	DefaultHostname = "fibs.com"
	DefaultPort     = 4321
)

// BorderNames lists the accepted values of FIBS_BORDER
var BorderNames = []string{"none", "single", "double", "heavy", "rounded"}

// Config is the client configuration, read from the environment
type Config struct {
	Hostname    string        `envconfig:"FIBS_HOSTNAME" default:"fibs.com"`
	Port        uint16        `envconfig:"FIBS_PORT" default:"4321"`
	DialTimeout time.Duration `envconfig:"FIBS_DIAL_TIMEOUT" default:"10s"`
	ReadBuffer  int           `envconfig:"FIBS_READ_BUFFER" default:"4096"`

	LogFile  string `envconfig:"FIBS_LOG_FILE" default:""`
	LogLevel string `envconfig:"FIBS_LOG_LEVEL" default:"info"`

	// Screen layout
	Border     string `envconfig:"FIBS_BORDER" default:"rounded"`
	InputPanel bool   `envconfig:"FIBS_INPUT_PANEL" default:"true"`
	Scrollback int    `envconfig:"FIBS_SCROLLBACK" default:"10000"`
}

// LoadConfig reads the configuration from FIBS_* environment variables.
// Every failure is reported as a KindMalformedConfiguration error.
func LoadConfig() (Config, error) {
	var cfg Config
	// Tags carry the full variable names, so no prefix is applied
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, ConfigError(err)
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(os.TempDir(), "fibsterm.log")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig returns the configuration used when no variables are set
func DefaultConfig() Config {
	return Config{
		Hostname:    DefaultHostname,
		Port:        DefaultPort,
		DialTimeout: 10 * time.Second,
		ReadBuffer:  4096,
		LogFile:     filepath.Join(os.TempDir(), "fibsterm.log"),
		LogLevel:    "info",
		Border:      "rounded",
		InputPanel:  true,
		Scrollback:  DefaultScrollback,
	}
}

// Validate checks the values envconfig cannot check by type alone
func (c Config) Validate() error {
	if i := strings.IndexByte(c.Hostname, 0); i >= 0 {
		return ConfigError(errors.Errorf(
			"interior nul byte found at position %d, immediately following %s",
			i, DecodeText([]byte(c.Hostname[:i]))))
	}
	if c.Hostname == "" {
		return ConfigError(errors.New("FIBS_HOSTNAME is empty"))
	}
	if c.ReadBuffer < 1 {
		return ConfigError(errors.Errorf("FIBS_READ_BUFFER must be at least 1, got %d", c.ReadBuffer))
	}
	if c.DialTimeout < 0 {
		return ConfigError(errors.Errorf("FIBS_DIAL_TIMEOUT must not be negative, got %s", c.DialTimeout))
	}
	if !validBorder(c.Border) {
		return ConfigError(errors.Errorf("FIBS_BORDER %q is not one of %s", c.Border, strings.Join(BorderNames, ", ")))
	}
	return nil
}

func validBorder(name string) bool {
	for _, b := range BorderNames {
		if strings.EqualFold(b, name) {
			return true
		}
	}
	return false
}
