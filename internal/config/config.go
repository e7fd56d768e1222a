package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ntpgps/internal/nmea"
	"ntpgps/internal/ubx"
)

type Config struct {
	// Device is a path under /dev ("ttyUSB0", "pts/1") or an absolute path.
	Device string `yaml:"device"`
	// Unit selects the SHM segment. -1 infers it from the device name.
	Unit         int    `yaml:"unit"`
	Baud         int    `yaml:"baud"`
	Raw          bool   `yaml:"raw"`
	RequireValid bool   `yaml:"require_valid"`
	Filter       string `yaml:"filter"`
	Trace        bool   `yaml:"trace"`
	SeedDir      string `yaml:"seed_dir"`
	SocketDir    string `yaml:"socket_dir"`

	SHM       SHMConfig       `yaml:"shm"`
	UBlox     UBloxConfig     `yaml:"ublox"`
	Log       LogConfig       `yaml:"log"`
	Indicator IndicatorConfig `yaml:"indicator"`
}

type SHMConfig struct {
	Precision int32 `yaml:"precision"`
	Leap      int32 `yaml:"leap"`
	NSamples  int32 `yaml:"nsamples"`
	// Perm is an octal permission string such as "0666".
	Perm string `yaml:"perm"`
}

type UBloxConfig struct {
	Query           bool          `yaml:"query"`
	Only            string        `yaml:"only"`
	Enable          []string      `yaml:"enable"`
	Disable         []string      `yaml:"disable"`
	Save            bool          `yaml:"save"`
	AckTimeout      time.Duration `yaml:"ack_timeout"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
	Retries         int           `yaml:"retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	StepDelay       time.Duration `yaml:"step_delay"`
	RetryChecksum   bool          `yaml:"retry_checksum"`
}

type LogConfig struct {
	// Format is "console" or "json".
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type IndicatorConfig struct {
	Enable bool          `yaml:"enable"`
	Chip   string        `yaml:"chip"`
	Line   int           `yaml:"line"`
	Pulse  time.Duration `yaml:"pulse"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Unit:         -1,
		Baud:         9600,
		Raw:          true,
		RequireValid: true,
		SeedDir:      "/run/ntpgps",
		SocketDir:    "/run/ntpgps",
		SHM: SHMConfig{
			Precision: -1,
			Leap:      0,
			NSamples:  3,
			Perm:      "0666",
		},
		UBlox: UBloxConfig{
			Query:           true,
			AckTimeout:      50 * time.Millisecond,
			ResponseTimeout: 500 * time.Millisecond,
			Retries:         3,
			RetryBackoff:    20 * time.Millisecond,
			StepDelay:       10 * time.Millisecond,
		},
		Log: LogConfig{
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Indicator: IndicatorConfig{
			Chip:  "gpiochip0",
			Pulse: 50 * time.Millisecond,
		},
	}
}

// Load reads a YAML file on top of Default. Fields absent from the file keep
// their defaults. The device may still be empty; callers fill it from the
// command line and call Validate.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Baud == 0 {
		c.Baud = 9600
	}
	if c.SHM.NSamples == 0 {
		c.SHM.NSamples = 3
	}
	if c.SHM.Perm == "" {
		c.SHM.Perm = "0666"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Indicator.Chip == "" {
		c.Indicator.Chip = "gpiochip0"
	}
	if c.Indicator.Pulse <= 0 {
		c.Indicator.Pulse = 50 * time.Millisecond
	}
}

// Validate checks the complete configuration and resolves the unit when it
// is to be inferred from the device name.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("device is required")
	}
	if c.Unit < 0 {
		u, err := UnitForDevice(filepath.Base(c.Device))
		if err != nil {
			return err
		}
		c.Unit = u
	}
	if c.Unit > 255 {
		return fmt.Errorf("unit must be 0..255, got %d", c.Unit)
	}
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be > 0")
	}
	if c.SeedDir == "" {
		return fmt.Errorf("seed_dir is required")
	}
	if c.SocketDir == "" {
		return fmt.Errorf("socket_dir is required")
	}
	if c.SHM.Leap < 0 || c.SHM.Leap > 3 {
		return fmt.Errorf("shm.leap must be 0..3")
	}
	if c.SHM.NSamples <= 0 {
		return fmt.Errorf("shm.nsamples must be > 0")
	}
	if _, err := c.SHM.PermBits(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json")
	}
	if c.UBlox.Retries < 0 {
		return fmt.Errorf("ublox.retries must be >= 0")
	}
	if c.UBlox.Only != "" {
		if _, ok := ubx.SentenceID(strings.ToUpper(c.UBlox.Only)); !ok {
			return fmt.Errorf("ublox.only: unknown sentence %q", c.UBlox.Only)
		}
	}
	for _, n := range append(append([]string{}, c.UBlox.Enable...), c.UBlox.Disable...) {
		if _, ok := ubx.SentenceID(strings.ToUpper(strings.TrimSpace(n))); !ok {
			return fmt.Errorf("ublox: unknown sentence %q", n)
		}
	}
	if c.Indicator.Enable && c.Indicator.Line < 0 {
		return fmt.Errorf("indicator.line must be >= 0")
	}
	return nil
}

// DevicePath returns the device as an absolute path.
func (c Config) DevicePath() string {
	if filepath.IsAbs(c.Device) {
		return c.Device
	}
	return filepath.Join("/dev", c.Device)
}

// SocketPath is where the control endpoint listens.
func (c Config) SocketPath() string {
	return filepath.Join(c.SocketDir, fmt.Sprintf("shmwriter%d.sock", c.Unit))
}

// NMEAFilter parses Filter. An unparseable filter is not fatal: it falls
// back to accepting every sentence and the error is returned for logging.
func (c Config) NMEAFilter() (nmea.Filter, error) {
	return nmea.ParseFilter(c.Filter)
}

func (s SHMConfig) PermBits() (uint32, error) {
	v, err := strconv.ParseUint(s.Perm, 8, 32)
	if err != nil || v > 0o777 {
		return 0, fmt.Errorf("shm.perm must be an octal mode like 0666, got %q", s.Perm)
	}
	return uint32(v), nil
}

func (u UBloxConfig) SessionConfig() ubx.SessionConfig {
	return ubx.SessionConfig{
		AckTimeout:      u.AckTimeout,
		ResponseTimeout: u.ResponseTimeout,
		Retries:         u.Retries,
		Backoff:         u.RetryBackoff,
		StepDelay:       u.StepDelay,
		RetryChecksum:   u.RetryChecksum,
	}
}

var unitBases = []struct {
	prefix string
	base   int
}{
	{"ttyUSB", 100},
	{"ttyACM", 120},
	{"ttyAMA", 140},
	{"ttyS", 160},
}

// UnitForDevice derives the SHM unit from a tty name such as "ttyACM0".
func UnitForDevice(name string) (int, error) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return 0, fmt.Errorf("unsupported or invalid device name: %s", name)
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return 0, fmt.Errorf("unsupported or invalid device name: %s", name)
	}
	for _, b := range unitBases {
		if name[:i] != b.prefix {
			continue
		}
		u := b.base + n
		if u > 255 {
			return 0, fmt.Errorf("unsupported or invalid device name: %s", name)
		}
		return u, nil
	}
	return 0, fmt.Errorf("unsupported or invalid device name: %s", name)
}
