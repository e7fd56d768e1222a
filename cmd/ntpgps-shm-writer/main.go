package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"ntpgps/internal/bridge"
	"ntpgps/internal/config"
	"ntpgps/internal/logging"
)

const (
	exitOK      = 0
	exitUsage   = 1
	exitRuntime = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cfg, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		fmt.Fprintf(stderr, "Usage: %s [OPTIONS] <device> [unit]\nTry '%s --help' for more information.\n", progName, progName)
		return exitUsage
	}

	log, err := logging.New(cfg.Log, cfg.Trace)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	defer log.Close()

	if _, ferr := cfg.NMEAFilter(); ferr != nil {
		log.Warnw("invalid or empty nmea filter string", "filter", cfg.Filter, "err", ferr)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer cancel()
	ignoreSignals()

	log.Infow("ntpgps-shm-writer starting",
		"device", cfg.DevicePath(), "unit", cfg.Unit, "require_valid", cfg.RequireValid,
		"filter", cfg.Filter, "seed_dir", cfg.SeedDir, "socket", cfg.SocketPath())

	b, err := bridge.Open(cfg, log)
	if err != nil {
		log.Errorw("startup failed", "err", err)
		return exitRuntime
	}

	runErr := b.Run(ctx)
	if err := b.Close(); err != nil {
		log.Warnw("release failed", "err", err)
	}
	if runErr != nil {
		log.Errorw("terminated", "err", runErr)
		return exitRuntime
	}
	log.Infow("terminated cleanly")
	return exitOK
}

const progName = "ntpgps-shm-writer"

// parseArgs applies the config file (if any) and then the command line. Like
// getopt, options and positional arguments may be mixed.
func parseArgs(args []string, stderr io.Writer) (config.Config, error) {
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	var (
		configPath string
		trace      bool
		noraw      bool
		zdaOnly    bool
		seedDir    string
		filter     string
		valid      *bool
	)
	fs.StringVar(&configPath, "config", "", "Path to YAML config")
	for _, name := range []string{"d", "debug-trace"} {
		fs.BoolVar(&trace, name, false, "Enable detailed debug trace output")
	}
	for _, name := range []string{"n", "noraw"} {
		fs.BoolVar(&noraw, name, false, "Do not set raw mode (useful for testing on PTY)")
	}
	for _, name := range []string{"u", "ublox-zda-only"} {
		fs.BoolVar(&zdaOnly, name, false, "Configure u-blox GPS to output only ZDA messages")
	}
	for _, name := range []string{"s", "date-seed-dir"} {
		fs.StringVar(&seedDir, name, "", "Directory for date-seed file storage")
	}
	for _, name := range []string{"f", "filter"} {
		fs.StringVar(&filter, name, "", "Only process specified NMEA sentence types (e.g. RMC,GGA,GLL,ZDA)")
	}
	// -r and -a toggle the same setting; the last one given wins.
	setValid := func(v bool) func(string) error {
		return func(string) error { valid = &v; return nil }
	}
	for _, name := range []string{"r", "require-valid"} {
		fs.BoolFunc(name, "Require valid NMEA sentences (default)", setValid(true))
	}
	for _, name := range []string{"a", "allow-invalid"} {
		fs.BoolFunc(name, "Allow invalid NMEA sentences to update SHM", setValid(false))
	}

	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return config.Config{}, err
		}
		rest = fs.Args()
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		rest = rest[1:]
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return config.Config{}, fmt.Errorf("config load failed: %w", err)
		}
	}

	if trace {
		cfg.Trace = true
	}
	if noraw {
		cfg.Raw = false
	}
	if zdaOnly {
		cfg.UBlox.Only = "ZDA"
	}
	if s := strings.TrimSpace(seedDir); s != "" {
		cfg.SeedDir = s
	}
	if filter != "" {
		cfg.Filter = filter
	}
	if valid != nil {
		cfg.RequireValid = *valid
	}

	switch len(positional) {
	case 0:
		if cfg.Device == "" {
			return config.Config{}, fmt.Errorf("missing device name")
		}
	case 1, 2:
		cfg.Device = positional[0]
		if len(positional) == 2 {
			u, err := strconv.Atoi(positional[1])
			if err != nil || u < 0 || u > 255 {
				return config.Config{}, fmt.Errorf("invalid unit number: %s", positional[1])
			}
			cfg.Unit = u
		}
	default:
		return config.Config{}, fmt.Errorf("unexpected argument: %s", positional[2])
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: %[1]s [OPTIONS] <device> [unit]

Writes GPS time to NTP shared memory (SHM) segments.
Intended for use with gpsd, chrony, or ntpd to provide an accurate time source.

Positional arguments:
  <device>         GPS serial device path (e.g. ttyUSB0 or pts/1)
  [unit]           Optional SHM unit number (0-255). If omitted, inferred from device.

Options:
  -h, --help                 Show this help message and exit
  -config FILE               YAML configuration file; options below override it
  -d, --debug-trace          Enable detailed debug trace output
  -n, --noraw                Do not set raw mode (useful for testing on PTY)
  -r, --require-valid        Require valid NMEA sentences (default)
  -a, --allow-invalid        Allow invalid NMEA sentences to update SHM
  -s, --date-seed-dir DIR    Directory for date-seed file storage
  -u, --ublox-zda-only       Configure u-blox GPS to output only ZDA messages
  -f, --filter MSG[,MSG...]  Only process specified NMEA sentence types (e.g. RMC,GGA,GLL,ZDA)

Examples:
  %[1]s --debug-trace /dev/ttyUSB0
  %[1]s -a -s /var/lib/ntpgps pts/1 120

Exit codes:
  0  success
  1  usage or configuration error
  2  runtime failure
`, progName)
}
