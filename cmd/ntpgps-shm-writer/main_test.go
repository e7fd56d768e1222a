package main

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseArgs_Defaults(t *testing.T) {
	cfg, err := parseArgs([]string{"ttyACM0"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseArgs() error: %v", err)
	}
	if cfg.Device != "ttyACM0" || cfg.Unit != 120 || !cfg.Raw || !cfg.RequireValid || cfg.Trace {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.UBlox.Only != "" || !cfg.UBlox.Query {
		t.Fatalf("unexpected ublox config %+v", cfg.UBlox)
	}
}

func TestParseArgs_MixedOptionsAndPositionals(t *testing.T) {
	var stderr bytes.Buffer
	cfg, err := parseArgs([]string{"-a", "pts/1", "-s", " /var/lib/ntpgps ", "120", "--debug-trace", "-n", "-u", "-f", "RMC,ZDA"}, &stderr)
	if err != nil {
		t.Fatalf("parseArgs() error: %v (%s)", err, stderr.String())
	}
	if cfg.Device != "pts/1" || cfg.Unit != 120 {
		t.Fatalf("device=%q unit=%d", cfg.Device, cfg.Unit)
	}
	if cfg.RequireValid || !cfg.Trace || cfg.Raw || cfg.UBlox.Only != "ZDA" {
		t.Fatalf("flags not applied %+v", cfg)
	}
	if cfg.SeedDir != "/var/lib/ntpgps" || cfg.Filter != "RMC,ZDA" {
		t.Fatalf("seed=%q filter=%q", cfg.SeedDir, cfg.Filter)
	}
}

func TestParseArgs_LastValidityFlagWins(t *testing.T) {
	cfg, err := parseArgs([]string{"-a", "-r", "ttyUSB0"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseArgs() error: %v", err)
	}
	if !cfg.RequireValid {
		t.Fatalf("-r after -a must require valid sentences")
	}
	cfg, err = parseArgs([]string{"--require-valid", "--allow-invalid", "ttyUSB0"}, &bytes.Buffer{})
	if err != nil || cfg.RequireValid {
		t.Fatalf("--allow-invalid last: RequireValid=%v err=%v", cfg.RequireValid, err)
	}
}

func TestParseArgs_InvalidFilterIsNotFatal(t *testing.T) {
	cfg, err := parseArgs([]string{"-f", "XYZ", "ttyUSB0"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseArgs() error: %v", err)
	}
	if _, ferr := cfg.NMEAFilter(); ferr == nil {
		t.Fatalf("expected filter parse error to be reported later")
	}
}

func TestParseArgs_Errors(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{nil, "missing device name"},
		{[]string{"ttyUSB0", "256"}, "invalid unit number: 256"},
		{[]string{"ttyUSB0", "x"}, "invalid unit number: x"},
		{[]string{"pts/1"}, "unsupported or invalid device name: 1"},
		{[]string{"ttyUSB0", "1", "extra"}, "unexpected argument: extra"},
	}
	for _, tc := range cases {
		_, err := parseArgs(tc.args, &bytes.Buffer{})
		if err == nil || err.Error() != tc.want {
			t.Fatalf("%q: err=%v want %q", tc.args, err, tc.want)
		}
	}
}

func TestParseArgs_UnknownFlag(t *testing.T) {
	if _, err := parseArgs([]string{"-x", "ttyUSB0"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
}

func TestParseArgs_ConfigFileThenOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("device: ttyAMA0\nrequire_valid: false\nbaud: 38400\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	cfg, err := parseArgs([]string{"-config", path}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseArgs() error: %v", err)
	}
	if cfg.Device != "ttyAMA0" || cfg.Unit != 140 || cfg.RequireValid || cfg.Baud != 38400 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	cfg, err = parseArgs([]string{"-config", path, "-r", "ttyUSB2"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseArgs() error: %v", err)
	}
	if cfg.Device != "ttyUSB2" || cfg.Unit != 102 || !cfg.RequireValid {
		t.Fatalf("command line must override file: %+v", cfg)
	}
}

func TestRun_HelpAndUsageExitCodes(t *testing.T) {
	var stderr bytes.Buffer
	if code := run([]string{"--help"}, &stderr); code != exitOK {
		t.Fatalf("--help exit=%d", code)
	}
	if !strings.Contains(stderr.String(), "Usage: ntpgps-shm-writer [OPTIONS] <device> [unit]") {
		t.Fatalf("usage not printed: %q", stderr.String())
	}

	stderr.Reset()
	if code := run(nil, &stderr); code != exitUsage {
		t.Fatalf("missing device exit=%d", code)
	}
	if !strings.Contains(stderr.String(), "missing device name") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestParseArgs_Help(t *testing.T) {
	_, err := parseArgs([]string{"-h"}, &bytes.Buffer{})
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("err=%v want flag.ErrHelp", err)
	}
}
