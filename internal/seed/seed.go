// Package seed persists the last known date and time of day so that a
// restart before the receiver reports a date still has one to work with.
package seed

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ntpgps/internal/calendar"
)

const (
	DateFile = "date.seed"
	TimeFile = "time.seed"
)

type Store struct {
	Dir string
}

func (s Store) DatePath() string { return filepath.Join(s.Dir, DateFile) }
func (s Store) TimePath() string { return filepath.Join(s.Dir, TimeFile) }

// ReadDate returns the seeded date. ok is false when the file does not exist.
func (s Store) ReadDate() (d calendar.Date, ok bool, err error) {
	line, ok, err := readLine(s.DatePath())
	if !ok || err != nil {
		return calendar.Date{}, false, err
	}
	d, err = calendar.ParseDate(line)
	if err != nil {
		return calendar.Date{}, false, fmt.Errorf("%s: %w", s.DatePath(), err)
	}
	return d, true, nil
}

// ReadTime returns the seeded time of day. ok is false when the file does
// not exist.
func (s Store) ReadTime() (t calendar.TimeOfDay, ok bool, err error) {
	line, ok, err := readLine(s.TimePath())
	if !ok || err != nil {
		return calendar.TimeOfDay{}, false, err
	}
	t, err = calendar.ParseTime(line)
	if err != nil {
		return calendar.TimeOfDay{}, false, fmt.Errorf("%s: %w", s.TimePath(), err)
	}
	return t, true, nil
}

// Write rewrites both files, creating Dir if needed.
func (s Store) Write(d calendar.Date, t calendar.TimeOfDay) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(s.DatePath(), d.String()+"\n"); err != nil {
		return err
	}
	return writeFile(s.TimePath(), t.String()+"\n")
}

func readLine(path string) (string, bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", false, fmt.Errorf("%s: %w", path, err)
		}
		return "", false, fmt.Errorf("%s: empty file", path)
	}
	return strings.TrimSpace(sc.Text()), true, nil
}

// writeFile replaces path through a temporary file so that a reader never
// sees a half written seed.
func writeFile(path, contents string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(contents), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
