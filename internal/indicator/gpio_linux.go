//go:build linux

package indicator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openLine requests offset on chip as an output, initially off, using the
// GPIO character device.
func openLine(chip string, offset int) (line, error) {
	if offset < 0 {
		return nil, fmt.Errorf("invalid gpio line %d", offset)
	}
	if !strings.HasPrefix(chip, "/") {
		chip = filepath.Join("/dev", chip)
	}
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, err
	}
	l, err := c.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("ntpgps-fix"))
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("gpio line %d on %s: %w", offset, chip, err)
	}
	return &gpiodLine{chip: c, line: l}, nil
}

type gpiodLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodLine) SetValue(v int) error { return g.line.SetValue(v) }

func (g *gpiodLine) Close() error {
	err := g.line.Close()
	_ = g.chip.Close()
	return err
}
