//go:build !linux

package indicator

import "fmt"

func openLine(chip string, offset int) (line, error) {
	return nil, fmt.Errorf("gpio unsupported on this platform")
}
