package nmea

import (
	"fmt"
	"strings"
)

type kind int

const (
	kindOther kind = iota
	kindRMC
	kindZDA
	kindZDG
	kindGLL
	kindGGA
)

func classify(id string) kind {
	switch id {
	case "RMC":
		return kindRMC
	case "ZDA":
		return kindZDA
	case "ZDG":
		return kindZDG
	case "GLL":
		return kindGLL
	case "GGA":
		return kindGGA
	default:
		return kindOther
	}
}

// Filter is an allow-list of time-bearing sentence types. The zero value
// allows everything.
type Filter uint8

const (
	FilterRMC Filter = 1 << iota
	FilterGGA
	FilterGLL
	// FilterZDA also admits ZDG.
	FilterZDA
)

var filterNames = []struct {
	name string
	bit  Filter
}{
	{"RMC", FilterRMC},
	{"GGA", FilterGGA},
	{"GLL", FilterGLL},
	{"ZDA", FilterZDA},
}

// ParseFilter parses a comma separated list such as "RMC,ZDA". Empty input
// returns the zero (allow-all) filter.
func ParseFilter(s string) (Filter, error) {
	var f Filter
	for _, tok := range strings.Split(s, ",") {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		found := false
		for _, fn := range filterNames {
			if fn.name == tok {
				f |= fn.bit
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown sentence type %q in filter (want RMC, GGA, GLL, ZDA)", tok)
		}
	}
	return f, nil
}

func (f Filter) String() string {
	if f == 0 {
		return "ALL"
	}
	var names []string
	for _, fn := range filterNames {
		if f&fn.bit != 0 {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, ",")
}

func (f Filter) allows(k kind) bool {
	if f == 0 {
		return true
	}
	switch k {
	case kindRMC:
		return f&FilterRMC != 0
	case kindGGA:
		return f&FilterGGA != 0
	case kindGLL:
		return f&FilterGLL != 0
	case kindZDA, kindZDG:
		return f&FilterZDA != 0
	default:
		return false
	}
}
