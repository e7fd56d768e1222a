package ubx

import (
	"fmt"
	"strings"
)

// MON-VER layout: swVersion[30], hwVersion[10], then extension[30] * N.
const (
	verSWLen      = 30
	verHWLen      = 10
	verExtLen     = 30
	verMaxExt     = 10
	verHeaderSize = verSWLen + verHWLen
)

// Version is the decoded MON-VER reply.
type Version struct {
	Software   string
	Hardware   string
	Extensions []string
}

func (v Version) String() string {
	s := fmt.Sprintf("sw=%s hw=%s", v.Software, v.Hardware)
	if len(v.Extensions) > 0 {
		s += " ext=" + strings.Join(v.Extensions, ";")
	}
	return s
}

// DecodeVersion parses a MON-VER payload. Strings are NUL padded on the wire;
// padding and surrounding whitespace are trimmed. Empty extensions are
// dropped and at most ten are kept.
func DecodeVersion(payload []byte) (Version, error) {
	if len(payload) < verHeaderSize {
		return Version{}, fmt.Errorf("ubx: MON-VER payload too short: %d", len(payload))
	}
	v := Version{
		Software: cString(payload[:verSWLen]),
		Hardware: cString(payload[verSWLen:verHeaderSize]),
	}
	rest := payload[verHeaderSize:]
	for i := 0; i < verMaxExt && len(rest) >= verExtLen; i++ {
		if ext := cString(rest[:verExtLen]); ext != "" {
			v.Extensions = append(v.Extensions, ext)
		}
		rest = rest[verExtLen:]
	}
	return v, nil
}

func cString(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}
