package nmea

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoStart     = errors.New("nmea: missing '$'")
	ErrNoChecksum  = errors.New("nmea: missing checksum")
	ErrChecksum    = errors.New("nmea: checksum mismatch")
	ErrFiltered    = errors.New("nmea: sentence type filtered")
	ErrUnsupported = errors.New("nmea: unsupported sentence type")
	ErrNoDate      = errors.New("nmea: no stored date for time-only sentence")
	ErrBadTime     = errors.New("nmea: bad time field")
	ErrInvalidFix  = errors.New("nmea: receiver reports invalid fix")
)

// ChecksumError reports the checksum carried by the sentence next to the one
// computed over its payload. It matches ErrChecksum with errors.Is.
type ChecksumError struct {
	Declared byte
	Computed byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("nmea: checksum mismatch expected=%02X actual=%02X", e.Computed, e.Declared)
}

func (e *ChecksumError) Is(target error) bool { return target == ErrChecksum }

type sentence struct {
	// ID is the sentence type without the talker prefix ("RMC" for "GNRMC").
	ID string
	// Fields is the comma-split payload (excluding $ and checksum). Empty
	// fields are preserved so that positional indexes stay stable.
	Fields []string
}

// field returns Fields[i], or "" when the sentence is short.
func (s sentence) field(i int) string {
	if i < 0 || i >= len(s.Fields) {
		return ""
	}
	return s.Fields[i]
}

// Checksum XORs every byte of payload, which is the text strictly between
// '$' and '*'.
func Checksum(payload string) byte {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return ck
}

func parseSentence(line string) (sentence, error) {
	if !strings.HasPrefix(line, "$") {
		return sentence{}, ErrNoStart
	}
	star := strings.IndexByte(line, '*')
	if star == -1 {
		return sentence{}, ErrNoChecksum
	}
	payload := line[1:star]
	ck := line[star+1:]
	if len(ck) < 2 {
		return sentence{}, ErrNoChecksum
	}
	want, err := hex.DecodeString(ck[:2])
	if err != nil || len(want) != 1 {
		return sentence{}, ErrNoChecksum
	}
	if got := Checksum(payload); got != want[0] {
		return sentence{}, &ChecksumError{Declared: want[0], Computed: got}
	}

	parts := strings.Split(payload, ",")
	tag := parts[0]
	id := ""
	// Talker (2) + type (3). Proprietary "P..." sentences never match.
	if len(tag) == 5 && tag[0] != 'P' {
		id = strings.ToUpper(tag[2:])
	}
	return sentence{ID: id, Fields: parts}, nil
}
