// Package ubx speaks the subset of the u-blox UBX binary protocol needed to
// identify a receiver and select which NMEA sentences it emits.
package ubx

import (
	"encoding/binary"
	"fmt"
)

const (
	Sync1 = 0xB5
	Sync2 = 0x62
)

// Message classes.
const (
	ClassNAV  = 0x01
	ClassACK  = 0x05
	ClassCFG  = 0x06
	ClassMON  = 0x0A
	ClassNMEA = 0xF0
)

// Message IDs within their class.
const (
	IDAckNak = 0x00
	IDAckAck = 0x01

	IDCfgPrt = 0x00
	IDCfgMsg = 0x01
	IDCfgInf = 0x02
	IDCfgCfg = 0x09

	IDMonVer = 0x04
)

// headerLen is sync(2) + class + id + length(2); checksumLen follows the payload.
const (
	headerLen   = 6
	checksumLen = 2
)

// Frame is one UBX protocol unit.
type Frame struct {
	Class   byte
	ID      byte
	Payload []byte
	CkA     byte
	CkB     byte
}

// Checksum is the 8-bit Fletcher sum over class, id, length and payload.
func Checksum(data []byte) (ckA, ckB byte) {
	for _, b := range data {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}

// Encode builds a complete wire frame including sync bytes and checksum.
func Encode(class, id byte, payload []byte) []byte {
	buf := make([]byte, 0, headerLen+len(payload)+checksumLen)
	buf = append(buf, Sync1, Sync2, class, id)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	ckA, ckB := Checksum(buf[2:])
	return append(buf, ckA, ckB)
}

// Bytes re-encodes f, recomputing the checksum.
func (f Frame) Bytes() []byte { return Encode(f.Class, f.ID, f.Payload) }

// IsAck reports whether f acknowledges (class, id). nak is true for ACK-NAK.
func (f Frame) IsAck(class, id byte) (ok, nak bool) {
	if f.Class != ClassACK || len(f.Payload) < 2 {
		return false, false
	}
	if f.Payload[0] != class || f.Payload[1] != id {
		return false, false
	}
	switch f.ID {
	case IDAckAck:
		return true, false
	case IDAckNak:
		return true, true
	}
	return false, false
}

func (f Frame) String() string {
	s := fmt.Sprintf("UBX-%s len=%d", Name(f.Class, f.ID), len(f.Payload))
	if f.Class == ClassACK && len(f.Payload) >= 2 {
		s += " for=" + Name(f.Payload[0], f.Payload[1])
	}
	if f.Class == ClassCFG && f.ID == IDCfgMsg && len(f.Payload) >= 2 {
		s += " msg=" + Name(f.Payload[0], f.Payload[1])
	}
	return s
}

var classNames = map[byte]string{
	ClassNAV:  "NAV",
	ClassACK:  "ACK",
	ClassCFG:  "CFG",
	ClassMON:  "MON",
	ClassNMEA: "NMEA",
}

var idNames = map[[2]byte]string{
	{ClassACK, IDAckNak}: "NAK",
	{ClassACK, IDAckAck}: "ACK",
	{ClassCFG, IDCfgPrt}: "PRT",
	{ClassCFG, IDCfgMsg}: "MSG",
	{ClassCFG, IDCfgInf}: "INF",
	{ClassCFG, IDCfgCfg}: "CFG",
	{ClassMON, IDMonVer}: "VER",
	{ClassNAV, 0x21}:     "TIMEUTC",
	{ClassNAV, 0x07}:     "PVT",
}

// Name renders "CLASS-ID" using symbolic names where known and hex
// otherwise, e.g. "CFG-MSG", "NMEA-ZDA" or "0x0D-0x01".
func Name(class, id byte) string {
	cn, ok := classNames[class]
	if !ok {
		cn = fmt.Sprintf("0x%02X", class)
	}
	if class == ClassNMEA {
		if n, ok := sentenceName(id); ok {
			return cn + "-" + n
		}
	}
	in, ok := idNames[[2]byte{class, id}]
	if !ok {
		in = fmt.Sprintf("0x%02X", id)
	}
	return cn + "-" + in
}
