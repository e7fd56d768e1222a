package ubx

import (
	"encoding/binary"
	"strings"
)

// Message is an outbound frame with its wire encoding computed up front.
type Message struct {
	Name    string
	Class   byte
	ID      byte
	Payload []byte
	CkA     byte
	CkB     byte

	wire []byte
}

func newMessage(name string, class, id byte, payload ...byte) Message {
	wire := Encode(class, id, payload)
	return Message{
		Name:    name,
		Class:   class,
		ID:      id,
		Payload: payload,
		CkA:     wire[len(wire)-2],
		CkB:     wire[len(wire)-1],
		wire:    wire,
	}
}

// Wire returns the encoded frame. Callers must not modify it.
func (m Message) Wire() []byte { return m.wire }

// NMEA sentence IDs in class 0xF0, in the order the receiver lists them.
var sentences = []struct {
	name string
	id   byte
}{
	{"GGA", 0x00},
	{"GLL", 0x01},
	{"GSA", 0x02},
	{"GSV", 0x03},
	{"RMC", 0x04},
	{"VTG", 0x05},
	{"GRS", 0x06},
	{"GST", 0x07},
	{"ZDA", 0x08},
	{"GBS", 0x09},
	{"DTM", 0x0A},
	{"GNS", 0x0D},
}

func sentenceName(id byte) (string, bool) {
	for _, s := range sentences {
		if s.id == id {
			return s.name, true
		}
	}
	return "", false
}

// SentenceID maps an NMEA sentence name such as "ZDA" to its UBX message id.
func SentenceID(name string) (byte, bool) {
	for _, s := range sentences {
		if s.name == name {
			return s.id, true
		}
	}
	return 0, false
}

// Sentences lists the NMEA sentence names the catalog can switch.
func Sentences() []string {
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		out = append(out, s.name)
	}
	return out
}

// Port identifiers for CFG-PRT.
const (
	portUART1 = 1
	portUSB   = 3
)

// Protocol masks for CFG-PRT in/out.
const (
	protoUBX  = 0x0001
	protoNMEA = 0x0002
	protoRTCM = 0x0004
)

// uartMode is 8N1 with no flow control.
const uartMode = 0x000008D0

// cfgPrt builds the 20 byte CFG-PRT payload. mode and baud are ignored by
// the receiver for USB and are sent as zero there.
func cfgPrt(port byte, mode, baud uint32, outProto uint16) []byte {
	p := make([]byte, 20)
	p[0] = port
	binary.LittleEndian.PutUint32(p[4:8], mode)
	binary.LittleEndian.PutUint32(p[8:12], baud)
	binary.LittleEndian.PutUint16(p[12:14], protoUBX|protoNMEA|protoRTCM)
	binary.LittleEndian.PutUint16(p[14:16], outProto)
	return p
}

// cfgMsg sets the output rate of one NMEA sentence on UART1 and USB. The
// other ports (I2C, UART2, SPI) stay off.
func cfgMsg(id byte, on bool) []byte {
	rate := byte(0)
	if on {
		rate = 1
	}
	return []byte{ClassNMEA, id, 0, rate, 0, rate, 0, 0}
}

// Catalog is the fixed set of messages used by the configuration sequences.
// Build it once at startup with NewCatalog.
type Catalog struct {
	PrtUART1UBX  Message
	PrtUSBUBX    Message
	PrtUART1NMEA Message
	PrtUSBNMEA   Message
	InfOff       Message
	MonVer       Message
	Save         Message

	on  map[string]Message
	off map[string]Message
}

// NewCatalog builds the message table. uartBaud is written into the UART1
// port configuration so that switching protocols keeps the current speed.
func NewCatalog(uartBaud uint32) *Catalog {
	c := &Catalog{
		PrtUART1UBX:  newMessage("cfg_prt_uart1_ubx", ClassCFG, IDCfgPrt, cfgPrt(portUART1, uartMode, uartBaud, protoUBX|protoNMEA)...),
		PrtUSBUBX:    newMessage("cfg_prt_usb_ubx", ClassCFG, IDCfgPrt, cfgPrt(portUSB, 0, 0, protoUBX|protoNMEA)...),
		PrtUART1NMEA: newMessage("cfg_prt_uart1_nmea", ClassCFG, IDCfgPrt, cfgPrt(portUART1, uartMode, uartBaud, protoNMEA)...),
		PrtUSBNMEA:   newMessage("cfg_prt_usb_nmea", ClassCFG, IDCfgPrt, cfgPrt(portUSB, 0, 0, protoNMEA)...),
		// protocolID 1 (NMEA), reserved, six zero port masks.
		InfOff: newMessage("cfg_inf_off", ClassCFG, IDCfgInf, 0x01, 0, 0, 0, 0, 0, 0, 0, 0, 0),
		MonVer: newMessage("mon_ver", ClassMON, IDMonVer),
		// clearMask 0, saveMask all, loadMask 0, deviceMask BBR|flash.
		Save: newMessage("cfg_cfg_bbr_flash", ClassCFG, IDCfgCfg,
			0x00, 0x00, 0x00, 0x00,
			0xFF, 0xFF, 0x00, 0x00,
			0x00, 0x00, 0x00, 0x00,
			0x03),
		on:  make(map[string]Message, len(sentences)),
		off: make(map[string]Message, len(sentences)),
	}
	for _, s := range sentences {
		lower := strings.ToLower(s.name)
		c.on[s.name] = newMessage("cfg_msg_nmea_"+lower+"_on", ClassCFG, IDCfgMsg, cfgMsg(s.id, true)...)
		c.off[s.name] = newMessage("cfg_msg_nmea_"+lower+"_off", ClassCFG, IDCfgMsg, cfgMsg(s.id, false)...)
	}
	return c
}

// SentenceOn returns the CFG-MSG that enables name ("ZDA", "RMC", ...).
func (c *Catalog) SentenceOn(name string) (Message, bool) {
	m, ok := c.on[name]
	return m, ok
}

func (c *Catalog) SentenceOff(name string) (Message, bool) {
	m, ok := c.off[name]
	return m, ok
}
