package ubx

// Result is the outcome of feeding one byte to a Parser.
type Result int

const (
	// Incomplete means more bytes are needed (or a frame was skipped).
	Incomplete Result = iota
	// Complete means Parser.Frame holds a frame that passed the filter.
	Complete
	// ChecksumError means a frame the filter would have accepted arrived
	// corrupted. The parser is back in sync search.
	ChecksumError
	// LengthError means a header declared a payload longer than MaxPayload.
	LengthError
)

func (r Result) String() string {
	switch r {
	case Incomplete:
		return "incomplete"
	case Complete:
		return "complete"
	case ChecksumError:
		return "checksum error"
	case LengthError:
		return "length error"
	default:
		return "unknown"
	}
}

// MaxPayload bounds the accumulation buffer. MON-VER, the largest reply we
// ask for, is 40 + 30*N bytes.
const MaxPayload = 1024

type parserState int

const (
	stateSync1 parserState = iota
	stateSync2
	stateClass
	stateID
	stateLenLo
	stateLenHi
	statePayload
	stateCkA
	stateCkB
	// stateNMEA discards an interleaved NMEA line up to '\n'.
	stateNMEA
)

type filterKind int

const (
	filterMessage filterKind = iota
	filterAck
)

// Filter selects which completed frames a Parser delivers. A nil *Filter
// accepts every frame.
type Filter struct {
	kind  filterKind
	class byte
	id    byte
}

// MatchMessage accepts frames of exactly (class, id).
func MatchMessage(class, id byte) *Filter {
	return &Filter{kind: filterMessage, class: class, id: id}
}

// MatchAck accepts ACK-ACK or ACK-NAK frames that acknowledge (class, id).
func MatchAck(class, id byte) *Filter {
	return &Filter{kind: filterAck, class: class, id: id}
}

func (f *Filter) matches(class, id byte, payload []byte) bool {
	if f == nil {
		return true
	}
	switch f.kind {
	case filterAck:
		if class != ClassACK || (id != IDAckAck && id != IDAckNak) {
			return false
		}
		return len(payload) >= 2 && payload[0] == f.class && payload[1] == f.id
	default:
		return class == f.class && id == f.id
	}
}

// Parser is a byte-at-a-time UBX frame decoder. It shares the stream with
// NMEA text and skips any line that starts with '$' while it is looking for
// a frame.
type Parser struct {
	filter *Filter

	// OnSkip, when set, receives valid frames rejected by the filter.
	OnSkip func(Frame)

	state    parserState
	class    byte
	id       byte
	length   int
	buf      []byte
	ckA, ckB byte
	gotA     byte

	frame Frame
}

func NewParser(filter *Filter) *Parser {
	return &Parser{filter: filter, buf: make([]byte, 0, 128)}
}

// Reset drops any partial frame and returns to sync search.
func (p *Parser) Reset() {
	p.state = stateSync1
	p.buf = p.buf[:0]
}

// Frame returns the last frame for which Feed returned Complete.
func (p *Parser) Frame() Frame { return p.frame }

func (p *Parser) sum(b byte) {
	p.ckA += b
	p.ckB += p.ckA
}

func (p *Parser) Feed(b byte) Result {
	switch p.state {
	case stateSync1:
		switch b {
		case Sync1:
			p.state = stateSync2
		case '$':
			p.state = stateNMEA
		}

	case stateNMEA:
		switch b {
		case '\n':
			p.state = stateSync1
		case Sync1:
			// NMEA is 7-bit text; a sync byte means the line was cut short.
			p.state = stateSync2
		}

	case stateSync2:
		switch b {
		case Sync2:
			p.ckA, p.ckB = 0, 0
			p.state = stateClass
		case Sync1:
			// Stay: this may be the real first sync byte.
		case '$':
			p.state = stateNMEA
		default:
			p.state = stateSync1
		}

	case stateClass:
		p.class = b
		p.sum(b)
		p.state = stateID

	case stateID:
		p.id = b
		p.sum(b)
		p.state = stateLenLo

	case stateLenLo:
		p.length = int(b)
		p.sum(b)
		p.state = stateLenHi

	case stateLenHi:
		p.length |= int(b) << 8
		p.sum(b)
		if p.length > MaxPayload {
			p.Reset()
			return LengthError
		}
		p.buf = p.buf[:0]
		if p.length == 0 {
			p.state = stateCkA
		} else {
			p.state = statePayload
		}

	case statePayload:
		p.buf = append(p.buf, b)
		p.sum(b)
		if len(p.buf) == p.length {
			p.state = stateCkA
		}

	case stateCkA:
		p.gotA = b
		p.state = stateCkB

	case stateCkB:
		p.state = stateSync1
		match := p.filter.matches(p.class, p.id, p.buf)
		if p.gotA != p.ckA || b != p.ckB {
			if match {
				return ChecksumError
			}
			return Incomplete
		}
		f := Frame{
			Class:   p.class,
			ID:      p.id,
			Payload: append([]byte(nil), p.buf...),
			CkA:     p.ckA,
			CkB:     p.ckB,
		}
		if !match {
			if p.OnSkip != nil {
				p.OnSkip(f)
			}
			return Incomplete
		}
		p.frame = f
		return Complete
	}
	return Incomplete
}
