package gps

// Options controls how the serial line is opened.
type Options struct {
	Baud int
	// NoRaw leaves the line settings alone, for pseudo terminals.
	NoRaw bool
}

// MaxLine is the longest line kept. NMEA allows 82 characters; the rest is
// headroom for vendor sentences.
const MaxLine = 512

// LineSplitter turns a byte stream into lines. CR bytes are dropped and LF
// ends a line. Bytes past MaxLine are discarded until the next LF, and the
// truncated line is still delivered.
type LineSplitter struct {
	buf  []byte
	over bool
}

// Feed appends p and calls fn for every completed, non-empty line.
func (l *LineSplitter) Feed(p []byte, fn func(line string, truncated bool)) {
	for _, b := range p {
		switch b {
		case '\n':
			if len(l.buf) > 0 {
				fn(string(l.buf), l.over)
			}
			l.buf = l.buf[:0]
			l.over = false
		case '\r':
		default:
			if len(l.buf) >= MaxLine {
				l.over = true
				continue
			}
			l.buf = append(l.buf, b)
		}
	}
}

// Reset drops a partial line, e.g. after UBX configuration traffic.
func (l *LineSplitter) Reset() {
	l.buf = l.buf[:0]
	l.over = false
}
