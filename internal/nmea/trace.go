package nmea

import (
	gonmea "github.com/adrianmo/go-nmea"
	"go.uber.org/zap"
)

// traceOther logs the content of sentences that carry no time for us. It is
// a no-op unless debug logging is enabled.
func (p *Parser) traceOther(line string) {
	if !p.log.Desugar().Core().Enabled(zap.DebugLevel) {
		return
	}
	s, err := gonmea.Parse(line)
	if err != nil {
		p.log.Debugw("nmea other", "line", line)
		return
	}
	switch m := s.(type) {
	case gonmea.TXT:
		// u-blox reports antenna state and firmware notices this way.
		p.log.Infow("receiver text", "id", m.ID, "msg", m.Message)
	case gonmea.GSA:
		p.log.Debugw("nmea gsa", "fix_type", m.FixType, "sats_used", len(m.SV), "pdop", m.PDOP, "hdop", m.HDOP)
	case gonmea.GSV:
		p.log.Debugw("nmea gsv", "talker", m.TalkerID(), "in_view", m.NumberSVsInView)
	default:
		p.log.Debugw("nmea other", "type", s.DataType(), "talker", s.TalkerID())
	}
}
