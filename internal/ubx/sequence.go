package ubx

import (
	"context"
	"fmt"
	"strings"
)

// Step is one message of a configuration sequence.
type Step struct {
	Msg  Message
	Mode Mode
}

// Sequence is an ordered list of steps run best-effort by Session.Run.
type Sequence struct {
	Name  string
	Steps []Step
}

type StepResult struct {
	Step  Step
	Reply Reply
}

// Run executes every step of seq, pausing StepDelay between steps. A failed
// step is logged and does not stop the rest of the sequence; only context
// cancellation does.
func (s *Session) Run(ctx context.Context, seq Sequence) []StepResult {
	results := make([]StepResult, 0, len(seq.Steps))
	for i, st := range seq.Steps {
		if i > 0 && !sleepCtx(ctx, s.cfg.StepDelay) {
			break
		}
		r := s.Send(ctx, st.Msg, st.Mode)
		results = append(results, StepResult{Step: st, Reply: r})
		if r.Outcome == OK {
			s.log.Debugw("ubx step ok", "seq", seq.Name, "msg", st.Msg.Name, "mode", st.Mode.String(), "attempts", r.Attempts)
			continue
		}
		s.log.Warnw("ubx step failed", "seq", seq.Name, "msg", st.Msg.Name, "mode", st.Mode.String(),
			"outcome", r.Outcome.String(), "attempts", r.Attempts, "err", r.Err)
		if ctx.Err() != nil {
			break
		}
	}
	return results
}

// Failed counts results whose outcome is not OK.
func Failed(results []StepResult) int {
	n := 0
	for _, r := range results {
		if r.Reply.Outcome != OK {
			n++
		}
	}
	return n
}

// VersionQuery switches both ports to UBX+NMEA output, polls MON-VER and
// switches back to NMEA only. The protocol switches are not acknowledged in
// a format we can rely on, so they are fire-and-forget.
func (c *Catalog) VersionQuery() Sequence {
	return Sequence{
		Name: "version",
		Steps: []Step{
			{c.PrtUART1UBX, FireAndForget},
			{c.PrtUSBUBX, FireAndForget},
			{c.MonVer, WaitResponse},
			{c.PrtUART1NMEA, FireAndForget},
			{c.PrtUSBNMEA, FireAndForget},
		},
	}
}

// Only leaves exactly one NMEA sentence type enabled and silences
// information messages (GPTXT), for the smallest possible serial load.
func (c *Catalog) Only(name string) (Sequence, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if _, ok := c.on[name]; !ok {
		return Sequence{}, fmt.Errorf("ubx: unknown sentence %q", name)
	}
	seq := Sequence{
		Name: "only-" + strings.ToLower(name),
		Steps: []Step{
			{c.PrtUART1NMEA, FireAndForget},
			{c.PrtUSBNMEA, FireAndForget},
			{c.InfOff, WaitAck},
		},
	}
	for _, s := range sentences {
		m := c.off[s.name]
		if s.name == name {
			m = c.on[s.name]
		}
		seq.Steps = append(seq.Steps, Step{m, WaitAck})
	}
	return seq, nil
}

// Switch enables and disables individual sentence types.
func (c *Catalog) Switch(enable, disable []string) (Sequence, error) {
	seq := Sequence{Name: "switch"}
	add := func(names []string, table map[string]Message) error {
		for _, n := range names {
			n = strings.ToUpper(strings.TrimSpace(n))
			m, ok := table[n]
			if !ok {
				return fmt.Errorf("ubx: unknown sentence %q", n)
			}
			seq.Steps = append(seq.Steps, Step{m, WaitAck})
		}
		return nil
	}
	if err := add(disable, c.off); err != nil {
		return Sequence{}, err
	}
	if err := add(enable, c.on); err != nil {
		return Sequence{}, err
	}
	return seq, nil
}

// Persist saves the current configuration to battery-backed RAM and flash.
func (c *Catalog) Persist() Sequence {
	return Sequence{Name: "save", Steps: []Step{{c.Save, WaitAck}}}
}

// QueryVersion runs VersionQuery and decodes the MON-VER reply.
func (s *Session) QueryVersion(ctx context.Context, c *Catalog) (Version, error) {
	for _, r := range s.Run(ctx, c.VersionQuery()) {
		if r.Step.Msg.Class != ClassMON || r.Step.Msg.ID != IDMonVer {
			continue
		}
		if r.Reply.Outcome != OK {
			return Version{}, fmt.Errorf("ubx: MON-VER %s", r.Reply.Outcome)
		}
		return DecodeVersion(r.Reply.Frame.Payload)
	}
	return Version{}, fmt.Errorf("ubx: MON-VER not sent")
}
