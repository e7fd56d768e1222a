// Package control implements the line oriented command socket:
//
//	echo GETDATE | socat -t1 - UNIX-CONNECT:/run/ntpgps/shmwriter120.sock
//
// Each connection carries one command and gets one response.
package control

import (
	"errors"
	"fmt"
	"strings"

	"ntpgps/internal/calendar"
	"ntpgps/internal/logging"
	"ntpgps/internal/nmea"
	"ntpgps/internal/state"
	"ntpgps/internal/stats"
)

// Handler executes commands against the shared state.
type Handler struct {
	State    *state.Shared
	Counters *stats.Counters
	Log      *logging.Logger
	// Seeds, when set, is written right after a successful SETDATE.
	Seeds state.SeedWriter
	// Shutdown starts a clean process shutdown.
	Shutdown func()
}

// Handle returns the response for one command line (without the newline).
func (h *Handler) Handle(line string) string {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "SETDATE":
		return h.setDate(line, arg)
	case "GETDATE":
		st := h.State.Snapshot()
		return fmt.Sprintf("%s (%s)\n", st.Date.Date, st.Date.Source)
	case "SETALLOWINVALID":
		return h.setRequireValid(false)
	case "SETREQUIREVALID":
		return h.setRequireValid(true)
	case "GETVALID":
		return fmt.Sprintf("UPDATED:require_valid_nmea=%t\n", h.State.Snapshot().RequireValid)
	case "SETTRACEON":
		return h.setTrace(true)
	case "SETTRACEOFF":
		return h.setTrace(false)
	case "GETTRACE":
		return fmt.Sprintf("debug_trace=%t\n", h.Log.Trace())
	case "SHOWCOUNTERS":
		var b strings.Builder
		_, _ = h.Counters.WriteTo(&b)
		return b.String()
	case "RESETCOUNTERS":
		h.Counters.Reset()
		return "OK\n"
	case "GETVERSION":
		if v := h.State.Version(); v != "" {
			return v + "\n"
		}
		return "ERROR:version unknown\n"
	case "SHUTDOWN":
		if h.Shutdown != nil {
			h.Shutdown()
		}
		return "OK\n"
	default:
		return "ERROR:" + line + "\n"
	}
}

func (h *Handler) setDate(line, arg string) string {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "ERROR:" + line + "\n"
	}
	// The lock is checked before the argument so that a locked date is
	// reported as such even for malformed input.
	var (
		resp string
		err  error
	)
	_, ferr := h.State.DoAndFlush(h.Seeds, func(st *nmea.State) {
		if st.Date.Source == nmea.SourceNMEA {
			err = &nmea.DateLockedError{Date: st.Date.Date}
			return
		}
		d, perr := calendar.ParseDate(arg)
		if perr != nil {
			err = perr
			return
		}
		if err = st.SetUserDate(d); err == nil {
			resp = fmt.Sprintf("UPDATED:%s\n", d)
		}
	})
	if ferr != nil {
		h.Log.Warnw("seed write failed", "err", ferr)
	}

	var locked *nmea.DateLockedError
	switch {
	case errors.As(err, &locked):
		return "ERROR: " + locked.Error() + "\n"
	case err != nil:
		return "ERROR:" + arg + "\n"
	}
	h.Log.Infow("stored date set by user", "date", arg)
	return resp
}

func (h *Handler) setRequireValid(on bool) string {
	changed := false
	h.State.Do(func(st *nmea.State) {
		if st.RequireValid != on {
			st.RequireValid = on
			changed = true
		}
	})
	if !changed {
		return "OK\n"
	}
	return fmt.Sprintf("UPDATED:require_valid_nmea=%t\n", on)
}

func (h *Handler) setTrace(on bool) string {
	if !h.Log.SetTrace(on) {
		return "OK\n"
	}
	return fmt.Sprintf("UPDATED:debug_trace=%t\n", on)
}
