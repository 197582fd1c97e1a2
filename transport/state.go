package transport

import (
	"fmt"

	"github.com/bpak-io/bpak/errs"
)

// decodeState is the per-part decode lifecycle spec §4.4 names: "IDLE ->
// STARTED -> WRITING -> FINISHED. STARTED requires a valid part header;
// WRITING -> WRITING for each chunk; finish() may only be called in
// WRITING. Re-entry into STARTED for the next part resets the internal
// decoder but keeps the configured I/O callbacks." It is a small int enum
// with a transition helper, not a generated state-machine library -- the
// teacher never pulls one in for its own encoder states either.
type decodeState int

const (
	decodeIdle decodeState = iota
	decodeStarted
	decodeWriting
	decodeFinished
)

func (s decodeState) String() string {
	switch s {
	case decodeIdle:
		return "IDLE"
	case decodeStarted:
		return "STARTED"
	case decodeWriting:
		return "WRITING"
	case decodeFinished:
		return "FINISHED"
	default:
		return fmt.Sprintf("decodeState(%d)", int(s))
	}
}

// transition moves s to next, or reports an error for any move the state
// machine above doesn't allow.
func (s decodeState) transition(next decodeState) (decodeState, error) {
	switch {
	case s == decodeIdle && next == decodeStarted:
	case s == decodeStarted && next == decodeWriting:
	case s == decodeWriting && next == decodeWriting:
	case s == decodeWriting && next == decodeFinished:
	case s == decodeFinished && next == decodeStarted:
	default:
		return s, fmt.Errorf("%w: invalid transport decode transition %s -> %s", errs.ErrFailed, s, next)
	}

	return next, nil
}
