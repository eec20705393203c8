package state

import (
	"log/slog"

	"github.com/encodeous/rpl/perf"
)

// ErrorKind classifies a diagnostic. None of them are fatal.
type ErrorKind int

const (
	ErrNoFreePacketBuffer ErrorKind = iota + 1
	ErrUnexpectedSendDone
	ErrMsgUnknownType
	ErrWrongChecksum
	ErrMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNoFreePacketBuffer:
		return "no free packet buffer"
	case ErrUnexpectedSendDone:
		return "send done for a packet we did not create"
	case ErrMsgUnknownType:
		return "unknown message type"
	case ErrWrongChecksum:
		return "wrong checksum"
	case ErrMalformed:
		return "malformed message"
	}
	return "unknown error"
}

// Diagnostics receives non-fatal error reports.
type Diagnostics interface {
	Error(comp Component, kind ErrorKind, p1, p2 uint16)
}

// SlogDiagnostics writes diagnostics to a structured logger.
type SlogDiagnostics struct {
	Log *slog.Logger
}

func (d SlogDiagnostics) Error(comp Component, kind ErrorKind, p1, p2 uint16) {
	perf.Diagnostics.Add(1)
	d.Log.Warn(kind.String(), "component", comp.String(), "p1", p1, "p2", p2)
}
