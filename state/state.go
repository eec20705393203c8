package state

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type NyModule interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// State access must be done only on a single Goroutine
type State struct {
	*Env
	Services
	Modules map[string]NyModule
}

// Env can be read from any Goroutine
type Env struct {
	DispatchChannel chan<- func(s *State) error
	RplCfg
	NodeCfg
	Context  context.Context
	Cancel   context.CancelCauseFunc
	Log      *slog.Logger
	Started  atomic.Bool
	Stopping atomic.Bool
}

// Services are the collaborators the routing core talks to. Each one is
// owned by the node and only called from the dispatch goroutine.
type Services struct {
	Identity   Identity
	Neighbours Neighbours
	Link       LinkSync
	Queue      PacketQueue
	Net        Sender
	Addr       AddrTranslator
	Timers     Timers
	Rand       Random
	Diag       Diagnostics
}
