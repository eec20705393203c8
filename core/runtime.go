package core

import (
	"context"
	"log/slog"
	"os"
	"path"
	"reflect"
	"runtime"
	"time"

	"github.com/encodeous/rpl/neighbours"
	"github.com/encodeous/rpl/perf"
	"github.com/encodeous/rpl/queue"
	"github.com/encodeous/rpl/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// NewLogger writes coloured logs to stderr, prefixed with prefix, plus any
// extra handlers.
func NewLogger(prefix string, logLevel slog.Level, extra ...slog.Handler) *slog.Logger {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			CustomPrefix: prefix,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))
	handlers = append(handlers, extra...)
	return slog.New(
		slogmulti.Fanout(handlers...))
}

// FileHandler opens logPath for appending and returns a text handler for it.
func FileHandler(logPath string, logLevel slog.Level) (slog.Handler, *os.File, error) {
	err := os.MkdirAll(path.Dir(logPath), 0700)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
	if err != nil {
		return nil, nil, err
	}
	return slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}), f, nil
}

// NewNode builds the state of a node with the default services. The caller
// may replace any service before calling Start.
func NewNode(parent context.Context, rcfg state.RplCfg, ncfg state.NodeCfg, logger *slog.Logger, net state.Sender) (*state.State, <-chan func(*state.State) error) {
	ctx, cancel := context.WithCancelCause(parent)
	dispatch := make(chan func(env *state.State) error, 128)
	state.ExpandRplConfig(&rcfg)

	s := &state.State{
		Modules: make(map[string]state.NyModule),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			RplCfg:          rcfg,
			NodeCfg:         ncfg,
			Log:             logger,
		},
		Services: state.Services{
			Identity:   state.NewStaticIdentity(ncfg),
			Neighbours: neighbours.New(ncfg.Root, rcfg.NeighbourTimeout()),
			Link:       state.AlwaysSynced{},
			Queue:      queue.New(rcfg.QueueLength),
			Net:        net,
			Addr:       state.Eui64Translator{},
			Timers:     state.NewEnvTimers(),
			Rand:       state.MathRandom{},
			Diag:       state.SlogDiagnostics{Log: logger},
		},
	}
	return s, dispatch
}

// Start initialises the modules and runs the main loop until the node's
// context is cancelled.
func Start(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Info("init modules")
	err := initModules(s)
	if err != nil {
		Stop(s)
		return err
	}
	s.Log.Info("init modules complete", "mode", s.Mode, "root", s.Identity.IsDagRoot())
	return MainLoop(s, dispatch)
}

func initModules(s *state.State) error {
	var modules []state.NyModule
	modules = append(modules, &RplTrace{})
	if m, ok := s.Neighbours.(state.NyModule); ok {
		modules = append(modules, m)
	}
	modules = append(modules, &Rpl{})

	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	for {
		select {
		case fun := <-dispatch:
			if fun == nil {
				goto endLoop
			}
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > state.DispatchWarnThreshold {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(dispatch))
			}
		case <-s.Context.Done():
			goto endLoop
		}
	}
endLoop:
	s.Log.Info("stopped main loop", "reason", context.Cause(s.Context))
	Stop(s)
	return nil
}

// Stop cancels the node and cleans up its modules. It must run on the
// dispatch goroutine, or after the main loop has exited.
func Stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return // don't stop twice
	}
	s.Cancel(context.Canceled)
	s.Log.Info("cleaning up modules")
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop: ", "module", moduleName, "error", err)
		}
	}
	if t, ok := s.Timers.(interface{ StopAll() }); ok {
		t.StopAll()
	}
	s.Log.Info("stopped")
}
