package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"time"

	"github.com/encodeous/rpl/core"
	"github.com/encodeous/rpl/state"
	"golang.org/x/sync/errgroup"
)

var ErrNoRoute = errors.New("no route to destination")

// Network is a set of nodes sharing one Medium.
type Network struct {
	Cfg    state.SimCfg
	Medium *Medium
	States map[state.NodeId]*state.State

	dispatch map[state.NodeId]<-chan func(*state.State) error
	logFile  *os.File
}

// New builds every node of cfg without starting them.
func New(ctx context.Context, cfg state.SimCfg, logLevel slog.Level) (*Network, error) {
	state.ExpandSimConfig(&cfg)
	if err := state.SimConfigValidator(&cfg); err != nil {
		return nil, err
	}
	links, err := cfg.ParseLinks()
	if err != nil {
		return nil, err
	}

	n := &Network{
		Cfg:      cfg,
		Medium:   NewMedium(),
		States:   make(map[state.NodeId]*state.State),
		dispatch: make(map[state.NodeId]<-chan func(*state.State) error),
	}
	extra := make([]slog.Handler, 0)
	if cfg.LogPath != "" {
		h, f, err := core.FileHandler(cfg.LogPath, logLevel)
		if err != nil {
			return nil, err
		}
		n.logFile = f
		extra = append(extra, h)
	}

	for _, node := range cfg.Nodes {
		logger := core.NewLogger(string(node.Id), logLevel, extra...).With("node", node.Id)
		s, dispatch := core.NewNode(ctx, cfg.Rpl, node, logger, n.Medium.Port(node.Id))
		n.Medium.Attach(node.Id, node.Eui64, s)
		n.States[node.Id] = s
		n.dispatch[node.Id] = dispatch
	}
	latency := time.Duration(cfg.LatencyMs) * time.Millisecond
	for _, l := range links {
		n.Medium.Connect(l.V1, l.V2).WithLatency(latency, 0)
	}
	return n, nil
}

// Run starts every node and blocks until ctx is done, the configured
// duration has elapsed or a node fails to start.
func (n *Network) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for id, s := range n.States {
		dispatch := n.dispatch[id]
		g.Go(func() error {
			if err := core.Start(s, dispatch); err != nil {
				return fmt.Errorf("node %s: %w", id, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		var timeout <-chan time.Time
		if n.Cfg.DurationMs != 0 {
			t := time.NewTimer(time.Duration(n.Cfg.DurationMs) * time.Millisecond)
			defer t.Stop()
			timeout = t.C
		}
		cause := errors.New("simulation stopped")
		select {
		case <-gctx.Done():
		case <-timeout:
			cause = errors.New("simulation finished")
		}
		for _, s := range n.States {
			s.Cancel(cause)
		}
		return nil
	})
	err := g.Wait()
	if n.logFile != nil {
		n.logFile.Close()
	}
	return err
}

// Query runs fun on the dispatch goroutine of node id and returns its result.
func (n *Network) Query(id state.NodeId, fun func(s *state.State) (any, error)) (any, error) {
	s, ok := n.States[id]
	if !ok {
		return nil, fmt.Errorf("unknown node %s", id)
	}
	return s.DispatchWait(fun)
}

func (n *Network) Rank(id state.NodeId) (uint16, error) {
	v, err := n.Query(id, func(s *state.State) (any, error) {
		return s.Neighbours.MyDagRank(), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(uint16), nil
}

// Routes returns the routing table of a storing-mode node.
func (n *Network) Routes(id state.NodeId) ([]core.RouteEntry, error) {
	v, err := n.Query(id, func(s *state.State) (any, error) {
		rt := core.Get[*core.Rpl](s).Routes
		entries := make([]core.RouteEntry, 0)
		if rt == nil {
			return entries, nil
		}
		for i := range state.MaxRouteNum {
			if e := rt.Entry(i); e.InUse {
				entries = append(entries, e)
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.RouteEntry), nil
}

// NextHop returns the neighbour node id hands a packet for dst to.
func (n *Network) NextHop(id state.NodeId, dst netip.Addr) (netip.Addr, error) {
	v, err := n.Query(id, func(s *state.State) (any, error) {
		// an error here would stop the node, so a missing route is reported as an invalid address
		hop, _ := core.Get[*core.Rpl](s).NextHop(s, dst)
		return hop, nil
	})
	if err != nil {
		return netip.Addr{}, err
	}
	hop := v.(netip.Addr)
	if !hop.IsValid() {
		return netip.Addr{}, ErrNoRoute
	}
	return hop, nil
}

// Subscribe forwards the trace events of every node to ch until the nodes stop.
func (n *Network) Subscribe(ch chan<- any) error {
	for id := range n.States {
		_, err := n.Query(id, func(s *state.State) (any, error) {
			core.Get[*core.RplTrace](s).Register(ch)
			return nil, nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
