package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/encodeous/rpl/protocol"
	"github.com/encodeous/rpl/queue"
	"github.com/encodeous/rpl/state"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var testPrefix = netip.MustParsePrefix("fd00:bbbb::/64")

func mac(b byte) state.LinkAddr {
	return state.LinkAddr{0x02, 0, 0, 0, 0, 0, 0, b}
}

func ip(b byte) netip.Addr {
	return state.MacToIp(state.PrefixFrom(testPrefix), mac(b))
}

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// RplHarness stands in for every collaborator of the control plane and
// records what it was asked to do.
type RplHarness struct {
	actions []HarnessEvent

	Synced  bool
	Rank    uint16
	Parent  state.LinkAddr
	Nbrs    []state.Neighbour
	SendErr error
	Rnd     uint8
	Sent    []*state.Packet

	nextTimer state.TimerId
}

// LinkSync

func (h *RplHarness) IsSynced() bool {
	return h.Synced
}

// Neighbours

func (h *RplHarness) MyDagRank() uint16 {
	return h.Rank
}

func (h *RplHarness) IndicateRxDio(src state.LinkAddr, rank uint16) {
	h.actions = append(h.actions, MakeEvent("RX_DIO", src, rank))
}

func (h *RplHarness) Neighbours() []state.Neighbour {
	return slices.Clone(h.Nbrs)
}

func (h *RplHarness) IsNeighbourWithHigherRank(idx int) bool {
	return idx < len(h.Nbrs) && h.Nbrs[idx].Rank > h.Rank
}

func (h *RplHarness) PreferredParent() (state.LinkAddr, bool) {
	return h.Parent, !h.Parent.IsZero()
}

// Sender

func (h *RplHarness) Send(p *state.Packet) error {
	if h.SendErr != nil {
		return h.SendErr
	}
	h.Sent = append(h.Sent, p)
	h.actions = append(h.actions, MakeEvent("SEND", p.Dst))
	return nil
}

// Timers

func (h *RplHarness) Start(period time.Duration, cb func()) state.TimerId {
	id := h.nextTimer
	h.nextTimer++
	h.actions = append(h.actions, MakeEvent("TIMER_START", id, period))
	return id
}

func (h *RplHarness) SetPeriod(id state.TimerId, period time.Duration) {
	h.actions = append(h.actions, MakeEvent("TIMER_SET", id, period))
}

func (h *RplHarness) Stop(id state.TimerId) {
	h.actions = append(h.actions, MakeEvent("TIMER_STOP", id))
}

// Random

func (h *RplHarness) Uint8() uint8 {
	return h.Rnd
}

// Diagnostics

func (h *RplHarness) Error(comp state.Component, kind state.ErrorKind, p1, p2 uint16) {
	h.actions = append(h.actions, MakeEvent("DIAG", comp, kind, p1, p2))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

func (h *RplHarness) GetActions() HarnessEvents {
	x := h.actions
	h.actions = make([]HarnessEvent, 0)
	return x
}

// LastSent decodes the most recently sent packet.
func (h *RplHarness) LastSent(t *testing.T) (uint8, []byte) {
	t.Helper()
	if len(h.Sent) == 0 {
		t.Fatal("nothing was sent")
	}
	code, body, err := protocol.Unframe(h.Sent[len(h.Sent)-1].Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return code, body
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message == msg {
			if len(event.Args) >= len(args) {
				match := true
				for i, arg := range args {
					if !cmp.Equal(event.Args[i], arg, cmpopts.EquateComparable(netip.Addr{})) {
						match = false
						break
					}
				}
				if match {
					return true
				}
			}
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

type testNode struct {
	*state.State
	h   *RplHarness
	q   *queue.Queue
	rpl *Rpl
}

// newTestNode builds a node whose collaborators are all the harness, with
// its Rpl module initialised and the init actions discarded.
func newTestNode(t *testing.T, mode state.Mode, root bool, id byte) *testNode {
	ctx, cancel := context.WithCancelCause(context.Background())
	t.Cleanup(func() {
		cancel(errors.New("test done"))
	})
	h := &RplHarness{
		Synced: true,
		Rank:   state.DefaultDagRank,
		Rnd:    128,
	}
	ncfg := state.NodeCfg{
		Id:     state.NodeId(fmt.Sprintf("n%d", id)),
		Eui64:  mac(id),
		Root:   root,
		Prefix: testPrefix,
	}
	rcfg := state.RplCfg{Mode: mode}
	state.ExpandRplConfig(&rcfg)
	q := queue.New(4)
	s := &state.State{
		Modules: make(map[string]state.NyModule),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: make(chan func(*state.State) error, 16),
			RplCfg:          rcfg,
			NodeCfg:         ncfg,
			Log:             slog.New(slog.DiscardHandler),
		},
		Services: state.Services{
			Identity:   state.NewStaticIdentity(ncfg),
			Neighbours: h,
			Link:       h,
			Queue:      q,
			Net:        h,
			Addr:       state.Eui64Translator{},
			Timers:     h,
			Rand:       h,
			Diag:       h,
		},
	}
	if root {
		h.Rank = state.MinHopRankIncrease
	}
	r := &Rpl{}
	s.Modules[reflect.TypeOf(r).String()] = r
	if err := r.Init(s); err != nil {
		t.Fatal(err)
	}
	h.GetActions()
	return &testNode{State: s, h: h, q: q, rpl: r}
}

// deliver frames body as if src had sent it to n and hands it to Receive.
func (n *testNode) deliver(t *testing.T, src netip.Addr, code uint8, encode func(p *state.Packet) error) {
	t.Helper()
	p := n.q.Acquire(state.ComponentIcmpv6)
	if p == nil {
		t.Fatal("receive queue is full")
	}
	p.Src = src
	p.Dst = n.rpl.selfAddr(n.State)
	if err := encode(p); err != nil {
		t.Fatal(err)
	}
	if err := protocol.Frame(p.Payload, code, p.Src, p.Dst); err != nil {
		t.Fatal(err)
	}
	n.rpl.Receive(n.State, p)
}

// completeSends acknowledges every packet handed to the sender.
func (n *testNode) completeSends() {
	for _, p := range n.h.Sent {
		if n.q.IsAllocated(p) {
			n.rpl.SendDone(n.State, p, nil)
		}
	}
	n.h.Sent = nil
}
