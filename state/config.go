package state

import (
	"cmp"
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"time"
)

type NodeId string

// Mode is the RPL mode of operation, fixed for the lifetime of a node.
type Mode int

const (
	NonStoring Mode = iota
	Storing
)

func (m Mode) String() string {
	switch m {
	case NonStoring:
		return "non-storing"
	case Storing:
		return "storing"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "non-storing", "nonstoring", "0":
		*m = NonStoring
	case "storing", "1":
		*m = Storing
	default:
		return fmt.Errorf("unknown mode of operation %q", string(text))
	}
	return nil
}

// RplCfg holds protocol parameters. Zero values are replaced by defaults in Expand.
type RplCfg struct {
	Mode               Mode   `yaml:"mode"`
	DioPeriodMs        uint32 `yaml:"dio_period_ms,omitempty"`
	DaoPeriodMs        uint32 `yaml:"dao_period_ms,omitempty"`
	RtPeriodMs         uint32 `yaml:"rt_period_ms,omitempty"`
	MaxTargetParents   int    `yaml:"max_target_parents,omitempty"` // children listed per non-storing DAO
	PathLifetime       uint8  `yaml:"path_lifetime,omitempty"`
	RtAging            int    `yaml:"rt_aging,omitempty"` // lifetime removed per routing table sweep
	QueueLength        int    `yaml:"queue_length,omitempty"`
	NeighbourTimeoutMs uint32 `yaml:"neighbour_timeout_ms,omitempty"`
}

// NodeCfg represents local node-level configuration
type NodeCfg struct {
	Id     NodeId       `yaml:"id"`
	Eui64  LinkAddr     `yaml:"eui64"`
	Root   bool         `yaml:"root,omitempty"`
	Prefix netip.Prefix `yaml:"prefix,omitempty"` // only the upper 64 bits are used
}

// SimCfg describes a simulated mesh: nodes, the radio links between them and the shared protocol parameters.
type SimCfg struct {
	Rpl        RplCfg    `yaml:"rpl"`
	Nodes      []NodeCfg `yaml:"nodes"`
	Links      []string  `yaml:"links"`                 // "a, b, c" links every listed node with every other
	LatencyMs  uint32    `yaml:"latency_ms,omitempty"`  // one-way radio latency
	DurationMs uint32    `yaml:"duration_ms,omitempty"` // 0 runs until interrupted
	LogPath    string    `yaml:"log_path,omitempty"`    // if not empty, logs are also written to this file
}

func msOr(v uint32, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return time.Duration(v) * time.Millisecond
}

func (c RplCfg) DioPeriod() time.Duration {
	return msOr(c.DioPeriodMs, DioPeriod)
}

func (c RplCfg) DaoPeriod() time.Duration {
	return msOr(c.DaoPeriodMs, DaoPeriod)
}

func (c RplCfg) RtPeriod() time.Duration {
	return msOr(c.RtPeriodMs, RtPeriod)
}

func (c RplCfg) NeighbourTimeout() time.Duration {
	return msOr(c.NeighbourTimeoutMs, NeighbourTimeout)
}

// ExpandRplConfig fills unset parameters with protocol defaults.
func ExpandRplConfig(cfg *RplCfg) {
	if cfg.MaxTargetParents == 0 {
		cfg.MaxTargetParents = MaxTargetParents
	}
	if cfg.PathLifetime == 0 {
		cfg.PathLifetime = PathLifetime
	}
	if cfg.RtAging == 0 {
		cfg.RtAging = RtAging
	}
	if cfg.QueueLength == 0 {
		cfg.QueueLength = QueueLength
	}
}

func ExpandSimConfig(cfg *SimCfg) {
	ExpandRplConfig(&cfg.Rpl)
	for idx, node := range cfg.Nodes {
		if !node.Prefix.IsValid() {
			node.Prefix = netip.MustParsePrefix(DefaultPrefix)
		}
		cfg.Nodes[idx] = node
	}
}

func (c *SimCfg) GetNode(id NodeId) *NodeCfg {
	idx := slices.IndexFunc(c.Nodes, func(cfg NodeCfg) bool {
		return cfg.Id == id
	})
	if idx == -1 {
		return nil
	}
	return &c.Nodes[idx]
}

func (c *SimCfg) nodeNames() []string {
	names := make([]string, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		names = append(names, string(n.Id))
	}
	return names
}

func parseSymbolList(s string, validSymbols []string) ([]string, error) {
	spl := strings.Split(strings.TrimSpace(s), ",")
	line := make([]string, 0)
	for _, s := range spl {
		x := strings.TrimSpace(s)
		if x == "" {
			continue
		}
		if !slices.Contains(validSymbols, x) {
			return nil, fmt.Errorf(`%s is not a valid node`, x)
		}
		line = append(line, x)
	}
	if len(line) < 2 {
		return nil, fmt.Errorf(`link %q must name at least two nodes`, s)
	}
	return line, nil
}

// ParseLinks expands the link lines into a sorted, de-duplicated list of node pairs.
func (c *SimCfg) ParseLinks() ([]Pair[NodeId, NodeId], error) {
	names := c.nodeNames()
	pairs := make([]Pair[NodeId, NodeId], 0)
	for _, line := range c.Links {
		syms, err := parseSymbolList(line, names)
		if err != nil {
			return nil, err
		}
		for i, a := range syms {
			for _, b := range syms[i+1:] {
				if a == b {
					continue
				}
				pairs = append(pairs, MakeSortedPair(NodeId(a), NodeId(b)))
			}
		}
	}
	SortPairs(pairs)
	return slices.Compact(pairs), nil
}

func MakeSortedPair[T cmp.Ordered](a, b T) Pair[T, T] {
	if a < b {
		return Pair[T, T]{a, b}
	}
	return Pair[T, T]{b, a}
}
