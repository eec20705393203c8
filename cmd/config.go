package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/rpl/state"
	"github.com/goccy/go-yaml"
)

const DefaultConfigPath = "rpl.yaml"

var configPath = DefaultConfigPath

func readSimConfig(path string) (*state.SimCfg, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg state.SimCfg
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	state.ExpandSimConfig(&cfg)
	if err := state.SimConfigValidator(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// sampleConfig is a chain of n nodes hanging off a single root.
func sampleConfig(n int, mode state.Mode) state.SimCfg {
	cfg := state.SimCfg{
		Rpl: state.RplCfg{
			Mode:        mode,
			DioPeriodMs: uint32(state.DioPeriod.Milliseconds()),
			DaoPeriodMs: uint32(state.DaoPeriod.Milliseconds()),
			RtPeriodMs:  uint32(state.RtPeriod.Milliseconds()),
		},
		LatencyMs: 10,
	}
	prev := state.NodeId("")
	for i := range n {
		id := state.NodeId(fmt.Sprintf("node-%d", i))
		if i == 0 {
			id = "root"
		}
		cfg.Nodes = append(cfg.Nodes, state.NodeCfg{
			Id:    id,
			Eui64: state.LinkAddr{0x02, 0, 0, 0, 0, 0, byte((i + 1) >> 8), byte(i + 1)},
			Root:  i == 0,
		})
		if prev != "" {
			cfg.Links = append(cfg.Links, fmt.Sprintf("%s, %s", prev, id))
		}
		prev = id
	}
	return cfg
}
