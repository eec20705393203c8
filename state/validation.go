package state

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
)

var namePattern, _ = regexp.Compile("^[0-9a-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func periodValidator(name string, ms uint32) error {
	if ms != 0 && msOr(ms, 0) < MinPeriod {
		return fmt.Errorf("%s = %dms is shorter than the minimum of %s", name, ms, MinPeriod)
	}
	return nil
}

func RplConfigValidator(cfg *RplCfg) error {
	if cfg.Mode != NonStoring && cfg.Mode != Storing {
		return fmt.Errorf("invalid mode of operation %d", cfg.Mode)
	}
	if err := periodValidator("dio_period_ms", cfg.DioPeriodMs); err != nil {
		return err
	}
	if err := periodValidator("dao_period_ms", cfg.DaoPeriodMs); err != nil {
		return err
	}
	if err := periodValidator("rt_period_ms", cfg.RtPeriodMs); err != nil {
		return err
	}
	if cfg.MaxTargetParents < 0 {
		return fmt.Errorf("max_target_parents must not be negative")
	}
	if cfg.RtAging < 0 {
		return fmt.Errorf("rt_aging must not be negative")
	}
	if cfg.QueueLength < 0 {
		return fmt.Errorf("queue_length must not be negative")
	}
	return nil
}

func NodeConfigValidator(node *NodeCfg) error {
	err := NameValidator(string(node.Id))
	if err != nil {
		return err
	}
	if node.Eui64.IsZero() {
		return fmt.Errorf("node %s has no eui64", node.Id)
	}
	if node.Prefix.IsValid() && !node.Prefix.Addr().Is6() {
		return fmt.Errorf("node %s prefix %s is not an IPv6 prefix", node.Id, node.Prefix)
	}
	return nil
}

func SimConfigValidator(cfg *SimCfg) error {
	if err := RplConfigValidator(&cfg.Rpl); err != nil {
		return err
	}
	if len(cfg.Nodes) == 0 {
		return fmt.Errorf("no nodes defined")
	}
	ids := make(map[NodeId]struct{})
	euis := make(map[LinkAddr]NodeId)
	roots := 0
	for _, node := range cfg.Nodes {
		if err := NodeConfigValidator(&node); err != nil {
			return err
		}
		if _, ok := ids[node.Id]; ok {
			return fmt.Errorf("duplicate node id: %s", node.Id)
		}
		ids[node.Id] = struct{}{}
		if other, ok := euis[node.Eui64]; ok {
			return fmt.Errorf("nodes %s and %s share eui64 %s", other, node.Id, node.Eui64)
		}
		euis[node.Eui64] = node.Id
		if node.Root {
			roots++
		}
	}
	if roots != 1 {
		return fmt.Errorf("exactly one DODAG root is required, found %d", roots)
	}
	if _, err := cfg.ParseLinks(); err != nil {
		return err
	}
	if cfg.LogPath != "" {
		if err := PathValidator(cfg.LogPath); err != nil {
			return err
		}
	}
	return nil
}
