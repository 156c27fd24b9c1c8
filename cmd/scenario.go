package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	sim "github.com/simlir/simlir/sim"
)

// Scenario is the YAML description of one run: the run parameters plus the
// entity hierarchy to build.
//
//	width: 8
//	max_time: 100
//	entities:
//	  - name: iana
//	    role: iana
//	  - name: rir-a
//	    role: rir
//	    parent: iana
//	    replenish_length: 3
//	  - name: lir-1
//	    role: lir
//	    parent: rir-a
//	    behaviour: {kind: static, span: 4, interval: 10}
type Scenario struct {
	Width             int              `yaml:"width"`
	MaxTime           int64            `yaml:"max_time"`
	Seed              int64            `yaml:"seed"`
	StopWhenExhausted bool             `yaml:"stop_when_exhausted"`
	SnapshotInterval  int64            `yaml:"snapshot_interval"`
	Entities          []ScenarioEntity `yaml:"entities"`
}

type ScenarioEntity struct {
	Name            string               `yaml:"name"`
	Role            string               `yaml:"role"`
	Parent          string               `yaml:"parent"`
	ReplenishLength int                  `yaml:"replenish_length"`
	Behaviour       *sim.BehaviourConfig `yaml:"behaviour"`
	Blocks          []ScenarioBlock      `yaml:"blocks"`
	Inactive        bool                 `yaml:"inactive"`
}

type ScenarioBlock struct {
	Base        uint64 `yaml:"base"`
	Length      int    `yaml:"length"`
	Allocatable bool   `yaml:"allocatable"`
	Tag         string `yaml:"tag"`
}

// LoadScenario reads and converts a scenario file into builder input.
func LoadScenario(path string) (sim.RunConfig, []sim.EntityRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sim.RunConfig{}, nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return sim.RunConfig{}, nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg := sim.RunConfig{
		Width:             sc.Width,
		MaxTime:           sc.MaxTime,
		Seed:              sc.Seed,
		StopWhenExhausted: sc.StopWhenExhausted,
		SnapshotInterval:  sc.SnapshotInterval,
	}

	records := make([]sim.EntityRecord, 0, len(sc.Entities))
	for _, e := range sc.Entities {
		rec := sim.EntityRecord{
			Name:            e.Name,
			Role:            sim.Role(e.Role),
			Parent:          e.Parent,
			ReplenishLength: e.ReplenishLength,
			Behaviour:       e.Behaviour,
			Inactive:        e.Inactive,
		}
		for _, b := range e.Blocks {
			rec.Blocks = append(rec.Blocks, sim.BlockRecord{
				Prefix:      sim.Prefix{Base: b.Base, Length: b.Length},
				Allocatable: b.Allocatable,
				Tag:         b.Tag,
			})
		}
		records = append(records, rec)
	}
	return cfg, records, nil
}
