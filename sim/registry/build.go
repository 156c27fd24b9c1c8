package registry

import (
	"github.com/sirupsen/logrus"

	"github.com/simlir/simlir/sim"
)

// BuildOptions shape the hierarchy built from registry data.
type BuildOptions struct {
	// Epoch is the YYYYMMDD date mapped to simulation time 0. Allocation
	// dates become day offsets from it.
	Epoch string

	// RIRReplenishLength is the prefix length each regional registry
	// requests from the root when its stock runs out.
	RIRReplenishLength int

	// RIRBehaviour and LIRBehaviour are templates applied to every
	// registry and holder respectively. Either may be nil (passive).
	RIRBehaviour *sim.BehaviourConfig
	LIRBehaviour *sim.BehaviourConfig
}

// iana rows with these statuses are ranges the root keeps for itself;
// any other status names the regional registry the block was delegated to.
var rootReservedStatuses = map[string]bool{
	"ietf":      true,
	"assigned":  true,
	"various":   true,
	"reserved":  true,
	"available": true,
}

// BuildRecords converts parsed allocations into simulator build records:
// one root authority, one entity per regional registry, and one holder per
// country code. A country delegated to by several registries keeps the
// first as its supplier.
//
// When the holder behaviour template is "replay", historical holdings are
// not seeded as blocks; instead each holder gets its own allocation rows as
// a replay sequence and re-enacts them through the run.
func BuildRecords(allocs []Allocation, opts BuildOptions) ([]sim.EntityRecord, error) {
	if opts.Epoch == "" {
		opts.Epoch = DefaultDate
	}
	if opts.RIRReplenishLength == 0 {
		opts.RIRReplenishLength = 8
	}
	replayHolders := opts.LIRBehaviour != nil && opts.LIRBehaviour.Kind == "replay"

	root := &sim.EntityRecord{Name: "iana", Role: sim.RoleIANA}
	index := map[string]*sim.EntityRecord{"iana": root}
	order := []*sim.EntityRecord{root}

	ensure := func(name string, role sim.Role, parent string) *sim.EntityRecord {
		if rec, ok := index[name]; ok {
			return rec
		}
		rec := &sim.EntityRecord{Name: name, Role: role, Parent: parent}
		switch role {
		case sim.RoleRIR:
			rec.ReplenishLength = opts.RIRReplenishLength
			if opts.RIRBehaviour != nil {
				cfg := *opts.RIRBehaviour
				rec.Behaviour = &cfg
			}
		case sim.RoleLIR:
			if opts.LIRBehaviour != nil {
				cfg := *opts.LIRBehaviour
				rec.Behaviour = &cfg
			}
		}
		index[name] = rec
		order = append(order, rec)
		return rec
	}

	for _, a := range allocs {
		base, err := ParseIPv4(a.Start)
		if err != nil {
			logrus.Warnf("registry %s: dropping row: %v", a.Registry, err)
			continue
		}
		prefixes, err := SeriesFrom(base, DecomposeSpan(a.Value), sim.DefaultWidth)
		if err != nil {
			logrus.Warnf("registry %s: dropping row at %s: %v", a.Registry, a.Start, err)
			continue
		}

		if a.Registry == "iana" {
			if rootReservedStatuses[a.Status] {
				for _, p := range prefixes {
					root.Blocks = append(root.Blocks, sim.BlockRecord{
						Prefix: p, Tag: "iana " + a.Status,
					})
				}
				continue
			}
			// Status names the regional registry the block went to; it
			// arrives as allocatable stock.
			rir := ensure(a.Status, sim.RoleRIR, "iana")
			for _, p := range prefixes {
				rir.Blocks = append(rir.Blocks, sim.BlockRecord{
					Prefix: p, Allocatable: true, Tag: "from iana " + a.Date,
				})
			}
			continue
		}

		// Registry-to-holder delegation. Holders are modelled per country.
		ensure(a.Registry, sim.RoleRIR, "iana")
		holder := ensure(a.Country, sim.RoleLIR, a.Registry)

		if replayHolders {
			at, err := DayOffset(a.Date, opts.Epoch)
			if err != nil {
				logrus.Warnf("holder %s: dropping row at %s: %v", a.Country, a.Start, err)
				continue
			}
			if at < 0 {
				at = 0 // predates the epoch; replay it at the start
			}
			holder.Behaviour.Replay = append(holder.Behaviour.Replay,
				sim.ReplayRecord{Time: at, Span: a.Value})
			continue
		}

		for _, p := range prefixes {
			holder.Blocks = append(holder.Blocks, sim.BlockRecord{
				Prefix: p, Tag: "from " + a.Registry + " " + a.Date,
			})
		}
	}

	out := make([]sim.EntityRecord, len(order))
	for i, rec := range order {
		out[i] = *rec
	}
	return out, nil
}
