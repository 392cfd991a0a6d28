// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

// computeLifetimes is P5: assign each resource a [begin, end] range
// over positions in the scheduled runtime-command stream, the span
// the memory scheduler must keep it backed by real memory (§4.5).
func (cs *compileState) computeLifetimes() {
	for i := range cs.resources {
		cs.resources[i].LifetimeBegin = LifetimeUndefined
		cs.resources[i].LifetimeEnd = LifetimeUndefined
	}

	for pos, id := range cs.scheduled {
		nd := &cs.nodes[id]
		if nd.Kind != NodeCommand {
			continue
		}
		cd := cs.cmdDeclOf(nd.CmdID)
		for _, a := range cd.Accesses {
			if a.ResourceIndex < 0 || a.ResourceIndex >= len(cs.resources) {
				continue
			}
			r := &cs.resources[a.ResourceIndex]
			if r.LifetimeBegin == LifetimeUndefined {
				r.LifetimeBegin = pos
			}
			r.LifetimeEnd = pos
		}
	}

	// A temporal slice's parent must stay alive for the union of all
	// of its slices' lifetimes (§4.1 "Temporal resources").
	for i := range cs.resources {
		r := &cs.resources[i]
		if r.TemporalParent == IndexNone || r.LifetimeBegin == LifetimeUndefined {
			continue
		}
		p := &cs.resources[r.TemporalParent]
		if p.LifetimeBegin == LifetimeUndefined || r.LifetimeBegin < p.LifetimeBegin {
			p.LifetimeBegin = r.LifetimeBegin
		}
		if r.LifetimeEnd > p.LifetimeEnd {
			p.LifetimeEnd = r.LifetimeEnd
		}
	}
}
