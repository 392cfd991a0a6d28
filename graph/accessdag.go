// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

import "github.com/gviegas/rendergraph/access"

// buildAccessDAG is P3: track per-subresource access ranges, insert
// transition nodes, and emit the dependency edges that make the
// schedule synchronization-correct (§4.3).
func (cs *compileState) buildAccessDAG() error {
	// Transitions[0] is the invalid sentinel (RPS_ACCESS_UNKNOWN).
	cs.transitions = make([]TransitionInfo, 1, len(cs.in.Commands)*2+1)

	cmdIdx := 0
	for _, cd := range cs.in.Commands {
		if cd.Special != SpecialNone {
			continue
		}
		node := cs.cmdNodeOf[cmdIdx]
		cmdIdx++

		writes := make([]int, 0, len(cd.Accesses))
		reads := make([]int, 0, len(cd.Accesses))
		for ai, a := range cd.Accesses {
			if a.ResourceIndex < 0 || a.ResourceIndex >= len(cs.resources) {
				continue // invalid-resource accesses are skipped (§4.3)
			}
			if a.AccessAttr.IsReadOnly() {
				reads = append(reads, ai)
			} else {
				writes = append(writes, ai)
			}
		}
		for _, ai := range writes {
			if err := cs.processAccess(node, cd.Accesses[ai]); err != nil {
				return err
			}
		}
		for _, ai := range reads {
			if err := cs.processAccess(node, cd.Accesses[ai]); err != nil {
				return err
			}
		}
	}

	cs.collectFinalAccesses()
	return nil
}

// processAccess handles one (node, access) pair for a single
// resource, routing through the fast single-subresource path or the
// clipping multi-subresource path (§4.3).
func (cs *compileState) processAccess(node NodeID, a CmdAccessInfo) error {
	r := &cs.resources[a.ResourceIndex]
	rng := a.Range
	if rng.Empty() {
		rng = r.FullRange
	}

	if len(r.states) == 0 {
		r.states = []accessState{{Range: r.FullRange, LastTransition: InvalidTransition}}
	}

	if !r.HasInitialAccess && !cs.hasOverlappingAccessor(r, rng) {
		r.InitialAccess = a.AccessAttr
		r.HasInitialAccess = true
	}

	if r.NumSubresources <= 1 {
		// Single-subresource fast path: the whole resource is one state.
		return cs.processTransition(&r.states[0], a.AccessAttr, node, a.ResourceIndex, rng)
	}

	// Multi-subresource path: clip against every existing state.
	i := 0
	for i < len(r.states) {
		prev := r.states[i]
		// complements = prev.Range \ rng: the part of the already-
		// tracked state not touched by this access, split off as a
		// sibling state that keeps the old access untouched.
		overlap, complements := access.Clip(rng, prev.Range)
		if overlap.Empty() {
			i++
			continue
		}
		for _, rem := range complements {
			clone := accessState{
				Range:          rem,
				AccessorNodes:  append([]NodeID(nil), prev.AccessorNodes...),
				LastTransition: prev.LastTransition,
			}
			r.states = append(r.states, clone)
		}
		r.states[i].Range = overlap
		if r.states[i].LastTransition != InvalidTransition {
			t := &cs.transitions[r.states[i].LastTransition]
			t.AccessAttr = access.FilterByRange(t.AccessAttr, overlap)
		}
		filtered := access.FilterByRange(a.AccessAttr, overlap)
		if err := cs.processTransition(&r.states[i], filtered, node, a.ResourceIndex, overlap); err != nil {
			return err
		}
		i++
	}
	return nil
}

// hasOverlappingAccessor reports whether any existing state for r
// overlapping rng already has an accessor, used to decide whether this
// access is the resource's initial access (§4.3 step 1).
func (cs *compileState) hasOverlappingAccessor(r *Resource, rng access.Range) bool {
	for _, st := range r.states {
		if ov, _ := access.Clip(st.Range, rng); !ov.Empty() && len(st.AccessorNodes) > 0 {
			return true
		}
	}
	return false
}

// processTransition implements ProcessTransition (§4.3).
func (cs *compileState) processTransition(state *accessState, newAccess access.Attr, currNode NodeID, resIdx int, rng access.Range) error {
	before := access.None
	if state.LastTransition != InvalidTransition {
		before = cs.transitions[state.LastTransition].AccessAttr
	}

	sameNode := len(state.AccessorNodes) > 0 && state.AccessorNodes[len(state.AccessorNodes)-1] == currNode
	needs, keepOrdering, merged, isMerged := cs.needTransition(before, newAccess, sameNode)
	if state.LastTransition == InvalidTransition {
		// No prior transition recorded for this range: the state is
		// still UNKNOWN, so a transition into newAccess is mandatory
		// regardless of what NeedTransition would otherwise say (a
		// read-only newAccess would otherwise compare as "both
		// read-only" against the zero-value before and be skipped).
		needs = true
	}

	if needs && sameNode {
		// A single command requesting two incompatible accesses to
		// the same overlapping range has no valid mid-command
		// transition point: there is nowhere to insert a barrier
		// between two accesses issued by one node.
		return newErr(InvalidArguments, "AccessDAGBuilder", errIncompatibleSameNodeAccess(resIdx))
	}

	lastAccessor := NilNode
	if len(state.AccessorNodes) > 0 {
		lastAccessor = state.AccessorNodes[len(state.AccessorNodes)-1]
	}

	if needs && lastAccessor != currNode {
		t := TransitionInfo{
			ResourceIndex:  resIdx,
			Range:          rng,
			AccessAttr:     newAccess,
			Node:           currNode,
			PrevTransition: state.LastTransition,
		}
		tid := len(cs.transitions)
		cs.transitions = append(cs.transitions, t)

		tnode := NodeID(len(cs.nodes))
		cs.nodes = append(cs.nodes, Node{
			Kind:         NodeTransition,
			TransitionID: tid,
			Subgraph:     cs.node(currNode).Subgraph,
			BarrierScope: cs.node(currNode).BarrierScope,
		})
		cs.transitions[tid].Node = tnode

		for _, a := range state.AccessorNodes {
			cs.addEdge(a, tnode)
		}
		state.AccessorNodes = state.AccessorNodes[:0]
		state.LastTransition = tid
		cs.addEdge(tnode, currNode)
	} else {
		if !needs && isMerged && state.LastTransition != InvalidTransition {
			cs.transitions[state.LastTransition].AccessAttr = merged
		}
		if !needs && keepOrdering && lastAccessor != NilNode && lastAccessor != currNode {
			cs.addEdge(lastAccessor, currNode)
		}
		if state.LastTransition != InvalidTransition {
			cs.addEdge(cs.transitions[state.LastTransition].Node, currNode)
		}
	}

	dedupAppend(&state.AccessorNodes, currNode)
	return nil
}

func dedupAppend(s *[]NodeID, v NodeID) {
	if n := len(*s); n > 0 && (*s)[n-1] == v {
		return
	}
	*s = append(*s, v)
}

// needTransition implements NeedTransition (§4.3): decide whether a
// transition is required between before and after, and if not,
// whether ordering must still be kept and what the merged access is.
func (cs *compileState) needTransition(before, after access.Attr, sameNode bool) (needs, keepOrdering bool, merged access.Attr, isMerged bool) {
	if cs.backend != nil {
		rule := cs.backend.CalculateAccessTransition(before, after, sameNode)
		if rule.Handled {
			return rule.NeedsTransition, rule.KeepOrdering, rule.MergedAccess, rule.IsMerged
		}
	}

	bothReadOnly := before.IsReadOnly() && after.IsReadOnly()
	subsetSameNode := sameNode && before.Has(after)

	if bothReadOnly || subsetSameNode {
		merged = before | after
		return false, false, merged, before != after
	}

	relaxedBoth := before.Has(access.RelaxedOrder) && after.Has(access.RelaxedOrder)
	keepOrdering = !relaxedBoth

	if before.Has(access.UAV) && after.Has(access.UAV) && before == after {
		// UAV->UAV in the same state is sync-only: needed unless
		// relaxed order lets the scheduler/backend elide it.
		return !relaxedBoth, keepOrdering, after, false
	}

	return true, keepOrdering, after, false
}

// collectFinalAccesses writes resourceFinalAccesses: one entry per
// sub-range for every active, non-temporal-parent resource (§4.3
// "Final-access collection").
func (cs *compileState) collectFinalAccesses() {
	for i := range cs.resources {
		r := &cs.resources[i]
		if r.IsTemporalParent || len(r.states) == 0 {
			continue
		}
		r.FinalAccesses = r.FinalAccesses[:0]
		for _, st := range r.states {
			if len(st.AccessorNodes) == 0 && st.LastTransition == InvalidTransition {
				continue
			}
			r.FinalAccesses = append(r.FinalAccesses, FinalAccess{
				Range:          st.Range,
				PrevTransition: st.LastTransition,
			})
		}
	}
}
