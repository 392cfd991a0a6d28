// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package backend

import (
	"github.com/gviegas/rendergraph/access"
	"github.com/gviegas/rendergraph/driver"
	"github.com/gviegas/rendergraph/graph"
)

// Builder is P7 BarrierBuilder: it folds every maximal contiguous run
// of transition nodes in a compiled graph's runtime-command stream
// into one backend barrier batch (§4.7).
type Builder struct {
	g       *graph.RenderGraph
	backend driver.Backend
}

// NewBuilder creates a Builder over a compiled graph.
func NewBuilder(g *graph.RenderGraph, b driver.Backend) *Builder {
	return &Builder{g: g, backend: b}
}

// Build realizes every transition run as a driver-owned barrier batch,
// keyed by the index into RuntimeCmds at which the run begins. A
// CommandRecorder consults this map at record time (§4.7, §4.8).
func (bd *Builder) Build() (map[int]driver.BarrierBatchHandle, error) {
	opts := bd.backend.BuildPhases()
	batches := make(map[int]driver.BarrierBatchHandle)

	cmds := bd.g.RuntimeCmds
	for i := 0; i < len(cmds); {
		if !cmds[i].IsTransition && len(cmds[i].AliasingInfos) == 0 {
			i++
			continue
		}
		start := i
		var desc driver.BarrierBatchDesc
		for i < len(cmds) && cmds[i].IsTransition {
			bd.appendTransition(&desc, opts, cmds[i].CmdOrTransitionID)
			i++
		}
		bd.appendAliasingDiscards(&desc, opts, cmds[start].AliasingInfos)
		if i == start {
			// start was a non-transition entry carrying only aliasing
			// info; consume it so the loop makes progress.
			i++
		}
		if len(desc.EarlyBarriers) == 0 && len(desc.LateBarriers) == 0 &&
			len(desc.Discards) == 0 && len(desc.Global) == 0 &&
			len(desc.Texture) == 0 && len(desc.Buffer) == 0 {
			continue
		}
		handle, err := bd.backend.CreateBarrierBatch(desc)
		if err != nil {
			return nil, err
		}
		batches[start] = handle
	}
	return batches, nil
}

func (bd *Builder) appendTransition(desc *driver.BarrierBatchDesc, opts driver.PhaseOptions, transitionID int) {
	t := bd.g.Transitions[transitionID]
	r := bd.g.Resources[t.ResourceIndex]
	before := access.None
	if t.PrevTransition != graph.InvalidTransition {
		before = bd.g.Transitions[t.PrevTransition].AccessAttr
	}
	after := t.AccessAttr

	trans := driver.Transition{
		Barrier: driver.Barrier{
			SyncBefore:   syncOf(before),
			SyncAfter:    syncOf(after),
			AccessBefore: accessOf(before),
			AccessAfter:  accessOf(after),
		},
		LayoutBefore: layoutOf(before),
		LayoutAfter:  layoutOf(after),
		Discard:      before == access.None,
		Resource:     t.ResourceIndex,
	}

	if opts.EnhancedBarriers {
		if r.Query.Kind == driver.KindBuffer {
			desc.Buffer = append(desc.Buffer, trans.Barrier)
		} else {
			desc.Texture = append(desc.Texture, trans)
		}
		return
	}

	if trans.Discard {
		desc.Discards = append(desc.Discards, trans)
		return
	}
	desc.EarlyBarriers = append(desc.EarlyBarriers, trans.Barrier)
}

// appendAliasingDiscards folds the hand-off between an evicted
// resource and the one taking over its memory into the same batch a
// regular transition would use (§4.6, §4.7).
func (bd *Builder) appendAliasingDiscards(desc *driver.BarrierBatchDesc, opts driver.PhaseOptions, aliases []graph.ResourceAliasingInfo) {
	for _, al := range aliases {
		if !al.DstActivating {
			continue
		}
		r := bd.g.Resources[al.DstResourceIndex]
		after := r.InitialAccess
		trans := driver.Transition{
			Barrier: driver.Barrier{
				SyncBefore:   driver.SNone,
				SyncAfter:    syncOf(after),
				AccessBefore: driver.ANone,
				AccessAfter:  accessOf(after),
			},
			LayoutBefore: driver.LUndefined,
			LayoutAfter:  layoutOf(after),
			Discard:      true,
			Resource:     al.DstResourceIndex,
		}
		if opts.EnhancedBarriers && r.Query.Kind != driver.KindBuffer {
			desc.Texture = append(desc.Texture, trans)
		} else {
			desc.Discards = append(desc.Discards, trans)
		}
	}
}
