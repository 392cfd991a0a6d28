// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package backend

import (
	"fmt"

	"github.com/gviegas/rendergraph/driver"
	"github.com/gviegas/rendergraph/graph"
)

// CmdFunc records one user command's actual GPU work (draw, dispatch,
// copy); the recorder calls it once per non-transition runtime
// command, in schedule order.
type CmdFunc func(cmdID int, cb driver.CmdBuffer)

// Recorder is P8 CommandRecorder: it walks a compiled graph's runtime-
// command stream in order, interleaving barrier batches built by
// Builder with calls out to the frontend's own command recording
// (§4.8).
type Recorder struct {
	g       *graph.RenderGraph
	backend driver.Backend
	batches map[int]driver.BarrierBatchHandle
}

// NewRecorder creates a Recorder over a compiled graph and the
// barrier batches Builder.Build computed for it.
func NewRecorder(g *graph.RenderGraph, b driver.Backend, batches map[int]driver.BarrierBatchHandle) *Recorder {
	return &Recorder{g: g, backend: b, batches: batches}
}

// Record drives cb over a single graph.CommandBatch: every transition
// run is recorded via RecordBarrierBatch, every other entry invokes
// record for its command id. PREAMBLE and POSTAMBLE entries are
// reserved slots for future per-frame setup/teardown hooks and
// currently record nothing.
//
// batch must be one of rec.g.CmdBatches (or an equivalent slice of its
// RuntimeCmds range): the caller drives one queue's command buffer by
// calling Record once per batch assigned to that queue, in
// CommandBatch.QueueIndex order, so async/multi-queue output is
// consumed the way the scheduler computed it rather than flattened
// into a single linear walk (§4.4, §4.8).
func (rec *Recorder) Record(cb driver.CmdBuffer, batch graph.CommandBatch, record CmdFunc) error {
	cmds := rec.g.RuntimeCmds
	begin, end := batch.CmdBegin, batch.CmdBegin+batch.NumCmds
	if begin < 0 || end > len(cmds) || begin > end {
		return fmt.Errorf("backend: CommandBatch [%d, %d) out of range for %d runtime commands", begin, end, len(cmds))
	}

	for i := begin; i < end; {
		if bb, ok := rec.batches[i]; ok {
			rec.backend.RecordBarrierBatch(cb, bb)
			if cmds[i].IsTransition {
				for i < end && cmds[i].IsTransition {
					i++
				}
				continue
			}
			// An aliasing-only entry: its batch precedes the command
			// itself, which is recorded below.
		}
		rc := cmds[i]
		switch rc.CmdOrTransitionID {
		case graph.CmdIDPreamble, graph.CmdIDPostamble:
		default:
			if !rc.IsTransition {
				record(rc.CmdOrTransitionID, cb)
			}
		}
		i++
	}
	return nil
}

// RecordAll drives cb over the graph's entire runtime-command stream
// in one call, ignoring queue assignment. It is a convenience for the
// synchronous, single-queue case (EnableAsync false, where CmdBatches
// holds exactly one entry spanning the whole stream); callers driving
// an async graph must use Record per graph.CommandBatch instead.
func (rec *Recorder) RecordAll(cb driver.CmdBuffer, record CmdFunc) error {
	return rec.Record(cb, graph.CommandBatch{CmdBegin: 0, NumCmds: len(rec.g.RuntimeCmds)}, record)
}
