// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"github.com/gviegas/rendergraph/driver"
	"github.com/gviegas/rendergraph/internal/arena"
)

// UpdateContext carries the frame arena and scratch arena a call to
// RenderGraph.Update runs against (§2, §3 "Ownership").
type UpdateContext struct {
	Frame   *arena.Arena
	Scratch *arena.Arena
}

// NewUpdateContext creates an UpdateContext with fresh, empty arenas.
func NewUpdateContext() *UpdateContext {
	return &UpdateContext{Frame: arena.New(), Scratch: arena.New()}
}

// RenderGraph is the mutable per-frame render graph (§2). All
// graph-scoped vectors are owned by RenderGraph and are rebuilt, in
// full, by each call to Update: the system has no incremental
// update path, only whole-frame recompilation (§3 "Ownership").
type RenderGraph struct {
	Nodes       []Node
	Subgraphs   []Subgraph
	Resources   []Resource
	Transitions []TransitionInfo // Transitions[0] is the invalid sentinel
	NumCmds     int

	Scheduled  []NodeID // final, forward execution order (command + transition nodes, excluding eliminated)
	Eliminated []bool   // indexed by NodeID; true if dead-code eliminated
	QueueOf    []int    // indexed by position in Scheduled; the queue each entry runs on

	RuntimeCmds []RuntimeCmdInfo
	CmdBatches  []CommandBatch
	WaitFences  []int // flat pool; CommandBatch.WaitFencesBegin/NumWaitFences slice into it
	HeapInfos   []HeapInfo

	updateCount int

	// memHistory carries memory-scheduler state across Update calls,
	// keyed by the stable ResourceDecl.Name, since compileState.resources
	// is rebuilt from scratch every call and has no other way to learn
	// a resource's previous placement or how many frames it has gone
	// unused (§4.6 "Pre-allocated reoccupation", §3 "Deferred release").
	memHistory map[string]resourceMemoryHistory
}

// resourceMemoryHistory is one resource's carried-over placement, used
// both to let a still-live resource reclaim its previous heap offset
// and to count the frames a temporarily-unreferenced resource has gone
// without an access before it becomes eligible for release.
type resourceMemoryHistory struct {
	memType      int
	offsetPage   int
	pages        int
	framesUnused int
}

// Update runs P1 through P6 over in, replacing the graph's contents.
// On error, the graph is left in its pre-call state (the new state is
// built up in a scratch compileState and only swapped in on full
// success), so a failed Update is safe to retry next frame (§7
// "Propagation policy").
func (g *RenderGraph) Update(ctx *UpdateContext, backend driver.Backend, in *Input) error {
	cs := &compileState{g: g, in: in, ctx: ctx, backend: backend}

	if err := cs.preProcess(); err != nil {
		return err
	}
	if err := cs.buildDAG(); err != nil {
		return err
	}
	if err := cs.buildAccessDAG(); err != nil {
		return err
	}
	if err := cs.schedule(); err != nil {
		return err
	}
	cs.computeLifetimes()
	if err := cs.scheduleMemory(); err != nil {
		return err
	}

	cs.commit()
	g.updateCount++
	return nil
}

// commit publishes the compileState's working data into g.
func (cs *compileState) commit() {
	g := cs.g
	g.Nodes = cs.nodes
	g.Subgraphs = cs.subgraphs
	g.Resources = cs.resources
	g.Transitions = cs.transitions
	g.NumCmds = cs.numCmds
	g.Scheduled = cs.scheduled
	g.Eliminated = cs.eliminated
	g.QueueOf = cs.queueOf
	g.RuntimeCmds = cs.runtimeCmds
	g.CmdBatches = cs.batches
	g.WaitFences = cs.waitFences
	g.HeapInfos = cs.heaps

	if cs.ctx != nil {
		cs.ctx.Frame.Commit("nodes", len(cs.nodes))
		cs.ctx.Frame.Commit("transitions", len(cs.transitions))
		cs.ctx.Frame.Commit("runtimeCmds", len(cs.runtimeCmds))
	}
}

// compileState is the working state threaded through P1-P6. Its
// fields become RenderGraph's public fields on success.
type compileState struct {
	g       *RenderGraph
	in      *Input
	ctx     *UpdateContext
	backend driver.Backend

	nodes     []Node
	subgraphs []Subgraph
	resources []Resource

	transitions []TransitionInfo
	numCmds     int

	scheduled  []NodeID
	eliminated []bool
	queueOf    []int
	batches    []CommandBatch
	waitFences []int

	runtimeCmds []RuntimeCmdInfo
	heaps       []HeapInfo

	cmdNodeOf []NodeID // cmdNodeOf[cmdID] is the NodeID of that command node
}

// node returns a pointer to the node identified by id.
func (cs *compileState) node(id NodeID) *Node { return &cs.nodes[id] }

// addEdge records that src must complete before dst, unless both
// bear RelaxedOrder and share UAV access (enforcement of that
// exception is the scheduler's business, not the edge's).
func (cs *compileState) addEdge(src, dst NodeID) {
	if src == NilNode || dst == NilNode || src == dst {
		return
	}
	for _, e := range cs.nodes[src].outEdges {
		if NodeID(e) == dst {
			return // de-dup parallel edges
		}
	}
	cs.nodes[src].outEdges = append(cs.nodes[src].outEdges, int(dst))
	cs.nodes[dst].inEdges = append(cs.nodes[dst].inEdges, int(src))
}
