// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package graph implements the render-graph compiler's phase
// pipeline: PreProcess, DAGBuilder, AccessDAGBuilder, DAGScheduler,
// LifetimeAnalysis and MemoryScheduler (P1-P6 of the design). The
// backend-facing phases (BarrierBuilder, CommandRecorder) live in the
// sibling backend package, since they are the only parts of the
// pipeline that talk to a driver.Backend.
package graph

import (
	"github.com/gviegas/rendergraph/access"
	"github.com/gviegas/rendergraph/driver"
)

// Persistent reserved values (§6).
const (
	IndexNoneU32      uint32 = 0xFFFFFFFF
	IndexNone                = -1
	InvalidTransition        = 0 // transitions[0] is the RPS_ACCESS_UNKNOWN sentinel
)

// Reserved runtime command ids bracketing each frame's stream (§3).
const (
	CmdIDPreamble  = -1
	CmdIDPostamble = -2
)

// NodeID identifies a vertex in the DAG. Command nodes occupy
// [0, numCmds); transition nodes occupy ids >= numCmds (§3 invariant
// "Transition node ids are ≥ numCmds").
type NodeID int

// NilNode is the invalid NodeID.
const NilNode NodeID = -1

// NodeKind distinguishes command nodes from transition nodes.
type NodeKind uint8

const (
	NodeCommand NodeKind = iota
	NodeTransition
)

// Node is a graph vertex (§3).
type Node struct {
	Kind         NodeKind
	CmdID        int // valid when Kind == NodeCommand
	TransitionID int // index into RenderGraph.Transitions; valid when Kind == NodeTransition
	Subgraph     SubgraphID
	BarrierScope int
	Name         string

	// Adjacency, built incrementally during P2/P3/P4: the NodeIDs of
	// this node's direct successors and predecessors. These per-node
	// slices stand in for the shared Span<Edge> pool (see DESIGN.md).
	outEdges []int
	inEdges  []int
}

// OutEdges returns the ids of nodes that must be scheduled after n.
func (n *Node) OutEdges() []int { return n.outEdges }

// InEdges returns the ids of nodes that must be scheduled before n.
func (n *Node) InEdges() []int { return n.inEdges }

// Edge is a directed (src,dst) pair: src must complete before dst in
// any valid schedule, unless both carry RelaxedOrder and share UAV
// access (§3 invariant).
type Edge struct {
	Src, Dst NodeID
}

// SubgraphID identifies a Subgraph.
type SubgraphID int

// NilSubgraph is the invalid SubgraphID (the implicit top-level scope).
const NilSubgraph SubgraphID = -1

// Subgraph groups a contiguous run of nodes (§3).
type Subgraph struct {
	Parent     SubgraphID
	BeginNode  NodeID
	EndNode    NodeID
	Atomic     bool
	Sequential bool
}

// ResourceFlags is a bitset of per-resource flags (§3).
type ResourceFlags uint32

const (
	FlagPersistent ResourceFlags = 1 << iota
	FlagMutableFormat
	FlagCubemapCompatible
	FlagRowMajor
	FlagExternal
)

// FinalAccess records the last recorded access for one sub-range of a
// resource within a frame (§3 "Final access", used to compute the
// at-frame-end transition back to initial state).
type FinalAccess struct {
	Range          access.Range
	PrevTransition int
}

// accessState is the scheduler-private per-subresource-range state
// tracked during P3 (§3 "AccessState").
type accessState struct {
	Range          access.Range
	AccessorNodes  []NodeID
	LastTransition int
}

// Resource describes a GPU buffer or image (§3).
type Resource struct {
	Name  string
	Query driver.ResourceQuery
	Flags ResourceFlags

	FullRange       access.Range
	NumSubresources int

	AllAccesses      access.Attr
	InitialAccess    access.Attr
	HasInitialAccess bool

	IsExternal       bool
	IsTemporalParent bool
	TemporalParent   int // resource index, IndexNone if not a slice
	TemporalSlice    int
	TemporalLayerOff int

	IsAliased bool

	LifetimeBegin int
	LifetimeEnd   int

	AllocPlacement   driver.Placement
	AllocRequirement driver.MemoryRequirement
	scheduledRefs    int
	mostRecentRef    NodeID

	FinalAccesses []FinalAccess
	FramesUnused  int

	states []accessState // written by P3; not read by later phases
}

// LifetimeUndefined marks a resource excluded from memory scheduling
// because it has zero accesses (§4.5).
const LifetimeUndefined = -1

// IsDeferredForRelease reports whether the resource has gone fewer
// than n consecutive frames without an access (FramesUnused < n), so
// that a backend releasing after n idle frames still keeps it, per
// §3's deferred-release lifecycle note.
func (r *Resource) IsDeferredForRelease(n int) bool { return r.FramesUnused < n }

// TransitionInfo describes one state transition (§3).
type TransitionInfo struct {
	ResourceIndex  int
	Range          access.Range
	AccessAttr     access.Attr
	ViewFormat     int
	Node           NodeID
	PrevTransition int
}

// HeapInfo describes one heap produced by the memory scheduler (§3).
type HeapInfo struct {
	MemTypeIndex int
	Size         int64
	Alignment    int64
	MaxUsedSize  int64
	UsedSize     int64
	Runtime      driver.HeapHandle
}

// ResourceAliasingInfo records a single activation/deactivation pair
// for memory aliasing (§3, §4.6).
type ResourceAliasingInfo struct {
	SrcResourceIndex int
	DstResourceIndex int
	SrcDeactivating  bool
	DstActivating    bool
}

// RuntimeCmdInfo is one entry in the linear runtime-command stream
// (§3). CmdOrTransitionID is a user cmd id when IsTransition is
// false, or an index into RenderGraph.Transitions otherwise; it may
// also be CmdIDPreamble/CmdIDPostamble.
type RuntimeCmdInfo struct {
	CmdOrTransitionID int
	IsTransition      bool
	AliasingInfos     []ResourceAliasingInfo
}

// CommandBatch groups a contiguous run of the runtime-command stream
// destined for one queue (§3, §4.4).
type CommandBatch struct {
	QueueIndex       int
	CmdBegin         int
	NumCmds          int
	SignalFenceIndex int
	WaitFencesBegin  int
	NumWaitFences    int
}
