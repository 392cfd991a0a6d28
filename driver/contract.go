// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

import "github.com/gviegas/rendergraph/access"

// ResourceKind is the coarse category of a resource, as needed by a
// backend to answer subresource/memory queries.
type ResourceKind int

// Resource kinds.
const (
	KindBuffer ResourceKind = iota
	KindImage1D
	KindImage2D
	KindImage3D
)

// ResourceQuery describes the subset of a resource description a
// backend needs in order to answer GetSubresourceInfo and
// GetMemoryRequirement. It intentionally carries no native handles:
// the core owns resource identity, the backend only ever sees shape.
type ResourceQuery struct {
	Kind        ResourceKind
	Format      int // backend-defined format id; format tables are out of scope here
	Width       int
	Height      int
	Depth       int
	MipCount    int
	ArrayLayers int
	Samples     int
	MutableFmt  bool
	CubeCompat  bool
}

// SubresourceInfo is the backend's answer to "how many subresources,
// and which aspects, does this resource have".
type SubresourceInfo struct {
	NumSubresources int
	Aspects         access.AspectMask
}

// MemoryRequirement is the backend's answer to "how much memory, at
// what alignment and in which memory type, does this resource need".
type MemoryRequirement struct {
	Size           int64
	Alignment      int64
	MemoryTypeIndex int
}

// MemoryTypeInfo describes one of the backend's memory types.
type MemoryTypeInfo struct {
	MinAlignment    int64
	DefaultHeapSize int64
}

// AccessTransitionRule is the backend's coarse answer to "is a
// transition needed between these two accesses", per §4.3
// NeedTransition / §6 CalculateAccessTransition.
type AccessTransitionRule struct {
	NeedsTransition bool
	KeepOrdering    bool
	MergedAccess    access.Attr
	IsMerged        bool
	// Handled is false when the backend has no special-cased rule for
	// this pair and the core should fall back to its own default
	// logic (both read-only, same-node subset, etc).
	Handled bool
}

// HeapRequest describes a heap the core wants the backend to create.
type HeapRequest struct {
	MemoryTypeIndex int
	Size            int64
}

// HeapHandle is an opaque backend-owned heap handle.
type HeapHandle any

// Placement describes where, within a heap, a resource is bound.
type Placement struct {
	Heap   HeapHandle
	Offset int64
}

// ResourceHandle is an opaque backend-owned resource handle.
type ResourceHandle any

// BarrierBatchDesc is the input to CreateBarrierBatch: the early and
// late conventional barriers, or the enhanced-barrier arrays, that
// BarrierBuilder (P7) computed for one transition run.
type BarrierBatchDesc struct {
	// Conventional-barrier variant.
	EarlyBarriers []Barrier
	Discards      []Transition
	LateBarriers  []Barrier

	// Enhanced-barrier variant.
	Global  []Barrier
	Texture []Transition
	Buffer  []Barrier
}

// BarrierBatchHandle is an opaque backend-owned barrier-batch handle.
type BarrierBatchHandle any

// ResolveDesc describes a single multisample resolve, batched by
// CommandRecorder (P8) behind one RecordResolveBatch call.
type ResolveDesc struct {
	Src, Dst ResourceHandle
	SrcLayer, DstLayer int
	SrcLevel, DstLevel int
}

// CmdBuffer is the minimal recording surface the backend exposes at
// record time: a place to fold in barriers, transitions and resolves.
// Real command recording (draws, dispatches, copies) is the backend's
// built-in node callbacks' business, not the core's.
type CmdBuffer interface {
	RecordBarrier(b []Barrier)
	RecordTransition(t []Transition)
}

// BuiltInNodes names the callbacks a backend supplies for the small
// set of node kinds the core itself may need to synthesize (clears,
// copies, resolves) when a frontend declares them generically rather
// than as user callbacks.
type BuiltInNodes struct {
	Clear   func(cb CmdBuffer, res ResourceHandle, value [4]float32)
	Copy    func(cb CmdBuffer, src, dst ResourceHandle)
	Resolve func(cb CmdBuffer, resolves []ResolveDesc)
}

// Backend is the capability trait a GPU-API backend implements to
// serve the render-graph core, per §6 and §9 "Backend polymorphism".
// Two variants are anticipated: a conventional-barrier backend
// (Vulkan pre-1.3-style global/image barriers) and an
// enhanced-barrier backend (D3D12 Enhanced Barriers / Vulkan
// Synchronization2-style per-resource sync/access/layout triples).
// Both answer the same contract; BarrierBatchDesc carries whichever
// fields the chosen variant populates.
type Backend interface {
	// BuildPhases reports which optional phases this backend wants
	// the core to run (e.g. whether split/async barriers are worth
	// forming, whether aliasing discards should use DISCARD or a
	// clear).
	BuildPhases() PhaseOptions

	GetMemoryTypeInfos() []MemoryTypeInfo
	DescribeMemoryType(index int) string

	GetSubresourceInfo(q ResourceQuery) SubresourceInfo
	GetMemoryRequirement(q ResourceQuery) MemoryRequirement

	CalculateAccessTransition(before, after access.Attr, sameNode bool) AccessTransitionRule
	ImageAspectUsages(mask access.AspectMask) access.Attr

	CreateHeap(req HeapRequest) (HeapHandle, error)
	DestroyHeap(h HeapHandle)

	CreateResource(q ResourceQuery, p Placement) (ResourceHandle, error)
	DestroyResource(r ResourceHandle)

	CreateBarrierBatch(desc BarrierBatchDesc) (BarrierBatchHandle, error)
	RecordBarrierBatch(cb CmdBuffer, batch BarrierBatchHandle)
	RecordResolveBatch(cb CmdBuffer, resolves []ResolveDesc)

	GetBuiltInNodes() BuiltInNodes
}

// PhaseOptions are backend-reported preferences consumed by P4/P6/P7.
type PhaseOptions struct {
	EnhancedBarriers bool
	AllowSplitBarriers bool
}
