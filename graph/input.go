// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"github.com/gviegas/rendergraph/access"
	"github.com/gviegas/rendergraph/driver"
)

// QueueMask is a bitset of device command queues (§4.4).
type QueueMask uint8

const (
	QueueGraphics QueueMask = 1 << iota
	QueueCompute
	QueueCopy
)

// WorkloadType classifies a command node's work for the scheduler's
// pipelining heuristics (§4.4 scoring table).
type WorkloadType uint8

const (
	WorkloadGraphics WorkloadType = iota
	WorkloadCompute
	WorkloadCopy
)

// SpecialKind marks a CmdDecl as a structural marker rather than a
// user command (§4.2).
type SpecialKind uint8

const (
	SpecialNone SpecialKind = iota
	SpecialSubgraphBegin
	SpecialSubgraphEnd
	SpecialSchedulerBarrier
)

// CmdAccessInfo is one command's binding of a single view argument
// (§3).
type CmdAccessInfo struct {
	ResourceIndex int
	Range         access.Range
	ViewFormat    int
	AccessAttr    access.Attr
	Stages        access.Stage
	HasView       bool
}

// RenderPassInfo describes a graphics node's attachments, for P8's
// render-pass begin/end recording (§4.8).
type RenderPassInfo struct {
	ColorTargets     []int // indices into CmdDecl.Accesses
	DepthStencil     int   // index into CmdDecl.Accesses, or -1
	Resolves         []int // indices into CmdDecl.Accesses (resolve dst)
	ClearValues      map[int][4]float32
	CustomRTOverride bool
	ViewportFlipY    bool
}

// CmdDecl is one command declaration from the front end (§6).
type CmdDecl struct {
	Name          string
	NodeDeclIndex int
	Special       SpecialKind

	// Valid when Special == SpecialSubgraphBegin.
	Atomic, Sequential bool

	Args         []int
	Accesses     []CmdAccessInfo
	ValidQueues  QueueMask
	PreferAsync  bool
	WorkloadType WorkloadType
	RenderPass   *RenderPassInfo
}

// ResourceDecl is a resource declaration from the front end (§3, §6).
type ResourceDecl struct {
	Name             string
	Query            driver.ResourceQuery
	Flags            ResourceFlags
	IsExternal       bool
	InitialAccess    access.Attr
	HasInitialAccess bool
	TemporalParent   int // resource-decl index, IndexNone if not a slice
	TemporalSlice    int
}

// Dependency is an explicit user ordering constraint (§4.2): Before
// must be scheduled before After. Before must be less than After in
// declaration order.
type Dependency struct {
	Before, After int
}

// Input is the ordered sequence of command/resource declarations the
// front end hands to RenderGraph.Update (§6).
type Input struct {
	Resources    []ResourceDecl
	Commands     []CmdDecl
	Dependencies []Dependency

	ScheduleFlags   ScheduleFlags
	DiagnosticFlags DiagnosticFlags
	RNG             RNG

	QueuedFrames      int
	DeviceQueues      QueueMask
	AsyncComputeMask  QueueMask
	AsyncCopyMask     QueueMask
	EnableAsync       bool
	ForceProgramOrder bool
}
