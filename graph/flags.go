// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

// ScheduleFlags is the closed enumeration of scheduling behaviors a
// frame may request (§6 "Schedule-flag set").
type ScheduleFlags uint32

// Schedule flags.
const (
	DisableDeadCodeElimination ScheduleFlags = 1 << iota
	AllowSplitBarriers
	PreferMemorySaving
	MinimizeComputeGfxSwitch
	WorkloadTypePipeliningDisable
	WorkloadTypePipeliningAggressive
	KeepProgramOrder
	RandomOrder
)

func (f ScheduleFlags) has(b ScheduleFlags) bool { return f&b != 0 }

// DiagnosticFlags controls dump/debug instrumentation (§6).
type DiagnosticFlags uint32

// Diagnostic flags.
const (
	EnableDAGDump DiagnosticFlags = 1 << iota
	EnablePreScheduleDump
	EnablePostScheduleDump
	EnableRuntimeDebugNames
)

func (f DiagnosticFlags) has(b DiagnosticFlags) bool { return f&b != 0 }

// RNG is the injected random source used when RandomOrder is set
// (§9 "RNG for randomized ordering" — no process-global state).
type RNG interface {
	// Uint32 returns a uniformly distributed value in [0, bound).
	Uint32(bound uint32) uint32
}
