// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frontend

import (
	"fmt"
	"strings"

	"github.com/gviegas/rendergraph/access"
	"github.com/gviegas/rendergraph/driver"
	"github.com/gviegas/rendergraph/graph"
)

func parseKind(s string) (driver.ResourceKind, error) {
	switch strings.ToLower(s) {
	case "buffer":
		return driver.KindBuffer, nil
	case "image1d":
		return driver.KindImage1D, nil
	case "image2d", "":
		return driver.KindImage2D, nil
	case "image3d":
		return driver.KindImage3D, nil
	default:
		return 0, fmt.Errorf("unknown resource kind %q", s)
	}
}

var accessNames = map[string]access.Attr{
	"rendertarget":   access.RenderTarget,
	"dsread":         access.DSRead,
	"dswrite":        access.DSWrite,
	"srv":            access.SRV,
	"uav":            access.UAV,
	"copysrc":        access.CopySrc,
	"copydst":        access.CopyDst,
	"resolvesrc":     access.ResolveSrc,
	"resolvedst":     access.ResolveDst,
	"constantbuffer": access.ConstantBuffer,
	"vertexbuffer":   access.VertexBuffer,
	"indexbuffer":    access.IndexBuffer,
	"indirectargs":   access.IndirectArgs,
	"clear":          access.Clear,
	"present":        access.Present,
	"cpuread":        access.CPURead,
	"cpuwrite":       access.CPUWrite,
	"asbuild":        access.ASBuild,
	"asread":         access.ASRead,
	"streamout":      access.StreamOut,
	"shadingrate":    access.ShadingRate,
	"noview":         access.NoView,
	"discardbefore":  access.DiscardBefore,
	"discardafter":   access.DiscardAfter,
	"relaxedorder":   access.RelaxedOrder,
}

// parseAccess parses a "|"-separated list of access bit names (e.g.
// "RenderTarget|DiscardBefore").
func parseAccess(s string) (access.Attr, error) {
	var a access.Attr
	for _, tok := range strings.Split(s, "|") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		bit, ok := accessNames[strings.ToLower(tok)]
		if !ok {
			return 0, fmt.Errorf("unknown access bit %q", tok)
		}
		a |= bit
	}
	return a, nil
}

var stageNames = map[string]access.Stage{
	"vertex":        access.StageVertex,
	"hull":          access.StageHull,
	"domain":        access.StageDomain,
	"geometry":      access.StageGeometry,
	"pixel":         access.StagePixel,
	"compute":       access.StageCompute,
	"amplification": access.StageAmplification,
	"mesh":          access.StageMesh,
	"all":           access.StageAll,
}

func parseStages(ss []string) access.Stage {
	var s access.Stage
	for _, name := range ss {
		s |= stageNames[strings.ToLower(name)]
	}
	return s
}

var resourceFlagNames = map[string]graph.ResourceFlags{
	"persistent":       graph.FlagPersistent,
	"mutableformat":    graph.FlagMutableFormat,
	"cubemapcompatible": graph.FlagCubemapCompatible,
	"rowmajor":         graph.FlagRowMajor,
	"external":         graph.FlagExternal,
}

func parseResourceFlags(ss []string) graph.ResourceFlags {
	var f graph.ResourceFlags
	for _, name := range ss {
		f |= resourceFlagNames[strings.ToLower(name)]
	}
	return f
}

func parseWorkloadType(s string) (graph.WorkloadType, error) {
	switch strings.ToLower(s) {
	case "graphics", "":
		return graph.WorkloadGraphics, nil
	case "compute":
		return graph.WorkloadCompute, nil
	case "copy":
		return graph.WorkloadCopy, nil
	default:
		return 0, fmt.Errorf("unknown workload type %q", s)
	}
}

var queueNames = map[string]graph.QueueMask{
	"graphics": graph.QueueGraphics,
	"compute":  graph.QueueCompute,
	"copy":     graph.QueueCopy,
}

func parseQueueMask(ss []string) graph.QueueMask {
	var m graph.QueueMask
	for _, name := range ss {
		m |= queueNames[strings.ToLower(name)]
	}
	return m
}

var scheduleFlagNames = map[string]graph.ScheduleFlags{
	"disabledeadcodeelimination":      graph.DisableDeadCodeElimination,
	"allowsplitbarriers":              graph.AllowSplitBarriers,
	"prefermemorysaving":              graph.PreferMemorySaving,
	"minimizecomputegfxswitch":        graph.MinimizeComputeGfxSwitch,
	"workloadtypepipeliningdisable":   graph.WorkloadTypePipeliningDisable,
	"workloadtypepipeliningaggressive": graph.WorkloadTypePipeliningAggressive,
	"keepprogramorder":                graph.KeepProgramOrder,
	"randomorder":                     graph.RandomOrder,
}

func parseScheduleFlags(ss []string) graph.ScheduleFlags {
	var f graph.ScheduleFlags
	for _, name := range ss {
		f |= scheduleFlagNames[strings.ToLower(name)]
	}
	return f
}

var diagnosticFlagNames = map[string]graph.DiagnosticFlags{
	"enabledagdump":           graph.EnableDAGDump,
	"enableprescheduledump":   graph.EnablePreScheduleDump,
	"enablepostscheduledump":  graph.EnablePostScheduleDump,
	"enableruntimedebugnames": graph.EnableRuntimeDebugNames,
}

func parseDiagnosticFlags(ss []string) graph.DiagnosticFlags {
	var f graph.DiagnosticFlags
	for _, name := range ss {
		f |= diagnosticFlagNames[strings.ToLower(name)]
	}
	return f
}
