// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package backend

import (
	"github.com/gviegas/rendergraph/access"
	"github.com/gviegas/rendergraph/driver"
)

// NullBackend is a driver.Backend that never talks to a real GPU API.
// It answers every query with a conservative, plausible estimate, so
// a compiled graph's schedule, barriers and memory layout can be
// inspected offline (dumping, testing, the rgc CLI's compile command)
// without one of the real backends Non-goals excludes from this
// module. Resource/heap handles are small counters, not real handles.
type NullBackend struct {
	Enhanced bool

	nextHeap int
	nextRes  int
}

// BuildPhases reports whether the null backend should be treated as
// using D3D12/Vulkan-Synchronization2-style enhanced barriers.
func (b *NullBackend) BuildPhases() driver.PhaseOptions {
	return driver.PhaseOptions{EnhancedBarriers: b.Enhanced}
}

// GetMemoryTypeInfos reports a single device-local memory type, which
// is all a graph with no real backend has any basis to assume.
func (b *NullBackend) GetMemoryTypeInfos() []driver.MemoryTypeInfo {
	return []driver.MemoryTypeInfo{{MinAlignment: 256, DefaultHeapSize: 64 << 20}}
}

func (b *NullBackend) DescribeMemoryType(int) string { return "device-local" }

func (b *NullBackend) GetSubresourceInfo(q driver.ResourceQuery) driver.SubresourceInfo {
	mips, layers := max(q.MipCount, 1), max(q.ArrayLayers, 1)
	return driver.SubresourceInfo{NumSubresources: mips * layers, Aspects: access.AspectColor}
}

// GetMemoryRequirement estimates a resource's footprint as its raw
// pixel/element count times 4 bytes, min 256. Real backends know the
// tiled/compressed size; this is only meant to make aliasing and heap
// sizing observable, not accurate.
func (b *NullBackend) GetMemoryRequirement(q driver.ResourceQuery) driver.MemoryRequirement {
	size := int64(q.Width) * int64(max(q.Height, 1)) * int64(max(q.Depth, 1)) *
		int64(max(q.ArrayLayers, 1)) * int64(max(q.Samples, 1)) * 4
	if size < 256 {
		size = 256
	}
	return driver.MemoryRequirement{Size: size, Alignment: 256, MemoryTypeIndex: 0}
}

// CalculateAccessTransition defers to the core's default transition
// logic for every access pair.
func (b *NullBackend) CalculateAccessTransition(before, after access.Attr, sameNode bool) driver.AccessTransitionRule {
	return driver.AccessTransitionRule{}
}

func (b *NullBackend) ImageAspectUsages(access.AspectMask) access.Attr { return access.None }

func (b *NullBackend) CreateHeap(driver.HeapRequest) (driver.HeapHandle, error) {
	b.nextHeap++
	return b.nextHeap, nil
}
func (b *NullBackend) DestroyHeap(driver.HeapHandle) {}

func (b *NullBackend) CreateResource(driver.ResourceQuery, driver.Placement) (driver.ResourceHandle, error) {
	b.nextRes++
	return b.nextRes, nil
}
func (b *NullBackend) DestroyResource(driver.ResourceHandle) {}

func (b *NullBackend) CreateBarrierBatch(driver.BarrierBatchDesc) (driver.BarrierBatchHandle, error) {
	return struct{}{}, nil
}
func (b *NullBackend) RecordBarrierBatch(driver.CmdBuffer, driver.BarrierBatchHandle) {}
func (b *NullBackend) RecordResolveBatch(driver.CmdBuffer, []driver.ResolveDesc)      {}

func (b *NullBackend) GetBuiltInNodes() driver.BuiltInNodes { return driver.BuiltInNodes{} }
