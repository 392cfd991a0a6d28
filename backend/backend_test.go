// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package backend_test

import (
	"testing"

	"github.com/gviegas/rendergraph/access"
	"github.com/gviegas/rendergraph/backend"
	"github.com/gviegas/rendergraph/driver"
	"github.com/gviegas/rendergraph/graph"
)

// fakeBackend is a minimal driver.Backend that answers every query
// with fixed, plausible values, so the phase logic can be exercised
// without a real GPU API.
type fakeBackend struct {
	enhanced    bool
	heaps       int
	barriers    int
	resolves    int
	createdRess int
}

func (f *fakeBackend) BuildPhases() driver.PhaseOptions {
	return driver.PhaseOptions{EnhancedBarriers: f.enhanced}
}

func (f *fakeBackend) GetMemoryTypeInfos() []driver.MemoryTypeInfo {
	return []driver.MemoryTypeInfo{{MinAlignment: 256, DefaultHeapSize: 64 << 20}}
}
func (f *fakeBackend) DescribeMemoryType(int) string { return "device-local" }

func (f *fakeBackend) GetSubresourceInfo(q driver.ResourceQuery) driver.SubresourceInfo {
	return driver.SubresourceInfo{NumSubresources: q.MipCount * q.ArrayLayers, Aspects: access.AspectColor}
}

func (f *fakeBackend) GetMemoryRequirement(q driver.ResourceQuery) driver.MemoryRequirement {
	size := int64(q.Width) * int64(q.Height) * int64(max(q.Depth, 1)) * 4
	return driver.MemoryRequirement{Size: size, Alignment: 256, MemoryTypeIndex: 0}
}

func (f *fakeBackend) CalculateAccessTransition(before, after access.Attr, sameNode bool) driver.AccessTransitionRule {
	return driver.AccessTransitionRule{} // Handled: false, defer to the core's default logic
}

func (f *fakeBackend) ImageAspectUsages(access.AspectMask) access.Attr { return access.None }

func (f *fakeBackend) CreateHeap(req driver.HeapRequest) (driver.HeapHandle, error) {
	f.heaps++
	return f.heaps, nil
}
func (f *fakeBackend) DestroyHeap(driver.HeapHandle) {}

func (f *fakeBackend) CreateResource(driver.ResourceQuery, driver.Placement) (driver.ResourceHandle, error) {
	f.createdRess++
	return f.createdRess, nil
}
func (f *fakeBackend) DestroyResource(driver.ResourceHandle) {}

func (f *fakeBackend) CreateBarrierBatch(driver.BarrierBatchDesc) (driver.BarrierBatchHandle, error) {
	f.barriers++
	return f.barriers, nil
}
func (f *fakeBackend) RecordBarrierBatch(driver.CmdBuffer, driver.BarrierBatchHandle) {}
func (f *fakeBackend) RecordResolveBatch(driver.CmdBuffer, []driver.ResolveDesc)      { f.resolves++ }

func (f *fakeBackend) GetBuiltInNodes() driver.BuiltInNodes { return driver.BuiltInNodes{} }

type fakeCmdBuffer struct {
	barriers    int
	transitions int
}

func (c *fakeCmdBuffer) RecordBarrier(b []driver.Barrier)    { c.barriers += len(b) }
func (c *fakeCmdBuffer) RecordTransition(t []driver.Transition) { c.transitions += len(t) }

func imageResource(name string) graph.ResourceDecl {
	return graph.ResourceDecl{
		Name: name,
		Query: driver.ResourceQuery{
			Kind: driver.KindImage2D, Format: 1,
			Width: 64, Height: 64, Depth: 1,
			MipCount: 1, ArrayLayers: 1, Samples: 1,
		},
		TemporalParent: graph.IndexNone,
	}
}

func TestBuildAndRecordTransitionBatch(t *testing.T) {
	fb := &fakeBackend{}
	in := &graph.Input{
		Resources: []graph.ResourceDecl{imageResource("color")},
		Commands: []graph.CmdDecl{
			{Name: "draw", Accesses: []graph.CmdAccessInfo{{ResourceIndex: 0, AccessAttr: access.RenderTarget, HasView: true}}},
			{Name: "sample", Accesses: []graph.CmdAccessInfo{{ResourceIndex: 0, AccessAttr: access.SRV, HasView: true}}},
		},
		ScheduleFlags: graph.DisableDeadCodeElimination,
	}
	g := &graph.RenderGraph{}
	if err := g.Update(graph.NewUpdateContext(), fb, in); err != nil {
		t.Fatalf("Update: %v", err)
	}

	builder := backend.NewBuilder(g, fb)
	batches, err := builder.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(batches) == 0 {
		t.Fatal("Build: want at least one barrier batch, got none")
	}

	var recordedCmds []int
	rec := backend.NewRecorder(g, fb, batches)
	cb := &fakeCmdBuffer{}
	if err := rec.RecordAll(cb, func(cmdID int, _ driver.CmdBuffer) {
		recordedCmds = append(recordedCmds, cmdID)
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if len(recordedCmds) != 2 || recordedCmds[0] != 0 || recordedCmds[1] != 1 {
		t.Errorf("recorded cmd ids = %v, want [0 1]", recordedCmds)
	}
}

// TestRecordDrivesOneCmdBufferPerQueueBatch exercises the
// CommandBatch-aware path a multi-queue frontend must use: one Record
// call per graph.CommandBatch, each driving its own command buffer, in
// g.CmdBatches order, rather than one linear walk over the whole stream.
func TestRecordDrivesOneCmdBufferPerQueueBatch(t *testing.T) {
	fb := &fakeBackend{}
	in := &graph.Input{
		Resources: []graph.ResourceDecl{imageResource("color"), imageResource("depth")},
		Commands: []graph.CmdDecl{
			{Name: "draw", Accesses: []graph.CmdAccessInfo{{ResourceIndex: 0, AccessAttr: access.RenderTarget, HasView: true}}},
			{Name: "compute", Accesses: []graph.CmdAccessInfo{{ResourceIndex: 1, AccessAttr: access.UAV, HasView: true}}},
		},
		EnableAsync:   true,
		ScheduleFlags: graph.DisableDeadCodeElimination,
	}
	g := &graph.RenderGraph{}
	if err := g.Update(graph.NewUpdateContext(), fb, in); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(g.CmdBatches) == 0 {
		t.Fatal("want at least one CommandBatch")
	}

	builder := backend.NewBuilder(g, fb)
	batches, err := builder.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rec := backend.NewRecorder(g, fb, batches)

	perQueueCmds := map[int][]int{}
	for _, b := range g.CmdBatches {
		cb := &fakeCmdBuffer{}
		if err := rec.Record(cb, b, func(cmdID int, _ driver.CmdBuffer) {
			perQueueCmds[b.QueueIndex] = append(perQueueCmds[b.QueueIndex], cmdID)
		}); err != nil {
			t.Fatalf("Record(batch %+v): %v", b, err)
		}
	}

	var total int
	for _, ids := range perQueueCmds {
		total += len(ids)
	}
	if total != 2 {
		t.Errorf("total recorded cmd ids across all batches = %d, want 2", total)
	}
}

func TestRecordRejectsOutOfRangeBatch(t *testing.T) {
	fb := &fakeBackend{}
	in := &graph.Input{
		Resources: []graph.ResourceDecl{imageResource("color")},
		Commands: []graph.CmdDecl{
			{Name: "draw", Accesses: []graph.CmdAccessInfo{{ResourceIndex: 0, AccessAttr: access.RenderTarget, HasView: true}}},
		},
	}
	g := &graph.RenderGraph{}
	if err := g.Update(graph.NewUpdateContext(), fb, in); err != nil {
		t.Fatalf("Update: %v", err)
	}
	builder := backend.NewBuilder(g, fb)
	batches, err := builder.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rec := backend.NewRecorder(g, fb, batches)
	bad := graph.CommandBatch{CmdBegin: 0, NumCmds: len(g.RuntimeCmds) + 1}
	if err := rec.Record(&fakeCmdBuffer{}, bad, func(int, driver.CmdBuffer) {}); err == nil {
		t.Error("Record: want error for out-of-range batch, got nil")
	}
}

func TestBuildEnhancedBarriersRouteToTextureList(t *testing.T) {
	fb := &fakeBackend{enhanced: true}
	in := &graph.Input{
		Resources: []graph.ResourceDecl{imageResource("color")},
		Commands: []graph.CmdDecl{
			{Name: "draw", Accesses: []graph.CmdAccessInfo{{ResourceIndex: 0, AccessAttr: access.RenderTarget, HasView: true}}},
		},
	}
	g := &graph.RenderGraph{}
	if err := g.Update(graph.NewUpdateContext(), fb, in); err != nil {
		t.Fatalf("Update: %v", err)
	}
	builder := backend.NewBuilder(g, fb)
	if _, err := builder.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if fb.barriers == 0 {
		t.Error("expected CreateBarrierBatch to be called at least once")
	}
}
