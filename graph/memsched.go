// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"sort"

	"github.com/gviegas/rendergraph/driver"
	"github.com/gviegas/rendergraph/internal/bitvec"
)

// pageSize is the granularity at which a heap's free space is tracked.
// Real placements still honor each resource's reported alignment; this
// only bounds how finely two resources' lifetimes can be packed
// against each other.
const pageSize int64 = 64 * 1024

// growthChunkWords is how many bitvec words (64 pages each) a heap
// grows by whenever it runs out of free pages.
const growthChunkWords = 1

// heapAlloc is the working allocator for one memory type: a single
// growable heap whose free pages are tracked with a bit vector
// (§4.6 "Placement").
type heapAlloc struct {
	memType int
	bits    bitvec.V[uint64]
	used    int64
	maxUsed int64
}

func (h *heapAlloc) allocate(pages int) int {
	for {
		if idx, ok := h.bits.SearchRangeBestFit(pages); ok {
			for i := idx; i < idx+pages; i++ {
				h.bits.Set(i)
			}
			return idx
		}
		grow := growthChunkWords
		if need := pages - h.bits.Rem(); need > growthChunkWords*64 {
			grow = (need + 63) / 64
		}
		h.bits.Grow(grow)
	}
}

// claim attempts to reoccupy the exact [offsetPage, offsetPage+pages)
// range a resource held in a previous frame, growing the heap if
// necessary. It fails without mutating the heap if any page in the
// range is already taken, leaving the caller to fall back to a fresh
// placement (§4.6 "Pre-allocated reoccupation").
func (h *heapAlloc) claim(offsetPage, pages int) bool {
	if need := offsetPage + pages - h.bits.Len(); need > 0 {
		h.bits.Grow((need + 63) / 64)
	}
	for i := offsetPage; i < offsetPage+pages; i++ {
		if h.bits.IsSet(i) {
			return false
		}
	}
	for i := offsetPage; i < offsetPage+pages; i++ {
		h.bits.Set(i)
	}
	return true
}

func (h *heapAlloc) free(offsetPages, pages int) {
	for i := offsetPages; i < offsetPages+pages; i++ {
		h.bits.Unset(i)
	}
}

func pagesFor(size int64) int {
	if size <= 0 {
		return 1
	}
	n := (size + pageSize - 1) / pageSize
	if n < 1 {
		n = 1
	}
	return int(n)
}

// placedResource is one entry in the memory scheduler's placement
// queue.
type placedResource struct {
	idx          int
	memType      int
	size         int64
	pages        int
	offsetPage   int
	preallocated bool // true if this placement reoccupies a prior-frame offset
}

// scheduleMemory is P6: compute each non-external resource's memory
// requirement, pack live ranges into per-memory-type heaps by
// interval scheduling, record the aliasing hand-offs where one
// resource's storage is reused by another, and carry per-resource
// placement and unused-frame counters forward for the next Update call
// (§4.6, §3 "Deferred release").
func (cs *compileState) scheduleMemory() error {
	if cs.g.memHistory == nil {
		cs.g.memHistory = map[string]resourceMemoryHistory{}
	}

	var queue []*placedResource
	nextHistory := map[string]resourceMemoryHistory{}

	for i := range cs.resources {
		r := &cs.resources[i]
		if r.IsExternal || r.IsTemporalParent {
			continue
		}
		if r.LifetimeBegin == LifetimeUndefined {
			// Not accessed this frame: still a candidate for deferred
			// release, so its unused-frame count keeps advancing as
			// long as its history survives.
			if hist, ok := cs.g.memHistory[r.Name]; ok {
				hist.framesUnused++
				r.FramesUnused = hist.framesUnused
				nextHistory[r.Name] = hist
			}
			continue
		}
		mr := cs.memoryRequirementOf(r)
		r.AllocRequirement = mr
		if r.Flags.has(FlagPersistent) {
			r.LifetimeBegin = 0
			r.LifetimeEnd = len(cs.scheduled) // kept alive for the whole frame, never aliased away
		}
		pr := &placedResource{idx: i, memType: mr.MemoryTypeIndex, size: mr.Size, pages: pagesFor(mr.Size)}
		if hist, ok := cs.g.memHistory[r.Name]; ok && hist.memType == mr.MemoryTypeIndex {
			pr.preallocated = true
			pr.offsetPage = hist.offsetPage
		}
		r.FramesUnused = 0
		queue = append(queue, pr)
	}

	// Pre-allocated-first, then larger-first, then earliest-lifetime-
	// first within a memory type (§4.6 "Placement").
	sort.SliceStable(queue, func(a, b int) bool {
		pa, pb := queue[a], queue[b]
		if pa.memType != pb.memType {
			return pa.memType < pb.memType
		}
		if pa.preallocated != pb.preallocated {
			return pa.preallocated
		}
		if pa.pages != pb.pages {
			return pa.pages > pb.pages
		}
		ra, rb := &cs.resources[pa.idx], &cs.resources[pb.idx]
		return ra.LifetimeBegin < rb.LifetimeBegin
	})

	heaps := map[int]*heapAlloc{}
	var active []*placedResource

	for _, pr := range queue {
		r := &cs.resources[pr.idx]
		h := heaps[pr.memType]
		if h == nil {
			h = &heapAlloc{memType: pr.memType}
			heaps[pr.memType] = h
		}

		reusedSpace := false
		for i := 0; i < len(active); {
			a := active[i]
			ar := &cs.resources[a.idx]
			if a.memType == pr.memType && ar.LifetimeEnd < r.LifetimeBegin {
				h.free(a.offsetPage, a.pages)
				h.used -= a.size
				cs.recordAliasing(ar, r)
				reusedSpace = true
				active = append(active[:i], active[i+1:]...)
				continue
			}
			i++
		}

		if pr.preallocated && h.claim(pr.offsetPage, pr.pages) {
			// Reoccupied its previous-frame range: no new search needed.
		} else {
			pr.preallocated = false
			pr.offsetPage = h.allocate(pr.pages)
		}
		h.used += pr.size
		if h.used > h.maxUsed {
			h.maxUsed = h.used
		}
		r.AllocPlacement.Offset = int64(pr.offsetPage) * pageSize
		r.IsAliased = reusedSpace
		active = append(active, pr)

		nextHistory[r.Name] = resourceMemoryHistory{memType: pr.memType, offsetPage: pr.offsetPage, pages: pr.pages}
	}

	memTypes := make([]int, 0, len(heaps))
	for mt := range heaps {
		memTypes = append(memTypes, mt)
	}
	sort.Ints(memTypes)

	cs.heaps = cs.heaps[:0]
	handles := map[int]driver.HeapHandle{}
	for _, mt := range memTypes {
		h := heaps[mt]
		size := int64(h.bits.Len()) * pageSize
		info := HeapInfo{MemTypeIndex: mt, Size: size, MaxUsedSize: h.maxUsed, UsedSize: h.used}
		if cs.backend != nil {
			handle, err := cs.backend.CreateHeap(driver.HeapRequest{MemoryTypeIndex: mt, Size: size})
			if err != nil {
				return newErr(OutOfMemory, "MemoryScheduler", err)
			}
			info.Runtime = handle
			handles[mt] = handle
		}
		cs.heaps = append(cs.heaps, info)
	}
	for _, pr := range queue {
		cs.resources[pr.idx].AllocPlacement.Heap = handles[pr.memType]
	}

	cs.g.memHistory = nextHistory
	return nil
}

// memoryRequirementOf asks the backend how much memory and which
// memory type r needs, falling back to a coarse estimate when no
// backend is attached (e.g. unit tests exercising the core alone).
func (cs *compileState) memoryRequirementOf(r *Resource) driver.MemoryRequirement {
	if cs.backend != nil {
		return cs.backend.GetMemoryRequirement(r.Query)
	}
	w, h, d := r.Query.Width, r.Query.Height, r.Query.Depth
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if d < 1 {
		d = 1
	}
	layers := r.Query.ArrayLayers
	if layers < 1 {
		layers = 1
	}
	samples := r.Query.Samples
	if samples < 1 {
		samples = 1
	}
	const bytesPerTexel = 4
	size := int64(w) * int64(h) * int64(d) * int64(layers) * int64(samples) * bytesPerTexel
	if size < 256 {
		size = 256
	}
	return driver.MemoryRequirement{Size: size, Alignment: 256, MemoryTypeIndex: 0}
}

// recordAliasing attaches an activation/deactivation pair to the
// runtime command where dst first becomes live, so the backend can
// emit the discard/clear that reusing src's storage requires (§4.6).
func (cs *compileState) recordAliasing(src, dst *Resource) {
	pos := dst.LifetimeBegin
	rcIdx := pos + 1 // cs.runtimeCmds[0] is the PREAMBLE entry
	if rcIdx < 0 || rcIdx >= len(cs.runtimeCmds) {
		return
	}
	srcIdx, dstIdx := -1, -1
	for i := range cs.resources {
		if &cs.resources[i] == src {
			srcIdx = i
		}
		if &cs.resources[i] == dst {
			dstIdx = i
		}
	}
	cs.runtimeCmds[rcIdx].AliasingInfos = append(cs.runtimeCmds[rcIdx].AliasingInfos, ResourceAliasingInfo{
		SrcResourceIndex: srcIdx,
		DstResourceIndex: dstIdx,
		SrcDeactivating:  true,
		DstActivating:    true,
	})
}
