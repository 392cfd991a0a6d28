// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"math/bits"

	"github.com/gviegas/rendergraph/access"
	"github.com/gviegas/rendergraph/driver"
)

// preProcess is P1: normalize resource descriptions and infer
// per-command access from their view bindings (§4.1).
func (cs *compileState) preProcess() error {
	cs.resources = make([]Resource, len(cs.in.Resources))
	for i, rd := range cs.in.Resources {
		r := &cs.resources[i]
		r.Name = rd.Name
		r.Query = rd.Query
		r.Flags = rd.Flags
		r.IsExternal = rd.IsExternal
		r.TemporalParent = rd.TemporalParent
		r.TemporalSlice = rd.TemporalSlice
		r.LifetimeBegin = LifetimeUndefined
		r.LifetimeEnd = LifetimeUndefined
		r.mostRecentRef = NilNode

		if rd.HasInitialAccess {
			r.InitialAccess = rd.InitialAccess
			r.HasInitialAccess = true
		}

		normalizeMipCount(&r.Query)

		if cs.backend != nil {
			info := cs.backend.GetSubresourceInfo(r.Query)
			r.NumSubresources = info.NumSubresources
			r.FullRange = access.Range{
				Aspect:  info.Aspects,
				BaseMip: 0, EndMip: r.Query.MipCount,
				BaseArr: 0, EndArr: r.Query.ArrayLayers,
			}
		} else {
			aspect := access.AspectColor
			if r.Query.Kind == driver.KindImage2D && isDepthFormat(r.Query.Format) {
				aspect = access.AspectDepthStencil
			}
			r.FullRange = access.Range{
				Aspect: aspect, BaseMip: 0, EndMip: r.Query.MipCount,
				BaseArr: 0, EndArr: r.Query.ArrayLayers,
			}
			r.NumSubresources = r.FullRange.NumSubresources()
		}
	}

	// Mark entries that were declared as temporal slices of another
	// resource as true temporal parents.
	for i := range cs.resources {
		if p := cs.resources[i].TemporalParent; p != IndexNone && p >= 0 && p < len(cs.resources) {
			cs.resources[p].IsTemporalParent = true
		}
	}

	// Infer per-view access: compute the effective subresource range,
	// fold allAccesses, validate format/mutability pairing.
	for ci := range cs.in.Commands {
		cd := &cs.in.Commands[ci]
		if cd.Special != SpecialNone {
			continue
		}
		for ai := range cd.Accesses {
			a := &cd.Accesses[ai]
			if a.ResourceIndex < 0 || a.ResourceIndex >= len(cs.resources) {
				return newErr(InvalidArguments, "PreProcess", errBadResourceIndex(a.ResourceIndex))
			}
			r := &cs.resources[a.ResourceIndex]
			if !a.HasView {
				continue
			}
			if a.Range.Empty() {
				a.Range = r.FullRange
			}
			if a.Range.BaseMip < 0 || a.Range.EndMip > r.Query.MipCount ||
				a.Range.BaseArr < 0 || a.Range.EndArr > r.Query.ArrayLayers {
				return newErr(IndexOutOfBounds, "PreProcess", errViewRangeExceedsResource(a.ResourceIndex))
			}
			if a.ViewFormat != 0 && a.ViewFormat != r.Query.Format && !r.Flags.has(FlagMutableFormat) {
				return newErr(InvalidArguments, "PreProcess", errIncompatibleViewFormat(a.ResourceIndex))
			}
			r.AllAccesses |= a.AccessAttr
		}
	}
	return nil
}

func (f ResourceFlags) has(b ResourceFlags) bool { return f&b != 0 }

// normalizeMipCount applies §4.1's mip-count auto-derivation: if 0,
// compute 1 + floor(log2(max(w,h,d))); force mip-count=1 on MSAA.
func normalizeMipCount(q *driver.ResourceQuery) {
	if q.Samples > 1 {
		q.MipCount = 1
		return
	}
	if q.MipCount != 0 {
		return
	}
	m := q.Width
	if q.Height > m {
		m = q.Height
	}
	if q.Depth > m {
		m = q.Depth
	}
	if m <= 0 {
		q.MipCount = 1
		return
	}
	q.MipCount = 1 + bits.Len(uint(m)) - 1
	if q.MipCount < 1 {
		q.MipCount = 1
	}
}

// isDepthFormat is a placeholder classifier used only when no backend
// is attached (format tables are an out-of-scope collaborator, §1).
func isDepthFormat(format int) bool { return format < 0 }
