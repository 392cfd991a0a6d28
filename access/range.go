// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package access

// Range is a packed subresource range: an aspect mask plus a
// half-open mip range and a half-open array-layer range.
type Range struct {
	Aspect   AspectMask
	BaseMip  int
	EndMip   int
	BaseArr  int
	EndArr   int
}

// Empty reports whether r selects no subresources.
func (r Range) Empty() bool {
	return r.Aspect == 0 || r.BaseMip >= r.EndMip || r.BaseArr >= r.EndArr
}

// NumSubresources returns the number of subresources r selects,
// counting each aspect plane separately.
func (r Range) NumSubresources() int {
	if r.Empty() {
		return 0
	}
	planes := 0
	for m := AspectMask(1); m != 0 && m <= AspectStencil; m <<= 1 {
		if r.Aspect&m != 0 {
			planes++
		}
	}
	return planes * (r.EndMip - r.BaseMip) * (r.EndArr - r.BaseArr)
}

// intersect1D computes the overlap of two half-open integer ranges.
// ok is false if they do not overlap.
func intersect1D(aBegin, aEnd, bBegin, bEnd int) (begin, end int, ok bool) {
	begin = max(aBegin, bBegin)
	end = min(aEnd, bEnd)
	ok = begin < end
	return
}

// Clip intersects a with b and returns the overlap (a ∩ b) along with
// disjoint packed ranges covering the set-difference b \ a.
//
// Per §3 (SubresourceRange), complements represents b minus the part
// that overlaps a. At most 5 ranges are returned: one for b's planes
// outside the overlap, up to two for b's mips below and above the
// overlap, and up to two for b's array layers outside the overlap, so
// no general polytope decomposition is needed.
func Clip(a, b Range) (overlap Range, complements []Range) {
	aspect := a.Aspect & b.Aspect
	mBegin, mEnd, mOK := intersect1D(a.BaseMip, a.EndMip, b.BaseMip, b.EndMip)
	lBegin, lEnd, lOK := intersect1D(a.BaseArr, a.EndArr, b.BaseArr, b.EndArr)

	if aspect == 0 || !mOK || !lOK {
		// No overlap: the whole of b is a complement.
		if !b.Empty() {
			complements = append(complements, b)
		}
		return Range{}, complements
	}

	overlap = Range{Aspect: aspect, BaseMip: mBegin, EndMip: mEnd, BaseArr: lBegin, EndArr: lEnd}

	// Aspect complement: planes present in b but not in the overlap,
	// over the whole of b's mip/array extent.
	if rem := b.Aspect &^ aspect; rem != 0 {
		complements = append(complements, Range{Aspect: rem, BaseMip: b.BaseMip, EndMip: b.EndMip, BaseArr: b.BaseArr, EndArr: b.EndArr})
	}
	// Mip complement: the parts of b's mip extent outside the overlap,
	// restricted to the overlapping aspect so as not to double-count
	// with the aspect complement above, over the whole of b's array
	// extent.
	if b.BaseMip < mBegin {
		complements = append(complements, Range{Aspect: aspect, BaseMip: b.BaseMip, EndMip: mBegin, BaseArr: b.BaseArr, EndArr: b.EndArr})
	}
	if mEnd < b.EndMip {
		complements = append(complements, Range{Aspect: aspect, BaseMip: mEnd, EndMip: b.EndMip, BaseArr: b.BaseArr, EndArr: b.EndArr})
	}
	// Array complement: the parts of b's array extent outside the
	// overlap, restricted to the overlapping mip extent.
	if b.BaseArr < lBegin {
		complements = append(complements, Range{Aspect: aspect, BaseMip: mBegin, EndMip: mEnd, BaseArr: b.BaseArr, EndArr: lBegin})
	}
	if lEnd < b.EndArr {
		complements = append(complements, Range{Aspect: aspect, BaseMip: mBegin, EndMip: mEnd, BaseArr: lEnd, EndArr: b.EndArr})
	}
	return
}

// FilterByRange strips access bits that do not apply to the given
// range's aspect mask: depth/stencil read-write bits for planes not
// present, and SRV on a depth/stencil-only range that carries no
// depth/stencil read.
func FilterByRange(a Attr, r Range) Attr {
	if r.Aspect&AspectDepth == 0 {
		a &^= DSRead | DSWrite
	}
	if r.Aspect&AspectStencil == 0 {
		// Stencil uses the same DSRead/DSWrite bits as depth in this
		// model; only strip them if depth is also absent (handled
		// above). When only stencil is absent but depth is present,
		// DSRead/DSWrite remain valid for the depth plane.
	}
	if r.Aspect&AspectDepthStencil != 0 && r.Aspect&AspectColor == 0 {
		// SRV on a DS-only range requires explicit depth/stencil-read;
		// drop bare SRV.
		if a&DSRead == 0 {
			a &^= SRV
		}
	}
	return a
}
