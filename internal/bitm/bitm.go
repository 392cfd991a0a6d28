// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package bitm defines a growable bitmap type. The scheduler uses it
// to track, by NodeID, which nodes of a compiled graph are removed by
// dead-code elimination before flattening the result to the public
// RenderGraph.Eliminated slice.
package bitm

import (
	"unsafe"
)

// Uint represents the granularity of a bitmap.
type Uint interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Bitm is a growable bitmap with custom granularity. Unlike
// internal/bitvec's V, it only exposes the operations the scheduler's
// dead-code-elimination pass actually needs: grow once up front, mark
// eliminated nodes, then read back by index. There is no free-list search or
// shrink path here, since elimination only ever sets bits and is
// rebuilt from scratch every Update call.
type Bitm[T Uint] struct {
	m []T
}

// nbit returns the number of bits in T.
// TODO: This is not constant.
func (m *Bitm[T]) nbit() int { return int(unsafe.Sizeof(T(0))) * 8 }

// Len returns the number of bits in the map.
func (m *Bitm[_]) Len() int { return len(m.m) * m.nbit() }

// Grow resizes the map to contain nplus additional Uints, appended as
// a contiguous range of unset bits. It is valid to call this method
// with any value of nplus.
func (m *Bitm[T]) Grow(nplus int) (index int) {
	index = m.Len()
	if nplus > 0 {
		m.m = append(m.m, make([]T, nplus)...)
	}
	return
}

// Set sets a given bit. index must be in [0, m.Len()).
func (m *Bitm[T]) Set(index int) {
	n := m.nbit()
	i := index / n
	m.m[i] |= T(1) << (index & (n - 1))
}

// IsSet checks whether a given bit is set. index must be in
// [0, m.Len()).
func (m *Bitm[T]) IsSet(index int) bool {
	n := m.nbit()
	i := index / n
	b := T(1) << (index & (n - 1))
	return m.m[i]&b != 0
}
