// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package access defines the subresource-granular access vocabulary
// used by the render-graph core: access bitsets, shader-stage masks,
// and packed subresource ranges with clipping support.
package access

// Attr is a bitset of access kinds, as observed on a single command's
// binding of a resource view.
type Attr uint32

// Access kinds.
const (
	RenderTarget Attr = 1 << iota
	DSRead
	DSWrite
	SRV
	UAV
	CopySrc
	CopyDst
	ResolveSrc
	ResolveDst
	ConstantBuffer
	VertexBuffer
	IndexBuffer
	IndirectArgs
	Clear
	Present
	CPURead
	CPUWrite
	ASBuild
	ASRead
	StreamOut
	ShadingRate
	NoView
	DiscardBefore
	DiscardAfter
	RelaxedOrder

	None Attr = 0
)

// Has reports whether a holds every bit in b.
func (a Attr) Has(b Attr) bool { return a&b == b }

// Any reports whether a and b share at least one bit.
func (a Attr) Any(b Attr) bool { return a&b != 0 }

// IsReadOnly reports whether a carries only read-style access bits.
// Render target, DS-write, UAV (read-write by nature), CPU-write,
// copy-dst, resolve-dst, clear and AS-build are all considered
// non-read-only for the purpose of §4.3 NeedTransition.
func (a Attr) IsReadOnly() bool {
	const writeBits = RenderTarget | DSWrite | UAV | CopyDst | ResolveDst |
		Clear | CPUWrite | ASBuild
	return a&writeBits == 0
}

// Stage is a bitset of shader stages an access applies to.
type Stage uint32

// Shader stages.
const (
	StageVertex Stage = 1 << iota
	StageHull
	StageDomain
	StageGeometry
	StagePixel
	StageCompute
	StageAmplification
	StageMesh
	StageAll Stage = 0xFFFFFFFF
	StageNone Stage = 0
)

// AspectMask selects a subset of an image's planes.
type AspectMask uint8

// Aspects.
const (
	AspectColor AspectMask = 1 << iota
	AspectDepth
	AspectStencil

	AspectDepthStencil = AspectDepth | AspectStencil
)
