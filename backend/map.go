// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package backend implements the two backend-facing compiler phases,
// BarrierBuilder and CommandRecorder: folding a compiled render graph's
// transitions into submission-ready barrier batches and walking its
// runtime-command stream to drive a thin recording callback.
package backend

import (
	"github.com/gviegas/rendergraph/access"
	"github.com/gviegas/rendergraph/driver"
)

// syncOf maps an access bitset to the conventional-barrier pipeline
// stages it touches.
func syncOf(a access.Attr) driver.Sync {
	var s driver.Sync
	if a.Any(access.VertexBuffer | access.IndexBuffer) {
		s |= driver.SVertexInput
	}
	if a.Any(access.ConstantBuffer | access.SRV | access.UAV) {
		s |= driver.SVertexShading | driver.SFragmentShading | driver.SComputeShading
	}
	if a.Any(access.RenderTarget | access.Clear) {
		s |= driver.SColorOutput
	}
	if a.Any(access.DSRead | access.DSWrite) {
		s |= driver.SDSOutput
	}
	if a.Any(access.ResolveSrc | access.ResolveDst) {
		s |= driver.SResolve
	}
	if a.Any(access.CopySrc | access.CopyDst) {
		s |= driver.SCopy
	}
	if a.Any(access.IndirectArgs) {
		s |= driver.SDraw
	}
	if s == 0 {
		s = driver.SNone
	}
	return s
}

// accessOf maps an access bitset to the conventional-barrier memory
// access scopes it touches.
func accessOf(a access.Attr) driver.Access {
	var d driver.Access
	if a.Any(access.VertexBuffer) {
		d |= driver.AVertexBufRead
	}
	if a.Any(access.IndexBuffer) {
		d |= driver.AIndexBufRead
	}
	if a.Has(access.RenderTarget) {
		d |= driver.AColorRead | driver.AColorWrite
	}
	if a.Has(access.DSWrite) {
		d |= driver.ADSRead | driver.ADSWrite
	} else if a.Has(access.DSRead) {
		d |= driver.ADSRead
	}
	if a.Has(access.ResolveSrc) {
		d |= driver.AResolveRead
	}
	if a.Has(access.ResolveDst) {
		d |= driver.AResolveWrite
	}
	if a.Has(access.CopySrc) {
		d |= driver.ACopyRead
	}
	if a.Has(access.CopyDst) {
		d |= driver.ACopyWrite
	}
	if a.Has(access.SRV) {
		d |= driver.AShaderRead
	}
	if a.Has(access.UAV) {
		d |= driver.AShaderRead | driver.AShaderWrite
	}
	if d == 0 {
		d = driver.ANone
	}
	return d
}

// layoutOf maps an access bitset to the single image layout it
// implies. Bits are checked in a fixed priority order and the first
// match decides: present, render target, depth-stencil write, depth-
// stencil read, copy dst, copy src, resolve dst, resolve src, then
// SRV/UAV (both map to the shader-read layout).
func layoutOf(a access.Attr) driver.Layout {
	switch {
	case a.Has(access.Present):
		return driver.LPresent
	case a.Has(access.RenderTarget):
		return driver.LColorTarget
	case a.Has(access.DSWrite):
		return driver.LDSTarget
	case a.Has(access.DSRead):
		return driver.LDSRead
	case a.Has(access.CopyDst):
		return driver.LCopyDst
	case a.Has(access.CopySrc):
		return driver.LCopySrc
	case a.Has(access.ResolveDst):
		return driver.LResolveDst
	case a.Has(access.ResolveSrc):
		return driver.LResolveSrc
	case a.Has(access.SRV), a.Has(access.UAV):
		return driver.LShaderRead
	case a == access.None:
		return driver.LUndefined
	default:
		return driver.LCommon
	}
}
