// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package diag_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gviegas/rendergraph/access"
	"github.com/gviegas/rendergraph/diag"
	"github.com/gviegas/rendergraph/driver"
	"github.com/gviegas/rendergraph/graph"
)

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

func TestDumpDOTWritesValidGraph(t *testing.T) {
	in := &graph.Input{
		Resources: []graph.ResourceDecl{imageResource("color")},
		Commands: []graph.CmdDecl{
			{Name: "draw", Accesses: []graph.CmdAccessInfo{{ResourceIndex: 0, AccessAttr: access.RenderTarget, HasView: true}}},
			{Name: "sample", Accesses: []graph.CmdAccessInfo{{ResourceIndex: 0, AccessAttr: access.SRV, HasView: true}}},
		},
	}
	g := &graph.RenderGraph{}
	if err := g.Update(graph.NewUpdateContext(), nil, in); err != nil {
		t.Fatalf("Update: %v", err)
	}

	var buf bytes.Buffer
	if err := diag.DumpDOT(&buf, g, "test"); err != nil {
		t.Fatalf("DumpDOT: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "digraph ") {
		t.Errorf("DumpDOT output does not start with digraph: %q", out)
	}
	if !strings.Contains(out, "draw") || !strings.Contains(out, "sample") {
		t.Errorf("DumpDOT output missing expected node labels: %q", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "}") {
		t.Errorf("DumpDOT output not terminated: %q", out)
	}
}

func TestFrameLoggerLogsPhaseAndError(t *testing.T) {
	var buf bytes.Buffer
	l := diag.NewLogger(&buf)
	fl := l.Frame()
	fl.Phase("schedule", 0, 3, 1)
	fl.Error(&graph.Error{Code: graph.InvalidArguments, Op: "Update"})
	out := buf.String()
	if !strings.Contains(out, "phase complete") {
		t.Errorf("log missing phase event: %q", out)
	}
	if !strings.Contains(out, "update failed") {
		t.Errorf("log missing error event: %q", out)
	}
}
