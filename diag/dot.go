// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package diag

import (
	"fmt"
	"io"

	"github.com/gviegas/rendergraph/graph"
)

// DumpDOT writes g's node/edge structure as a Graphviz DOT graph to w,
// clustering nodes by subgraph. It is meant to back the
// EnableDAGDump/EnablePreScheduleDump/EnablePostScheduleDump
// diagnostic flags (§6): a caller checks the relevant flag and calls
// DumpDOT at the point in the pipeline the flag names.
func DumpDOT(w io.Writer, g *graph.RenderGraph, title string) error {
	bw := &errWriter{w: w}
	bw.printf("digraph %q {\n", title)
	bw.printf("  rankdir=LR;\n")

	byCluster := map[graph.SubgraphID][]int{}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		byCluster[n.Subgraph] = append(byCluster[n.Subgraph], i)
	}

	for sg, ids := range byCluster {
		if sg == graph.NilSubgraph {
			continue
		}
		bw.printf("  subgraph cluster_%d {\n", sg)
		bw.printf("    label=%q;\n", subgraphLabel(g, sg))
		for _, id := range ids {
			bw.printf("    %s;\n", nodeID(id))
		}
		bw.printf("  }\n")
	}
	for _, id := range byCluster[graph.NilSubgraph] {
		bw.printf("  %s;\n", nodeID(id))
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		label := nodeLabel(g, graph.NodeID(i), n)
		bw.printf("  %s [label=%q%s];\n", nodeID(i), label, nodeStyle(g, graph.NodeID(i)))
	}
	for i := range g.Nodes {
		for _, dst := range g.Nodes[i].OutEdges() {
			bw.printf("  %s -> %s;\n", nodeID(i), nodeID(dst))
		}
	}

	bw.printf("}\n")
	return bw.err
}

func nodeID(id int) string { return fmt.Sprintf("n%d", id) }

func nodeLabel(g *graph.RenderGraph, id graph.NodeID, n *graph.Node) string {
	if n.Kind == graph.NodeTransition {
		return fmt.Sprintf("transition #%d", n.TransitionID)
	}
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("cmd #%d", n.CmdID)
}

func nodeStyle(g *graph.RenderGraph, id graph.NodeID) string {
	if int(id) < len(g.Eliminated) && g.Eliminated[id] {
		return `,style=dashed,color=gray`
	}
	if g.Nodes[id].Kind == graph.NodeTransition {
		return `,shape=diamond`
	}
	return ""
}

func subgraphLabel(g *graph.RenderGraph, sg graph.SubgraphID) string {
	s := g.Subgraphs[sg]
	switch {
	case s.Atomic:
		return fmt.Sprintf("subgraph %d (atomic)", sg)
	case s.Sequential:
		return fmt.Sprintf("subgraph %d (sequential)", sg)
	default:
		return fmt.Sprintf("subgraph %d", sg)
	}
}

// errWriter collapses a chain of Fprintf error checks into one deferred
// check, the way the teacher's dumpers do for repetitive writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
