// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Command rgc compiles a YAML render-graph scene description through
// the full phase pipeline and reports the resulting schedule,
// transitions, heaps and barrier batches.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gviegas/rendergraph/backend"
	"github.com/gviegas/rendergraph/diag"
	"github.com/gviegas/rendergraph/driver"
	"github.com/gviegas/rendergraph/frontend"
	"github.com/gviegas/rendergraph/graph"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rgc",
		Short: "render-graph compiler CLI",
	}
	root.AddCommand(newCompileCmd())
	return root
}

func newCompileCmd() *cobra.Command {
	var dumpDOT string
	var verbose bool
	var enhanced bool

	cmd := &cobra.Command{
		Use:   "compile <scene.yaml>",
		Short: "run P1-P8 over a scene description and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args[0], dumpDOT, verbose, enhanced)
		},
	}
	cmd.Flags().StringVar(&dumpDOT, "dump-dot", "", "write a Graphviz DOT dump of the compiled graph to this path")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log phase timing and arena watermarks to stderr")
	cmd.Flags().BoolVar(&enhanced, "enhanced-barriers", false, "use the null backend's enhanced-barrier variant")
	return cmd
}

func runCompile(path, dumpDOT string, verbose, enhanced bool) error {
	sc, err := frontend.Load(path)
	if err != nil {
		return err
	}
	in, err := sc.Resolve()
	if err != nil {
		return err
	}

	var logger *diag.FrameLogger
	if verbose {
		logger = diag.NewLogger(os.Stderr).Frame()
	}

	be := &backend.NullBackend{Enhanced: enhanced}
	g := &graph.RenderGraph{}
	ctx := graph.NewUpdateContext()

	start := time.Now()
	err = g.Update(ctx, be, in)
	elapsed := time.Since(start)
	if logger != nil {
		logger.Phase("update", elapsed, len(g.Nodes), len(g.Resources))
		logger.Arena("frame", ctx.Frame.Watermarks())
	}
	if err != nil {
		if logger != nil {
			logger.Error(err)
		}
		return err
	}

	builder := backend.NewBuilder(g, be)
	batches, err := builder.Build()
	if err != nil {
		return fmt.Errorf("rgc: barrier build: %w", err)
	}

	if err := recordAllBatches(g, be, batches); err != nil {
		return fmt.Errorf("rgc: record: %w", err)
	}

	printSummary(g, batches)

	if dumpDOT != "" {
		f, err := os.Create(dumpDOT)
		if err != nil {
			return fmt.Errorf("rgc: dump-dot: %w", err)
		}
		defer f.Close()
		title := "scene"
		if len(sc.Commands) > 0 {
			title = sc.Commands[0].Name
		}
		if err := diag.DumpDOT(f, g, title); err != nil {
			return fmt.Errorf("rgc: dump-dot: %w", err)
		}
	}
	return nil
}

// noopCmdBuffer discards everything recorded into it; rgc compiles a
// schedule and reports on it, it never submits to a real queue.
type noopCmdBuffer struct{}

func (noopCmdBuffer) RecordBarrier(b []driver.Barrier)       {}
func (noopCmdBuffer) RecordTransition(t []driver.Transition) {}

// recordAllBatches drives one CmdBuffer per graph.CommandBatch, in
// g.CmdBatches order, exercising the same per-batch CommandRecorder
// contract a real multi-queue frontend would: nothing consumes
// g.CmdBatches directly until this call walks it.
func recordAllBatches(g *graph.RenderGraph, be driver.Backend, batches map[int]driver.BarrierBatchHandle) error {
	rec := backend.NewRecorder(g, be, batches)
	for _, b := range g.CmdBatches {
		var cb noopCmdBuffer
		if err := rec.Record(cb, b, func(int, driver.CmdBuffer) {}); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(g *graph.RenderGraph, batches map[int]driver.BarrierBatchHandle) {
	nEliminated := 0
	for _, e := range g.Eliminated {
		if e {
			nEliminated++
		}
	}
	fmt.Printf("nodes: %d (eliminated: %d)\n", len(g.Nodes), nEliminated)
	fmt.Printf("resources: %d\n", len(g.Resources))
	fmt.Printf("transitions: %d\n", len(g.Transitions)-1) // [0] is the sentinel
	fmt.Printf("runtime commands: %d\n", len(g.RuntimeCmds))
	fmt.Printf("barrier batches: %d\n", len(batches))
	fmt.Printf("command batches: %d\n", len(g.CmdBatches))
	for i, b := range g.CmdBatches {
		fmt.Printf("  batch %d: queue=%d cmds=[%d,%d) waits=%d\n",
			i, b.QueueIndex, b.CmdBegin, b.CmdBegin+b.NumCmds, b.NumWaitFences)
	}
	fmt.Printf("heaps: %d\n", len(g.HeapInfos))
	for i, h := range g.HeapInfos {
		fmt.Printf("  heap %d: memType=%d size=%d used=%d\n", i, h.MemTypeIndex, h.Size, h.UsedSize)
	}
}
