// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package frontend loads a declarative YAML scene description and
// resolves it into a graph.Input, standing in for "the front end" the
// core design assumes but does not itself define (§1, §6).
package frontend

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gviegas/rendergraph/access"
	"github.com/gviegas/rendergraph/driver"
	"github.com/gviegas/rendergraph/graph"
)

// Scene is the on-disk description of one frame's render graph. Every
// resource/command reference is by name; Resolve turns names into the
// indices graph.Input expects.
type Scene struct {
	Resources    []ResourceDecl `yaml:"resources"`
	Commands     []CmdDecl      `yaml:"commands"`
	Dependencies []Dependency   `yaml:"dependencies"`

	ScheduleFlags   []string `yaml:"scheduleFlags"`
	DiagnosticFlags []string `yaml:"diagnosticFlags"`

	DeviceQueues      []string `yaml:"deviceQueues"`
	AsyncComputeMask  []string `yaml:"asyncComputeQueues"`
	AsyncCopyMask     []string `yaml:"asyncCopyQueues"`
	EnableAsync       bool     `yaml:"enableAsync"`
	ForceProgramOrder bool     `yaml:"forceProgramOrder"`
	QueuedFrames      int      `yaml:"queuedFrames"`
}

// ResourceDecl is one named resource declaration.
type ResourceDecl struct {
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"` // buffer, image1d, image2d, image3d
	Format      int      `yaml:"format"`
	Width       int      `yaml:"width"`
	Height      int      `yaml:"height"`
	Depth       int      `yaml:"depth"`
	MipCount    int      `yaml:"mipCount"`
	ArrayLayers int      `yaml:"arrayLayers"`
	Samples     int      `yaml:"samples"`
	Flags       []string `yaml:"flags"`

	External       bool   `yaml:"external"`
	InitialAccess  string `yaml:"initialAccess"`
	TemporalParent string `yaml:"temporalParent"`
	TemporalSlice  int    `yaml:"temporalSlice"`
}

// AccessDecl is one view binding within a command.
type AccessDecl struct {
	Resource string   `yaml:"resource"`
	Access   string   `yaml:"access"`
	Stages   []string `yaml:"stages"`
	HasView  bool     `yaml:"hasView"`
}

// CmdDecl is one named command declaration.
type CmdDecl struct {
	Name        string       `yaml:"name"`
	Accesses    []AccessDecl `yaml:"accesses"`
	ValidQueues []string     `yaml:"validQueues"`
	PreferAsync bool         `yaml:"preferAsync"`
	WorkloadType string      `yaml:"workloadType"` // graphics, compute, copy

	SubgraphBegin bool `yaml:"subgraphBegin"`
	SubgraphEnd   bool `yaml:"subgraphEnd"`
	Atomic        bool `yaml:"atomic"`
	Sequential    bool `yaml:"sequential"`
}

// Dependency is an explicit ordering constraint by command name.
type Dependency struct {
	Before string `yaml:"before"`
	After  string `yaml:"after"`
}

// Load reads and parses a Scene from path.
func Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("frontend: Load: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a Scene from r.
func Decode(r io.Reader) (*Scene, error) {
	var sc Scene
	if err := yaml.NewDecoder(r).Decode(&sc); err != nil {
		return nil, fmt.Errorf("frontend: Decode: %w", err)
	}
	return &sc, nil
}

// Resolve turns sc into a graph.Input, resolving every name reference
// to the index graph.Input requires. It returns an error wrapping the
// unresolved name whenever a reference cannot be found.
func (sc *Scene) Resolve() (*graph.Input, error) {
	resIdx := make(map[string]int, len(sc.Resources))
	for i, r := range sc.Resources {
		resIdx[r.Name] = i
	}
	cmdIdx := make(map[string]int, len(sc.Commands))
	for i, c := range sc.Commands {
		cmdIdx[c.Name] = i
	}

	resources := make([]graph.ResourceDecl, len(sc.Resources))
	for i, r := range sc.Resources {
		kind, err := parseKind(r.Kind)
		if err != nil {
			return nil, fmt.Errorf("frontend: resource %q: %w", r.Name, err)
		}
		parent := graph.IndexNone
		if r.TemporalParent != "" {
			p, ok := resIdx[r.TemporalParent]
			if !ok {
				return nil, fmt.Errorf("frontend: resource %q: unknown temporalParent %q", r.Name, r.TemporalParent)
			}
			parent = p
		}
		initial, hasInitial := access.None, false
		if r.InitialAccess != "" {
			a, err := parseAccess(r.InitialAccess)
			if err != nil {
				return nil, fmt.Errorf("frontend: resource %q: %w", r.Name, err)
			}
			initial, hasInitial = a, true
		}
		resources[i] = graph.ResourceDecl{
			Name: r.Name,
			Query: driver.ResourceQuery{
				Kind: kind, Format: r.Format,
				Width: r.Width, Height: r.Height, Depth: r.Depth,
				MipCount: r.MipCount, ArrayLayers: r.ArrayLayers, Samples: r.Samples,
			},
			Flags:            parseResourceFlags(r.Flags),
			IsExternal:       r.External,
			InitialAccess:    initial,
			HasInitialAccess: hasInitial,
			TemporalParent:   parent,
			TemporalSlice:    r.TemporalSlice,
		}
	}

	commands := make([]graph.CmdDecl, len(sc.Commands))
	for i, c := range sc.Commands {
		cd := graph.CmdDecl{Name: c.Name, PreferAsync: c.PreferAsync}
		switch {
		case c.SubgraphBegin:
			cd.Special = graph.SpecialSubgraphBegin
			cd.Atomic, cd.Sequential = c.Atomic, c.Sequential
		case c.SubgraphEnd:
			cd.Special = graph.SpecialSubgraphEnd
		default:
			wt, err := parseWorkloadType(c.WorkloadType)
			if err != nil {
				return nil, fmt.Errorf("frontend: command %q: %w", c.Name, err)
			}
			cd.WorkloadType = wt
			cd.ValidQueues = parseQueueMask(c.ValidQueues)
			cd.Accesses = make([]graph.CmdAccessInfo, len(c.Accesses))
			for j, a := range c.Accesses {
				ridx, ok := resIdx[a.Resource]
				if !ok {
					return nil, fmt.Errorf("frontend: command %q: unknown resource %q", c.Name, a.Resource)
				}
				attr, err := parseAccess(a.Access)
				if err != nil {
					return nil, fmt.Errorf("frontend: command %q: %w", c.Name, err)
				}
				cd.Accesses[j] = graph.CmdAccessInfo{
					ResourceIndex: ridx,
					AccessAttr:    attr,
					Stages:        parseStages(a.Stages),
					HasView:       a.HasView,
				}
			}
		}
		commands[i] = cd
	}

	deps := make([]graph.Dependency, len(sc.Dependencies))
	for i, d := range sc.Dependencies {
		before, ok := cmdIdx[d.Before]
		if !ok {
			return nil, fmt.Errorf("frontend: dependency %d: unknown command %q", i, d.Before)
		}
		after, ok := cmdIdx[d.After]
		if !ok {
			return nil, fmt.Errorf("frontend: dependency %d: unknown command %q", i, d.After)
		}
		deps[i] = graph.Dependency{Before: before, After: after}
	}

	return &graph.Input{
		Resources:         resources,
		Commands:          commands,
		Dependencies:      deps,
		ScheduleFlags:     parseScheduleFlags(sc.ScheduleFlags),
		DiagnosticFlags:   parseDiagnosticFlags(sc.DiagnosticFlags),
		QueuedFrames:      sc.QueuedFrames,
		DeviceQueues:      parseQueueMask(sc.DeviceQueues),
		AsyncComputeMask:  parseQueueMask(sc.AsyncComputeMask),
		AsyncCopyMask:     parseQueueMask(sc.AsyncCopyMask),
		EnableAsync:       sc.EnableAsync,
		ForceProgramOrder: sc.ForceProgramOrder,
	}, nil
}
