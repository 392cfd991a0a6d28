// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

// buildDAG is P2: create one command node per command, materialize
// subgraphs, apply scheduler-barrier scopes, and translate explicit
// dependencies into edges (§4.2).
func (cs *compileState) buildDAG() error {
	var sgStack []SubgraphID
	barrierScope := 0
	// prevInSequential[sg] is the most recently inserted node within
	// subgraph sg, used to chain sequential subgraphs' nodes.
	prevInSequential := map[SubgraphID]NodeID{}

	cmdNodeOf := make([]NodeID, 0, len(cs.in.Commands))

	for _, cd := range cs.in.Commands {
		switch cd.Special {
		case SpecialSubgraphBegin:
			parent := NilSubgraph
			if len(sgStack) > 0 {
				parent = sgStack[len(sgStack)-1]
			}
			sgID := SubgraphID(len(cs.subgraphs))
			cs.subgraphs = append(cs.subgraphs, Subgraph{
				Parent:     parent,
				BeginNode:  NilNode,
				EndNode:    NilNode,
				Atomic:     cd.Atomic,
				Sequential: cd.Sequential,
			})
			sgStack = append(sgStack, sgID)
			continue

		case SpecialSubgraphEnd:
			if len(sgStack) == 0 {
				return newErr(IndexOutOfBounds, "DAGBuilder", errUnbalancedSubgraphEnd())
			}
			sgStack = sgStack[:len(sgStack)-1]
			continue

		case SpecialSchedulerBarrier:
			barrierScope++
			continue
		}

		sg := NilSubgraph
		if len(sgStack) > 0 {
			sg = sgStack[len(sgStack)-1]
		}

		id := NodeID(len(cs.nodes))
		cs.nodes = append(cs.nodes, Node{
			Kind:         NodeCommand,
			CmdID:        cs.numCmds,
			Subgraph:     sg,
			BarrierScope: barrierScope,
			Name:         cd.Name,
		})
		cs.numCmds++
		cmdNodeOf = append(cmdNodeOf, id)

		if sg != NilSubgraph {
			if cs.subgraphs[sg].BeginNode == NilNode {
				cs.subgraphs[sg].BeginNode = id
			}
			cs.subgraphs[sg].EndNode = id
			if cs.subgraphs[sg].Sequential {
				if prev, ok := prevInSequential[sg]; ok {
					cs.addEdge(prev, id)
				}
				prevInSequential[sg] = id
			}
		}
	}

	if len(sgStack) != 0 {
		return newErr(IndexOutOfBounds, "DAGBuilder", errUnbalancedSubgraphEnd())
	}

	for _, dep := range cs.in.Dependencies {
		if dep.Before >= dep.After {
			return newErr(InvalidArguments, "DAGBuilder", errDependencyOrder(dep.Before, dep.After))
		}
		if dep.Before < 0 || dep.After >= len(cmdNodeOf) {
			return newErr(IndexOutOfBounds, "DAGBuilder", errBadResourceIndex(dep.After))
		}
		cs.addEdge(cmdNodeOf[dep.Before], cmdNodeOf[dep.After])
	}

	if cs.in.ForceProgramOrder || cs.in.ScheduleFlags.has(KeepProgramOrder) {
		for i := 1; i < len(cmdNodeOf); i++ {
			cs.addEdge(cmdNodeOf[i-1], cmdNodeOf[i])
		}
	}

	cs.cmdNodeOf = cmdNodeOf
	return nil
}
