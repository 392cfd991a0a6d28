// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

import "github.com/gviegas/rendergraph/internal/bitm"

// schedInfo is the scheduler-private per-node bookkeeping (§4.4
// "Setup").
type schedInfo struct {
	validQueueMask     QueueMask
	preferredQueueMask QueueMask
	workloadType       WorkloadType
	canBeEliminated    bool
	aliasableFootprint int64
}

// schedule is P4: topologically order the graph under multi-criterion
// scoring, assign queues, and form cross-queue batches (§4.4).
func (cs *compileState) schedule() error {
	n := len(cs.nodes)
	info := make([]schedInfo, n)
	cs.setupSchedInfo(info)
	cs.computeAliasableFootprints(info)
	cs.applyAtomicSubgraphEdges()

	outCount := make([]int, n)
	readyDeps := make([]int, n)
	for i := range cs.nodes {
		outCount[i] = len(cs.nodes[i].outEdges)
	}

	var ready []NodeID
	for i := range cs.nodes {
		if outCount[i] == readyDeps[i] {
			// Every node with no out-edges seeds the ready set. Every
			// transition gets an edge to its triggering command (§4.3
			// step 6), so in practice the seeds are command nodes.
			if cs.nodes[i].Kind == NodeCommand || outCount[i] == 0 {
				ready = append(ready, NodeID(i))
			}
		}
	}

	var scheduled []NodeID // built tail-first; reversed at the end
	var eliminated bitm.Bitm[uint64]
	eliminated.Grow((n + 63) / 64)
	for i := range cs.nodes {
		if info[i].canBeEliminated && !cs.in.ScheduleFlags.has(DisableDeadCodeElimination) {
			eliminated.Set(i)
		}
	}

	currQueue := 0
	lastWasTransition := false
	var lastWorkload WorkloadType
	haveLast := false

	flags := cs.in.ScheduleFlags
	eliminate := !flags.has(DisableDeadCodeElimination)

	for len(ready) > 0 {
		best := -1
		bestScore := int64(-1)
		bestEliminated := false
		for i, id := range ready {
			if eliminate && info[id].canBeEliminated {
				best = i
				bestEliminated = true
				break
			}
			s := cs.score(id, info, currQueue, lastWasTransition, lastWorkload, haveLast, flags)
			if s > bestScore {
				bestScore = s
				best = i
				bestEliminated = false
			}
		}

		picked := ready[best]
		ready[best] = ready[len(ready)-1]
		ready = ready[:len(ready)-1]

		if bestEliminated && eliminate {
			eliminated.Set(int(picked))
		} else {
			scheduled = append(scheduled, picked)
			cs.scheduled = scheduled
			nd := &cs.nodes[picked]
			if nd.Kind == NodeCommand {
				if cs.in.EnableAsync {
					pref := info[picked].preferredQueueMask
					if pref != 0 && pref&queueBit(currQueue) == 0 {
						if !cs.isImmediateDependentOfLast(picked, scheduled[:len(scheduled)-1]) {
							currQueue = firstQueueOf(pref)
						}
					}
				}
				lastWorkload = info[picked].workloadType
				haveLast = true
				lastWasTransition = false
				cs.touchResources(nd, picked)
			} else {
				lastWasTransition = true
			}
		}

		for _, uIdx := range cs.nodes[picked].inEdges {
			readyDeps[uIdx]++
			if readyDeps[uIdx] == outCount[uIdx] {
				ready = append(ready, NodeID(uIdx))
			}
		}
	}

	// Reverse: scheduling walked the graph tail-first (§4.4 "Scheduling
	// walks the graph in reverse").
	for l, r := 0, len(scheduled)-1; l < r; l, r = l+1, r-1 {
		scheduled[l], scheduled[r] = scheduled[r], scheduled[l]
	}

	if flags.has(KeepProgramOrder) {
		// already enforced via the program-order edges P2 adds; nothing
		// further to do here besides the invariant check callers may run.
	}

	flat := make([]bool, n)
	for i := 0; i < n; i++ {
		flat[i] = eliminated.IsSet(i)
	}

	cs.scheduled = scheduled
	cs.eliminated = flat
	cs.assignBatches(info)
	return nil
}

func queueBit(q int) QueueMask { return QueueMask(1) << uint(q) }

func firstQueueOf(mask QueueMask) int {
	for q := 0; q < 8; q++ {
		if mask&queueBit(q) != 0 {
			return q
		}
	}
	return 0
}

func (cs *compileState) isImmediateDependentOfLast(candidate NodeID, scheduled []NodeID) bool {
	if len(scheduled) == 0 {
		return false
	}
	last := scheduled[len(scheduled)-1]
	for _, e := range cs.nodes[last].inEdges {
		if NodeID(e) == candidate {
			return true
		}
	}
	return false
}

// setupSchedInfo computes queue masks, workload types and dead-code
// eligibility for every node (§4.4 "Setup").
func (cs *compileState) setupSchedInfo(info []schedInfo) {
	for i := range cs.nodes {
		nd := &cs.nodes[i]
		if nd.Kind != NodeCommand {
			continue
		}
		cd := cs.cmdDeclOf(nd.CmdID)
		valid := cd.ValidQueues & cs.in.DeviceQueues
		if valid == 0 {
			valid = cs.in.DeviceQueues
		}
		info[i].validQueueMask = valid
		info[i].workloadType = cd.WorkloadType
		info[i].preferredQueueMask = valid
		if cd.PreferAsync {
			switch cd.WorkloadType {
			case WorkloadCompute:
				if cs.in.AsyncComputeMask&valid != 0 {
					info[i].preferredQueueMask = cs.in.AsyncComputeMask & valid
				}
			case WorkloadCopy:
				if cs.in.AsyncCopyMask&valid != 0 {
					info[i].preferredQueueMask = cs.in.AsyncCopyMask & valid
				}
			}
		}
		info[i].canBeEliminated = len(nd.outEdges) == 0 && !cs.touchesPersistentOrExternalWrite(nd)
	}
}

// computeAliasableFootprints gives each command node a rough estimate
// of how much memory it activates minus how much it retires, by
// declaration-order first/last reference per resource. P4 runs before
// P6's real placement, so this can only ever be an estimate, not the
// memory scheduler's actual aliasing decision (§4.4 "Memory saving").
func (cs *compileState) computeAliasableFootprints(info []schedInfo) {
	firstRef := map[int]int{}
	lastRef := map[int]int{}
	cmdID := 0
	for _, cd := range cs.in.Commands {
		if cd.Special != SpecialNone {
			continue
		}
		for _, a := range cd.Accesses {
			if a.ResourceIndex < 0 || a.ResourceIndex >= len(cs.resources) {
				continue
			}
			if _, ok := firstRef[a.ResourceIndex]; !ok {
				firstRef[a.ResourceIndex] = cmdID
			}
			lastRef[a.ResourceIndex] = cmdID
		}
		cmdID++
	}

	sizeOf := make([]int64, len(cs.resources))
	for i := range cs.resources {
		sizeOf[i] = cs.memoryRequirementOf(&cs.resources[i]).Size
	}

	byCmd := make(map[int]NodeID, len(cs.nodes))
	for i := range cs.nodes {
		if cs.nodes[i].Kind == NodeCommand {
			byCmd[cs.nodes[i].CmdID] = NodeID(i)
		}
	}
	for resIdx, fc := range firstRef {
		if id, ok := byCmd[fc]; ok {
			info[id].aliasableFootprint += sizeOf[resIdx]
		}
	}
	for resIdx, lc := range lastRef {
		if id, ok := byCmd[lc]; ok {
			info[id].aliasableFootprint -= sizeOf[resIdx]
		}
	}
}

// cmdDeclOf returns the CmdDecl that produced command node cmdID.
func (cs *compileState) cmdDeclOf(cmdID int) *CmdDecl {
	k := 0
	for i := range cs.in.Commands {
		if cs.in.Commands[i].Special != SpecialNone {
			continue
		}
		if k == cmdID {
			return &cs.in.Commands[i]
		}
		k++
	}
	return &CmdDecl{}
}

func (cs *compileState) touchesPersistentOrExternalWrite(nd *Node) bool {
	cd := cs.cmdDeclOf(nd.CmdID)
	for _, a := range cd.Accesses {
		if a.ResourceIndex < 0 || a.ResourceIndex >= len(cs.resources) {
			continue
		}
		r := &cs.resources[a.ResourceIndex]
		if !a.AccessAttr.IsReadOnly() && (r.Flags.has(FlagPersistent) || r.IsExternal) {
			return true
		}
	}
	return false
}

func (cs *compileState) touchResources(nd *Node, id NodeID) {
	cd := cs.cmdDeclOf(nd.CmdID)
	for _, a := range cd.Accesses {
		if a.ResourceIndex < 0 || a.ResourceIndex >= len(cs.resources) {
			continue
		}
		r := &cs.resources[a.ResourceIndex]
		r.scheduledRefs++
		r.mostRecentRef = id
	}
}

// applyAtomicSubgraphEdges adds the forced edges that keep nodes of an
// atomic subgraph scheduled contiguously (§4.4 "Setup").
func (cs *compileState) applyAtomicSubgraphEdges() {
	for sgID := range cs.subgraphs {
		sg := &cs.subgraphs[sgID]
		if !sg.Atomic || sg.BeginNode == NilNode || sg.EndNode == NilNode {
			continue
		}
		if sg.Parent != NilSubgraph && cs.subgraphs[sg.Parent].Atomic {
			psg := &cs.subgraphs[sg.Parent]
			cs.addEdge(psg.BeginNode, sg.BeginNode)
			cs.addEdge(sg.BeginNode, psg.EndNode)
		}
	}
	for i := range cs.nodes {
		nd := &cs.nodes[i]
		sgID := nd.Subgraph
		if sgID == NilSubgraph {
			continue
		}
		sg := cs.subgraphs[sgID]
		if !sg.Atomic {
			continue
		}
		if NodeID(i) != sg.BeginNode {
			cs.addEdge(sg.BeginNode, NodeID(i))
		}
		if NodeID(i) != sg.EndNode {
			cs.addEdge(NodeID(i), sg.EndNode)
		}
	}
}

// score computes the priority score for a ready candidate (§4.4
// "Scoring"). The factors are packed as bit fields into an int64,
// highest-priority factor in the highest bits: scope (1 bit), queue
// (2), barrier batching and memory saving (1 each, order set by
// PreferMemorySaving), workload grouping (1), work-type interleave (1)
// and program order or RNG (20), 27 bits in all.
func (cs *compileState) score(id NodeID, info []schedInfo, currQueue int, lastWasTransition bool, lastWorkload WorkloadType, haveLast bool, flags ScheduleFlags) int64 {
	nd := &cs.nodes[id]
	var s int64

	// Scope: prefer staying within the barrier scope / atomic subgraph
	// of the most recently scheduled node.
	s <<= 1
	if cs.inCurrentScope(id) {
		s |= 1
	}

	// Queue: prefer the current queue.
	s <<= 2
	switch {
	case nd.Kind != NodeCommand || info[id].preferredQueueMask&queueBit(currQueue) != 0:
		s |= 2
	case info[id].preferredQueueMask != 0:
		s |= 1
	}

	preferMem := flags.has(PreferMemorySaving)

	// Barrier batching: prefer matching transition-ness with the
	// previous node so transitions coalesce into one run.
	matches := (nd.Kind == NodeTransition) == lastWasTransition
	// Memory saving: a node that frees more aliasable footprint than
	// it consumes scores higher.
	memScore := info[id].aliasableFootprint < 0

	if preferMem {
		s = s<<1 | b2i(memScore)
		s = s<<1 | b2i(matches)
	} else {
		s = s<<1 | b2i(matches)
		s = s<<1 | b2i(memScore)
	}

	// Workload grouping.
	s <<= 1
	if haveLast && nd.Kind == NodeCommand {
		same := info[id].workloadType == lastWorkload
		if flags.has(WorkloadTypePipeliningAggressive) {
			same = !same
		}
		if flags.has(WorkloadTypePipeliningDisable) {
			same = false
		}
		if same {
			s |= 1
		}
	}

	// Work-type interleave: prefer graphics right after a transition
	// under aggressive pipelining.
	s <<= 1
	if lastWasTransition && nd.Kind == NodeCommand && info[id].workloadType == WorkloadGraphics &&
		flags.has(WorkloadTypePipeliningAggressive) {
		s |= 1
	}

	// Program order (or RNG under RandomOrder).
	s <<= 20
	if flags.has(RandomOrder) && cs.in.RNG != nil {
		s |= int64(cs.in.RNG.Uint32(1 << 20))
	} else {
		s |= int64(id) & ((1 << 20) - 1)
	}

	return s
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (cs *compileState) inCurrentScope(id NodeID) bool {
	if len(cs.scheduled) == 0 {
		return true
	}
	last := cs.scheduled[len(cs.scheduled)-1]
	return cs.nodes[id].BarrierScope == cs.nodes[last].BarrierScope &&
		cs.nodes[id].Subgraph == cs.nodes[last].Subgraph
}

// assignBatches forms the PREAMBLE/scheduled/POSTAMBLE runtime-command
// stream and, when async queues are enabled, splits it into per-queue
// batches with wait-fence bookkeeping (§4.4 "Batch formation").
func (cs *compileState) assignBatches(info []schedInfo) {
	cmds := make([]RuntimeCmdInfo, 0, len(cs.scheduled)+2)
	cmds = append(cmds, RuntimeCmdInfo{CmdOrTransitionID: CmdIDPreamble})
	for _, id := range cs.scheduled {
		nd := &cs.nodes[id]
		if nd.Kind == NodeTransition {
			cmds = append(cmds, RuntimeCmdInfo{CmdOrTransitionID: nd.TransitionID, IsTransition: true})
		} else {
			cmds = append(cmds, RuntimeCmdInfo{CmdOrTransitionID: nd.CmdID})
		}
	}
	cmds = append(cmds, RuntimeCmdInfo{CmdOrTransitionID: CmdIDPostamble})
	cs.runtimeCmds = cmds

	queueOf := make([]int, len(cs.scheduled))
	if !cs.in.EnableAsync {
		for i := range queueOf {
			queueOf[i] = 0
		}
		cs.queueOf = queueOf
		cs.batches = []CommandBatch{{QueueIndex: 0, CmdBegin: 0, NumCmds: len(cmds)}}
		return
	}

	q := 0
	for i, id := range cs.scheduled {
		nd := &cs.nodes[id]
		if nd.Kind == NodeCommand {
			pref := info[id].preferredQueueMask
			if pref != 0 && pref&queueBit(q) == 0 {
				q = firstQueueOf(pref)
			}
		}
		queueOf[i] = q
	}
	cs.queueOf = queueOf

	var batches []CommandBatch
	start := 0
	curQ := -1
	for i := range cs.scheduled {
		if queueOf[i] != curQ {
			if curQ != -1 {
				batches = append(batches, CommandBatch{QueueIndex: curQ, CmdBegin: start + 1, NumCmds: i - start})
			}
			start = i
			curQ = queueOf[i]
		}
	}
	if curQ != -1 {
		batches = append(batches, CommandBatch{QueueIndex: curQ, CmdBegin: start + 1, NumCmds: len(cs.scheduled) - start})
	}
	for i := range batches {
		batches[i].SignalFenceIndex = i
	}

	// batchOf[pos] is the index into batches that scheduled position pos
	// belongs to, used to turn cross-queue DAG edges into wait-fences.
	batchOf := make([]int, len(cs.scheduled))
	for bi, b := range batches {
		for pos := b.CmdBegin - 1; pos < b.CmdBegin-1+b.NumCmds; pos++ {
			batchOf[pos] = bi
		}
	}

	posOf := make(map[NodeID]int, len(cs.scheduled))
	for pos, id := range cs.scheduled {
		posOf[id] = pos
	}

	var waitFences []int
	for bi := range batches {
		seen := make(map[int]bool)
		b := &batches[bi]
		for pos := b.CmdBegin - 1; pos < b.CmdBegin-1+b.NumCmds; pos++ {
			id := cs.scheduled[pos]
			for _, e := range cs.nodes[id].inEdges {
				srcPos, ok := posOf[NodeID(e)]
				if !ok {
					continue // producer was dead-code eliminated
				}
				if srcBatch := batchOf[srcPos]; srcBatch != bi {
					seen[srcBatch] = true
				}
			}
		}
		begin := len(waitFences)
		for dep := range seen {
			waitFences = append(waitFences, batches[dep].SignalFenceIndex)
		}
		b.WaitFencesBegin = begin
		b.NumWaitFences = len(waitFences) - begin
	}

	cs.batches = batches
	cs.waitFences = waitFences
}
