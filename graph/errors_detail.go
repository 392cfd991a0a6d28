// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

import "fmt"

func errBadResourceIndex(i int) error {
	return fmt.Errorf("resource index %d out of bounds", i)
}

func errViewRangeExceedsResource(i int) error {
	return fmt.Errorf("view sub-range exceeds resource %d's extent", i)
}

func errIncompatibleViewFormat(i int) error {
	return fmt.Errorf("view format incompatible with resource %d (not mutable-format)", i)
}

func errUnbalancedSubgraphEnd() error {
	return fmt.Errorf("SUBGRAPH_END seen with an empty subgraph stack")
}

func errDependencyOrder(before, after int) error {
	return fmt.Errorf("dependency {before=%d, after=%d} violates before<after", before, after)
}

func errIncompatibleSameNodeAccess(resIdx int) error {
	return fmt.Errorf("resource %d: two incompatible accesses to the same overlapping range within one command", resIdx)
}
