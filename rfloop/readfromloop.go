// Copyright (c) 2023 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rfloop enumerates, for one read action, every legal assignment
// of candidate writes it may read from, as a sequence of
// subgraph.ReadFromSet values.
//
// Phase 1 walks upstream from the read along sb/asw edges, collecting every
// same-location write reachable that way. Phase 2 considers writes on other
// threads that are neither sequenced before nor after the read. Each
// phase-1 call to Next yields one subgraph.ReadFromSet holding one write
// per upstream region, each under its region's path condition; successive
// calls enumerate alternative assignments where more than one write is a
// legal source for the same region of exists(read). A phase-2 set holds a
// single write under exists(read)·exists(write).
//
// Two refinements are deliberately not implemented: splicing an
// already-resolved upstream read's own rf set into a later read's phase-1
// walk (it would require the driver to process reads in a fixed
// topological order and share loop state across them), and alternating
// opsem/rf reachability in phase 2 - reachability here follows opsem edges
// only, since rf edges are not fixed until a candidate is chosen.
package rfloop

import (
	"github.com/relaxedmm/opsem/boolalg"
	"github.com/relaxedmm/opsem/memory"
	"github.com/relaxedmm/opsem/opsemgraph"
	"github.com/relaxedmm/opsem/subgraph"
)

// region is one discovery path upstream of the read: every same-location
// write found along that path, nearest first, all sharing the same
// path-condition at time of discovery.
type region struct {
	cond  boolalg.Expression
	chain []memory.ActionID
}

// Loop drains the candidate rf-sources for a single read, one
// subgraph.ReadFromSet per call to Next.
type Loop struct {
	g        *opsemgraph.Graph
	read     memory.ActionID
	location memory.LocationID

	built bool

	regions     []region
	phase1Len   int
	phase1Index int

	phase2Writes []memory.ActionID
	phase2Index  int

	yielded bool
}

// New returns a Loop over read's candidate rf-sources. read must be a
// read-kind action (memory.Action.IsRead()); this is not re-validated here.
// The driver only passes actions selected by IsRead.
func New(g *opsemgraph.Graph, read memory.ActionID) *Loop {
	return &Loop{g: g, read: read, location: g.Action(read).Location}
}

// Next returns the next candidate ReadFromSet, or ok=false once every
// candidate has been yielded. A read with no candidate write at all yields
// a single empty set: the read reads an uninitialized location under its
// existence condition.
func (l *Loop) Next() (subgraph.ReadFromSet, bool) {
	if !l.built {
		l.build()
		l.built = true
	}

	for l.phase1Index < l.phase1Len {
		k := l.phase1Index
		l.phase1Index++
		set := l.phase1Set(k)
		if len(set.Writes) > 0 {
			l.yielded = true
			return set, true
		}
	}

	if l.phase2Index < len(l.phase2Writes) {
		w := l.phase2Writes[l.phase2Index]
		l.phase2Index++
		cond := l.g.Action(l.read).Exists.Multiply(l.g.Action(w).Exists)
		l.yielded = true
		return subgraph.ReadFromSet{Read: l.read, Writes: []subgraph.WriteChoice{{Write: w, Condition: cond}}}, true
	}

	if !l.yielded {
		// No candidate write was ever found: report the condition-zero rf
		// set exactly once, then stop.
		l.yielded = true
		return subgraph.ReadFromSet{Read: l.read, Writes: nil}, true
	}
	return subgraph.ReadFromSet{}, false
}

// phase1Set builds the k-th phase-1 combination: from each region, the
// write at min(k, len(region.chain)-1).
func (l *Loop) phase1Set(k int) subgraph.ReadFromSet {
	var writes []subgraph.WriteChoice
	for _, r := range l.regions {
		if len(r.chain) == 0 {
			continue
		}
		idx := k
		if idx >= len(r.chain) {
			idx = len(r.chain) - 1
		}
		writes = append(writes, subgraph.WriteChoice{Write: r.chain[idx], Condition: r.cond})
	}
	return subgraph.ReadFromSet{Read: l.read, Writes: writes}
}

func (l *Loop) build() {
	l.regions = collectRegions(l.g, l.read, l.location)
	for _, r := range l.regions {
		if len(r.chain) > l.phase1Len {
			l.phase1Len = len(r.chain)
		}
	}
	l.phase2Writes = collectUnsequencedWrites(l.g, l.read, l.location)
}

// collectRegions walks upstream from read along sb/asw, grouping every
// same-location write found by the path-condition in effect at the moment
// of discovery.
func collectRegions(g *opsemgraph.Graph, read memory.ActionID, loc memory.LocationID) []region {
	type found struct {
		cond  boolalg.Expression
		write memory.ActionID
	}
	var discovered []found
	visiting := make(map[memory.ActionID]bool)

	var walk func(node memory.ActionID, cond boolalg.Expression)
	walk = func(node memory.ActionID, cond boolalg.Expression) {
		if visiting[node] {
			return
		}
		visiting[node] = true
		defer func() { visiting[node] = false }()

		for _, pred := range g.IncomingSBASW(node) {
			newCond := cond.Multiply(pred.Condition)
			act := g.Action(pred.Other)
			if act.Location == loc && act.IsWrite() {
				discovered = append(discovered, found{cond: newCond, write: pred.Other})
			}
			walk(pred.Other, newCond)
		}
	}
	walk(read, boolalg.One())

	byCond := make(map[string]int)
	var regions []region
	for _, f := range discovered {
		key := f.cond.String()
		if idx, ok := byCond[key]; ok {
			regions[idx].chain = append(regions[idx].chain, f.write)
			continue
		}
		byCond[key] = len(regions)
		regions = append(regions, region{cond: f.cond, chain: []memory.ActionID{f.write}})
	}
	return regions
}

// collectUnsequencedWrites returns, in topological order, every write to
// loc on a thread other than read's whose opsem relation to read is
// unordered in both directions.
func collectUnsequencedWrites(g *opsemgraph.Graph, read memory.ActionID, loc memory.LocationID) []memory.ActionID {
	readAct := g.Action(read)
	order := g.TopologicalOrder()

	var out []memory.ActionID
	for _, a := range order {
		if a == read {
			continue
		}
		act := g.Action(a)
		if act.Location != loc || !act.IsWrite() {
			continue
		}
		if act.Thread == readAct.Thread {
			continue
		}
		if g.ReachableOpsem(read, a) || g.ReachableOpsem(a, read) {
			continue
		}
		out = append(out, a)
	}
	return out
}
