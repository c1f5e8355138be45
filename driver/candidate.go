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

package driver

import (
	"fmt"

	"github.com/relaxedmm/opsem/boolalg"
	"github.com/relaxedmm/opsem/config"
	"github.com/relaxedmm/opsem/consistency"
	"github.com/relaxedmm/opsem/memory"
	"github.com/relaxedmm/opsem/opsemgraph"
	"github.com/relaxedmm/opsem/rfloop"
	"github.com/relaxedmm/opsem/subgraph"
)

// CapacityError is returned by Enumerate when the cartesian product of
// per-location rf choices and per-location mo orderings would exceed
// config.MaxCandidateExecutions. The candidate list is never cut short at
// that cap; an oversized program fails loudly instead. (The per-location
// moLimit on mo permutations is separate and reports no error; see permute.)
type CapacityError struct {
	Count int
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("driver: %d candidate executions exceeds the %d-candidate limit", e.Count, e.Limit)
}

// Verdict is the outcome of running the consistency engine over one
// candidate execution. Verdicts are plain data, never errors: an
// inconsistent candidate is a normal analysis result.
type Verdict struct {
	Admissible       bool
	Valid            boolalg.Expression
	InvalidCondition boolalg.Expression
	CausalLoop       boolalg.Expression
	HiddenVSE        boolalg.Expression
	BrokenRelease    boolalg.Expression
	Reason           string
}

// classify picks the short reason string shown for an inconsistent
// candidate: "causal loop", "hidden vse", "broken release sequence", in
// that priority order when more than one kind contributes to the same
// invalid condition.
func classify(causal, hidden, broken boolalg.Expression) string {
	switch {
	case !causal.IsZero():
		return "causal loop"
	case !hidden.IsZero():
		return "hidden vse"
	case !broken.IsZero():
		return "broken release sequence"
	default:
		return ""
	}
}

// axis is one dimension of the candidate cartesian product: a set of
// mutually exclusive subgraph choices for one location (its rf assignment,
// or, for an atomic location, one total modification order).
type axis struct {
	options []*subgraph.Directed
}

// perLocationReads groups every read action by the location it reads.
func perLocationReads(g *opsemgraph.Graph) map[memory.LocationID][]memory.ActionID {
	out := make(map[memory.LocationID][]memory.ActionID)
	for i := range g.Actions {
		a := g.Action(memory.ActionID(i))
		if a.IsRead() {
			out[a.Location] = append(out[a.Location], a.ID)
		}
	}
	return out
}

// perLocationWrites groups every write action by the location it writes.
func perLocationWrites(g *opsemgraph.Graph) map[memory.LocationID][]memory.ActionID {
	out := make(map[memory.LocationID][]memory.ActionID)
	for i := range g.Actions {
		a := g.Action(memory.ActionID(i))
		if a.IsWrite() {
			out[a.Location] = append(out[a.Location], a.ID)
		}
	}
	return out
}

// rfAxis builds the rf choice axis for one location: the cartesian product
// (via subgraph.LocationSubgraphs) of every read's rfloop.Loop output.
func rfAxis(g *opsemgraph.Graph, reads []memory.ActionID) axis {
	perRead := make([][]subgraph.ReadFromSet, 0, len(reads))
	for _, r := range reads {
		loop := rfloop.New(g, r)
		var sets []subgraph.ReadFromSet
		for {
			set, ok := loop.Next()
			if !ok {
				break
			}
			sets = append(sets, set)
		}
		perRead = append(perRead, sets)
	}
	return axis{options: subgraph.LocationSubgraphs(perRead)}
}

// moAxis builds the modification-order axis for one atomic location: one
// Directed subgraph of chained mo edges per permutation of its writes, up
// to moLimit permutations.
func moAxis(writes []memory.ActionID, moLimit int) axis {
	if len(writes) < 2 {
		d := subgraph.NewDirected()
		return axis{options: []*subgraph.Directed{d}}
	}
	var perms [][]memory.ActionID
	permute(writes, &perms, moLimit)

	out := make([]*subgraph.Directed, 0, len(perms))
	for _, p := range perms {
		d := subgraph.NewDirected()
		for i := 0; i+1 < len(p); i++ {
			d.AddEdge(memory.MO, p[i], p[i+1], boolalg.One())
		}
		out = append(out, d)
	}
	return axis{options: out}
}

// permute appends every permutation of items to out, stopping once out
// holds limit permutations. The remaining permutations are not generated,
// and no error reports that they were left out.
func permute(items []memory.ActionID, out *[][]memory.ActionID, limit int) {
	n := len(items)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	var rec func(prefix []memory.ActionID, remaining []int)
	rec = func(prefix []memory.ActionID, remaining []int) {
		if len(*out) >= limit {
			return
		}
		if len(remaining) == 0 {
			cp := make([]memory.ActionID, len(prefix))
			copy(cp, prefix)
			*out = append(*out, cp)
			return
		}
		for i, idx := range remaining {
			next := make([]int, 0, len(remaining)-1)
			next = append(next, remaining[:i]...)
			next = append(next, remaining[i+1:]...)
			rec(append(prefix, items[idx]), next)
		}
	}
	rec(nil, indices)
}

// Enumerate builds every candidate execution of g (cartesian product of
// per-location rf choices and per-atomic-location mo orderings), runs the
// consistency engine over each, and returns one Verdict per candidate, in a
// deterministic order (locations visited in ascending LocationID; the first
// axis is the most significant and the last varies fastest). moLimit bounds permutations per
// location; pass config.DefaultModificationOrderLimit for the default.
func Enumerate(b *GraphBuilder, moLimit int) ([]Verdict, error) {
	g := b.Graph
	reads := perLocationReads(g)
	writes := perLocationWrites(g)

	var axes []axis
	for loc := range g.Locations {
		id := memory.LocationID(loc)
		if rs, ok := reads[id]; ok && len(rs) > 0 {
			axes = append(axes, rfAxis(g, rs))
		}
		if g.Locations[loc].Kind == memory.AtomicLocation {
			if ws, ok := writes[id]; ok {
				axes = append(axes, moAxis(ws, moLimit))
			}
		}
	}

	combos := [][]*subgraph.Directed{{}}
	for _, ax := range axes {
		if len(ax.options) == 0 {
			continue
		}
		next := make([][]*subgraph.Directed, 0, len(combos)*len(ax.options))
		for _, combo := range combos {
			for _, opt := range ax.options {
				extended := make([]*subgraph.Directed, len(combo)+1)
				copy(extended, combo)
				extended[len(combo)] = opt
				next = append(next, extended)
				if len(next) > config.MaxCandidateExecutions {
					return nil, &CapacityError{Count: len(next), Limit: config.MaxCandidateExecutions}
				}
			}
		}
		combos = next
	}

	verdicts := make([]Verdict, 0, len(combos))
	for _, candidate := range combos {
		valid := boolalg.One()
		for _, s := range candidate {
			valid = valid.Multiply(s.Valid)
		}
		cg := consistency.NewGraph(g, candidate, b.ReleaseSeq)
		breakdown := cg.LoopBreakdown()
		v := Verdict{
			Valid:            valid,
			InvalidCondition: breakdown.Total,
			CausalLoop:       breakdown.CausalLoop,
			HiddenVSE:        breakdown.HiddenVSE,
			BrokenRelease:    breakdown.BrokenRelease,
			Admissible:       breakdown.Total.Multiply(valid).IsZero(),
		}
		v.Reason = classify(breakdown.CausalLoop, breakdown.HiddenVSE, breakdown.BrokenRelease)
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}
