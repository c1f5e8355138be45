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

// Package subgraph provides the directed-subgraph view the consistency
// DFS runs over (a per-node adjacency list of one edge-type combination
// plus a validity condition) and the combinatorial machinery that turns
// per-read rf enumerations into per-location, and eventually
// per-candidate, subgraphs.
package subgraph

import (
	"github.com/relaxedmm/opsem/boolalg"
	"github.com/relaxedmm/opsem/memory"
)

// RFLocation is a dense index into the list of memory locations that have
// at least one rf edge in the current combination.
type RFLocation int

// Entry is one adjacency-list entry of a Directed subgraph.
type Entry struct {
	Other     memory.ActionID
	Type      memory.EdgeType
	Condition boolalg.Expression
}

// Directed stores, per node, the outgoing (and incoming) edges of some
// edge-type combination, plus an overall Valid expression under which this
// particular combinatorial choice holds.
type Directed struct {
	outgoing map[memory.ActionID][]Entry
	incoming map[memory.ActionID][]Entry
	Valid    boolalg.Expression
}

// NewDirected returns an empty Directed subgraph, valid unconditionally.
func NewDirected() *Directed {
	return &Directed{
		outgoing: make(map[memory.ActionID][]Entry),
		incoming: make(map[memory.ActionID][]Entry),
		Valid:    boolalg.One(),
	}
}

// AddEdge records one directed edge in the subgraph.
func (d *Directed) AddEdge(edgeType memory.EdgeType, from, to memory.ActionID, cond boolalg.Expression) {
	d.outgoing[from] = append(d.outgoing[from], Entry{Other: to, Type: edgeType, Condition: cond})
	d.incoming[to] = append(d.incoming[to], Entry{Other: from, Type: edgeType, Condition: cond})
}

// Outgoing returns n's outgoing edges, in insertion order; the DFS visits
// children in exactly this order.
func (d *Directed) Outgoing(n memory.ActionID) []Entry {
	return d.outgoing[n]
}

// Incoming returns n's incoming edges, in insertion order.
func (d *Directed) Incoming(n memory.ActionID) []Entry {
	return d.incoming[n]
}

// Nodes returns every node that has at least one outgoing edge recorded.
func (d *Directed) Nodes() []memory.ActionID {
	out := make([]memory.ActionID, 0, len(d.outgoing))
	for n := range d.outgoing {
		out = append(out, n)
	}
	return out
}

// Union merges several Directed subgraphs into a fresh one whose adjacency
// lists are the concatenation, in argument order, of the inputs'. The
// result's Valid is the product of the inputs' Valid.
func Union(subgraphs ...*Directed) *Directed {
	u := NewDirected()
	valid := boolalg.One()
	for _, s := range subgraphs {
		for n, entries := range s.outgoing {
			u.outgoing[n] = append(u.outgoing[n], entries...)
		}
		for n, entries := range s.incoming {
			u.incoming[n] = append(u.incoming[n], entries...)
		}
		valid = valid.Multiply(s.Valid)
	}
	u.Valid = valid
	return u
}

// WriteChoice is one (write, condition) pair inside a ReadFromSet.
type WriteChoice struct {
	Write     memory.ActionID
	Condition boolalg.Expression
}

// ReadFromSet is one candidate rf-source assignment for a single read: a
// set of writes the read may legally read from, each tagged with the
// condition under which it is the chosen source.
type ReadFromSet struct {
	Read   memory.ActionID
	Writes []WriteChoice
}

// TotalCondition sums the conditions of every write in the set; for a
// well-formed set it is equivalent to exists(Read).
func (s ReadFromSet) TotalCondition() boolalg.Expression {
	total := boolalg.Zero()
	for _, w := range s.Writes {
		total = total.Add(w.Condition)
	}
	return total
}

// AddTo records this set's rf edges (write -> read) into d.
func (s ReadFromSet) AddTo(d *Directed) {
	for _, w := range s.Writes {
		d.AddEdge(memory.RF, w.Write, s.Read, w.Condition)
	}
}

// LocationSubgraphs computes the location-level rf subgraphs: the
// cartesian product, across every read of one location, of that read's
// candidate ReadFromSets, producing one combined Directed subgraph per
// combination.
func LocationSubgraphs(perRead [][]ReadFromSet) []*Directed {
	combos := [][]ReadFromSet{{}}
	for _, options := range perRead {
		if len(options) == 0 {
			continue
		}
		next := make([][]ReadFromSet, 0, len(combos)*len(options))
		for _, combo := range combos {
			for _, opt := range options {
				extended := make([]ReadFromSet, len(combo)+1)
				copy(extended, combo)
				extended[len(combo)] = opt
				next = append(next, extended)
			}
		}
		combos = next
	}

	out := make([]*Directed, 0, len(combos))
	for _, combo := range combos {
		d := NewDirected()
		for _, set := range combo {
			set.AddTo(d)
		}
		out = append(out, d)
	}
	return out
}
