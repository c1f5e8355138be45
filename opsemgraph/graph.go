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

// Package opsemgraph implements the opsem graph: the arena that owns
// Threads, Locations and Actions, the edges linking them, and the
// existence-expression propagation that fires whenever a new sb/asw edge
// is wired in.
package opsemgraph

import (
	"fmt"

	"github.com/relaxedmm/opsem/boolalg"
	"github.com/relaxedmm/opsem/memory"
)

// Graph is the arena-allocated opsem graph: actions and edges are owned
// once, by stable integer index, and endpoints live inline on each Action.
type Graph struct {
	Registry  *boolalg.Registry
	Threads   []memory.Thread
	Locations []memory.Location
	Actions   []memory.Action
	Edges     []memory.Edge
}

// New returns an empty Graph using the given variable registry.
func New(registry *boolalg.Registry) *Graph {
	return &Graph{Registry: registry}
}

// NewThread allocates a new Thread. The main thread is created by the
// driver with hasParent=false and gets ThreadID 0 by convention.
func (g *Graph) NewThread(parent memory.ThreadID, hasParent bool) memory.ThreadID {
	id := memory.ThreadID(len(g.Threads))
	p := memory.NoThread
	if hasParent {
		p = parent
	}
	g.Threads = append(g.Threads, memory.Thread{ID: id, Parent: p})
	if hasParent {
		g.Threads[p].Children = append(g.Threads[p].Children, id)
	}
	return id
}

// Join marks a thread as joined. A parent may only terminate after all
// children it spawned are joined; callers (the driver) are expected to
// check AllChildrenJoined before closing out a parent.
func (g *Graph) Join(t memory.ThreadID) {
	g.Threads[t].Joined = true
}

// AllChildrenJoined reports whether every child spawned by t has been
// joined.
func (g *Graph) AllChildrenJoined(t memory.ThreadID) bool {
	for _, c := range g.Threads[t].Children {
		if !g.Threads[c].Joined {
			return false
		}
	}
	return true
}

// NewLocation allocates a new memory Location.
func (g *Graph) NewLocation(name string, kind memory.LocationKind) memory.LocationID {
	id := memory.LocationID(len(g.Locations))
	g.Locations = append(g.Locations, memory.Location{ID: id, Name: name, Kind: kind})
	return id
}

// NewAction allocates a new Action with no incoming edges yet. An action
// with no incoming sb/asw exists unconditionally, modulo existCondition:
// the product of the branch literals active at the point of creation.
func (g *Graph) NewAction(thread memory.ThreadID, loc memory.LocationID, kind memory.ActionKind, order memory.MemoryOrder, existCondition boolalg.Expression) memory.ActionID {
	id := memory.ActionID(len(g.Actions))
	g.Actions = append(g.Actions, memory.Action{
		ID:                       id,
		Thread:                   thread,
		Location:                 loc,
		Kind:                     kind,
		Order:                    order,
		Exists:                   existCondition,
		SBBeforeValueComputation: boolalg.Zero(),
		SBBeforeSideEffect:       boolalg.Zero(),
	})
	return id
}

// Action returns a pointer to the action with the given id, for read access
// and for the few mutations (e.g. PseudoValueComputation) callers need to
// make directly.
func (g *Graph) Action(id memory.ActionID) *memory.Action {
	return &g.Actions[id]
}

// AddEdge wires a new edge of the given type from tail to head with the
// given condition:
//  1. allocate the Edge
//  2. append a tail EndPoint to `tail` (not owning)
//  3. append a head EndPoint to `head` (owning)
//  4. if the edge is sb or asw: update head's existence, and if sb,
//     propagate the sequenced-before/after bookkeeping.
func (g *Graph) AddEdge(edgeType memory.EdgeType, tail, head memory.ActionID, condition boolalg.Expression) memory.EdgeID {
	id := memory.EdgeID(len(g.Edges))
	g.Edges = append(g.Edges, memory.Edge{ID: id, Type: edgeType, Condition: condition})

	g.Actions[tail].EndPoints = append(g.Actions[tail].EndPoints, memory.EndPoint{
		Edge: id, Role: memory.Tail, Other: head, OwnsEdge: false,
	})
	g.Actions[head].EndPoints = append(g.Actions[head].EndPoints, memory.EndPoint{
		Edge: id, Role: memory.Head, Other: tail, OwnsEdge: true,
	})

	if edgeType == memory.SB || edgeType == memory.ASW {
		g.updateExists(head)
		if edgeType == memory.SB {
			g.sequencedBefore(tail)
		}
	}
	return id
}

// updateExists recomputes Exists for action n as the disjunction, over
// every incoming sb/asw head-endpoint, of edge.condition ∧ source.Exists.
// If the recomputed value is not equivalent to the previous one, it
// propagates to every node for which n is an sb-tail.
func (g *Graph) updateExists(n memory.ActionID) {
	act := &g.Actions[n]
	newExists := boolalg.Zero()
	hasIncoming := false
	for _, ep := range act.EndPoints {
		if ep.Role != memory.Head {
			continue
		}
		edge := g.Edges[ep.Edge]
		if edge.Type != memory.SB && edge.Type != memory.ASW {
			continue
		}
		hasIncoming = true
		source := g.Actions[ep.Other]
		newExists = newExists.Add(edge.Condition.Multiply(source.Exists))
	}
	if !hasIncoming {
		// An action with no incoming sb/asw edges exists unconditionally.
		// NewAction already seeded Exists with the branch-literal product
		// at creation time; nothing to recompute.
		return
	}

	changed := !newExists.Equivalent(act.Exists)
	act.Exists = newExists
	if !changed {
		return
	}
	// Propagate to every sb-tail neighbor: nodes c such that n --sb--> c.
	for _, ep := range act.EndPoints {
		if ep.Role != memory.Tail {
			continue
		}
		edge := g.Edges[ep.Edge]
		if edge.Type != memory.SB {
			continue
		}
		g.updateExists(ep.Other)
	}
}

// sequencedBefore recomputes SBBeforeValueComputation/SBBeforeSideEffect
// for action n and recurses upstream onto sb-heads when either value
// changes.
func (g *Graph) sequencedBefore(n memory.ActionID) {
	act := &g.Actions[n]
	newVC := boolalg.Zero()
	newSE := boolalg.Zero()
	for _, ep := range act.EndPoints {
		if ep.Role != memory.Tail {
			continue
		}
		edge := g.Edges[ep.Edge]
		if edge.Type != memory.SB {
			continue
		}
		neighbor := &g.Actions[ep.Other]
		newVC = newVC.Add(providesKind(neighbor, true).Multiply(edge.Condition))
		newSE = newSE.Add(providesKind(neighbor, false).Multiply(edge.Condition))
	}

	changed := !newVC.Equivalent(act.SBBeforeValueComputation) || !newSE.Equivalent(act.SBBeforeSideEffect)
	act.SBBeforeValueComputation = newVC
	act.SBBeforeSideEffect = newSE
	if !changed {
		return
	}
	for _, ep := range act.EndPoints {
		if ep.Role != memory.Head {
			continue
		}
		edge := g.Edges[ep.Edge]
		if edge.Type != memory.SB {
			continue
		}
		g.sequencedBefore(ep.Other)
	}
}

// providesKind implements the cross-wired "provides" rule: what a
// side-effect node provides as a value computation is whatever is
// sequenced before it (a side effect never is a value computation head
// itself), and symmetrically.
func providesKind(n *memory.Action, valueComputation bool) boolalg.Expression {
	if valueComputation {
		if n.ProvidesValueComputation() {
			return boolalg.One()
		}
		return n.SBBeforeValueComputation
	}
	if n.ProvidesSideEffect() {
		return boolalg.One()
	}
	return n.SBBeforeSideEffect
}

// OutgoingOpsem returns the heads of every opsem-typed outgoing edge from
// n (sb, asw, dd, cd), in EndPoint insertion order.
func (g *Graph) OutgoingOpsem(n memory.ActionID) []memory.ActionID {
	var out []memory.ActionID
	for _, ep := range g.Actions[n].EndPoints {
		if ep.Role != memory.Tail {
			continue
		}
		if !g.Edges[ep.Edge].Type.IsOpsem() {
			continue
		}
		out = append(out, ep.Other)
	}
	return out
}

// IncomingOpsem returns the tails of every opsem-typed incoming edge to n.
func (g *Graph) IncomingOpsem(n memory.ActionID) []memory.ActionID {
	var out []memory.ActionID
	for _, ep := range g.Actions[n].EndPoints {
		if ep.Role != memory.Head {
			continue
		}
		if !g.Edges[ep.Edge].Type.IsOpsem() {
			continue
		}
		out = append(out, ep.Other)
	}
	return out
}

// SBASWPredecessor is one sb/asw incoming edge resolved to its source
// action and the condition under which that edge fires.
type SBASWPredecessor struct {
	Other     memory.ActionID
	Type      memory.EdgeType
	Condition boolalg.Expression
}

// IncomingSBASW returns every sb/asw predecessor of n, in EndPoint
// insertion order, for use by the read-from loop's upstream walk.
func (g *Graph) IncomingSBASW(n memory.ActionID) []SBASWPredecessor {
	var out []SBASWPredecessor
	for _, ep := range g.Actions[n].EndPoints {
		if ep.Role != memory.Head {
			continue
		}
		edge := g.Edges[ep.Edge]
		if edge.Type != memory.SB && edge.Type != memory.ASW {
			continue
		}
		out = append(out, SBASWPredecessor{Other: ep.Other, Type: edge.Type, Condition: edge.Condition})
	}
	return out
}

// OpsemEdge is one outgoing opsem edge resolved to its destination action
// and the condition under which it fires.
type OpsemEdge struct {
	Other     memory.ActionID
	Type      memory.EdgeType
	Condition boolalg.Expression
}

// OutgoingOpsemEdges returns every opsem-typed (sb, asw, dd, cd) outgoing
// edge from n, with conditions, in EndPoint insertion order.
func (g *Graph) OutgoingOpsemEdges(n memory.ActionID) []OpsemEdge {
	var out []OpsemEdge
	for _, ep := range g.Actions[n].EndPoints {
		if ep.Role != memory.Tail {
			continue
		}
		edge := g.Edges[ep.Edge]
		if !edge.Type.IsOpsem() {
			continue
		}
		out = append(out, OpsemEdge{Other: ep.Other, Type: edge.Type, Condition: edge.Condition})
	}
	return out
}

// EdgeBetween returns the id of the first edge of the given type whose
// tail/head endpoints are (from, to), or false if none exists.
func (g *Graph) EdgeBetween(edgeType memory.EdgeType, from, to memory.ActionID) (memory.EdgeID, bool) {
	for _, ep := range g.Actions[from].EndPoints {
		if ep.Role != memory.Tail || ep.Other != to {
			continue
		}
		if g.Edges[ep.Edge].Type == edgeType {
			return ep.Edge, true
		}
	}
	return 0, false
}

// String renders a compact summary of the graph for debugging.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph{threads:%d locations:%d actions:%d edges:%d}",
		len(g.Threads), len(g.Locations), len(g.Actions), len(g.Edges))
}
