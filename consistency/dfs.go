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

// Package consistency implements the depth-first consistency check over
// one candidate execution: the opsem graph combined with one chosen set of
// rf/mo/sc subgraphs. The DFS walks the combined graph, propagating
// causal-loop, reads-from and release-sequence properties upstream as it
// backtracks, and accumulates the boolean condition under which the
// candidate execution is inconsistent.
package consistency

import (
	"github.com/relaxedmm/opsem/boolalg"
	"github.com/relaxedmm/opsem/memory"
	"github.com/relaxedmm/opsem/opsemgraph"
	"github.com/relaxedmm/opsem/releaseseq"
	"github.com/relaxedmm/opsem/subgraph"
)

const (
	colorFollowed  = 0
	colorCycle     = 1
	colorProcessed = 2
)

// Graph drives the consistency DFS for one candidate execution. After a
// run, Reset allows reusing the same Graph (and its node storage) for the
// next candidate without touching every node: colors are encoded relative
// to a generation counter that Reset simply advances.
type Graph struct {
	opsem      *opsemgraph.Graph
	candidate  []*subgraph.Directed
	releaseSeq *releaseseq.Registry
	sequence   map[memory.ActionID]int

	generation int
	state      []int
	properties []*Properties

	loopCondition boolalg.Expression
	causal        boolalg.Expression
	hiddenVSE     boolalg.Expression
	brokenRelease boolalg.Expression
}

// Breakdown splits an accumulated invalidating condition by the property
// kind that produced it. Total is the sum of the other three.
type Breakdown struct {
	Total         boolalg.Expression
	CausalLoop    boolalg.Expression
	HiddenVSE     boolalg.Expression
	BrokenRelease boolalg.Expression
}

// NewGraph returns a consistency checker over opsem combined with the
// given candidate rf/mo/sc subgraphs. The DFS follows edges of the opsem
// graph first, then of each subgraph in the order given here. releaseSeq
// names release sequences discovered while unwrapping synced
// release-sequence properties.
func NewGraph(opsem *opsemgraph.Graph, candidate []*subgraph.Directed, releaseSeq *releaseseq.Registry) *Graph {
	n := len(opsem.Actions)
	g := &Graph{
		opsem:      opsem,
		candidate:  candidate,
		releaseSeq: releaseSeq,
		sequence:   opsem.SequenceNumbers(),
		generation: 1,
		state:      make([]int, n),
		properties: make([]*Properties, n),

		loopCondition: boolalg.Zero(),
		causal:        boolalg.Zero(),
		hiddenVSE:     boolalg.Zero(),
		brokenRelease: boolalg.Zero(),
	}
	for i := range g.properties {
		g.properties[i] = NewProperties()
	}
	return g
}

// LoopDetected runs the DFS and returns the condition under which the
// candidate execution is inconsistent, then resets for the next candidate.
func (g *Graph) LoopDetected() boolalg.Expression {
	return g.LoopBreakdown().Total
}

// LoopBreakdown is LoopDetected, additionally classifying the accumulated
// condition by which kind of property invalidated the execution.
func (g *Graph) LoopBreakdown() Breakdown {
	g.runDFS()
	result := Breakdown{
		Total:         g.loopCondition,
		CausalLoop:    g.causal,
		HiddenVSE:     g.hiddenVSE,
		BrokenRelease: g.brokenRelease,
	}
	g.Reset()
	return result
}

// Reset starts a fresh generation. Node colors are invalidated wholesale
// by advancing the generation counter; no per-node storage is touched.
func (g *Graph) Reset() {
	g.generation += 3
	g.loopCondition = boolalg.Zero()
	g.causal = boolalg.Zero()
	g.hiddenVSE = boolalg.Zero()
	g.brokenRelease = boolalg.Zero()
	for i := range g.properties {
		g.properties[i] = NewProperties()
	}
}

func (g *Graph) colorOf(n memory.ActionID) (state int, isSet bool) {
	s := g.state[n]
	if s < g.generation {
		return 0, false
	}
	return s - g.generation, true
}

func (g *Graph) setColor(n memory.ActionID, c int) {
	g.state[n] = g.generation + c
}

func (g *Graph) isFollowed(n memory.ActionID) bool {
	state, visited := g.colorOf(n)
	return visited && state == colorFollowed
}

// runDFS starts the search at every not-yet-visited root, in topological
// order. The program's entry node reaches every other node in a fully
// wired graph, so usually the first dfs call covers everything; the loop
// picks up secondary threads that a candidate leaves unconnected (no asw
// edge into them).
func (g *Graph) runDFS() {
	order := g.opsem.TopologicalOrder()
	for _, n := range order {
		if _, visited := g.colorOf(n); !visited {
			g.dfs(n)
		}
	}
}

type outEdge struct {
	other memory.ActionID
	typ   memory.EdgeType
	cond  boolalg.Expression
}

func (g *Graph) outgoing(n memory.ActionID) []outEdge {
	var out []outEdge
	for _, e := range g.opsem.OutgoingOpsemEdges(n) {
		out = append(out, outEdge{other: e.Other, typ: e.Type, cond: e.Condition})
	}
	for _, s := range g.candidate {
		for _, e := range s.Outgoing(n) {
			out = append(out, outEdge{other: e.Other, typ: e.Type, cond: e.Condition})
		}
	}
	return out
}

// dfs visits n: follows each outgoing edge, merges the surviving
// properties of each child back into n, resolves release sequences at n,
// applies write-hiding, seeds n's own incoming-rf properties, and finally
// resolves (and classifies) every property whose end point is n itself.
// It returns the condition under which some cycle runs through n, which
// the caller folds into its own bookkeeping.
func (g *Graph) dfs(n memory.ActionID) boolalg.Expression {
	g.setColor(n, colorFollowed)
	events := boolalg.Zero()
	pending := NewProperties()

	for _, e := range g.outgoing(n) {
		c := e.other
		if state, visited := g.colorOf(c); visited {
			switch state {
			case colorProcessed:
				if g.properties[c].IsEmpty() {
					continue
				}
				g.mergeChild(n, c, e, pending)
			case colorCycle:
				g.mergeChild(n, c, e, pending)
			case colorFollowed:
				// A back edge: the cycle closes at c.
				events = events.Add(e.cond)
				pending.Add(Property{Kind: CausalLoop, EndPoint: c, Condition: e.cond})
			}
			continue
		}
		childEvents := g.dfs(c)
		if !childEvents.IsZero() {
			events = events.Add(childEvents)
		}
		g.mergeChild(n, c, e, pending)
	}

	pending = g.resolveReleaseSequences(n, pending)
	pending = g.hideWrites(n, pending)
	// Seed n's own incoming rf properties after hiding has run, so an RMW
	// (simultaneously a read and a write of the same location) never hides
	// the very read it performs.
	g.seedReadsFrom(n, pending)

	invalidating := boolalg.Zero()
	kept := NewProperties()
	for _, p := range pending.Entries() {
		if p.EndPoint != n || p.Kind == ReleaseSequence {
			kept.Add(p)
			continue
		}
		events = events.Add(p.Condition)
		if p.isInvalidating() {
			invalidating = invalidating.Add(p.Condition)
			switch p.Kind {
			case CausalLoop:
				g.causal = g.causal.Add(p.Condition)
			case ReadsFrom:
				g.hiddenVSE = g.hiddenVSE.Add(p.Condition)
			}
		}
	}
	g.loopCondition = g.loopCondition.Add(invalidating)

	g.properties[n] = kept
	if kept.IsEmpty() {
		g.setColor(n, colorProcessed)
	} else {
		g.setColor(n, colorCycle)
	}
	return events
}

// seedReadsFrom creates, for every incoming rf edge at n, a fresh
// reads-from property with the rf source write as its end point. The
// property travels upstream from the read looking for that write and is
// marked hidden by any closer same-location write it crosses on the way.
func (g *Graph) seedReadsFrom(n memory.ActionID, pending *Properties) {
	loc := g.opsem.Action(n).Location
	for _, s := range g.candidate {
		for _, in := range s.Incoming(n) {
			if in.Type != memory.RF {
				continue
			}
			pending.Add(Property{
				Kind:        ReadsFrom,
				EndPoint:    in.Other,
				HasLocation: true,
				Location:    loc,
				Condition:   in.Condition,
			})
		}
	}
}

// mergeChild propagates c's properties across edge e back into n's
// pending set. Across a non-synchronizing rf edge (an acquire reading
// from a non-release store), every property except causal loops is
// wrapped into a single fresh release-sequence property instead of being
// copied: those properties may only continue upstream if the store turns
// out to sit inside an unbroken release sequence.
func (g *Graph) mergeChild(n, c memory.ActionID, e outEdge, pending *Properties) {
	pr := newPropagator(g.opsem, n, c, e.typ, e.cond)

	wrapping := pr.rfAcqButNotRel()
	var wrapped []Property

	for _, p := range g.properties[c].Entries() {
		if !g.isRelevant(p) {
			continue
		}
		if wrapping && p.Kind != CausalLoop {
			wrapped = append(wrapped, p)
			continue
		}
		converted, keep := pr.apply(p)
		if !keep {
			continue
		}
		pending.Add(converted)
	}

	if wrapping && len(wrapped) > 0 {
		pending.Add(Property{
			Kind:         ReleaseSequence,
			EndPoint:     c,
			Condition:    e.cond,
			HasLocation:  true,
			Location:     pr.currentLocation(),
			NotSyncedYet: true,
			RSThread:     pr.currentThread(),
			RSEnd:        g.sequence[n],
			Pending:      wrapped,
		})
	}
}

// isRelevant reports whether p is still worth copying from a child into
// node n. A causal loop is dead once its end point is no longer on the
// open DFS path; a broken release sequence that nevertheless synced will
// never unwrap and is dropped at the sync site instead (see
// resolveReleaseSequences); everything else stays live.
func (g *Graph) isRelevant(p Property) bool {
	switch p.Kind {
	case CausalLoop:
		// n itself is followed while its children are being merged, so a
		// loop closing exactly at n stays relevant too.
		return g.isFollowed(p.EndPoint)
	default:
		return true
	}
}

// resolveReleaseSequences drains every release-sequence property that
// synced at n (n is then the release write heading the candidate
// sequence). An unbroken sequence unwraps: it is named by a fresh
// registry variable, and its pending properties re-enter the node with
// their conditions multiplied by the sequence's condition and that
// variable. A broken sequence means the acquire's synchronization never
// happens; its condition is recorded as invalidating the execution.
func (g *Graph) resolveReleaseSequences(n memory.ActionID, pending *Properties) *Properties {
	kept := NewProperties()
	var unwrapped []Property
	for _, p := range pending.Entries() {
		if p.Kind != ReleaseSequence || p.NotSyncedYet {
			kept.Add(p)
			continue
		}
		if p.Broken {
			g.brokenRelease = g.brokenRelease.Add(p.Condition)
			g.loopCondition = g.loopCondition.Add(p.Condition)
			continue
		}
		rs, err := g.releaseSeq.Lookup(int(p.Location), releaseseq.SequenceNumber(g.sequence[n]), releaseseq.SequenceNumber(p.RSEnd))
		if err != nil {
			panic("consistency: release sequence registry capacity exceeded: " + err.Error())
		}
		factor := p.Condition.Multiply(rs.Holds())
		for _, pend := range p.Pending {
			pend.Condition = pend.Condition.Multiply(factor)
			unwrapped = append(unwrapped, pend)
		}
	}
	for _, p := range unwrapped {
		kept.Add(p)
	}
	return kept
}

// hideWrites marks, when n writes to a location L, every reads-from (and
// location-pinned causal-loop) property on L as hidden, excluding
// properties whose end point is n itself: the chosen source write does
// not hide its own read.
func (g *Graph) hideWrites(n memory.ActionID, pending *Properties) *Properties {
	act := g.opsem.Action(n)
	if !act.IsWrite() {
		return pending
	}
	loc := act.Location
	out := NewProperties()
	for _, p := range pending.Entries() {
		if p.EndPoint != n && p.HasLocation && p.Location == loc {
			switch p.Kind {
			case ReadsFrom:
				p.RFHidden = true
			case CausalLoop:
				p.Hidden = true
			}
		}
		out.Add(p)
	}
	return out
}
