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

package consistency

import (
	"github.com/relaxedmm/opsem/boolalg"
	"github.com/relaxedmm/opsem/memory"
	"github.com/relaxedmm/opsem/opsemgraph"
)

// Propagator represents backtracking from child action C to current
// action N across one edge: the DFS is unwinding out of C's subtree and
// carrying C's surviving properties over to N.
type Propagator struct {
	g *opsemgraph.Graph

	Current   memory.ActionID
	Child     memory.ActionID
	EdgeType  memory.EdgeType
	Condition boolalg.Expression
}

func newPropagator(g *opsemgraph.Graph, current, child memory.ActionID, edgeType memory.EdgeType, cond boolalg.Expression) Propagator {
	return Propagator{g: g, Current: current, Child: child, EdgeType: edgeType, Condition: cond}
}

func (pr Propagator) currentAction() *memory.Action { return pr.g.Action(pr.Current) }
func (pr Propagator) childAction() *memory.Action   { return pr.g.Action(pr.Child) }

// rfAcqButNotRel reports whether this edge is rf, the child is an acquire,
// and the current action is not a release: an acquire reading from a
// non-release store, the situation in which the child's waiting properties
// must be wrapped into a release-sequence property instead of copied.
func (pr Propagator) rfAcqButNotRel() bool {
	if pr.EdgeType != memory.RF {
		return false
	}
	return pr.childAction().Order.IsAcquire() && !pr.currentAction().Order.IsRelease()
}

// rfRelAcq reports whether this edge is rf, the child is acquire and the
// current action is release: a directly synchronizing read.
func (pr Propagator) rfRelAcq() bool {
	if pr.EdgeType != memory.RF {
		return false
	}
	return pr.childAction().Order.IsAcquire() && pr.currentAction().Order.IsRelease()
}

// isWriteRelTo reports whether the current action is a release-or-stronger
// write to loc (RMW included).
func (pr Propagator) isWriteRelTo(loc memory.LocationID) bool {
	a := pr.currentAction()
	return a.Location == loc && a.IsWrite() && a.Order.IsRelease()
}

// isStoreTo reports whether the current action is a plain atomic store to
// loc (RMW excluded: an RMW is part of any release sequence regardless of
// its thread, so it never causes a transition).
func (pr Propagator) isStoreTo(loc memory.LocationID) bool {
	a := pr.currentAction()
	return a.Location == loc && a.Kind == memory.AtomicStore
}

// currentThread returns the owning thread of the current action.
func (pr Propagator) currentThread() memory.ThreadID {
	return pr.currentAction().Thread
}

// currentLocation returns the location of the current action; for an rf
// edge that is the location being read.
func (pr Propagator) currentLocation() memory.LocationID {
	return pr.currentAction().Location
}

// apply converts p as it crosses this edge, multiplying in the edge
// condition. It returns the transformed property and whether it survives
// the crossing. Wrapping across a non-synchronizing rf is not handled
// here: the caller detects rfAcqButNotRel and diverts every non-causal
// property into a fresh release-sequence property before apply is reached.
func (pr Propagator) apply(p Property) (Property, bool) {
	p.Condition = p.Condition.Multiply(pr.Condition)

	switch p.Kind {
	case CausalLoop:
		if pr.EdgeType == memory.RF && !pr.rfRelAcq() {
			// A causal loop may run through non-synchronizing rf edges of
			// at most one location; a second location breaks the loop.
			if p.HasLocation && p.Location != pr.currentLocation() {
				return Property{}, false
			}
			p.HasLocation = true
			p.Location = pr.currentLocation()
		}
		return p, true

	case ReadsFrom:
		if pr.currentAction().IsWrite() &&
			p.Location == pr.currentLocation() &&
			p.EndPoint != pr.Current {
			p.RFHidden = true
		}
		return p, true

	case ReleaseSequence:
		return pr.applyReleaseSequence(p), true

	default:
		return p, true
	}
}

// applyReleaseSequence advances the release-sequence state machine as the
// property crosses into the current action, walking upstream toward a
// release head:
//
//   - a release-or-stronger write to the sequence's location on the
//     sequence's own thread syncs it (Broken is left untouched - a broken
//     sequence that syncs is resolved, and discarded, by the caller);
//   - a plain (non-RMW) atomic store of any memory order to that location
//     on any *other* thread breaks it, dropping the pending properties for
//     good.
func (pr Propagator) applyReleaseSequence(p Property) Property {
	if !p.NotSyncedYet {
		return p
	}
	correctThread := pr.currentThread() == p.RSThread
	switch {
	case correctThread && pr.isWriteRelTo(p.Location):
		p.NotSyncedYet = false
	case !p.Broken && !correctThread && pr.isStoreTo(p.Location):
		p.Broken = true
		p.Pending = nil
	}
	return p
}
