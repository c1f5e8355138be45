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

// Package memory holds the action-and-location data model: threads,
// locations and actions, plus the edges and endpoints that link them into
// an opsem graph. It deliberately carries no graph-traversal
// behavior of its own (that belongs to package opsemgraph, which owns
// slices of these types and wires them together) - values here are
// addressed by stable integer IDs into arena slices rather than by
// pointers.
package memory

import "github.com/relaxedmm/opsem/boolalg"

// ThreadID identifies a Thread within a Graph.
type ThreadID int

// LocationID identifies a Location within a Graph.
type LocationID int

// ActionID identifies an Action within a Graph.
type ActionID int

// EdgeID identifies an Edge within a Graph.
type EdgeID int

// NoThread is the zero value meaning "no parent thread".
const NoThread ThreadID = -1

// MainThread is the id of the program's single entry thread.
const MainThread ThreadID = 0

// LocationKind classifies a memory Location.
type LocationKind uint8

const (
	NonAtomicLocation LocationKind = iota + 1
	AtomicLocation
	MutexLocation
)

// ActionKind is the closed sum of memory-action shapes.
type ActionKind uint8

const (
	Lock ActionKind = iota + 1
	Unlock
	AtomicLoad
	AtomicStore
	AtomicRMW
	NonAtomicRead
	NonAtomicWrite
	Fence
)

// MemoryOrder is one of the C++11/14 memory orders. Consume is treated as
// Relaxed throughout this engine.
type MemoryOrder uint8

const (
	NoOrder MemoryOrder = iota
	Relaxed
	Consume
	Acquire
	Release
	AcqRel
	SeqCst
)

// IsAcquire reports whether this order provides acquire semantics.
func (o MemoryOrder) IsAcquire() bool {
	return o == Acquire || o == AcqRel || o == SeqCst
}

// IsRelease reports whether this order provides release semantics.
func (o MemoryOrder) IsRelease() bool {
	return o == Release || o == AcqRel || o == SeqCst
}

// EdgeType is one of the supported edge kinds. The engine only inspects a
// handful of predicates over these (IsOpsem, IsDirected); beyond that they
// are opaque tags.
type EdgeType uint8

const (
	SB  EdgeType = iota + 1 // sequenced-before
	ASW                     // additionally-synchronizes-with
	DD                      // data-dependency
	CD                      // control-dependency
	RF                      // reads-from
	MO                      // modification order
	SC                      // sequentially-consistent total order
	LO                      // lock order
	HB                      // happens-before (derived)
	VSE                     // visible side effect (derived)
	VSSES                   // visible sequence of side effects (derived)
	ITHB                    // inter-thread happens-before (derived)
	DOB                     // dependency-ordered-before (derived)
	CAD                     // carries-a-dependency (derived)
	SW                      // synchronizes-with (derived)
	HRS                     // head of release sequence (derived)
	RS                      // release sequence (derived)
	DR                      // data race (symmetric)
	UR                      // unsequenced race (symmetric)
)

// IsOpsem reports whether t is one of sb, asw, dd, cd - the operational
// semantics edges fixed by the program's control flow before the DFS runs.
func (t EdgeType) IsOpsem() bool {
	switch t {
	case SB, ASW, DD, CD:
		return true
	default:
		return false
	}
}

// IsDirected reports whether t is a directed edge kind, i.e. everything
// except the symmetric race edges.
func (t EdgeType) IsDirected() bool {
	return t != DR && t != UR
}

// Role classifies one EndPoint of a directed (or undirected) edge.
type Role uint8

const (
	Head Role = iota + 1
	Tail
	Undirected
)

// EndPoint is one edge incident at a node. Exactly one of
// the two EndPoints of a directed edge has OwnsEdge set; that EndPoint is
// responsible for the edge's lifetime (here: nothing needs to be freed
// explicitly since Edges live in Graph.edges, but OwnsEdge is kept to match
// the ownership model exactly and to let debugging code find the canonical
// "owning side" of an edge).
type EndPoint struct {
	Edge     EdgeID
	Role     Role
	Other    ActionID
	OwnsEdge bool
}

// Edge is a single graph edge, identified by id, typed, and carrying the
// Condition under which it is present in a given control-flow realization.
type Edge struct {
	ID        EdgeID
	Type      EdgeType
	Condition boolalg.Expression
}

// Thread is one thread of the analyzed program. The main thread has id 0;
// a thread is joined when its scope ends, and a parent may only terminate
// after every child it spawned is joined.
type Thread struct {
	ID       ThreadID
	Parent   ThreadID // NoThread if this is the main thread
	Children []ThreadID
	Joined   bool
}

// Location is a memory location of the analyzed program.
type Location struct {
	ID   LocationID
	Name string
	Kind LocationKind
}

// Action is a single memory action. Exists is recomputed by
// opsemgraph.Graph whenever an incoming sb/asw edge changes; callers should
// treat it as read-only outside of that recomputation.
type Action struct {
	ID       ActionID
	Thread   ThreadID
	Location LocationID
	Kind     ActionKind
	Order    MemoryOrder
	Exists   boolalg.Expression

	EndPoints []EndPoint

	// The conditions under which a value computation, respectively a side
	// effect, is sequenced before this action. Recomputed transitively by
	// opsemgraph.Graph's sequencedBefore propagation.
	SBBeforeValueComputation boolalg.Expression
	SBBeforeSideEffect       boolalg.Expression

	// PseudoValueComputation marks a node as sequenced before its own
	// pseudo value computation, the special case needed for pre-increment
	// and for assignments whose value is used.
	PseudoValueComputation bool
}

// ProvidesValueComputation reports whether this action, on its own, acts as
// a value-computation head: something that hands a value to its sequenced-
// after users. Atomic loads and RMWs, non-atomic reads, and actions
// explicitly flagged PseudoValueComputation all qualify.
func (a *Action) ProvidesValueComputation() bool {
	if a.PseudoValueComputation {
		return true
	}
	switch a.Kind {
	case AtomicLoad, AtomicRMW, NonAtomicRead:
		return true
	default:
		return false
	}
}

// ProvidesSideEffect reports whether this action, on its own, acts as a
// side-effect head: something that performs a visible write.
func (a *Action) ProvidesSideEffect() bool {
	switch a.Kind {
	case AtomicStore, AtomicRMW, NonAtomicWrite, Lock, Unlock:
		return true
	default:
		return false
	}
}

// IsWrite reports whether this action writes to its location at all
// (atomic or non-atomic).
func (a *Action) IsWrite() bool {
	switch a.Kind {
	case AtomicStore, AtomicRMW, NonAtomicWrite:
		return true
	default:
		return false
	}
}

// IsRead reports whether this action reads its location at all.
func (a *Action) IsRead() bool {
	switch a.Kind {
	case AtomicLoad, AtomicRMW, NonAtomicRead:
		return true
	default:
		return false
	}
}

// IsAtomic reports whether this action operates on an atomic location via
// an atomic operation.
func (a *Action) IsAtomic() bool {
	switch a.Kind {
	case AtomicLoad, AtomicStore, AtomicRMW:
		return true
	default:
		return false
	}
}

// MatchKind is the "requested type" parameter of Action.Matches.
type MatchKind uint8

const (
	MatchValueComputationHead MatchKind = iota + 1
	MatchSideEffectHead
	MatchHead
	MatchTail
	MatchAny
)

// Matches reports whether a itself is of the requested kind, and, if so,
// the expression under which a is "hidden" behind another action that
// already sequenced-before-provides the same kind. The evaluation-node
// tree lives outside this engine, so matching is flattened to Action
// granularity: each Action is its own minimal evaluation unit, and hiding
// falls back to the transitive SBBeforeSideEffect bookkeeping.
func (a *Action) Matches(kind MatchKind) (ok bool, hiding boolalg.Expression) {
	vc := a.ProvidesValueComputation()
	se := a.ProvidesSideEffect()
	switch kind {
	case MatchValueComputationHead:
		ok = vc
	case MatchSideEffectHead:
		ok = se
	case MatchHead:
		ok = vc || se
	case MatchTail, MatchAny:
		ok = true
	}
	if !ok {
		return false, boolalg.Zero()
	}
	if kind == MatchSideEffectHead || kind == MatchHead {
		return true, a.SBBeforeSideEffect
	}
	return true, boolalg.Zero()
}
