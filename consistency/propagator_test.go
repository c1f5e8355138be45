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
	"testing"

	"github.com/relaxedmm/opsem/boolalg"
	"github.com/relaxedmm/opsem/memory"
	"github.com/relaxedmm/opsem/opsemgraph"
	"github.com/stretchr/testify/require"
)

type propagatorFixture struct {
	g       *opsemgraph.Graph
	x, y    memory.LocationID
	t1, t2  memory.ThreadID
}

func newPropagatorFixture(t *testing.T) *propagatorFixture {
	t.Helper()
	g := opsemgraph.New(boolalg.NewRegistry())
	f := &propagatorFixture{g: g}
	f.t1 = g.NewThread(memory.NoThread, false)
	f.t2 = g.NewThread(f.t1, true)
	f.x = g.NewLocation("x", memory.AtomicLocation)
	f.y = g.NewLocation("y", memory.AtomicLocation)
	return f
}

func (f *propagatorFixture) action(thread memory.ThreadID, loc memory.LocationID, kind memory.ActionKind, order memory.MemoryOrder) memory.ActionID {
	return f.g.NewAction(thread, loc, kind, order, boolalg.One())
}

func TestPropagator_RFPredicates(t *testing.T) {
	f := newPropagatorFixture(t)
	relStore := f.action(f.t1, f.y, memory.AtomicStore, memory.Release)
	rlxStore := f.action(f.t1, f.y, memory.AtomicStore, memory.Relaxed)
	acqLoad := f.action(f.t2, f.y, memory.AtomicLoad, memory.Acquire)
	rlxLoad := f.action(f.t2, f.y, memory.AtomicLoad, memory.Relaxed)

	// Release store read by acquire load: synchronizing.
	pr := newPropagator(f.g, relStore, acqLoad, memory.RF, boolalg.One())
	require.True(t, pr.rfRelAcq())
	require.False(t, pr.rfAcqButNotRel())

	// Relaxed store read by acquire load: wrapping situation.
	pr = newPropagator(f.g, rlxStore, acqLoad, memory.RF, boolalg.One())
	require.False(t, pr.rfRelAcq())
	require.True(t, pr.rfAcqButNotRel())

	// Relaxed load never synchronizes.
	pr = newPropagator(f.g, relStore, rlxLoad, memory.RF, boolalg.One())
	require.False(t, pr.rfRelAcq())
	require.False(t, pr.rfAcqButNotRel())

	// A non-rf edge is never either.
	pr = newPropagator(f.g, rlxStore, acqLoad, memory.SB, boolalg.One())
	require.False(t, pr.rfRelAcq())
	require.False(t, pr.rfAcqButNotRel())
}

func TestPropagator_WritePredicates(t *testing.T) {
	f := newPropagatorFixture(t)
	relStore := f.action(f.t1, f.y, memory.AtomicStore, memory.Release)
	relRMW := f.action(f.t1, f.y, memory.AtomicRMW, memory.AcqRel)
	rlxStore := f.action(f.t1, f.y, memory.AtomicStore, memory.Relaxed)
	rlxRMW := f.action(f.t2, f.y, memory.AtomicRMW, memory.Relaxed)
	child := f.action(f.t2, f.y, memory.AtomicLoad, memory.Acquire)

	pr := newPropagator(f.g, relStore, child, memory.SB, boolalg.One())
	require.True(t, pr.isWriteRelTo(f.y))
	require.False(t, pr.isWriteRelTo(f.x))
	require.True(t, pr.isStoreTo(f.y))

	// A release RMW counts as a release write.
	pr = newPropagator(f.g, relRMW, child, memory.SB, boolalg.One())
	require.True(t, pr.isWriteRelTo(f.y))

	// A relaxed store is a plain store; a relaxed RMW is neither.
	pr = newPropagator(f.g, rlxStore, child, memory.SB, boolalg.One())
	require.False(t, pr.isWriteRelTo(f.y))
	require.True(t, pr.isStoreTo(f.y))

	pr = newPropagator(f.g, rlxRMW, child, memory.SB, boolalg.One())
	require.False(t, pr.isWriteRelTo(f.y))
	require.False(t, pr.isStoreTo(f.y))
}

func TestPropagator_CausalLoopLocationPinning(t *testing.T) {
	f := newPropagatorFixture(t)
	storeX := f.action(f.t1, f.x, memory.AtomicStore, memory.Relaxed)
	loadX := f.action(f.t2, f.x, memory.AtomicLoad, memory.Relaxed)
	storeY := f.action(f.t1, f.y, memory.AtomicStore, memory.Relaxed)
	loadY := f.action(f.t2, f.y, memory.AtomicLoad, memory.Relaxed)

	loop := Property{Kind: CausalLoop, EndPoint: loadX, Condition: boolalg.One()}

	// First non-synchronizing rf crossing pins the loop to that location.
	pr := newPropagator(f.g, storeX, loadX, memory.RF, boolalg.One())
	converted, keep := pr.apply(loop)
	require.True(t, keep)
	require.True(t, converted.HasLocation)
	require.Equal(t, f.x, converted.Location)

	// Crossing another non-synchronizing rf for the same location is fine.
	pr = newPropagator(f.g, storeX, loadX, memory.RF, boolalg.One())
	converted, keep = pr.apply(converted)
	require.True(t, keep)

	// A different location breaks the loop.
	pr = newPropagator(f.g, storeY, loadY, memory.RF, boolalg.One())
	_, keep = pr.apply(converted)
	require.False(t, keep)
}

func TestPropagator_ReadsFromHiding(t *testing.T) {
	f := newPropagatorFixture(t)
	w1 := f.action(f.t1, f.x, memory.AtomicStore, memory.Relaxed)
	w2 := f.action(f.t1, f.x, memory.AtomicStore, memory.Relaxed)
	rd := f.action(f.t1, f.x, memory.AtomicLoad, memory.Relaxed)

	p := Property{Kind: ReadsFrom, EndPoint: w1, HasLocation: true, Location: f.x, Condition: boolalg.One()}

	// Crossing into an intermediate same-location write hides the source.
	pr := newPropagator(f.g, w2, rd, memory.SB, boolalg.One())
	converted, keep := pr.apply(p)
	require.True(t, keep)
	require.True(t, converted.RFHidden)

	// Crossing into the end point itself does not.
	p.RFHidden = false
	pr = newPropagator(f.g, w1, rd, memory.SB, boolalg.One())
	converted, keep = pr.apply(p)
	require.True(t, keep)
	require.False(t, converted.RFHidden)
}

func TestPropagator_ReleaseSequenceTransitions(t *testing.T) {
	f := newPropagatorFixture(t)
	relT1 := f.action(f.t1, f.y, memory.AtomicStore, memory.Release)
	rlxT1 := f.action(f.t1, f.y, memory.AtomicStore, memory.Relaxed)
	rlxT2 := f.action(f.t2, f.y, memory.AtomicStore, memory.Relaxed)
	rmwT2 := f.action(f.t2, f.y, memory.AtomicRMW, memory.Relaxed)
	child := f.action(f.t2, f.y, memory.AtomicLoad, memory.Acquire)

	fresh := func() Property {
		return Property{
			Kind:         ReleaseSequence,
			EndPoint:     child,
			Condition:    boolalg.One(),
			HasLocation:  true,
			Location:     f.y,
			NotSyncedYet: true,
			RSThread:     f.t1,
		}
	}

	// A same-thread relaxed store leaves the sequence open.
	pr := newPropagator(f.g, rlxT1, child, memory.SB, boolalg.One())
	p, keep := pr.apply(fresh())
	require.True(t, keep)
	require.True(t, p.NotSyncedYet)
	require.False(t, p.Broken)

	// An other-thread relaxed store breaks it.
	pr = newPropagator(f.g, rlxT2, child, memory.SB, boolalg.One())
	p, _ = pr.apply(fresh())
	require.True(t, p.Broken)
	require.True(t, p.NotSyncedYet)

	// An other-thread RMW does not.
	pr = newPropagator(f.g, rmwT2, child, memory.SB, boolalg.One())
	p, _ = pr.apply(fresh())
	require.False(t, p.Broken)

	// The heading release write on the sequence's own thread syncs it,
	// broken or not.
	pr = newPropagator(f.g, relT1, child, memory.SB, boolalg.One())
	p, _ = pr.apply(fresh())
	require.False(t, p.NotSyncedYet)

	broken := fresh()
	broken.Broken = true
	p, _ = pr.apply(broken)
	require.False(t, p.NotSyncedYet)
	require.True(t, p.Broken)
}
