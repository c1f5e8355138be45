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
	"github.com/relaxedmm/opsem/eval"
	"github.com/relaxedmm/opsem/memory"
)

// Fixtures holds the built-in example programs, each expressed as the
// GraphBuilder call sequence an AST-lowering front end would emit for it.
// They double as the end-to-end test corpus and as the programs
// cmd/opsemcheck can analyze out of the box.
var Fixtures = map[string]func() *GraphBuilder{
	"sequential":       Sequential,
	"message-passing":  MessagePassing,
	"causal-loop":      CausalLoopProgram,
	"hidden-vse":       HiddenVSE,
	"release-sequence": ReleaseSequenceBreak,
}

// Sequential lowers
//
//	int x = 0; x = 1; x = 2;
//
// three plain writes on the main thread, sequenced one after another. No
// reads, one location, exactly one candidate execution, always admissible.
func Sequential() *GraphBuilder {
	b := NewGraphBuilder()
	x := b.NewLocation("x", memory.NonAtomicLocation)

	w0 := b.NewAction(memory.MainThread, x, memory.NonAtomicWrite, memory.NoOrder)
	w1 := b.NewAction(memory.MainThread, x, memory.NonAtomicWrite, memory.NoOrder)
	w2 := b.NewAction(memory.MainThread, x, memory.NonAtomicWrite, memory.NoOrder)
	b.Sequence(eval.Single(w0), eval.Single(w1), one())
	b.Sequence(eval.Single(w1), eval.Single(w2), one())
	return b
}

// MessagePassing lowers
//
//	atomic_int x = 0, y = 0;
//	{{{ y.store(1, release);
//	||| if (y.load(acquire)) x.store(1, release); }}}
//
// The acquire load either sees the release store (synchronizing the
// conditional x store behind it) or the initial zero; both resolutions are
// consistent.
func MessagePassing() *GraphBuilder {
	b := NewGraphBuilder()
	x := b.NewLocation("x", memory.AtomicLocation)
	y := b.NewLocation("y", memory.AtomicLocation)

	initX := b.NewAction(memory.MainThread, x, memory.AtomicStore, memory.Relaxed)
	initY := b.NewAction(memory.MainThread, y, memory.AtomicStore, memory.Relaxed)
	b.AddSB(initX, initY, one())

	t1 := b.NewThread(memory.MainThread)
	storeY := b.NewAction(t1, y, memory.AtomicStore, memory.Release)
	b.AddASW(initY, storeY, one())

	t2 := b.NewThread(memory.MainThread)
	loadY := b.NewAction(t2, y, memory.AtomicLoad, memory.Acquire)
	b.AddASW(initY, loadY, one())

	cond, err := b.BeginBranchTrue(t2, "message-passing/if")
	if err != nil {
		panic(err)
	}
	storeX := b.NewAction(t2, x, memory.AtomicStore, memory.Release)
	b.EndBranch(t2)
	b.AddSB(loadY, storeX, cond)
	return b
}

// CausalLoopProgram lowers
//
//	atomic_int x = 0, y = 0;
//	{{{ r1 = x.load(relaxed); y.store(1, release);
//	||| r2 = y.load(acquire);  x.store(r2, relaxed); }}}
//
// The candidate where each load reads the other thread's store closes a
// cycle through one relaxed rf edge: a causal loop.
func CausalLoopProgram() *GraphBuilder {
	b := NewGraphBuilder()
	x := b.NewLocation("x", memory.AtomicLocation)
	y := b.NewLocation("y", memory.AtomicLocation)

	initX := b.NewAction(memory.MainThread, x, memory.AtomicStore, memory.Relaxed)
	initY := b.NewAction(memory.MainThread, y, memory.AtomicStore, memory.Relaxed)
	b.AddSB(initX, initY, one())

	t1 := b.NewThread(memory.MainThread)
	loadX := b.NewAction(t1, x, memory.AtomicLoad, memory.Relaxed)
	storeY := b.NewAction(t1, y, memory.AtomicStore, memory.Release)
	b.AddASW(initY, loadX, one())
	b.AddSB(loadX, storeY, one())

	t2 := b.NewThread(memory.MainThread)
	loadY := b.NewAction(t2, y, memory.AtomicLoad, memory.Acquire)
	storeX := b.NewAction(t2, x, memory.AtomicStore, memory.Relaxed)
	b.AddASW(initY, loadY, one())
	b.AddSB(loadY, storeX, one())
	return b
}

// HiddenVSE lowers
//
//	int x; atomic_int y = 0;
//	x = 1;            // W1
//	x = 2;            // W2
//	y.store(1, release);
//	{{{ if (y.load(acquire)) r = x; }}}   // other thread
//
// here simplified to an unconditional read: when the acquire sees the
// release store, reading x from W1 is inconsistent - W2 hides it.
func HiddenVSE() *GraphBuilder {
	b := NewGraphBuilder()
	x := b.NewLocation("x", memory.NonAtomicLocation)
	y := b.NewLocation("y", memory.AtomicLocation)

	w1 := b.NewAction(memory.MainThread, x, memory.NonAtomicWrite, memory.NoOrder)
	w2 := b.NewAction(memory.MainThread, x, memory.NonAtomicWrite, memory.NoOrder)
	storeY := b.NewAction(memory.MainThread, y, memory.AtomicStore, memory.Release)
	b.AddSB(w1, w2, one())
	b.AddSB(w2, storeY, one())

	t1 := b.NewThread(memory.MainThread)
	loadY := b.NewAction(t1, y, memory.AtomicLoad, memory.Acquire)
	readX := b.NewAction(t1, x, memory.NonAtomicRead, memory.NoOrder)
	b.AddSB(loadY, readX, one())
	return b
}

// ReleaseSequenceBreak lowers
//
//	atomic_int x = 0, y = 0;
//	{{{ y.store(1, release); y.store(2, relaxed);   // thread 1
//	||| y.store(3, relaxed);                        // thread 2
//	||| if (y.load(acquire) == 2) r = x.load(relaxed); }}}  // thread 3
//
// here simplified to an unconditional load of x, sequenced after the
// acquire. When the acquire reads thread 1's relaxed store, synchronization depends
// on the release sequence headed by the release store: modification orders
// that slot thread 2's store between the two break it.
func ReleaseSequenceBreak() *GraphBuilder {
	b := NewGraphBuilder()
	x := b.NewLocation("x", memory.AtomicLocation)
	y := b.NewLocation("y", memory.AtomicLocation)

	initX := b.NewAction(memory.MainThread, x, memory.AtomicStore, memory.Relaxed)
	initY := b.NewAction(memory.MainThread, y, memory.AtomicStore, memory.Relaxed)
	b.AddSB(initX, initY, one())

	t1 := b.NewThread(memory.MainThread)
	relY := b.NewAction(t1, y, memory.AtomicStore, memory.Release)
	rlxY := b.NewAction(t1, y, memory.AtomicStore, memory.Relaxed)
	b.AddASW(initY, relY, one())
	b.AddSB(relY, rlxY, one())

	t2 := b.NewThread(memory.MainThread)
	otherY := b.NewAction(t2, y, memory.AtomicStore, memory.Relaxed)
	b.AddASW(initY, otherY, one())

	t3 := b.NewThread(memory.MainThread)
	loadY := b.NewAction(t3, y, memory.AtomicLoad, memory.Acquire)
	loadX := b.NewAction(t3, x, memory.AtomicLoad, memory.Relaxed)
	b.AddASW(initY, loadY, one())
	b.AddSB(loadY, loadX, one())
	return b
}
