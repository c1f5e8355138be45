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

// Package driver turns programs into opsem graphs and enumerates their
// candidate executions. There is no C++-subset parser here: GraphBuilder
// exposes the operations a parser's AST-lowering pass would call, directly
// to Go callers - tests and cmd/opsemcheck's fixtures build graphs through
// it.
package driver

import (
	"github.com/relaxedmm/opsem/boolalg"
	"github.com/relaxedmm/opsem/branch"
	"github.com/relaxedmm/opsem/eval"
	"github.com/relaxedmm/opsem/memory"
	"github.com/relaxedmm/opsem/opsemgraph"
	"github.com/relaxedmm/opsem/releaseseq"
)

// GraphBuilder owns one opsem graph under construction, plus the context
// registries scoped to one analysis run: the boolean-variable registry,
// the branch-conditional registry, the release-sequence registry, and the
// per-thread branch stack.
type GraphBuilder struct {
	Vars       *boolalg.Registry
	Graph      *opsemgraph.Graph
	Branches   *branch.Registry
	Stack      *branch.Stack
	ReleaseSeq *releaseseq.Registry
}

// one is shorthand for the unconditional expression, used all over the
// fixtures.
func one() boolalg.Expression { return boolalg.One() }

// NewGraphBuilder returns a builder with a fresh, empty graph and a main
// thread already allocated at memory.MainThread.
func NewGraphBuilder() *GraphBuilder {
	vars := boolalg.NewRegistry()
	g := opsemgraph.New(vars)
	b := &GraphBuilder{
		Vars:       vars,
		Graph:      g,
		Branches:   branch.NewRegistry(vars),
		Stack:      branch.NewStack(),
		ReleaseSeq: releaseseq.NewRegistry(vars),
	}
	g.NewThread(memory.NoThread, false)
	return b
}

// NewThread spawns a child thread of parent and returns its id.
func (b *GraphBuilder) NewThread(parent memory.ThreadID) memory.ThreadID {
	return b.Graph.NewThread(parent, true)
}

// Join marks child as joined and wires an asw edge from lastChildAction to
// firstParentActionAfterJoin under cond, modeling the additional
// synchronization a thread join introduces.
func (b *GraphBuilder) Join(child memory.ThreadID, lastChildAction, firstParentActionAfterJoin memory.ActionID, cond boolalg.Expression) {
	b.Graph.Join(child)
	b.Graph.AddEdge(memory.ASW, lastChildAction, firstParentActionAfterJoin, cond)
}

// NewLocation allocates a fresh memory location.
func (b *GraphBuilder) NewLocation(name string, kind memory.LocationKind) memory.LocationID {
	return b.Graph.NewLocation(name, kind)
}

// NewAction allocates a new action on thread, pre-multiplying its existence
// by the branch condition currently open on that thread.
// Callers are responsible for wiring the sb edge from the thread's previous
// action (via AddSB) so existence propagation has something to recompute
// from; an action with no predecessor exists unconditionally except for the
// open branch condition baked in here.
func (b *GraphBuilder) NewAction(thread memory.ThreadID, loc memory.LocationID, kind memory.ActionKind, order memory.MemoryOrder) memory.ActionID {
	cond := b.Stack.CurrentCondition(thread)
	return b.Graph.NewAction(thread, loc, kind, order, cond)
}

// AddSB wires a sequenced-before edge from tail to head under cond.
func (b *GraphBuilder) AddSB(tail, head memory.ActionID, cond boolalg.Expression) {
	b.Graph.AddEdge(memory.SB, tail, head, cond)
}

// Sequence wires sb edges from every head of prev to every tail of next
// under cond: the way two consecutive full expressions are sequenced, with
// the evaluation layer deciding what the heads and tails are.
func (b *GraphBuilder) Sequence(prev, next eval.FullExpression, cond boolalg.Expression) {
	for _, head := range prev.Heads() {
		for _, tail := range next.Tails() {
			b.AddSB(head, tail, cond)
		}
	}
}

// AddASW wires an additionally-synchronizes-with edge from tail to head.
func (b *GraphBuilder) AddASW(tail, head memory.ActionID, cond boolalg.Expression) {
	b.Graph.AddEdge(memory.ASW, tail, head, cond)
}

// BeginBranchTrue opens the true arm of the conditional identified by key on
// thread, returning the condition every subsequently-created action on that
// thread should exist under (the builder's NewAction applies this
// automatically via b.Stack).
func (b *GraphBuilder) BeginBranchTrue(thread memory.ThreadID, key branch.ExprKey) (boolalg.Expression, error) {
	c, err := b.Stack.BeginBranchTrue(b.Branches, thread, key)
	if err != nil {
		return boolalg.Expression{}, err
	}
	return c.True().Expression(), nil
}

// BeginBranchFalse is BeginBranchTrue's counterpart.
func (b *GraphBuilder) BeginBranchFalse(thread memory.ThreadID, key branch.ExprKey) (boolalg.Expression, error) {
	c, err := b.Stack.BeginBranchFalse(b.Branches, thread, key)
	if err != nil {
		return boolalg.Expression{}, err
	}
	return c.False().Expression(), nil
}

// EndBranch closes the innermost open branch frame on thread.
func (b *GraphBuilder) EndBranch(thread memory.ThreadID) {
	b.Stack.EndBranch(thread)
}
