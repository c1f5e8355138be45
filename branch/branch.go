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

// Package branch maps source conditionals onto boolean variables: every
// conditional expression in the analyzed program gets a fresh variable,
// and taking a branch attaches a literal over it to every action created
// inside.
package branch

import (
	"fmt"

	"github.com/relaxedmm/opsem/boolalg"
	"github.com/relaxedmm/opsem/memory"
)

// ExprKey identifies a conditional expression of the source-level
// evaluation layer. The Conditional map is keyed by the identity of the
// conditional expression object; since that object is owned by the
// evaluation layer, callers supply any comparable value that uniquely
// names their conditional (typically a pointer or an AST position).
type ExprKey any

// Conditional owns the fresh boolean variable allocated for one source
// conditional expression.
type Conditional struct {
	Key ExprKey
	Var boolalg.Variable
}

// Registry is the append-only mapping from conditional expressions to
// their Conditionals.
type Registry struct {
	vars        *boolalg.Registry
	conditional map[ExprKey]*Conditional
}

// NewRegistry returns an empty conditional registry backed by vars.
func NewRegistry(vars *boolalg.Registry) *Registry {
	return &Registry{vars: vars, conditional: make(map[ExprKey]*Conditional)}
}

// Lookup returns the Conditional registered for key, allocating a fresh
// boolean variable and registering it on first use.
func (r *Registry) Lookup(key ExprKey) (*Conditional, error) {
	if c, ok := r.conditional[key]; ok {
		return c, nil
	}
	v, err := r.vars.New(fmt.Sprintf("cond#%d", len(r.conditional)))
	if err != nil {
		return nil, err
	}
	c := &Conditional{Key: key, Var: v}
	r.conditional[key] = c
	return c, nil
}

// Condition is a single Product over one variable (or its negation),
// attached to an edge or a full expression when it crosses a branch
// boundary.
type Condition struct {
	product boolalg.Product
}

// True returns the Condition asserting that c's variable holds.
func (c *Conditional) True() Condition {
	return Condition{product: boolalg.Literal(c.Var, false)}
}

// False returns the Condition asserting that c's variable does not hold.
func (c *Conditional) False() Condition {
	return Condition{product: boolalg.Literal(c.Var, true)}
}

// Expression lifts a Condition into a full boolalg.Expression.
func (c Condition) Expression() boolalg.Expression {
	return boolalg.FromProduct(c.product)
}

// Info is one entry of a thread's branch stack.
type Info struct {
	Cond   *Conditional
	InTrue bool
}

// Stack tracks, per thread, the currently nested conditional branches. A
// Stack is owned by the driver/GraphBuilder, one per live thread.
type Stack struct {
	frames map[memory.ThreadID][]Info
}

// NewStack returns an empty per-thread branch stack tracker.
func NewStack() *Stack {
	return &Stack{frames: make(map[memory.ThreadID][]Info)}
}

// BeginBranchTrue registers (or reuses) the Conditional for key and pushes
// a true-arm frame onto thread's stack.
func (s *Stack) BeginBranchTrue(registry *Registry, thread memory.ThreadID, key ExprKey) (*Conditional, error) {
	c, err := registry.Lookup(key)
	if err != nil {
		return nil, err
	}
	s.frames[thread] = append(s.frames[thread], Info{Cond: c, InTrue: true})
	return c, nil
}

// BeginBranchFalse is BeginBranchTrue's counterpart: when the innermost
// frame on thread belongs to the same conditional, it flips that frame's
// InTrue to false; otherwise it pushes a false-arm frame.
func (s *Stack) BeginBranchFalse(registry *Registry, thread memory.ThreadID, key ExprKey) (*Conditional, error) {
	c, err := registry.Lookup(key)
	if err != nil {
		return nil, err
	}
	if frames := s.frames[thread]; len(frames) > 0 && frames[len(frames)-1].Cond == c {
		frames[len(frames)-1].InTrue = false
		return c, nil
	}
	s.frames[thread] = append(s.frames[thread], Info{Cond: c, InTrue: false})
	return c, nil
}

// EndBranch pops the innermost branch frame for thread.
func (s *Stack) EndBranch(thread memory.ThreadID) {
	frames := s.frames[thread]
	if len(frames) == 0 {
		panic("branch: EndBranch called with no open branch on this thread")
	}
	s.frames[thread] = frames[:len(frames)-1]
}

// CurrentCondition returns the product of every branch literal currently
// open on thread: the Condition that the existence expression of every
// action created on thread right now is pre-multiplied by.
func (s *Stack) CurrentCondition(thread memory.ThreadID) boolalg.Expression {
	result := boolalg.One()
	for _, frame := range s.frames[thread] {
		var lit Condition
		if frame.InTrue {
			lit = frame.Cond.True()
		} else {
			lit = frame.Cond.False()
		}
		result = result.Multiply(lit.Expression())
	}
	return result
}

// Depth returns the number of currently open branch frames on thread.
func (s *Stack) Depth(thread memory.ThreadID) int {
	return len(s.frames[thread])
}
