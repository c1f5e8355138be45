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

// Package eval describes the narrow interface the expression-evaluation
// layer - which lives outside this engine - must satisfy for the engine to
// wire sb edges into and out of complete sub-expressions. The core only
// ever needs two things from a full expression: its heads (nodes with no
// outgoing sb edge inside the expression, i.e. the "last actions" that a
// sequenced-after node should be wired from) and its tails (nodes with no
// incoming sb edge inside the expression). This package has no
// implementation of constant folding, side-effect recording, or value
// computation - all of that genuinely belongs to the excluded expression
// layer; it exists here solely so opsemgraph-consuming code has a stable
// type to program against.
package eval

import "github.com/relaxedmm/opsem/memory"

// FullExpression is the interface a lowered full-expression subtree must
// satisfy. The head conditions of a full expression sum to its existence
// expression.
type FullExpression interface {
	// Heads returns the set of node handles that are the heads of this
	// expression: the actions a surrounding sb edge should be wired *out
	// of*.
	Heads() []memory.ActionID

	// Tails returns the set of node handles that are the tails of this
	// expression: the actions a surrounding sb edge should be wired *into*.
	Tails() []memory.ActionID
}

// Static is a trivial FullExpression wrapping a fixed set of heads/tails,
// sufficient for the GraphBuilder-driven test fixtures used by this module
// (see package driver) in lieu of a real expression-evaluation layer.
type Static struct {
	HeadActions []memory.ActionID
	TailActions []memory.ActionID
}

// Heads implements FullExpression.
func (s Static) Heads() []memory.ActionID { return s.HeadActions }

// Tails implements FullExpression.
func (s Static) Tails() []memory.ActionID { return s.TailActions }

// Single returns a Static expression consisting of a single action that is
// both its own head and tail - the common case for a lone memory action
// lowered directly from source (e.g. `x = 1;`).
func Single(a memory.ActionID) Static {
	return Static{HeadActions: []memory.ActionID{a}, TailActions: []memory.ActionID{a}}
}
