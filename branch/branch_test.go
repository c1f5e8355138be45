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

package branch

import (
	"testing"

	"github.com/relaxedmm/opsem/boolalg"
	"github.com/relaxedmm/opsem/memory"
	"github.com/stretchr/testify/require"
)

func TestRegistry_LookupDeduplicates(t *testing.T) {
	vars := boolalg.NewRegistry()
	r := NewRegistry(vars)

	c1, err := r.Lookup("if-1")
	require.NoError(t, err)
	c2, err := r.Lookup("if-2")
	require.NoError(t, err)
	again, err := r.Lookup("if-1")
	require.NoError(t, err)

	require.Same(t, c1, again)
	require.NotEqual(t, c1.Var, c2.Var)
	require.Equal(t, 2, vars.Len())
}

func TestConditional_TrueFalseAreComplementary(t *testing.T) {
	vars := boolalg.NewRegistry()
	r := NewRegistry(vars)
	c, err := r.Lookup("if")
	require.NoError(t, err)

	sum := c.True().Expression().Add(c.False().Expression())
	require.True(t, sum.IsOne())
	product := c.True().Expression().Multiply(c.False().Expression())
	require.True(t, product.IsZero())
}

func TestStack_CurrentCondition(t *testing.T) {
	vars := boolalg.NewRegistry()
	r := NewRegistry(vars)
	s := NewStack()
	thread := memory.MainThread

	require.True(t, s.CurrentCondition(thread).IsOne())

	outer, err := s.BeginBranchTrue(r, thread, "outer")
	require.NoError(t, err)
	require.True(t, s.CurrentCondition(thread).Equivalent(outer.True().Expression()))

	inner, err := s.BeginBranchFalse(r, thread, "inner")
	require.NoError(t, err)
	want := outer.True().Expression().Multiply(inner.False().Expression())
	require.True(t, s.CurrentCondition(thread).Equivalent(want))
	require.Equal(t, 2, s.Depth(thread))

	s.EndBranch(thread)
	require.True(t, s.CurrentCondition(thread).Equivalent(outer.True().Expression()))
	s.EndBranch(thread)
	require.True(t, s.CurrentCondition(thread).IsOne())
	require.Equal(t, 0, s.Depth(thread))
}

func TestStack_PerThreadIsolation(t *testing.T) {
	vars := boolalg.NewRegistry()
	r := NewRegistry(vars)
	s := NewStack()

	_, err := s.BeginBranchTrue(r, memory.ThreadID(1), "t1-if")
	require.NoError(t, err)
	require.True(t, s.CurrentCondition(memory.ThreadID(2)).IsOne())
	require.Equal(t, 1, s.Depth(memory.ThreadID(1)))
	require.Equal(t, 0, s.Depth(memory.ThreadID(2)))
}

func TestStack_EndBranchPanicsWhenEmpty(t *testing.T) {
	s := NewStack()
	require.Panics(t, func() { s.EndBranch(memory.MainThread) })
}
