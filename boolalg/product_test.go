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

package boolalg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newVars(t *testing.T, n int) (*Registry, []Variable) {
	t.Helper()
	r := NewRegistry()
	vars := make([]Variable, n)
	for i := range vars {
		v, err := r.New(string(rune('A' + i)))
		require.NoError(t, err)
		vars[i] = v
	}
	return r, vars
}

func TestProduct_MultiplyIdentityAndZero(t *testing.T) {
	_, vs := newVars(t, 2)
	a := Literal(vs[0], false)

	got, isZero := a.Multiply(ProductOne())
	require.False(t, isZero)
	require.True(t, got.equal(a))

	_, isZero = a.Multiply(ProductZero())
	require.True(t, isZero)

	_, isZero = ProductZero().Multiply(a)
	require.True(t, isZero)
}

func TestProduct_MultiplyConflictCollapsesToZero(t *testing.T) {
	_, vs := newVars(t, 1)
	pos := Literal(vs[0], false)
	neg := Literal(vs[0], true)

	got, isZero := pos.Multiply(neg)
	require.True(t, isZero)
	require.True(t, got.IsZero())
}

func TestProduct_MultiplyCommutativeAssociative(t *testing.T) {
	_, vs := newVars(t, 3)
	a := Literal(vs[0], false)
	b := Literal(vs[1], true)
	c := Literal(vs[2], false)

	ab, _ := a.Multiply(b)
	ba, _ := b.Multiply(a)
	require.True(t, ab.equal(ba))

	abc1, _ := ab.Multiply(c)
	bc, _ := b.Multiply(c)
	abc2, _ := a.Multiply(bc)
	require.True(t, abc1.equal(abc2))
}

func TestProduct_IncludesAllOf(t *testing.T) {
	_, vs := newVars(t, 3)
	a := Literal(vs[0], false)
	b := Literal(vs[1], true)
	ab, _ := a.Multiply(b)

	require.True(t, ab.IncludesAllOf(a))
	require.True(t, ab.IncludesAllOf(b))
	require.True(t, ab.IncludesAllOf(ab))
	require.False(t, a.IncludesAllOf(ab))

	// Same variable, opposite sign: not included.
	notA := Literal(vs[0], true)
	require.False(t, ab.IncludesAllOf(notA))

	// Everything includes the empty conjunction.
	require.True(t, a.IncludesAllOf(ProductOne()))
}

func TestProduct_IsSingleNegationDifferentFrom(t *testing.T) {
	_, vs := newVars(t, 3)
	a := Literal(vs[0], false)
	notA := Literal(vs[0], true)
	b := Literal(vs[1], false)

	ab, _ := a.Multiply(b)
	notAb, _ := notA.Multiply(b)

	require.True(t, ab.IsSingleNegationDifferentFrom(notAb))
	require.True(t, notAb.IsSingleNegationDifferentFrom(ab))
	require.False(t, ab.IsSingleNegationDifferentFrom(ab))
	// Different variable sets never qualify.
	require.False(t, ab.IsSingleNegationDifferentFrom(a))
}

func TestProduct_CommonFactor(t *testing.T) {
	_, vs := newVars(t, 2)
	a := Literal(vs[0], false)
	notA := Literal(vs[0], true)
	b := Literal(vs[1], false)

	ab, _ := a.Multiply(b)
	notAb, _ := notA.Multiply(b)

	require.True(t, ab.CommonFactor(notAb).equal(b))
	require.True(t, a.CommonFactor(notA).equal(ProductOne()))
}

func TestProduct_VariableCount(t *testing.T) {
	_, vs := newVars(t, 3)
	require.Equal(t, 0, ProductOne().VariableCount())
	p := Literal(vs[0], false)
	require.Equal(t, 1, p.VariableCount())
	p, _ = p.Multiply(Literal(vs[2], true))
	require.Equal(t, 2, p.VariableCount())
}
