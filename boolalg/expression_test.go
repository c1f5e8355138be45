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

// requireCanonical asserts the canonical-form invariants every public
// operation must maintain: products strictly ordered by the comparator, no
// duplicates, and the one/zero sentinels only ever appearing alone.
func requireCanonical(t *testing.T, e Expression) {
	t.Helper()
	require.NotEmpty(t, e.products)
	for i := 1; i < len(e.products); i++ {
		require.True(t, e.products[i-1].less(e.products[i]),
			"products out of order: %s", e.String())
	}
	if len(e.products) > 1 {
		for _, p := range e.products {
			require.False(t, p.IsOne())
			require.False(t, p.IsZero())
		}
	}
}

func TestExpression_ZeroOne(t *testing.T) {
	require.True(t, Zero().IsZero())
	require.False(t, Zero().IsOne())
	require.True(t, One().IsOne())
	require.True(t, Zero().Add(One()).IsOne())
	require.True(t, Zero().Multiply(One()).IsZero())
}

func TestExpression_AddComplementaryLiterals(t *testing.T) {
	_, vs := newVars(t, 1)
	sum := Lit(vs[0]).Add(NegLit(vs[0]))
	require.True(t, sum.IsOne(), "A + ¬A should collapse to one, got %s", sum)
}

func TestExpression_SingleNegationRewrite(t *testing.T) {
	_, vs := newVars(t, 2)
	a, b := vs[0], vs[1]
	// A·B + ¬A·B → B
	sum := Lit(a).Multiply(Lit(b)).Add(NegLit(a).Multiply(Lit(b)))
	require.True(t, sum.Equivalent(Lit(b)))
	requireCanonical(t, sum)
	require.Equal(t, Lit(b).String(), sum.String())
}

func TestExpression_Absorption(t *testing.T) {
	_, vs := newVars(t, 2)
	a, b := vs[0], vs[1]
	// A·B + A → A
	sum := Lit(a).Multiply(Lit(b)).Add(Lit(a))
	require.Equal(t, Lit(a).String(), sum.String())
}

func TestExpression_MultiplyDistributes(t *testing.T) {
	_, vs := newVars(t, 3)
	a, b, c := vs[0], vs[1], vs[2]
	// (A + B) · C ≡ A·C + B·C
	left := Lit(a).Add(Lit(b)).Multiply(Lit(c))
	right := Lit(a).Multiply(Lit(c)).Add(Lit(b).Multiply(Lit(c)))
	require.True(t, left.Equivalent(right))
	requireCanonical(t, left)
}

func TestExpression_MultiplyByComplementIsZero(t *testing.T) {
	_, vs := newVars(t, 1)
	require.True(t, Lit(vs[0]).Multiply(NegLit(vs[0])).IsZero())
}

func TestExpression_Negate(t *testing.T) {
	_, vs := newVars(t, 2)
	a, b := vs[0], vs[1]

	require.True(t, Zero().Negate().IsOne())
	require.True(t, One().Negate().IsZero())
	require.True(t, Lit(a).Negate().Equivalent(NegLit(a)))

	// De Morgan: ¬(A·B) ≡ ¬A + ¬B
	ab := Lit(a).Multiply(Lit(b))
	require.True(t, ab.Negate().Equivalent(NegLit(a).Add(NegLit(b))))

	// e + ¬e ≡ 1 and e · ¬e ≡ 0 for a non-trivial e.
	e := Lit(a).Add(NegLit(a).Multiply(Lit(b)))
	require.True(t, e.Add(e.Negate()).IsOne())
	require.True(t, e.Multiply(e.Negate()).IsZero())
}

func TestExpression_EquivalentBruteForce(t *testing.T) {
	_, vs := newVars(t, 3)
	a, b, c := vs[0], vs[1], vs[2]

	// A + A·B ≡ A, but A + B is not.
	require.True(t, Lit(a).Add(Lit(a).Multiply(Lit(b))).Equivalent(Lit(a)))
	require.False(t, Lit(a).Add(Lit(b)).Equivalent(Lit(a)))

	// Distribution over three variables.
	left := Lit(a).Multiply(Lit(b).Add(Lit(c)))
	right := Lit(a).Multiply(Lit(b)).Add(Lit(a).Multiply(Lit(c)))
	require.True(t, left.Equivalent(right))
}

func TestExpression_SimplifyLargeSum(t *testing.T) {
	_, vs := newVars(t, 4)
	a, b, c, d := vs[0], vs[1], vs[2], vs[3]

	// A·B·C·D + A·B·C·¬D + ¬A·C + C·¬B + A·B + ¬A
	e := Lit(a).Multiply(Lit(b)).Multiply(Lit(c)).Multiply(Lit(d)).
		Add(Lit(a).Multiply(Lit(b)).Multiply(Lit(c)).Multiply(NegLit(d))).
		Add(NegLit(a).Multiply(Lit(c))).
		Add(Lit(c).Multiply(NegLit(b))).
		Add(Lit(a).Multiply(Lit(b))).
		Add(NegLit(a))

	// The two four-variable terms fold to A·B·C, which A·B absorbs; ¬A·C
	// is absorbed by ¬A. What is left is ¬A + A·B + ¬B·C.
	want := NegLit(a).
		Add(Lit(a).Multiply(Lit(b))).
		Add(NegLit(b).Multiply(Lit(c)))
	require.True(t, e.Equivalent(want), "got %s", e)
	requireCanonical(t, e)
	require.LessOrEqual(t, len(e.products), 3)
}

func TestExpression_SimplifyIdempotent(t *testing.T) {
	_, vs := newVars(t, 3)
	a, b, c := vs[0], vs[1], vs[2]
	e := Lit(a).Multiply(Lit(b)).
		Add(NegLit(a).Multiply(Lit(b))).
		Add(Lit(c))
	again := Expression{products: simplify(append([]Product(nil), e.products...))}
	require.Equal(t, e.String(), again.String())
}

func TestExpression_AddCommutative(t *testing.T) {
	_, vs := newVars(t, 3)
	a, b, c := vs[0], vs[1], vs[2]
	x := Lit(a).Multiply(NegLit(b))
	y := Lit(c).Add(Lit(b))
	require.Equal(t, x.Add(y).String(), y.Add(x).String())
}

func TestExpression_CopyIsDistinct(t *testing.T) {
	_, vs := newVars(t, 2)
	e := Lit(vs[0]).Add(Lit(vs[1]))
	cp := e.Copy()
	require.Equal(t, e.String(), cp.String())
	cp.products[0] = Literal(vs[1], true)
	require.NotEqual(t, e.String(), cp.String())
}

func TestExpression_AsProductPanicsOnSum(t *testing.T) {
	_, vs := newVars(t, 2)
	e := Lit(vs[0]).Add(Lit(vs[1]))
	require.Panics(t, func() { e.AsProduct() })
	require.NotPanics(t, func() { Lit(vs[0]).AsProduct() })
}
