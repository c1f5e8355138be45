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

import "math/bits"

// Product is a conjunction of literals over a subset of at most
// MaxVariables variables, packed into two 64-bit masks: used has bit i set
// iff variable i appears in the conjunction, negated has bit i set iff
// variable i appears negated. The invariant negated&^used == 0 holds for
// every Product except the distinguished zeroProduct below, the one
// sentinel value allowed to violate it: {used: ∅, negated: all} denotes
// zero, and checking that exact pattern is how IsZero recognizes it.
type Product struct {
	used    uint64
	negated uint64
}

// onePredicate is the empty conjunction: true unconditionally.
var onePredicate = Product{}

// zeroProduct is the sentinel standing for the product that can never be
// satisfied. It is the unique Product with used == 0 and negated == all
// bits set, which is otherwise an impossible encoding (a variable cannot be
// negated without being used), so it is safe to recognize by exact
// equality.
var zeroProduct = Product{used: 0, negated: ^uint64(0)}

// ProductOne returns the empty conjunction (vacuously true).
func ProductOne() Product { return onePredicate }

// ProductZero returns the unsatisfiable conjunction.
func ProductZero() Product { return zeroProduct }

// IsZero reports whether p is the unsatisfiable sentinel.
func (p Product) IsZero() bool { return p == zeroProduct }

// IsOne reports whether p is the empty (always-true) conjunction.
func (p Product) IsOne() bool { return p == onePredicate }

// Literal returns the single-variable conjunction "v" (if negate is false)
// or "¬v" (if negate is true).
func Literal(v Variable, negate bool) Product {
	p := Product{used: v.bit()}
	if negate {
		p.negated = v.bit()
	}
	return p
}

// VariableCount returns the number of variables this product mentions.
func (p Product) VariableCount() int {
	return bits.OnesCount64(p.used)
}

// Multiply combines p and q into their conjunction. It returns
// (ProductZero(), true) if the two products disagree on the sign of some shared
// variable: X ∧ ¬X collapses to zero.
func (p Product) Multiply(q Product) (Product, bool) {
	if p.IsZero() || q.IsZero() {
		return zeroProduct, true
	}
	shared := p.used & q.used
	conflict := shared & (p.negated ^ q.negated)
	if conflict != 0 {
		return zeroProduct, true
	}
	result := Product{
		used:    p.used | q.used,
		negated: p.negated | q.negated,
	}
	return result, false
}

// IncludesAllOf reports whether p contains every literal of q with the same
// sign, i.e. p is a super-product ("p·q" for some q) of q. Equal products
// include each other.
func (p Product) IncludesAllOf(q Product) bool {
	if q.used&^p.used != 0 {
		return false
	}
	return (p.negated & q.used) == (q.negated & q.used)
}

// IsSingleNegationDifferentFrom reports whether p and q range over exactly
// the same variables and differ in the sign of exactly one of them.
func (p Product) IsSingleNegationDifferentFrom(q Product) bool {
	if p.used != q.used {
		return false
	}
	diff := p.negated ^ q.negated
	return diff != 0 && bits.OnesCount64(diff) == 1
}

// CommonFactor returns the product obtained from p by dropping every
// variable whose sign disagrees between p and q. When
// IsSingleNegationDifferentFrom(p, q) holds, this is exactly the factor
// left over after applying X·r + ¬X·r → r.
func (p Product) CommonFactor(q Product) Product {
	shared := p.used & q.used
	conflict := shared & (p.negated ^ q.negated)
	newUsed := shared &^ conflict
	return Product{used: newUsed, negated: p.negated & newUsed}
}

// equal reports structural equality of the two bitmask pairs.
func (p Product) equal(q Product) bool {
	return p.used == q.used && p.negated == q.negated
}

// compareKey produces the deterministic sort key ordering Expression
// products: by variable count, then by used-mask, then by a gray-coded
// negated-mask, so that candidates for simplification land adjacent to one
// another.
func (p Product) compareKey() (int, uint64, uint64) {
	gray := p.negated ^ (p.negated >> 1)
	return p.VariableCount(), p.used, gray
}

// less implements the total order used to keep Expression.products sorted.
func (p Product) less(q Product) bool {
	pc, pu, pg := p.compareKey()
	qc, qu, qg := q.compareKey()
	if pc != qc {
		return pc < qc
	}
	if pu != qu {
		return pu < qu
	}
	return pg < qg
}

// eval evaluates the product under the given assignment (bit i of
// assignment is the truth value of variable i). Only used by
// Expression.Equivalent's brute-force truth table.
func (p Product) eval(assignment uint64) bool {
	if p.IsZero() {
		return false
	}
	// A literal is satisfied when its value under assignment matches
	// (negated bit means "must be false").
	agree := ^(assignment ^ p.negated)
	return p.used&agree == p.used
}
