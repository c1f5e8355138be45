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
	"fmt"
	"sort"
	"strings"
)

// MaxProductsPerExpression caps Expression.products. Exceeding it
// indicates a combinatorial blow-up beyond the small didactic programs
// this engine targets; simplify panics rather than growing without bound.
const MaxProductsPerExpression = 4096

// Expression is a non-empty, ordered, canonical sum-of-products boolean
// function. Every exported constructor and operation returns a value that
// already satisfies the canonical-form invariants: products sorted by the
// deterministic comparator, no duplicates, and a literal product ("one")
// only ever appearing alone.
type Expression struct {
	products []Product
}

// Zero returns the unsatisfiable expression (boolean false).
func Zero() Expression {
	return Expression{products: []Product{zeroProduct}}
}

// One returns the tautological expression (boolean true).
func One() Expression {
	return Expression{products: []Product{onePredicate}}
}

// Lit returns the single-variable expression "v".
func Lit(v Variable) Expression {
	return Expression{products: []Product{Literal(v, false)}}
}

// NegLit returns the single-variable expression "¬v".
func NegLit(v Variable) Expression {
	return Expression{products: []Product{Literal(v, true)}}
}

// FromProduct lifts a single Product into a one-term Expression.
func FromProduct(p Product) Expression {
	return Expression{products: []Product{p}}
}

// IsZero reports whether e is the unsatisfiable expression.
func (e Expression) IsZero() bool {
	return len(e.products) == 1 && e.products[0].IsZero()
}

// IsOne reports whether e is the tautological expression.
func (e Expression) IsOne() bool {
	return len(e.products) == 1 && e.products[0].IsOne()
}

// AsProduct returns e's single term if e is a literal product expression
// (exactly one product). Calling it on a multi-term expression is a usage
// error and panics.
func (e Expression) AsProduct() Product {
	if len(e.products) != 1 {
		panic(fmt.Sprintf("boolalg: AsProduct called on a %d-term expression", len(e.products)))
	}
	return e.products[0]
}

// Copy returns a value-distinct copy of e; the two no longer share a
// backing array. Duplication is always explicit - plain assignment shares
// the product vector.
func (e Expression) Copy() Expression {
	out := make([]Product, len(e.products))
	copy(out, e.products)
	return Expression{products: out}
}

// Add returns e ∨ f, in canonical simplified form.
func (e Expression) Add(f Expression) Expression {
	merged := make([]Product, 0, len(e.products)+len(f.products))
	merged = append(merged, e.products...)
	merged = append(merged, f.products...)
	return Expression{products: simplify(merged)}
}

// Multiply returns e ∧ f, in canonical simplified form.
func (e Expression) Multiply(f Expression) Expression {
	terms := make([]Product, 0, len(e.products)*len(f.products))
	for _, p := range e.products {
		for _, q := range f.products {
			r, isZero := p.Multiply(q)
			if isZero {
				continue
			}
			terms = append(terms, r)
		}
	}
	if len(terms) == 0 {
		return Zero()
	}
	return Expression{products: simplify(terms)}
}

// Negate returns ¬e via De Morgan expansion of each product, in canonical
// simplified form.
func (e Expression) Negate() Expression {
	result := One()
	for _, p := range e.products {
		switch {
		case p.IsZero():
			// ¬false contributes the tautological conjunct; skip it.
			continue
		case p.IsOne():
			// ¬true makes the whole conjunction false.
			return Zero()
		}
		result = result.Multiply(negateProduct(p))
	}
	return result
}

// negateProduct expands ¬(l1 ∧ l2 ∧ ... ∧ lk) into the sum ¬l1 ∨ ¬l2 ∨ ... ∨ ¬lk.
func negateProduct(p Product) Expression {
	out := Zero()
	for bit := 0; bit < MaxVariables; bit++ {
		mask := uint64(1) << uint(bit)
		if p.used&mask == 0 {
			continue
		}
		wasNegated := p.negated&mask != 0
		lit := Product{used: mask}
		if !wasNegated {
			lit.negated = mask
		}
		out = out.Add(FromProduct(lit))
	}
	return out
}

// usedMask returns the union of every variable bit mentioned by e.
func (e Expression) usedMask() uint64 {
	var m uint64
	for _, p := range e.products {
		m |= p.used
	}
	return m
}

// evalAt evaluates e under the given full assignment (bit i = truth value
// of variable i).
func (e Expression) evalAt(assignment uint64) bool {
	for _, p := range e.products {
		if p.eval(assignment) {
			return true
		}
	}
	return false
}

// Equivalent reports whether e and f compute the same boolean function, by
// brute-force enumeration of every assignment of the union of variables
// live in either expression. This is exponential in the number of live
// variables; the expressions arising in these analyses stay small enough
// for that to be acceptable.
func (e Expression) Equivalent(f Expression) bool {
	union := e.usedMask() | f.usedMask()
	var bitPositions []int
	for bit := 0; bit < MaxVariables; bit++ {
		if union&(uint64(1)<<uint(bit)) != 0 {
			bitPositions = append(bitPositions, bit)
		}
	}
	total := 1 << len(bitPositions)
	for mask := 0; mask < total; mask++ {
		var assignment uint64
		for i, bitpos := range bitPositions {
			if mask&(1<<i) != 0 {
				assignment |= uint64(1) << uint(bitpos)
			}
		}
		if e.evalAt(assignment) != f.evalAt(assignment) {
			return false
		}
	}
	return true
}

// String renders e for debugging and test failure messages.
func (e Expression) String() string {
	parts := make([]string, len(e.products))
	for i, p := range e.products {
		parts[i] = productString(p)
	}
	return strings.Join(parts, " + ")
}

func productString(p Product) string {
	if p.IsOne() {
		return "1"
	}
	if p.IsZero() {
		return "0"
	}
	var lits []string
	for bit := 0; bit < MaxVariables; bit++ {
		mask := uint64(1) << uint(bit)
		if p.used&mask == 0 {
			continue
		}
		if p.negated&mask != 0 {
			lits = append(lits, fmt.Sprintf("¬v%d", bit))
		} else {
			lits = append(lits, fmt.Sprintf("v%d", bit))
		}
	}
	return strings.Join(lits, "·")
}

// --- simplification -------------------------------------------------------

// simplify repeatedly applies the two rewrites (complementary-literal
// elimination and absorption) until neither applies, then returns the
// sorted, duplicate-free result.
// It special-cases the zero/one sentinels on every pass since their bitmask
// encodings do not participate meaningfully in IncludesAllOf/CommonFactor.
func simplify(products []Product) []Product {
	if len(products) > MaxProductsPerExpression {
		panic(fmt.Sprintf("boolalg: expression with %d products exceeds the %d-product limit",
			len(products), MaxProductsPerExpression))
	}
	products = dedupe(products)
	for {
		if containsOne(products) {
			return []Product{onePredicate}
		}
		products = dropZeroesUnlessSole(products)

		if rewritten, ok := applySingleNegationRewrite(products); ok {
			products = dedupe(rewritten)
			continue
		}
		if rewritten, ok := applyAbsorption(products); ok {
			products = rewritten
			continue
		}
		break
	}
	sortProducts(products)
	return products
}

func containsOne(products []Product) bool {
	for _, p := range products {
		if p.IsOne() {
			return true
		}
	}
	return false
}

func dropZeroesUnlessSole(products []Product) []Product {
	if len(products) <= 1 {
		return products
	}
	out := products[:0]
	for _, p := range products {
		if !p.IsZero() {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []Product{zeroProduct}
	}
	return out
}

// applySingleNegationRewrite finds the first pair X·r + ¬X·r and replaces
// it with r.
func applySingleNegationRewrite(products []Product) ([]Product, bool) {
	for i := 0; i < len(products); i++ {
		for j := i + 1; j < len(products); j++ {
			if products[i].IsSingleNegationDifferentFrom(products[j]) {
				common := products[i].CommonFactor(products[j])
				out := make([]Product, 0, len(products)-1)
				for k, p := range products {
					if k == i || k == j {
						continue
					}
					out = append(out, p)
				}
				out = append(out, common)
				return out, true
			}
		}
	}
	return products, false
}

// applyAbsorption finds the first pair where one product is a super-product
// of another and removes the super-product (p·q + p → p).
func applyAbsorption(products []Product) ([]Product, bool) {
	for i := 0; i < len(products); i++ {
		for j := 0; j < len(products); j++ {
			if i == j {
				continue
			}
			if products[i].equal(products[j]) {
				continue
			}
			if products[i].IncludesAllOf(products[j]) {
				out := make([]Product, 0, len(products)-1)
				for k, p := range products {
					if k == i {
						continue
					}
					out = append(out, p)
				}
				return out, true
			}
		}
	}
	return products, false
}

func dedupe(products []Product) []Product {
	sortProducts(products)
	out := products[:0]
	for i, p := range products {
		if i > 0 && p.equal(products[i-1]) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func sortProducts(products []Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].less(products[j])
	})
}
