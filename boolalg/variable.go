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

// Package boolalg implements a compact sum-of-products representation of
// boolean functions over up to MaxVariables indeterminate variables.
package boolalg

import "fmt"

// MaxVariables is the hard cap on the number of live boolean variables a
// single Registry may hand out. The cap exists because Product packs its
// literals into a pair of 64-bit masks, reserving the top bit for internal
// bookkeeping (see zeroProduct in product.go).
const MaxVariables = 63

// Variable is an opaque handle into a Registry. Two Variables are the same
// variable iff they compare equal.
type Variable struct {
	id uint8
}

// id 255 is never handed out by Registry.New (MaxVariables caps id at 62),
// so it is free to use as the "invalid" sentinel.
var invalidVariable = Variable{id: 255}

// IsValid reports whether v was obtained from a Registry.
func (v Variable) IsValid() bool {
	return v.id != invalidVariable.id
}

func (v Variable) bit() uint64 {
	return uint64(1) << v.id
}

// CapacityError is returned when a Registry is asked for more variables
// than MaxVariables allows. This is fatal to the analysis run, but not an
// internal invariant violation, so it is surfaced as an error rather than
// a panic.
type CapacityError struct {
	Requested int
	Limit     int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("boolalg: requested variable #%d exceeds the %d-variable limit", e.Requested, e.Limit)
}

// Registry is an append-only mapping from Variable identities to
// human-readable names, plus the reverse allocation counter. A Registry is
// conceptually a process-wide singleton, but it is always passed explicitly
// as a context object; a fresh Registry starts a fresh analysis run.
type Registry struct {
	names []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// New allocates a fresh Variable with the given human-readable name and
// appends it to the registry. It returns a *CapacityError once MaxVariables
// variables have already been allocated.
func (r *Registry) New(name string) (Variable, error) {
	if len(r.names) >= MaxVariables {
		return invalidVariable, &CapacityError{Requested: len(r.names) + 1, Limit: MaxVariables}
	}
	id := uint8(len(r.names))
	r.names = append(r.names, name)
	return Variable{id: id}, nil
}

// Name returns the human-readable name given to v when it was allocated.
// It panics if v was not allocated by r: a usage error, not a recoverable
// condition.
func (r *Registry) Name(v Variable) string {
	if int(v.id) >= len(r.names) {
		panic(fmt.Sprintf("boolalg: variable #%d was not allocated by this registry", v.id))
	}
	return r.names[v.id]
}

// Len returns the number of variables allocated so far.
func (r *Registry) Len() int {
	return len(r.names)
}
