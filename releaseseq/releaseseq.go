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

// Package releaseseq implements the release-sequence registry: a release
// sequence is identified by the half-open range of topological positions
// [begin, end) it spans on one atomic location, and is named by a boolean
// variable so the consistency DFS can condition on "this release sequence
// holds" the same way it conditions on everything else.
package releaseseq

import (
	"fmt"

	"github.com/relaxedmm/opsem/boolalg"
)

// SequenceNumber is a dense topological position of an action.
type SequenceNumber int

// ReleaseSequence is one candidate release sequence: the half-open range
// of topological positions [Begin, End) on Location, named by Var.
type ReleaseSequence struct {
	Begin    SequenceNumber
	End      SequenceNumber
	Location int
	Var      boolalg.Variable
}

type key struct {
	begin, end SequenceNumber
	location   int
}

// Registry deduplicates release sequences by (location, begin, end): the
// same candidate sequence reached along two DFS paths gets one variable.
type Registry struct {
	vars *boolalg.Registry
	byID map[key]*ReleaseSequence
}

// NewRegistry returns an empty release-sequence registry backed by vars.
func NewRegistry(vars *boolalg.Registry) *Registry {
	return &Registry{vars: vars, byID: make(map[key]*ReleaseSequence)}
}

// Lookup returns the ReleaseSequence for [begin, end) on location,
// allocating a fresh boolean variable and registering it on first use.
func (r *Registry) Lookup(location int, begin, end SequenceNumber) (*ReleaseSequence, error) {
	k := key{begin: begin, end: end, location: location}
	if rs, ok := r.byID[k]; ok {
		return rs, nil
	}
	v, err := r.vars.New(fmt.Sprintf("relseq#loc%d[%d,%d)", location, begin, end))
	if err != nil {
		return nil, err
	}
	rs := &ReleaseSequence{Begin: begin, End: end, Location: location, Var: v}
	r.byID[k] = rs
	return rs, nil
}

// Holds returns the Expression asserting that this release sequence is
// unbroken (its defining variable holds).
func (rs *ReleaseSequence) Holds() boolalg.Expression {
	return boolalg.Lit(rs.Var)
}

// Contains reports whether pos falls within [Begin, End).
func (rs *ReleaseSequence) Contains(pos SequenceNumber) bool {
	return pos >= rs.Begin && pos < rs.End
}
