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

package consistency

import (
	"fmt"
	"strings"

	"github.com/relaxedmm/opsem/boolalg"
	"github.com/relaxedmm/opsem/memory"
)

// Kind tags the Property union.
type Kind uint8

const (
	// CausalLoop marks a cycle the DFS closed: the combined graph orders
	// the end point before itself. Always invalidating when it resolves.
	CausalLoop Kind = iota + 1

	// ReadsFrom tracks one rf choice backward from the read toward the
	// write it reads from (the end point). Invalidating only if an
	// intermediate same-location write hid the chosen source on the way.
	ReadsFrom

	// ReleaseSequence carries the properties that were waiting at an
	// acquire read whose rf source is not itself a release: they may only
	// continue upstream if the store turns out to sit inside an unbroken
	// release sequence headed by some release write.
	ReleaseSequence
)

// Property is one entry of the state machine the DFS propagates backward
// across edges. Not every field is meaningful for every Kind; see the
// per-kind comments below.
type Property struct {
	Kind      Kind
	EndPoint  memory.ActionID
	Condition boolalg.Expression

	// CausalLoop: HasLocation/Location record the location of the first
	// non-release/acquire rf edge this loop crossed, so that a later such
	// crossing for a *different* location breaks (discards) the loop.
	// Hidden is flipped by the write-hiding step; it does not change a
	// causal loop's invalidating classification.
	//
	// ReadsFrom and ReleaseSequence always have HasLocation set: the
	// location being read, respectively the location whose release
	// sequence is in question.
	HasLocation bool
	Location    memory.LocationID
	Hidden      bool

	// ReadsFrom: RFHidden is set when an intermediate write to Location
	// (other than the end point itself, the chosen source write) is
	// crossed before the property resolves at its end point.
	RFHidden bool

	// ReleaseSequence only. NotSyncedYet holds from creation until a
	// release write to Location on RSThread is crossed. Broken is set when
	// a plain (non-RMW) atomic store of any memory order to Location on a
	// *different* thread is crossed first (RMWs never break a sequence). RSThread is the thread of the
	// store the acquire read from; RSEnd is that store's topological
	// sequence number, the right end of the candidate sequence. Pending
	// holds the properties that were waiting at the acquire, frozen until
	// the sequence syncs.
	NotSyncedYet bool
	Broken       bool
	RSThread     memory.ThreadID
	RSEnd        int
	Pending      []Property
}

// isInvalidating classifies a property that has resolved at its end point.
// An unhidden reads-from returning to its source is the normal, consistent
// case; a hidden one means the execution read an overwritten value. A
// causal loop is always invalidating. Release sequences never resolve at an
// end point - a broken sequence is accounted for separately, at the release
// write where it would otherwise have synced (see Graph.resolveReleaseSequences).
func (p Property) isInvalidating() bool {
	switch p.Kind {
	case CausalLoop:
		return true
	case ReadsFrom:
		return p.RFHidden
	default:
		return false
	}
}

// needMerging reports whether q is an alternative-path copy of p: same
// kind, same end point, and the same hidden flag. Release-sequence
// properties additionally match only within the same location (two
// sequences on different locations are unrelated even if they wrapped the
// same acquire).
func needMerging(p, q Property) bool {
	if p.Kind != q.Kind || p.EndPoint != q.EndPoint {
		return false
	}
	switch p.Kind {
	case ReadsFrom:
		return p.RFHidden == q.RFHidden
	case ReleaseSequence:
		return p.Location == q.Location
	default:
		return p.Hidden == q.Hidden
	}
}

// String renders p for debugging and test failure messages.
func (p Property) String() string {
	var b strings.Builder
	switch p.Kind {
	case CausalLoop:
		b.WriteString("causal_loop")
		if p.HasLocation {
			fmt.Fprintf(&b, "(L%d)", p.Location)
		}
	case ReadsFrom:
		fmt.Fprintf(&b, "reads_from(L%d)", p.Location)
		if p.RFHidden {
			b.WriteString("(hidden)")
		}
	case ReleaseSequence:
		fmt.Fprintf(&b, "rel_seq(L%d", p.Location)
		if p.NotSyncedYet {
			b.WriteString(";not_synced")
		}
		if p.Broken {
			b.WriteString(";broken")
		}
		fmt.Fprintf(&b, ";T%d)[%d pending]", p.RSThread, len(p.Pending))
	}
	fmt.Fprintf(&b, "{#%d; %s}", p.EndPoint, p.Condition.String())
	return b.String()
}
