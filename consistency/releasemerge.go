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

import "github.com/relaxedmm/opsem/boolalg"

// A release-sequence property is in one of four states, the cross product
// of its Broken and NotSyncedYet flags. A node can hold up to four
// matching entries, one per state, whose conditions A, B, C, D must stay
// pairwise disjoint: under any single assignment of the branch variables
// the sequence is in exactly one state.
//
// Merging an alternative-path copy with condition E therefore cannot just
// OR E into its state's bucket. Where E overlaps an existing bucket, the
// two paths describe the same sequence observed twice, and the combined
// state is their join: broken if either path broke it (Broken is OR-ed),
// synced if either path synced it (NotSyncedYet is AND-ed). The overlap
// moves to the joined state's bucket; only the residue of E lands in E's
// own bucket. rsJoinTable encodes that join; mergeReleaseSequence drives
// the rewrite from it, preserving both disjointness and the total
// condition sum.
type rsState uint8

const (
	rsSynced       rsState = 0 // Broken=false NotSyncedYet=false
	rsBrokenSynced rsState = 1 // Broken=true  NotSyncedYet=false
	rsNotSynced    rsState = 2 // Broken=false NotSyncedYet=true
	rsBrokenOpen   rsState = 3 // Broken=true  NotSyncedYet=true
)

func stateOf(p Property) rsState {
	s := rsSynced
	if p.Broken {
		s |= 1
	}
	if p.NotSyncedYet {
		s |= 2
	}
	return s
}

func (s rsState) broken() bool    { return s&1 != 0 }
func (s rsState) notSynced() bool { return s&2 != 0 }

// rsJoinTable[existing][incoming] is the state of the overlap region:
// Broken OR-ed, NotSyncedYet AND-ed.
var rsJoinTable = [4][4]rsState{
	rsSynced:       {rsSynced, rsBrokenSynced, rsSynced, rsBrokenSynced},
	rsBrokenSynced: {rsBrokenSynced, rsBrokenSynced, rsBrokenSynced, rsBrokenSynced},
	rsNotSynced:    {rsSynced, rsBrokenSynced, rsNotSynced, rsBrokenOpen},
	rsBrokenOpen:   {rsBrokenSynced, rsBrokenSynced, rsBrokenOpen, rsBrokenOpen},
}

// withState returns a copy of p reshaped into state s. Broken sequences
// carry no pending properties (they will never unwrap).
func withState(p Property, s rsState) Property {
	p.Broken = s.broken()
	p.NotSyncedYet = s.notSynced()
	if p.Broken {
		p.Pending = nil
	}
	return p
}

// mergeReleaseSequence merges the release-sequence property e into the
// collection, driven by rsJoinTable. buckets[s] tracks the matching entry
// in state s, if any.
func (ps *Properties) mergeReleaseSequence(e Property) {
	bucket := [4]int{-1, -1, -1, -1}
	for i := range ps.entries {
		if needMerging(e, ps.entries[i]) {
			bucket[stateOf(ps.entries[i])] = i
		}
	}

	s := stateOf(e)
	condE := e.Condition
	notE := condE.Negate()

	// Overlap mass moved out of each existing bucket, by target state.
	moved := [4]boolalg.Expression{boolalg.Zero(), boolalg.Zero(), boolalg.Zero(), boolalg.Zero()}
	covered := boolalg.Zero()
	for t := rsState(0); t < 4; t++ {
		i := bucket[t]
		if i < 0 {
			continue
		}
		covered = covered.Add(ps.entries[i].Condition)
		target := rsJoinTable[t][s]
		if target == t {
			continue
		}
		moved[target] = moved[target].Add(ps.entries[i].Condition.Multiply(condE))
		ps.entries[i].Condition = ps.entries[i].Condition.Multiply(notE)
	}

	// The part of E no existing bucket overlaps stays in E's own state.
	moved[s] = moved[s].Add(condE.Multiply(covered.Negate()))

	for t := rsState(0); t < 4; t++ {
		if moved[t].IsZero() {
			continue
		}
		if i := bucket[t]; i >= 0 {
			ps.entries[i].Condition = ps.entries[i].Condition.Add(moved[t])
			continue
		}
		// A fresh bucket: shaped from E when the mass lands in E's own
		// state (keeping E's pending list), otherwise from the join, which
		// can only produce the broken-synced state out of thin air.
		fresh := withState(e, t)
		fresh.Condition = moved[t]
		ps.entries = append(ps.entries, fresh)
	}
	ps.dropZero()
}
