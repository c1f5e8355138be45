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
	"strings"
)

// Properties is the per-node property collection of the DFS. Entries are
// kept in insertion order; each distinct (kind, end point, discriminant)
// occurs at most once, alternative-path copies being merged into the
// existing entry as they are added.
type Properties struct {
	entries []Property
}

// NewProperties returns an empty collection.
func NewProperties() *Properties {
	return &Properties{}
}

// Add merges p into the collection. Zero-condition properties are dropped
// outright. For causal-loop and reads-from properties an alternative-path
// copy ORs its condition into the existing entry; release-sequence
// properties merge through the four-state table in releasemerge.go, which
// keeps the per-state conditions pairwise disjoint.
func (ps *Properties) Add(p Property) {
	if p.Condition.IsZero() {
		return
	}
	if p.Kind == ReleaseSequence {
		ps.mergeReleaseSequence(p)
		return
	}
	for i := range ps.entries {
		q := &ps.entries[i]
		if !needMerging(p, *q) {
			continue
		}
		if p.Kind == CausalLoop {
			if p.HasLocation != q.HasLocation {
				continue
			}
			if p.HasLocation && p.Location != q.Location {
				// Pinned to different locations: unrelated loops.
				continue
			}
		}
		q.Condition = q.Condition.Add(p.Condition)
		return
	}
	if p.Kind == CausalLoop {
		// No exact partner. A loop around the same end point pinned to a
		// location and one not pinned are distinct loops that must not
		// merge; carve the conditions disjoint so each assignment of the
		// branch variables selects exactly one of them.
		for i := range ps.entries {
			q := &ps.entries[i]
			if !needMerging(p, *q) || p.HasLocation == q.HasLocation {
				continue
			}
			if p.HasLocation {
				p.Condition = p.Condition.Multiply(q.Condition.Negate())
			} else {
				q.Condition = q.Condition.Multiply(p.Condition.Negate())
			}
			break
		}
	}
	if !p.Condition.IsZero() {
		ps.entries = append(ps.entries, p)
	}
}

// Entries returns a copy of every property currently held, in insertion
// order.
func (ps *Properties) Entries() []Property {
	out := make([]Property, len(ps.entries))
	copy(out, ps.entries)
	return out
}

// IsEmpty reports whether the collection holds no properties.
func (ps *Properties) IsEmpty() bool {
	return len(ps.entries) == 0
}

// Len returns the number of distinct properties held.
func (ps *Properties) Len() int {
	return len(ps.entries)
}

// dropZero removes entries whose condition collapsed to zero during a
// release-sequence merge.
func (ps *Properties) dropZero() {
	kept := ps.entries[:0]
	for _, p := range ps.entries {
		if !p.Condition.IsZero() {
			kept = append(kept, p)
		}
	}
	ps.entries = kept
}

// String renders the collection for debugging.
func (ps *Properties) String() string {
	parts := make([]string, len(ps.entries))
	for i, p := range ps.entries {
		parts[i] = p.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
