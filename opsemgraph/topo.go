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

package opsemgraph

import "github.com/relaxedmm/opsem/memory"

// TopologicalOrder returns a dense ordering of every action in the graph
// that respects sb and asw edges. Ties (actions with no sb/asw
// relationship) are broken by ascending ActionID, for determinism.
func (g *Graph) TopologicalOrder() []memory.ActionID {
	n := len(g.Actions)
	indegree := make([]int, n)
	for i := range g.Actions {
		for _, ep := range g.Actions[i].EndPoints {
			if ep.Role != memory.Head {
				continue
			}
			if t := g.Edges[ep.Edge].Type; t == memory.SB || t == memory.ASW {
				indegree[i]++
			}
		}
	}

	queue := make([]memory.ActionID, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			queue = append(queue, memory.ActionID(i))
		}
	}

	order := make([]memory.ActionID, 0, n)
	visited := make([]bool, n)
	for len(queue) > 0 {
		// Pop the smallest-id ready node for determinism.
		minIdx := 0
		for i := 1; i < len(queue); i++ {
			if queue[i] < queue[minIdx] {
				minIdx = i
			}
		}
		node := queue[minIdx]
		queue = append(queue[:minIdx], queue[minIdx+1:]...)
		if visited[node] {
			continue
		}
		visited[node] = true
		order = append(order, node)

		for _, ep := range g.Actions[node].EndPoints {
			if ep.Role != memory.Tail {
				continue
			}
			if t := g.Edges[ep.Edge].Type; t == memory.SB || t == memory.ASW {
				indegree[ep.Other]--
				if indegree[ep.Other] == 0 {
					queue = append(queue, ep.Other)
				}
			}
		}
	}

	// Any remaining (unvisited) nodes sit on a cycle, which should not
	// happen for a well-formed opsem graph; append them in id order so the
	// function still returns a total, deterministic order rather than
	// silently dropping nodes.
	for i := 0; i < n; i++ {
		if !visited[memory.ActionID(i)] {
			order = append(order, memory.ActionID(i))
		}
	}
	return order
}

// SequenceNumbers returns the position of every action in
// TopologicalOrder.
func (g *Graph) SequenceNumbers() map[memory.ActionID]int {
	order := g.TopologicalOrder()
	out := make(map[memory.ActionID]int, len(order))
	for i, a := range order {
		out[a] = i
	}
	return out
}

// ReachableOpsem reports whether to is reachable from `from` by following
// only opsem edges (sb, asw, dd, cd) forward.
func (g *Graph) ReachableOpsem(from, to memory.ActionID) bool {
	if from == to {
		return true
	}
	visited := make(map[memory.ActionID]bool)
	stack := []memory.ActionID{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		for _, next := range g.OutgoingOpsem(n) {
			if next == to {
				return true
			}
			if !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	return false
}
