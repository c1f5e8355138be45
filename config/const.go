//  Copyright (c) 2023 Uber Technologies, Inc.
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

package config

// This file hosts non-user-configurable parameters --- these are for development and testing purposes only.

// MaxBooleanVariables caps the number of live boolean variables a single
// analysis run may allocate; each variable takes one bit of the 64-bit
// Product/Expression bitmasks, and bit 63 is never assigned. Exceeding it
// is a capacity error, never silently truncated.
const MaxBooleanVariables = 63

// MaxCandidateExecutions bounds how many candidate executions (combinations
// of per-location rf subgraphs and mo orderings) the driver
// will enumerate for one program before giving up. Programs that would
// exceed this are rejected with a capacity error rather than enumerated
// partially - the engine targets small didactic programs, not production
// scale.
const MaxCandidateExecutions = 100000

// DefaultModificationOrderLimit caps the number of total modification
// orders considered per atomic location when the driver is not given an
// explicit limit. Most didactic examples have two or three writes per
// location, so this comfortably covers the factorial blow-up for the
// programs this engine targets.
const DefaultModificationOrderLimit = 720 // 6!
