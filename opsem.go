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

// Package opsem analyzes small concurrent programs against the C++11/14
// relaxed memory model: it enumerates the candidate executions the model
// permits and rejects those containing a causal loop, a hidden visible
// side effect, or a broken release sequence. The top-level Analyzer simply
// re-exports the driver's so that analysis drivers can depend on the root
// package alone.
package opsem

import (
	"github.com/relaxedmm/opsem/driver"
	"golang.org/x/tools/go/analysis"
)

// Analyzer is the top-level instance: it runs the consistency engine over
// a built-in example program and reports one diagnostic per inconsistent
// candidate execution.
var Analyzer *analysis.Analyzer = driver.Analyzer
