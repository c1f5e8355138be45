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

package driver

import (
	"flag"
	"fmt"
	"reflect"

	"github.com/relaxedmm/opsem/config"
	"golang.org/x/tools/go/analysis"
)

const _doc = "Run the opsem consistency checker against one of the built-in GraphBuilder " +
	"fixtures named by -opsem_scenario, reporting one diagnostic per inconsistent candidate " +
	"execution found."

// Analyzer wraps the consistency engine as a *analysis.Analyzer. The
// programs analyzed here are never parsed Go source - the engine's input
// is a driver.GraphBuilder call sequence - so Run ignores pass.Pkg
// entirely and instead builds and checks the fixture named by the
// -opsem_scenario flag. This lets cmd/opsemcheck be composed with
// go/analysis drivers (singlechecker, multichecker, and linter plugin
// shims) even though the "package" being analyzed is synthetic.
var Analyzer = &analysis.Analyzer{
	Name:       "opsemcheck",
	Doc:        _doc,
	Run:        run,
	Flags:      flags(),
	ResultType: reflect.TypeOf((*Report)(nil)),
}

var _scenario string

func flags() flag.FlagSet {
	fs := flag.NewFlagSet("opsemcheck", flag.ContinueOnError)
	fs.StringVar(&_scenario, "opsem_scenario", "message-passing",
		"name of the built-in fixture to check (sequential, message-passing, causal-loop, hidden-vse, release-sequence)")
	return *fs
}

func run(pass *analysis.Pass) (interface{}, error) {
	build, ok := Fixtures[_scenario]
	if !ok {
		return nil, fmt.Errorf("driver: unknown scenario %q", _scenario)
	}
	b := build()
	verdicts, err := Enumerate(b, config.DefaultModificationOrderLimit)
	if err != nil {
		return nil, err
	}
	report := NewReport(verdicts)

	if len(pass.Files) > 0 {
		pos := pass.Files[0].Pos()
		for i, v := range verdicts {
			if v.Admissible {
				continue
			}
			pass.Report(analysis.Diagnostic{
				Pos:     pos,
				Message: fmt.Sprintf("candidate %d inconsistent: %s under %s", i, v.Reason, v.InvalidCondition.String()),
			})
		}
	}
	return report, nil
}
