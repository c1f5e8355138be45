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

// main package builds opsemcheck as a standalone checker. Besides running
// under the usual go/analysis driver protocol, it supports a direct mode
// (-scenario) that analyzes one of the built-in example programs and
// prints the per-candidate verdicts without needing any Go package
// arguments at all.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/relaxedmm/opsem/config"
	"github.com/relaxedmm/opsem/driver"
	"golang.org/x/tools/go/analysis/singlechecker"
)

var (
	_scenario = flag.String("scenario", "",
		"analyze the named built-in example program directly and exit; empty runs the go/analysis driver")
	_dump = flag.String("dump", "", "write an s2-compressed JSON report of every candidate verdict to this file")
	_list = flag.Bool("list", false, "list the built-in example programs and exit")
)

func main() {
	flag.Parse()

	if *_list {
		names := make([]string, 0, len(driver.Fixtures))
		for name := range driver.Fixtures {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	if *_scenario != "" {
		if err := runScenario(*_scenario, *_dump); err != nil {
			fmt.Fprintf(os.Stderr, "opsemcheck: %v\n", err)
			os.Exit(1)
		}
		return
	}

	singlechecker.Main(driver.Analyzer)
}

func runScenario(name, dumpPath string) error {
	build, ok := driver.Fixtures[name]
	if !ok {
		return fmt.Errorf("unknown scenario %q (try -list)", name)
	}
	verdicts, err := driver.Enumerate(build(), config.DefaultModificationOrderLimit)
	if err != nil {
		return err
	}
	report := driver.NewReport(verdicts)
	fmt.Print(report.String())

	if dumpPath == "" {
		return nil
	}
	f, err := os.Create(dumpPath)
	if err != nil {
		return fmt.Errorf("create dump file: %w", err)
	}
	defer f.Close()
	if err := report.WriteDump(f); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	return nil
}
