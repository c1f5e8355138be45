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

// Diagnostics rendering. Collection and rendering are kept apart:
// Enumerate collects one Verdict per candidate execution, Report renders
// them for humans (String) or for offline inspection (WriteDump).
package driver

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/s2"
)

// Report bundles every candidate execution's Verdict for one analyzed
// program.
type Report struct {
	Verdicts []Verdict
}

// NewReport wraps the output of Enumerate for rendering.
func NewReport(verdicts []Verdict) *Report {
	return &Report{Verdicts: verdicts}
}

// AdmissibleCount returns how many candidate executions are admissible
// unconditionally (their invalid condition is exactly zero).
func (r *Report) AdmissibleCount() int {
	n := 0
	for _, v := range r.Verdicts {
		if v.Admissible {
			n++
		}
	}
	return n
}

// String renders a short human-readable summary, one line per candidate.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d candidate execution(s), %d admissible\n", len(r.Verdicts), r.AdmissibleCount())
	for i, v := range r.Verdicts {
		if v.Admissible {
			fmt.Fprintf(&b, "  candidate %d: admissible\n", i)
			continue
		}
		fmt.Fprintf(&b, "  candidate %d: INCONSISTENT (%s) under %s\n", i, v.Reason, v.InvalidCondition.String())
	}
	return b.String()
}

// reportRow is the JSON-serializable shape of one Verdict, flattening the
// boolalg.Expression fields down to their printed form: the dump is for
// offline human inspection, not round-tripping.
type reportRow struct {
	Candidate        int    `json:"candidate"`
	Admissible       bool   `json:"admissible"`
	Reason           string `json:"reason,omitempty"`
	InvalidCondition string `json:"invalid_condition"`
}

// WriteDump writes the report as s2-compressed JSON to w, for the
// cmd/opsemcheck -dump flag.
func (r *Report) WriteDump(w io.Writer) error {
	sw := s2.NewWriter(w)
	rows := make([]reportRow, len(r.Verdicts))
	for i, v := range r.Verdicts {
		rows[i] = reportRow{
			Candidate:        i,
			Admissible:       v.Admissible,
			Reason:           v.Reason,
			InvalidCondition: v.InvalidCondition.String(),
		}
	}
	enc := json.NewEncoder(sw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("driver: encode report: %w", err)
	}
	return sw.Close()
}
