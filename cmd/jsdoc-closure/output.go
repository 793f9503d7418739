// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/AleutianAI/jsdocclosure/pkg/ux"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/runner"
)

// reportOutcomes prints one line per changed or failed file, followed by
// its diff and diagnostics.
func reportOutcomes(out *ux.Printer, s *runner.Summary, wrote bool) {
	for _, o := range s.Outcomes {
		if o.Err != nil {
			out.Error(fmt.Sprintf("%s: %v", o.Path, o.Err))
			continue
		}
		res := o.Result
		switch {
		case o.Written:
			out.Success("rewrote " + o.Path)
		case res.Changed && !wrote:
			out.Info("would rewrite " + o.Path)
		}
		if o.Diff != nil {
			out.Diff(o.Diff)
		}
		for _, d := range res.Diagnostics {
			out.Warning(fmt.Sprintf("%s:%d: %s", o.Path, d.Line, d.Message))
		}
	}
}

// reportSummary prints the run totals.
func reportSummary(out *ux.Printer, s *runner.Summary) {
	out.Fields("jsdoc-closure", []ux.Field{
		{Key: "Files", Value: strconv.Itoa(s.Files)},
		{Key: "Changed", Value: strconv.Itoa(s.Changed)},
		{Key: "Written", Value: strconv.Itoa(s.Written)},
		{Key: "Cached", Value: strconv.Itoa(s.Cached)},
		{Key: "Failed", Value: strconv.Itoa(s.Failed)},
		{Key: "Imports", Value: strconv.Itoa(s.Imports)},
		{Key: "Typedef exports", Value: strconv.Itoa(s.Exports)},
		{Key: "Diagnostics", Value: strconv.Itoa(s.Diagnostics)},
		{Key: "Duration", Value: s.Duration.Round(time.Millisecond).String()},
		{Key: "Run ID", Value: s.RunID},
	})
}
