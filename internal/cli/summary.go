package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/gookit/color"

	"github.com/specialistvlad/buildgrid/internal/executor"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
)

// writeSummary prints one line per target in plan order followed by totals.
// tests may be nil.
func writeSummary(w io.Writer, res *executor.RunResult, tests []executor.TestResult) {
	testErr := make(map[string]error, len(tests))
	tested := make(map[string]bool, len(tests))
	for _, tr := range tests {
		tested[tr.Target] = true
		testErr[tr.Target] = tr.Err
	}

	for _, tr := range res.Targets {
		line := fmt.Sprintf("  %-24s %s", tr.Name, stateLabel(tr))
		if tr.State == nodestore.Packaged && !tr.CacheHit {
			line += " " + color.Comment.Sprint(tr.Duration.Round(time.Millisecond))
		}
		if tested[tr.Name] {
			if testErr[tr.Name] != nil {
				line += " " + color.Danger.Sprint("tests failed")
			} else {
				line += " " + color.Success.Sprint("tests passed")
			}
		}
		fmt.Fprintln(w, line)
		if tr.Err != nil && !tr.Skipped() {
			fmt.Fprintf(w, "    %s\n", color.Danger.Sprint(tr.Err))
		}
	}

	packaged := res.Count(nodestore.Packaged)
	failed := res.Count(nodestore.Failed)
	summary := fmt.Sprintf("%d packaged (%d cached), %d failed in %s",
		packaged, res.CacheHits(), failed, res.Duration.Round(time.Millisecond))
	if failed > 0 {
		fmt.Fprintln(w, color.Danger.Sprint(summary))
	} else {
		fmt.Fprintln(w, color.Success.Sprint(summary))
	}
}

func stateLabel(tr executor.TargetResult) string {
	switch {
	case tr.CacheHit:
		return color.Info.Sprint("cached")
	case tr.State == nodestore.Packaged:
		return color.Success.Sprint("built")
	case tr.Skipped():
		return color.Warn.Sprint("skipped")
	default:
		return color.Danger.Sprint(tr.State.String())
	}
}
