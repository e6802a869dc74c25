package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/utkarsh5026/jobpool/pipeline"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
	gray  = color.New(color.FgHiBlack)
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func newProgressBar(total int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Running jobs"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// renderSummary prints one row per job and a closing status line.
func renderSummary(w io.Writer, reports []pipeline.Report, elapsed time.Duration) {
	fmt.Fprintln(w)
	_, _ = bold.Fprintln(w, "JOB SUMMARY")

	table := tablewriter.NewWriter(w)
	table.Header("Job", "Status", "Detail")

	failed := 0
	for _, r := range reports {
		status, detail := green.Sprint("ok"), ""
		switch {
		case !r.Ran:
			failed++
			status, detail = gray.Sprint("skipped"), firstLine(r.Outcome.Err())
		case !r.Outcome.Succeeded():
			failed++
			status, detail = red.Sprint("FAILED"), firstLine(r.Outcome.Err())
		}
		_ = table.Append(r.Description, status, detail)
	}
	if err := table.Render(); err != nil {
		_, _ = red.Fprintf(w, "rendering summary: %v\n", err)
	}

	fmt.Fprintln(w)
	if failed == 0 {
		_, _ = green.Fprintf(w, "%d/%d jobs succeeded in %s\n", len(reports), len(reports), elapsed.Round(time.Millisecond))
		return
	}
	_, _ = red.Fprintf(w, "%d/%d jobs failed in %s\n", failed, len(reports), elapsed.Round(time.Millisecond))
}

func renderError(w io.Writer, err error) {
	var agg *pipeline.AggregateError
	if errors.As(err, &agg) {
		// per-job causes are already in the summary table
		return
	}
	_, _ = red.Fprintf(w, "error: %v\n", err)
}

func firstLine(err error) string {
	if err == nil {
		return ""
	}
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return msg
}
