package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/crawl"
)

// Run executes the runs command.
func (c *RunsCmd) Run(deps *Dependencies) error {
	if c.ID != "" {
		run, err := deps.Runs.FindRunByID(deps.Ctx, c.ID)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
			return err
		}
		printRun(deps, run)
		for _, t := range run.Targets {
			fmt.Fprintf(deps.Stdout, "  %s\n", crawl.FormatResult(t))
		}
		return nil
	}

	runs, err := deps.Runs.FindRuns(deps.Ctx, sift.RunFilter{Limit: c.Limit})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No runs found. Use 'sift scrape' to start one.")
		return nil
	}
	for _, run := range runs {
		printRun(deps, run)
	}
	return nil
}

func printRun(deps *Dependencies, run *sift.Run) {
	finished := "running"
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
	}
	fmt.Fprintf(deps.Stdout, "%s  %s  %s  %s\n",
		run.ID, run.Schema, run.StartedAt.Local().Format(time.DateTime), finished)
}
