package main

import (
	"fmt"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/dedup"
	"github.com/fwojciec/sift/fs"
)

// Run executes the dedup command.
func (c *DedupCmd) Run(deps *Dependencies) error {
	schema, err := loadSchema(c.Schema)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
		return err
	}

	config := dedup.DefaultConfig(schema)
	config.Threshold = c.Threshold
	config.KeyField = c.KeyField
	if err := config.Validate(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
		return err
	}

	var records []*sift.ValidatedRecord
	var skipped []error
	for _, path := range c.Files {
		recs, bad, err := fs.ReadFile(path)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %v\n", err)
			return err
		}
		for _, e := range bad {
			deps.Logger.Warn("skip record", "err", e)
		}
		records = append(records, recs...)
		skipped = append(skipped, bad...)
	}

	result, err := dedup.New(config).Deduplicate(records)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}
	for _, e := range result.Skipped {
		deps.Logger.Warn("skip record", "err", e)
	}
	result.Input += len(skipped)
	result.Skipped = append(skipped, result.Skipped...)

	if err := fs.WriteFileAtomic(deps.Ctx, c.Out, result.Canonical); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	printDedup(deps, c.Out, result)
	return nil
}
