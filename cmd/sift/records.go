package main

import (
	"fmt"
	"path/filepath"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/fs"
	"github.com/fwojciec/sift/sqlite"
)

// Run executes the records command.
func (c *RecordsCmd) Run(deps *Dependencies) error {
	schema, err := loadSchema(c.Schema)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
		return err
	}

	var (
		records []*sift.ValidatedRecord
		skipped []error
	)
	switch c.Store {
	case "sqlite":
		records, skipped, err = sqlite.NewRecordStore(deps.DB, c.Target).ReadAll(deps.Ctx)
	default:
		path := fs.NewDir(filepath.Join(c.Out, "records")).Path(c.Target)
		records, skipped, err = fs.ReadFile(path)
	}
	for _, e := range skipped {
		deps.Logger.Warn("skip record", "err", e)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	if len(records) == 0 {
		fmt.Fprintf(deps.Stdout, "No records for %q. Use 'sift scrape' to extract some.\n", c.Target)
		return nil
	}
	if c.Limit > 0 && len(records) > c.Limit {
		records = records[:c.Limit]
	}

	fmt.Fprintln(deps.Stdout, sift.FormatRecords(schema, records))
	return nil
}
