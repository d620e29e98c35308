package main

import (
	"fmt"

	"github.com/fwojciec/sift"
	"gopkg.in/yaml.v3"
)

// Run executes the schemas command.
func (c *SchemasCmd) Run(deps *Dependencies) error {
	if c.Name == "" {
		for _, s := range sift.BuiltinSchemas() {
			fmt.Fprintf(deps.Stdout, "%-10s %s\n", s.Name, s.Description)
		}
		return nil
	}

	schema, err := loadSchema(c.Name)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
		return err
	}
	out, err := yaml.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	_, err = deps.Stdout.Write(out)
	return err
}
