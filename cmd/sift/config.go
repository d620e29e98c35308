package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fwojciec/sift"
	"gopkg.in/yaml.v3"
)

// loadSchema resolves a built-in schema name or reads a YAML schema file.
func loadSchema(nameOrPath string) (*sift.Schema, error) {
	if !strings.HasSuffix(nameOrPath, ".yaml") && !strings.HasSuffix(nameOrPath, ".yml") {
		return sift.LookupSchema(nameOrPath)
	}

	data, err := os.ReadFile(nameOrPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, sift.Errorf(sift.ENOTFOUND, "schema file %q not found", nameOrPath)
	} else if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", nameOrPath, err)
	}

	var s sift.Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, sift.Errorf(sift.ECONFIG, "parse schema %s: %v", nameOrPath, err)
	}
	if err := s.Validate(); err != nil {
		return nil, sift.Errorf(sift.ECONFIG, "schema %s: %s", nameOrPath, sift.ErrorMessage(err))
	}
	return &s, nil
}

// targetsFile is the YAML layout of --targets.
type targetsFile struct {
	Targets []sift.Target `yaml:"targets"`
}

// loadTargets reads targets from a YAML file.
func loadTargets(path string) ([]sift.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets %s: %w", path, err)
	}
	var f targetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, sift.Errorf(sift.ECONFIG, "parse targets %s: %v", path, err)
	}
	if len(f.Targets) == 0 {
		return nil, sift.Errorf(sift.ECONFIG, "targets file %s lists no targets", path)
	}
	return f.Targets, nil
}
