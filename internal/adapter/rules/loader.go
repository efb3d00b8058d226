package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a YAML rules file over the defaults and validates it.
// Sections absent from the file keep their default values.
func LoadFromFile(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	r := Default()
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing rules YAML: %w", err)
	}

	if err := validate(r); err != nil {
		return nil, fmt.Errorf("validating rules: %w", err)
	}

	return r, nil
}

// Load returns the defaults when path is empty, else the file's rules.
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFromFile(path)
}

func validate(r *Rules) error {
	if r.Corpus.Separator == "" {
		return fmt.Errorf("corpus.separator must not be empty")
	}
	if r.DDL.ColumnType == "" {
		return fmt.Errorf("ddl.column_type must not be empty")
	}
	if r.Candidates.MinLength < 0 {
		return fmt.Errorf("candidates.min_length must not be negative")
	}
	if r.Candidates.MaxLength <= r.Candidates.MinLength+1 {
		return fmt.Errorf("candidates.max_length (%d) must exceed min_length (%d) by at least 2", r.Candidates.MaxLength, r.Candidates.MinLength)
	}
	if r.Sampling.SampleSize <= 0 {
		return fmt.Errorf("sampling.sample_size must be a positive integer")
	}
	for table, cols := range r.Sampling.Exclude {
		if table == "" {
			return fmt.Errorf("sampling.exclude contains an empty key")
		}
		for _, c := range cols {
			if c == "" {
				return fmt.Errorf("sampling.exclude[%q] contains an empty column", table)
			}
		}
	}
	return nil
}
