/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package workflow

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/suparena/familystore/errors"
	"github.com/suparena/familystore/storagemodels"
)

//go:embed seeds.yaml
var defaultSeedsYAML []byte

type seedFile struct {
	Families []storagemodels.Family `yaml:"families"`
}

// ParseSeeds reads seed records from a YAML document with a top-level
// "families" list. Every record needs an id and a last name, and no two
// records may share both.
func ParseSeeds(data []byte) ([]storagemodels.Family, error) {
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seeds: %w", err)
	}
	if len(doc.Families) == 0 {
		return nil, errors.NewValidationError("families", "at least one seed record is required")
	}

	seen := make(map[[2]string]bool, len(doc.Families))
	for i, f := range doc.Families {
		if f.ID == "" || f.LastName == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("families[%d]", i), "id and lastName are required")
		}
		key := [2]string{f.LastName, f.ID}
		if seen[key] {
			return nil, errors.NewValidationError(fmt.Sprintf("families[%d]", i), fmt.Sprintf("duplicate record %s", f))
		}
		seen[key] = true
	}
	return doc.Families, nil
}

// DefaultSeeds returns the Andersen and Wakefield families.
func DefaultSeeds() []storagemodels.Family {
	seeds, err := ParseSeeds(defaultSeedsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded seeds: %v", err))
	}
	return seeds
}
