/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"strings"

	"github.com/suparena/familystore/errors"
)

// QueryDefinition selects every record of a container whose Field equals Value.
// Backends translate it to their native query form; Text renders it the way
// it is logged and attached to spans.
type QueryDefinition struct {
	// Field is the top-level attribute compared, e.g. "LastName".
	Field string
	// Value is the string the attribute must equal.
	Value string
	// PageSize caps the records per page. Zero leaves it to the backend.
	PageSize int32
}

// NewEqualityQuery builds a query matching records whose field equals value.
func NewEqualityQuery(field, value string) QueryDefinition {
	return QueryDefinition{Field: field, Value: value}
}

// WithPageSize returns a copy of q with the page size set.
func (q QueryDefinition) WithPageSize(size int32) QueryDefinition {
	q.PageSize = size
	return q
}

// Validate checks the query is complete.
func (q QueryDefinition) Validate() error {
	if q.Field == "" {
		return errors.NewValidationError("Field", "query field is required")
	}
	if strings.ContainsAny(q.Field, " .'\"") {
		return errors.NewValidationError("Field", fmt.Sprintf("unsupported attribute name %q", q.Field))
	}
	if q.PageSize < 0 {
		return errors.NewValidationError("PageSize", "must not be negative")
	}
	return nil
}

// Text renders the query in SQL form, e.g. SELECT * FROM c WHERE c.LastName = 'Andersen'.
func (q QueryDefinition) Text() string {
	value := strings.ReplaceAll(q.Value, `'`, `\'`)
	return fmt.Sprintf("SELECT * FROM c WHERE c.%s = '%s'", q.Field, value)
}

// PartitionKeyAttribute converts a partition key path such as "/LastName" to
// the attribute name it addresses.
func PartitionKeyAttribute(path string) (string, error) {
	attr, ok := strings.CutPrefix(path, "/")
	if !ok || attr == "" || strings.Contains(attr, "/") {
		return "", errors.NewValidationError("PartitionKeyPath", fmt.Sprintf("expected a single top-level path like /LastName, got %q", path))
	}
	return attr, nil
}
