/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"strings"
	"testing"
	"time"

	"github.com/suparena/familystore/errors"
)

func TestQueryDefinitionText(t *testing.T) {
	tests := []struct {
		name     string
		query    QueryDefinition
		expected string
	}{
		{
			name:     "partition key equality",
			query:    NewEqualityQuery("LastName", "Andersen"),
			expected: "SELECT * FROM c WHERE c.LastName = 'Andersen'",
		},
		{
			name:     "quote is escaped",
			query:    NewEqualityQuery("LastName", "O'Brien"),
			expected: `SELECT * FROM c WHERE c.LastName = 'O\'Brien'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Text(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestQueryDefinitionValidate(t *testing.T) {
	tests := []struct {
		name    string
		query   QueryDefinition
		wantErr bool
	}{
		{name: "valid", query: NewEqualityQuery("LastName", "Andersen").WithPageSize(10)},
		{name: "missing field", query: NewEqualityQuery("", "Andersen"), wantErr: true},
		{name: "nested path", query: NewEqualityQuery("Address.State", "WA"), wantErr: true},
		{name: "negative page size", query: NewEqualityQuery("LastName", "x").WithPageSize(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr {
				if !errors.IsValidationError(err) {
					t.Errorf("Expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestWithPageSizeDoesNotMutate(t *testing.T) {
	base := NewEqualityQuery("LastName", "Andersen")
	paged := base.WithPageSize(5)
	if base.PageSize != 0 || paged.PageSize != 5 {
		t.Errorf("WithPageSize should copy, got base=%d paged=%d", base.PageSize, paged.PageSize)
	}
}

func TestPartitionKeyAttribute(t *testing.T) {
	attr, err := PartitionKeyAttribute("/LastName")
	if err != nil || attr != "LastName" {
		t.Fatalf("Expected LastName, got %q (%v)", attr, err)
	}

	for _, bad := range []string{"", "/", "LastName", "/Address/State"} {
		if _, err := PartitionKeyAttribute(bad); !errors.IsValidationError(err) {
			t.Errorf("Expected validation error for %q, got %v", bad, err)
		}
	}
}

func TestDiagnostics(t *testing.T) {
	d := BeginDiagnostics("ReadItem")
	time.Sleep(time.Millisecond)
	d = d.Complete(200)
	d.RequestCharge = 1
	d.RequestID = "req-1"

	if d.Latency <= 0 {
		t.Errorf("Expected positive latency, got %v", d.Latency)
	}
	if d.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", d.StatusCode)
	}

	s := d.String()
	for _, want := range []string{`"operation":"ReadItem"`, `"requestCharge":1`, `"requestId":"req-1"`, `"statusCode":200`} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected %s in %s", want, s)
		}
	}
}

func TestFamilyString(t *testing.T) {
	f := Family{ID: "Wakefield.7", LastName: "Wakefield"}
	if f.String() != "Family[Wakefield,Wakefield.7]" {
		t.Errorf("unexpected %q", f.String())
	}
}
