/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/familystore/errors"
)

func TestDefaultSeeds(t *testing.T) {
	seeds := DefaultSeeds()
	require.Len(t, seeds, 2)

	andersen, wakefield := seeds[0], seeds[1]
	assert.Equal(t, "Andersen.1", andersen.ID)
	assert.Equal(t, "Andersen", andersen.LastName)
	assert.False(t, andersen.IsRegistered)
	require.Len(t, andersen.Children, 1)
	assert.Equal(t, 5, andersen.Children[0].Grade)

	assert.Equal(t, "Wakefield.7", wakefield.ID)
	assert.True(t, wakefield.IsRegistered)
	require.Len(t, wakefield.Children, 2)
	assert.Equal(t, 8, wakefield.Children[0].Grade)
	assert.Equal(t, 1, wakefield.Children[1].Grade)
	assert.Len(t, wakefield.Children[0].Pets, 2)
	assert.Equal(t, "NY", wakefield.Address.State)
}

func TestDefaultSeedsAreIndependentCopies(t *testing.T) {
	a := DefaultSeeds()
	a[1].Children[0].Grade = 6
	assert.Equal(t, 8, DefaultSeeds()[1].Children[0].Grade)
}

func TestParseSeedsErrors(t *testing.T) {
	tests := []struct {
		name       string
		yaml       string
		validation bool
	}{
		{"empty document", ``, true},
		{"empty list", "families: []", true},
		{"missing id", "families:\n  - lastName: Smith", true},
		{"missing last name", "families:\n  - id: Smith.1", true},
		{"duplicate", "families:\n  - {id: A.1, lastName: A}\n  - {id: A.1, lastName: A}", true},
		{"malformed", "families: [", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeeds([]byte(tt.yaml))
			require.Error(t, err)
			assert.Equal(t, tt.validation, errors.IsValidationError(err))
		})
	}
}

func TestParseSeedsSameIDDifferentPartition(t *testing.T) {
	seeds, err := ParseSeeds([]byte("families:\n  - {id: X.1, lastName: A}\n  - {id: X.1, lastName: B}"))
	require.NoError(t, err)
	assert.Len(t, seeds, 2)
}

func TestEventCatalog(t *testing.T) {
	ids := make(map[int]string)
	names := make(map[string]bool)
	for _, e := range Events() {
		if prev, ok := ids[e.ID]; ok {
			t.Errorf("event id %d used by %s and %s", e.ID, prev, e.Name)
		}
		ids[e.ID] = e.Name
		assert.False(t, names[e.Name], "duplicate name %s", e.Name)
		names[e.Name] = true
		assert.NotEmpty(t, e.Message)
	}
	assert.Len(t, ids, 13)

	fields := EventItemCreated.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "event.id", fields[0].Key)
	assert.Equal(t, int64(3002), fields[0].Integer)
	assert.Equal(t, "ItemCreated", fields[1].String)
}
