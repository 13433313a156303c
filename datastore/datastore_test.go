/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/familystore/errors"
	"github.com/suparena/familystore/storagemodels"
)

func TestOperationError(t *testing.T) {
	diag := storagemodels.BeginDiagnostics("ReadItem").Complete(404)
	err := fmt.Errorf("add items: %w", NewOperationError("ReadItem", diag, errors.NewNotFoundError("Family", "Andersen.1", "Andersen")))

	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "ReadItem: Family [Andersen,Andersen.1] not found")

	got, ok := DiagnosticsFromError(err)
	require.True(t, ok)
	assert.Equal(t, 404, got.StatusCode)

	_, ok = DiagnosticsFromError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestDecodePage(t *testing.T) {
	raw := `[{"id":"Andersen.1","LastName":"Andersen"},{"id":"Andersen.2","LastName":"Andersen"}]`
	page := NewFeedResponse(storagemodels.PageMeta{PageNumber: 1, ItemCount: 2}, storagemodels.Diagnostics{}, func(out any) error {
		return json.Unmarshal([]byte(raw), out)
	})

	families, err := DecodePage[storagemodels.Family](page)
	require.NoError(t, err)
	require.Len(t, families, 2)
	assert.Equal(t, "Andersen.2", families[1].ID)
}

func TestDecodePageError(t *testing.T) {
	page := NewFeedResponse(storagemodels.PageMeta{PageNumber: 3}, storagemodels.Diagnostics{}, func(out any) error {
		return fmt.Errorf("boom")
	})

	_, err := DecodePage[storagemodels.Family](page)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode page 3")
}

func TestItemResponseRequestCharge(t *testing.T) {
	var nilResp *ItemResponse
	assert.Zero(t, nilResp.RequestCharge())

	resp := &ItemResponse{Diagnostics: storagemodels.Diagnostics{RequestCharge: 5.5}}
	assert.Equal(t, 5.5, resp.RequestCharge())
}
