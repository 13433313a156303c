/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/familystore/datastore"
	"github.com/suparena/familystore/errors"
	"github.com/suparena/familystore/storagemodels"
)

func newTestContainer(t *testing.T, api *fakeAPI) (*Client, datastore.Container) {
	t.Helper()
	ctx := context.Background()
	client := NewFromAPI(api, WithPageSize(10))

	dbResp, err := client.CreateDatabaseIfNotExists(ctx, "db")
	require.NoError(t, err)

	ctResp, err := dbResp.Database.CreateContainerIfNotExists(ctx, datastore.ContainerProperties{ID: "items", PartitionKeyPath: "/LastName"})
	require.NoError(t, err)
	return client, ctResp.Container
}

func TestCreateContainerIfNotExists(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	client := NewFromAPI(api)

	dbResp, err := client.CreateDatabaseIfNotExists(ctx, "db")
	require.NoError(t, err)
	assert.True(t, dbResp.Created)

	props := datastore.ContainerProperties{ID: "items", PartitionKeyPath: "/LastName"}
	first, err := dbResp.Database.CreateContainerIfNotExists(ctx, props)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, 201, first.Diagnostics.StatusCode)

	table := api.tables["db-items"]
	require.NotNil(t, table)
	assert.Equal(t, "LastName", table.hash)
	assert.Equal(t, "id", table.rng)

	second, err := dbResp.Database.CreateContainerIfNotExists(ctx, props)
	require.NoError(t, err)
	assert.False(t, second.Created)

	again, err := client.CreateDatabaseIfNotExists(ctx, "db")
	require.NoError(t, err)
	assert.False(t, again.Created)

	ids, _, err := client.Database("db").ContainerIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"items"}, ids)
}

func TestDatabaseIDMayNotContainSeparator(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	client := NewFromAPI(api)

	dbResp, err := client.CreateDatabaseIfNotExists(ctx, "db")
	require.NoError(t, err)
	_, err = dbResp.Database.CreateContainerIfNotExists(ctx, datastore.ContainerProperties{ID: "x-y", PartitionKeyPath: "/LastName"})
	require.NoError(t, err)

	_, err = client.CreateDatabaseIfNotExists(ctx, "db-x")
	assert.True(t, errors.IsValidationError(err))
	diag, ok := datastore.DiagnosticsFromError(err)
	require.True(t, ok)
	assert.Equal(t, 400, diag.StatusCode)

	_, _, err = client.Database("db-x").ContainerIDs(ctx)
	assert.True(t, errors.IsValidationError(err))

	_, err = client.Database("db-x").CreateContainerIfNotExists(ctx, datastore.ContainerProperties{ID: "y", PartitionKeyPath: "/LastName"})
	assert.True(t, errors.IsValidationError(err))
	assert.Len(t, api.tables, 1, "no table was created for the rejected database")

	ids, _, err := client.Database("db").ContainerIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"x-y"}, ids)
}

func TestCreateContainerRejectsNestedPath(t *testing.T) {
	client := NewFromAPI(newFakeAPI())
	_, err := client.Database("db").CreateContainerIfNotExists(context.Background(), datastore.ContainerProperties{ID: "items", PartitionKeyPath: "/Address/City"})
	assert.True(t, errors.IsValidationError(err))
}

func TestItemLifecycle(t *testing.T) {
	ctx := context.Background()
	_, ct := newTestContainer(t, newFakeAPI())

	andersen := storagemodels.Family{ID: "Andersen.1", LastName: "Andersen", Address: storagemodels.Address{City: "Seattle"}}

	var got storagemodels.Family
	_, err := ct.ReadItem(ctx, andersen.ID, andersen.LastName, &got)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	diag, ok := datastore.DiagnosticsFromError(err)
	require.True(t, ok)
	assert.Equal(t, 404, diag.StatusCode)

	created, err := ct.CreateItem(ctx, andersen.LastName, andersen)
	require.NoError(t, err)
	assert.Equal(t, 1.0, created.RequestCharge())

	_, err = ct.CreateItem(ctx, andersen.LastName, andersen)
	assert.True(t, errors.IsAlreadyExists(err), "got %v", err)

	_, err = ct.ReadItem(ctx, andersen.ID, andersen.LastName, &got)
	require.NoError(t, err)
	assert.Equal(t, "Seattle", got.Address.City)

	got.IsRegistered = true
	_, err = ct.ReplaceItem(ctx, got.ID, got.LastName, got)
	require.NoError(t, err)

	_, err = ct.ReplaceItem(ctx, "Andersen.9", "Andersen", storagemodels.Family{ID: "Andersen.9", LastName: "Andersen"})
	assert.True(t, errors.IsNotFound(err))

	_, err = ct.ReplaceItem(ctx, "Andersen.1", "Andersen", storagemodels.Family{ID: "Other", LastName: "Andersen"})
	assert.True(t, errors.IsValidationError(err))

	_, err = ct.CreateItem(ctx, "Wakefield", storagemodels.Family{ID: "x", LastName: "Andersen"})
	assert.True(t, errors.IsValidationError(err))

	_, err = ct.DeleteItem(ctx, andersen.ID, andersen.LastName)
	require.NoError(t, err)
	_, err = ct.DeleteItem(ctx, andersen.ID, andersen.LastName)
	assert.True(t, errors.IsNotFound(err))
}

func TestContainerHandleDescribesTable(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	client, _ := newTestContainer(t, api)

	handle := client.Database("db").Container("items")
	_, err := handle.CreateItem(ctx, "Andersen", storagemodels.Family{ID: "Andersen.1", LastName: "Andersen"})
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls["DescribeTable"], "handle resolves the key schema on first use")

	_, err = handle.DeleteItem(ctx, "Andersen.1", "Andersen")
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls["DescribeTable"])
}

func TestQueryPages(t *testing.T) {
	ctx := context.Background()
	_, ct := newTestContainer(t, newFakeAPI())

	for _, f := range []storagemodels.Family{
		{ID: "Andersen.1", LastName: "Andersen"},
		{ID: "Andersen.2", LastName: "Andersen"},
		{ID: "Wakefield.7", LastName: "Wakefield", IsRegistered: true},
	} {
		_, err := ct.CreateItem(ctx, f.LastName, f)
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		query storagemodels.QueryDefinition
		ids   []string
		pages int
	}{
		{"partition key uses Query", storagemodels.NewEqualityQuery("LastName", "Andersen").WithPageSize(1), []string{"Andersen.1", "Andersen.2"}, 2},
		{"other field uses Scan", storagemodels.NewEqualityQuery("id", "Wakefield.7"), []string{"Wakefield.7"}, 1},
		{"no matches", storagemodels.NewEqualityQuery("LastName", "Nobody"), nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pager := ct.Query(tt.query)
			var ids []string
			pages := 0
			for pager.HasMorePages() {
				page, err := pager.NextPage(ctx)
				require.NoError(t, err)
				pages++
				assert.Equal(t, pages, page.Meta.PageNumber)
				assert.Equal(t, tt.query.Text(), page.Diagnostics.Detail)

				families, err := datastore.DecodePage[storagemodels.Family](page)
				require.NoError(t, err)
				for _, f := range families {
					ids = append(ids, f.ID)
				}
			}
			assert.Equal(t, tt.pages, pages)
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestQueryInvalidField(t *testing.T) {
	_, ct := newTestContainer(t, newFakeAPI())
	pager := ct.Query(storagemodels.NewEqualityQuery("Last Name", "x"))
	_, err := pager.NextPage(context.Background())
	assert.True(t, errors.IsValidationError(err))
}

func TestDeleteContainer(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	client, ct := newTestContainer(t, api)

	resp, err := ct.Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/LastName", resp.Properties.PartitionKeyPath)
	assert.Empty(t, api.tables)

	ids, _, err := client.Database("db").ContainerIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = ct.Delete(ctx)
	assert.True(t, errors.IsNotFound(err))
}

func TestThrottledCallCarriesDiagnostics(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	_, ct := newTestContainer(t, api)
	api.errs["PutItem"] = &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}

	_, err := ct.CreateItem(ctx, "Andersen", storagemodels.Family{ID: "Andersen.1", LastName: "Andersen"})
	require.Error(t, err)
	assert.True(t, errors.IsThrottled(err))

	diag, ok := datastore.DiagnosticsFromError(err)
	require.True(t, ok)
	assert.Equal(t, "CreateItem", diag.Operation)
	assert.Equal(t, 429, diag.StatusCode)
	assert.Equal(t, "db-items", diag.Detail)
}
