//go:build integration
// +build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/suparena/familystore/datastore"
	"github.com/suparena/familystore/errors"
	"github.com/suparena/familystore/storagemodels"
)

// getIntegrationClient connects using DDB_TEST_CONNECTION, loaded from
// .env when present. Point it at DynamoDB Local with Endpoint=http://localhost:8000.
func getIntegrationClient(t *testing.T) *Client {
	t.Helper()
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, proceeding with environment variables")
	}
	conn := os.Getenv("DDB_TEST_CONNECTION")
	if conn == "" {
		t.Skip("DDB_TEST_CONNECTION not set")
	}
	client, err := New(context.Background(), conn, WithConsistentRead(true), WithTableWaitTimeout(time.Minute))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestDynamoDBContainerRoundTrip(t *testing.T) {
	client := getIntegrationClient(t)
	ctx := context.Background()
	dbID := fmt.Sprintf("familystore-it-%d", time.Now().UnixNano())

	dbResp, err := client.CreateDatabaseIfNotExists(ctx, dbID)
	if err != nil {
		t.Fatal(err)
	}
	ctResp, err := dbResp.Database.CreateContainerIfNotExists(ctx, datastore.ContainerProperties{ID: "items", PartitionKeyPath: "/LastName"})
	if err != nil {
		t.Fatal(err)
	}
	ct := ctResp.Container
	defer func() {
		if _, err := ct.Delete(ctx); err != nil {
			t.Errorf("cleanup: %v", err)
		}
	}()

	family := storagemodels.Family{ID: "Andersen.1", LastName: "Andersen", Address: storagemodels.Address{State: "WA", County: "King", City: "Seattle"}}
	created, err := ct.CreateItem(ctx, family.LastName, family)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("created with charge %.2f: %s", created.RequestCharge(), created.Diagnostics)

	if _, err := ct.CreateItem(ctx, family.LastName, family); !errors.IsAlreadyExists(err) {
		t.Fatalf("expected already exists, got %v", err)
	}

	var got storagemodels.Family
	if _, err := ct.ReadItem(ctx, family.ID, family.LastName, &got); err != nil {
		t.Fatal(err)
	}
	if got.Address.City != "Seattle" {
		t.Errorf("unexpected item %+v", got)
	}

	pager := ct.Query(storagemodels.NewEqualityQuery("LastName", "Andersen").WithPageSize(1))
	count := 0
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			t.Fatal(err)
		}
		families, err := datastore.DecodePage[storagemodels.Family](page)
		if err != nil {
			t.Fatal(err)
		}
		count += len(families)
	}
	if count != 1 {
		t.Errorf("expected 1 result, got %d", count)
	}

	if _, err := ct.DeleteItem(ctx, family.ID, family.LastName); err != nil {
		t.Fatal(err)
	}
	if _, err := ct.ReadItem(ctx, family.ID, family.LastName, &got); !errors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
