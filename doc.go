/*
Package familystore runs a fixed demonstration workflow against a managed
document database and reports every step as telemetry.

The store is reached through the datastore contract, which has a database,
container and item hierarchy. Drivers register themselves by name when
their package is imported, in the manner of database/sql:

	import (
		"github.com/suparena/familystore"
		_ "github.com/suparena/familystore/datastore/ddb"
	)

	client, err := familystore.Open(ctx, "dynamodb",
		"Region=us-east-1;Endpoint=http://localhost:8000",
		familystore.DriverOptions{ConsistentRead: true})
	if err != nil {
		return err
	}
	defer client.Close(ctx)

Available drivers:
  - dynamodb: tables as containers, see package datastore/ddb
  - mongo: collections as containers, see package datastore/mongo
  - memory: in-process store for tests, see package datastore/memory

The workflow itself lives in package workflow and the host process in
cmd/familyworker.
*/
package familystore
