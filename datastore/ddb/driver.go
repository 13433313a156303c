/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"

	"github.com/suparena/familystore"
	"github.com/suparena/familystore/datastore"
)

// DriverName is the name the DynamoDB backend registers under.
const DriverName = "dynamodb"

func init() {
	familystore.Register(DriverName, open)
}

func open(ctx context.Context, connectionString string, opts familystore.DriverOptions) (datastore.Client, error) {
	return New(ctx, connectionString,
		WithRegion(opts.Region),
		WithPageSize(opts.PageSize),
		WithConsistentRead(opts.ConsistentRead),
		WithRequestTimeout(opts.RequestTimeout),
	)
}
