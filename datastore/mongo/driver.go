/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongo

import (
	"context"

	"github.com/suparena/familystore"
	"github.com/suparena/familystore/datastore"
)

// DriverName is the name the MongoDB backend registers under.
const DriverName = "mongo"

func init() {
	familystore.Register(DriverName, open)
}

func open(ctx context.Context, uri string, opts familystore.DriverOptions) (datastore.Client, error) {
	return New(ctx, uri,
		WithPageSize(opts.PageSize),
		WithRequestTimeout(opts.RequestTimeout),
	)
}
