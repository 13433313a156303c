/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory

import (
	"context"

	"github.com/suparena/familystore"
	"github.com/suparena/familystore/datastore"
)

// DriverName is the name the in-memory backend registers under.
const DriverName = "memory"

func init() {
	familystore.Register(DriverName, open)
}

// open ignores the connection string; every call returns an empty store.
func open(_ context.Context, _ string, opts familystore.DriverOptions) (datastore.Client, error) {
	return New().WithPageSize(opts.PageSize), nil
}
