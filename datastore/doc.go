/*
Package datastore defines the document store contract familystore runs against.

A Client owns databases, a Database owns containers, and a Container holds
records addressed by (id, partition key):

	type Container interface {
	    ReadItem(ctx context.Context, id, partitionKey string, out any) (*ItemResponse, error)
	    CreateItem(ctx context.Context, partitionKey string, item any) (*ItemResponse, error)
	    ReplaceItem(ctx context.Context, id, partitionKey string, item any) (*ItemResponse, error)
	    DeleteItem(ctx context.Context, id, partitionKey string) (*ItemResponse, error)
	    Query(q storagemodels.QueryDefinition) Pager
	    Delete(ctx context.Context) (*ContainerResponse, error)
	}

Every response carries storagemodels.Diagnostics. Failures are wrapped in
*OperationError, which keeps the diagnostics of the failed call, around an
error from the errors package taxonomy.

Implementations:
  - ddb: DynamoDB, one table per container
  - mongo: MongoDB, one collection per container
  - memory: in-process store with fault injection for tests
*/
package datastore
