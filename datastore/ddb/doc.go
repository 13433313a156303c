/*
Package ddb provides a DynamoDB implementation of the datastore contract.

Mapping:
  - a database is a table name namespace; it exists while at least one of its
    tables does
  - a container is the table "<database>-<container>", keyed by the partition
    key attribute (HASH) and "id" (RANGE), billed per request
  - an equality query on the partition key is a Query, any other field a
    filtered Scan; both page with Limit = page size

Connection strings take the form:

	Region=us-east-1;Endpoint=http://localhost:8000;AccessKey=...;SecretKey=...

Every call requests TOTAL consumed capacity, reported as the request charge of
its diagnostics. DynamoDB errors are classified onto the errors package:

	ResourceNotFoundException           -> ErrNotFound (container)
	ConditionalCheckFailedException     -> ErrAlreadyExists on create, ErrNotFound on replace/delete
	ProvisionedThroughputExceeded,
	RequestLimitExceeded, Throttling    -> ErrThrottled
	ResourceInUseException              -> ErrConflict
*/
package ddb
