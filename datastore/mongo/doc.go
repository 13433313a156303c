// Package mongo implements the datastore contract on MongoDB.
//
// Containers are collections carrying a unique index on (partition key, id).
// MongoDB creates a database with its first collection and removes it with the
// last, which matches the namespace semantics of the DynamoDB backend.
// MongoDB reports no request units, so request charges are always zero.
package mongo
