/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"fmt"

	"github.com/suparena/familystore/storagemodels"
)

// Client is a process-wide handle to a document store account. Implementations
// are safe for concurrent use.
type Client interface {
	// CreateDatabaseIfNotExists ensures the database exists. An existing
	// database is not an error; DatabaseResponse.Created reports which case applied.
	CreateDatabaseIfNotExists(ctx context.Context, id string) (*DatabaseResponse, error)

	// Database returns a handle without contacting the store.
	Database(id string) Database

	// Close releases the underlying connections.
	Close(ctx context.Context) error
}

// Database groups containers.
type Database interface {
	ID() string

	// CreateContainerIfNotExists ensures a container partitioned on
	// props.PartitionKeyPath exists.
	CreateContainerIfNotExists(ctx context.Context, props ContainerProperties) (*ContainerResponse, error)

	// Container returns a handle without contacting the store.
	Container(id string) Container

	// ContainerIDs lists the containers currently in the database.
	ContainerIDs(ctx context.Context) ([]string, storagemodels.Diagnostics, error)
}

// Container holds records addressed by (id, partition key).
type Container interface {
	ID() string

	// ReadItem decodes the record into out. A missing record yields an error
	// matching errors.ErrNotFound.
	ReadItem(ctx context.Context, id, partitionKey string, out any) (*ItemResponse, error)

	// CreateItem inserts item. An existing record yields errors.ErrAlreadyExists.
	CreateItem(ctx context.Context, partitionKey string, item any) (*ItemResponse, error)

	// ReplaceItem overwrites the whole record. A missing record yields errors.ErrNotFound.
	ReplaceItem(ctx context.Context, id, partitionKey string, item any) (*ItemResponse, error)

	// DeleteItem removes the record. A missing record yields errors.ErrNotFound.
	DeleteItem(ctx context.Context, id, partitionKey string) (*ItemResponse, error)

	// Query returns a lazy pager; no request is made until NextPage.
	Query(q storagemodels.QueryDefinition) Pager

	// Delete removes the container and every record in it.
	Delete(ctx context.Context) (*ContainerResponse, error)
}

// Pager iterates the pages of a query once. It is not restartable.
type Pager interface {
	HasMorePages() bool
	NextPage(ctx context.Context) (*FeedResponse, error)
}

// ContainerProperties describe a container to create.
type ContainerProperties struct {
	ID               string
	PartitionKeyPath string
}

// DatabaseResponse is returned by database level calls.
type DatabaseResponse struct {
	Database    Database
	Created     bool
	Diagnostics storagemodels.Diagnostics
}

// ContainerResponse is returned by container level calls.
type ContainerResponse struct {
	Container   Container
	Properties  ContainerProperties
	Created     bool
	Diagnostics storagemodels.Diagnostics
}

// ItemResponse is returned by point operations.
type ItemResponse struct {
	ID           string
	PartitionKey string
	Diagnostics  storagemodels.Diagnostics
}

// RequestCharge is the capacity the call consumed.
func (r *ItemResponse) RequestCharge() float64 {
	if r == nil {
		return 0
	}
	return r.Diagnostics.RequestCharge
}

// FeedResponse is one page of query results.
type FeedResponse struct {
	Meta        storagemodels.PageMeta
	Diagnostics storagemodels.Diagnostics
	decode      func(out any) error
}

// NewFeedResponse is used by backends to build a page. decode must fill a
// pointer to a slice with the page's records.
func NewFeedResponse(meta storagemodels.PageMeta, diag storagemodels.Diagnostics, decode func(out any) error) *FeedResponse {
	return &FeedResponse{Meta: meta, Diagnostics: diag, decode: decode}
}

// Decode fills out, a pointer to a slice, with the records of the page.
func (f *FeedResponse) Decode(out any) error {
	if f.decode == nil {
		return nil
	}
	return f.decode(out)
}

// DecodePage returns the records of a page as T.
func DecodePage[T any](page *FeedResponse) ([]T, error) {
	var items []T
	if err := page.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode page %d: %w", page.Meta.PageNumber, err)
	}
	return items, nil
}
