/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongod "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/suparena/familystore"
	"github.com/suparena/familystore/datastore"
	"github.com/suparena/familystore/errors"
	"github.com/suparena/familystore/storagemodels"
)

// keyIndexName names the unique (partition key, id) index every container
// carries. Its first key records the partition key attribute.
const keyIndexName = "familystore_pk_id"

// Client implements datastore.Client on MongoDB. Databases map to databases
// and containers to collections.
type Client struct {
	client   *mongod.Client
	pageSize int32
	timeout  time.Duration
}

var _ datastore.Client = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithPageSize sets the default query page size.
func WithPageSize(n int32) Option {
	return func(c *Client) { c.pageSize = n }
}

// WithRequestTimeout bounds every call.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New connects to the deployment at uri.
func New(ctx context.Context, uri string, opts ...Option) (*Client, error) {
	if uri == "" {
		return nil, errors.NewValidationError("connection_string", "mongo URI is required")
	}
	mc, err := mongod.Connect(ctx, options.Client().ApplyURI(uri).SetAppName(familystore.UserAgent()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	return NewFromClient(mc, opts...), nil
}

// NewFromClient wraps a connected driver client. Close disconnects it.
func NewFromClient(mc *mongod.Client, opts ...Option) *Client {
	c := &Client{client: mc, pageSize: 100}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, func() {}
}

func (c *Client) CreateDatabaseIfNotExists(ctx context.Context, id string) (*datastore.DatabaseResponse, error) {
	const op = "CreateDatabase"
	diag := storagemodels.BeginDiagnostics(op)
	diag.Detail = id
	if id == "" {
		err := errors.NewValidationError("id", "database id is required")
		return nil, datastore.NewOperationError(op, diag.Complete(400), err)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	// MongoDB creates databases implicitly with their first collection.
	names, err := c.client.ListDatabaseNames(ctx, bson.D{{Key: "name", Value: id}})
	if err != nil {
		classified := classify(err, "Database", id, "")
		return nil, datastore.NewOperationError(op, diag.Complete(statusCode(classified)), classified)
	}
	created := len(names) == 0
	status := 200
	if created {
		status = 201
	}
	return &datastore.DatabaseResponse{
		Database:    c.Database(id),
		Created:     created,
		Diagnostics: diag.Complete(status),
	}, nil
}

func (c *Client) Database(id string) datastore.Database {
	return &database{client: c, id: id, db: c.client.Database(id)}
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

type database struct {
	client *Client
	id     string
	db     *mongod.Database
}

func (d *database) ID() string { return d.id }

func (d *database) Container(id string) datastore.Container {
	return &container{client: d.client, dbID: d.id, id: id, coll: d.db.Collection(id)}
}

func (d *database) ContainerIDs(ctx context.Context) ([]string, storagemodels.Diagnostics, error) {
	const op = "ListContainers"
	diag := storagemodels.BeginDiagnostics(op)
	diag.Detail = d.id
	ctx, cancel := d.client.withTimeout(ctx)
	defer cancel()

	names, err := d.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		classified := classify(err, "Database", d.id, "")
		diag = diag.Complete(statusCode(classified))
		return nil, diag, datastore.NewOperationError(op, diag, classified)
	}
	sort.Strings(names)
	return names, diag.Complete(200), nil
}

func (d *database) CreateContainerIfNotExists(ctx context.Context, props datastore.ContainerProperties) (*datastore.ContainerResponse, error) {
	const op = "CreateContainer"
	diag := storagemodels.BeginDiagnostics(op)
	diag.Detail = d.id + "." + props.ID
	fail := func(err error) (*datastore.ContainerResponse, error) {
		return nil, datastore.NewOperationError(op, diag.Complete(statusCode(err)), err)
	}
	if props.ID == "" {
		return fail(errors.NewValidationError("id", "container id is required"))
	}
	pkAttr, err := storagemodels.PartitionKeyAttribute(props.PartitionKeyPath)
	if err != nil {
		return fail(err)
	}
	ctx, cancel := d.client.withTimeout(ctx)
	defer cancel()

	created := true
	if err := d.db.CreateCollection(ctx, props.ID); err != nil {
		if !isNamespaceExists(err) {
			return fail(classify(err, "Container", props.ID, ""))
		}
		created = false
	}

	coll := d.db.Collection(props.ID)
	keys := bson.D{{Key: pkAttr, Value: 1}}
	if pkAttr != idField {
		keys = append(keys, bson.E{Key: idField, Value: 1})
	}
	_, err = coll.Indexes().CreateOne(ctx, mongod.IndexModel{
		Keys:    keys,
		Options: options.Index().SetName(keyIndexName).SetUnique(true),
	})
	if err != nil {
		return fail(classify(err, "Container", props.ID, ""))
	}

	status := 200
	if created {
		status = 201
	}
	return &datastore.ContainerResponse{
		Container:   &container{client: d.client, dbID: d.id, id: props.ID, coll: coll, pkAttr: pkAttr},
		Properties:  props,
		Created:     created,
		Diagnostics: diag.Complete(status),
	}, nil
}
