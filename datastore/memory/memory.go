/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/suparena/familystore/datastore"
	"github.com/suparena/familystore/errors"
	"github.com/suparena/familystore/storagemodels"
)

// Op names a store call for fault injection and call counting.
type Op string

const (
	OpCreateDatabase  Op = "CreateDatabase"
	OpCreateContainer Op = "CreateContainer"
	OpListContainers  Op = "ListContainers"
	OpReadItem        Op = "ReadItem"
	OpCreateItem      Op = "CreateItem"
	OpReplaceItem     Op = "ReplaceItem"
	OpDeleteItem      Op = "DeleteItem"
	OpQueryPage       Op = "QueryPage"
	OpDeleteContainer Op = "DeleteContainer"
)

// Request charges reported by the in-memory store. They are fixed so tests can
// assert on them.
const (
	ReadCharge  = 1.0
	WriteCharge = 5.0
	QueryCharge = 2.5
)

type fault struct {
	err       error
	remaining int // <0 means every call
}

// Client is an in-process datastore.Client. The zero value is not usable; use New.
type Client struct {
	mu        sync.RWMutex
	databases map[string]*database
	faults    map[Op]*fault
	calls     map[Op]int
	pageSize  int32
	closed    bool
}

var _ datastore.Client = (*Client)(nil)

// New creates an empty store.
func New() *Client {
	return &Client{
		databases: make(map[string]*database),
		faults:    make(map[Op]*fault),
		calls:     make(map[Op]int),
	}
}

// WithPageSize sets the page size used when a query does not set one.
func (c *Client) WithPageSize(n int32) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pageSize = n
	return c
}

// WithError makes every call of op fail with err.
func (c *Client) WithError(op Op, err error) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults[op] = &fault{err: err, remaining: -1}
	return c
}

// WithErrorOnce makes the next call of op fail with err.
func (c *Client) WithErrorOnce(op Op, err error) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults[op] = &fault{err: err, remaining: 1}
	return c
}

// ClearErrors removes every injected fault.
func (c *Client) ClearErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults = make(map[Op]*fault)
}

// Calls reports how many times op was attempted, including failed attempts.
func (c *Client) Calls(op Op) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls[op]
}

// DatabaseExists reports whether id was created and not yet removed.
func (c *Client) DatabaseExists(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.databases[id]
	return ok
}

// Count returns the number of records in a container, or -1 when it does not exist.
func (c *Client) Count(databaseID, containerID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	db, ok := c.databases[databaseID]
	if !ok {
		return -1
	}
	ct, ok := db.containers[containerID]
	if !ok {
		return -1
	}
	return len(ct.items)
}

// CreateDatabaseIfNotExists implements datastore.Client.
func (c *Client) CreateDatabaseIfNotExists(ctx context.Context, id string) (*datastore.DatabaseResponse, error) {
	diag := storagemodels.BeginDiagnostics(string(OpCreateDatabase))
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.begin(ctx, OpCreateDatabase); err != nil {
		return nil, datastore.NewOperationError(string(OpCreateDatabase), diag.Complete(statusOf(err)), err)
	}
	if id == "" {
		err := errors.NewValidationError("id", "database id is required")
		return nil, datastore.NewOperationError(string(OpCreateDatabase), diag.Complete(400), err)
	}

	created := false
	if _, ok := c.databases[id]; !ok {
		c.databases[id] = &database{id: id, containers: make(map[string]*containerState)}
		created = true
	}
	diag.RequestCharge = WriteCharge
	status := 200
	if created {
		status = 201
	}
	return &datastore.DatabaseResponse{
		Database:    &dbHandle{client: c, id: id},
		Created:     created,
		Diagnostics: diag.Complete(status),
	}, nil
}

// Database implements datastore.Client.
func (c *Client) Database(id string) datastore.Database {
	return &dbHandle{client: c, id: id}
}

// Close implements datastore.Client. Calls after Close fail with ErrUnavailable.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// begin counts the call and returns an injected or lifecycle error. Callers hold c.mu.
func (c *Client) begin(ctx context.Context, op Op) error {
	c.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed {
		return errors.NewStoreError(errors.ErrUnavailable, "", "client is closed")
	}
	if f, ok := c.faults[op]; ok {
		if f.remaining > 0 {
			f.remaining--
			if f.remaining == 0 {
				delete(c.faults, op)
			}
		}
		return f.err
	}
	return nil
}

func (c *Client) lookup(dbID, containerID string) (*containerState, error) {
	db, ok := c.databases[dbID]
	if !ok {
		return nil, errors.NewNotFoundError("Database", dbID, "")
	}
	ct, ok := db.containers[containerID]
	if !ok {
		return nil, errors.NewNotFoundError("Container", containerID, "")
	}
	return ct, nil
}

func statusOf(err error) int {
	switch {
	case errors.IsNotFound(err):
		return 404
	case errors.IsAlreadyExists(err):
		return 409
	case errors.IsValidationError(err):
		return 400
	case errors.IsConditionFailed(err):
		return 412
	case errors.IsThrottled(err):
		return 429
	default:
		return 500
	}
}

type database struct {
	id         string
	containers map[string]*containerState
}

type dbHandle struct {
	client *Client
	id     string
}

func (d *dbHandle) ID() string { return d.id }

func (d *dbHandle) Container(id string) datastore.Container {
	return &container{client: d.client, databaseID: d.id, id: id}
}

func (d *dbHandle) CreateContainerIfNotExists(ctx context.Context, props datastore.ContainerProperties) (*datastore.ContainerResponse, error) {
	c := d.client
	diag := storagemodels.BeginDiagnostics(string(OpCreateContainer))
	c.mu.Lock()
	defer c.mu.Unlock()

	fail := func(err error) (*datastore.ContainerResponse, error) {
		return nil, datastore.NewOperationError(string(OpCreateContainer), diag.Complete(statusOf(err)), err)
	}
	if err := c.begin(ctx, OpCreateContainer); err != nil {
		return fail(err)
	}
	if props.ID == "" {
		return fail(errors.NewValidationError("id", "container id is required"))
	}
	pkAttr, err := storagemodels.PartitionKeyAttribute(props.PartitionKeyPath)
	if err != nil {
		return fail(err)
	}
	db, ok := c.databases[d.id]
	if !ok {
		return fail(errors.NewNotFoundError("Database", d.id, ""))
	}

	created := false
	ct, ok := db.containers[props.ID]
	if !ok {
		ct = &containerState{props: props, pkAttr: pkAttr, items: make(map[itemKey][]byte)}
		db.containers[props.ID] = ct
		created = true
	}
	diag.RequestCharge = WriteCharge
	status := 200
	if created {
		status = 201
	}
	return &datastore.ContainerResponse{
		Container:   &container{client: c, databaseID: d.id, id: props.ID},
		Properties:  ct.props,
		Created:     created,
		Diagnostics: diag.Complete(status),
	}, nil
}

func (d *dbHandle) ContainerIDs(ctx context.Context) ([]string, storagemodels.Diagnostics, error) {
	c := d.client
	diag := storagemodels.BeginDiagnostics(string(OpListContainers))
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.begin(ctx, OpListContainers); err != nil {
		diag = diag.Complete(statusOf(err))
		return nil, diag, datastore.NewOperationError(string(OpListContainers), diag, err)
	}
	db, ok := c.databases[d.id]
	if !ok {
		err := errors.NewNotFoundError("Database", d.id, "")
		diag = diag.Complete(404)
		return nil, diag, datastore.NewOperationError(string(OpListContainers), diag, err)
	}
	ids := make([]string, 0, len(db.containers))
	for id := range db.containers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	diag.RequestCharge = ReadCharge
	return ids, diag.Complete(200), nil
}

// removeDatabaseIfEmpty mirrors namespace semantics of the table-backed stores:
// a database with no containers left is gone. Callers hold c.mu.
func (c *Client) removeDatabaseIfEmpty(id string) {
	if db, ok := c.databases[id]; ok && len(db.containers) == 0 {
		delete(c.databases, id)
	}
}

func (c *Client) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("memory.Client{databases:%d}", len(c.databases))
}
