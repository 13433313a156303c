/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongo

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	mongod "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/suparena/familystore/datastore"
	"github.com/suparena/familystore/errors"
	"github.com/suparena/familystore/storagemodels"
)

const idField = "id"

type container struct {
	client *Client
	dbID   string
	id     string
	coll   *mongod.Collection

	mu     sync.Mutex
	pkAttr string
}

func (c *container) ID() string { return c.id }

func (c *container) namespace() string { return c.dbID + "." + c.id }

// partitionKeyAttr reads the partition key attribute back from the key index
// when the handle was not returned by CreateContainerIfNotExists.
func (c *container) partitionKeyAttr(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pkAttr != "" {
		return c.pkAttr, nil
	}
	specs, err := c.coll.Indexes().ListSpecifications(ctx)
	if err != nil {
		return "", classify(err, "Container", c.id, "")
	}
	for _, spec := range specs {
		if spec.Name != keyIndexName {
			continue
		}
		elems, err := spec.KeysDocument.Elements()
		if err != nil || len(elems) == 0 {
			break
		}
		c.pkAttr = elems[0].Key()
		return c.pkAttr, nil
	}
	return "", errors.NewNotFoundError("Container", c.id, "")
}

func (c *container) filter(pkAttr, id, partitionKey string) bson.D {
	if pkAttr == idField {
		return bson.D{{Key: idField, Value: id}}
	}
	return bson.D{{Key: pkAttr, Value: partitionKey}, {Key: idField, Value: id}}
}

// call runs one item operation with a resolved partition key attribute.
func (c *container) call(ctx context.Context, op string, fn func(ctx context.Context, pkAttr string) (int, error)) (storagemodels.Diagnostics, error) {
	diag := storagemodels.BeginDiagnostics(op)
	diag.Detail = c.namespace()
	ctx, cancel := c.client.withTimeout(ctx)
	defer cancel()

	pkAttr, err := c.partitionKeyAttr(ctx)
	if err != nil {
		diag = diag.Complete(statusCode(err))
		return diag, datastore.NewOperationError(op, diag, err)
	}
	status, err := fn(ctx, pkAttr)
	diag = diag.Complete(status)
	if err != nil {
		return diag, datastore.NewOperationError(op, diag, err)
	}
	return diag, nil
}

// document encodes item and returns its id after checking the partition key value.
func document(item any, pkAttr, partitionKey string) (bson.Raw, string, error) {
	raw, err := bson.Marshal(item)
	if err != nil {
		return nil, "", errors.NewValidationError("item", err.Error())
	}
	doc := bson.Raw(raw)
	id, ok := doc.Lookup(idField).StringValueOK()
	if !ok || id == "" {
		return nil, "", errors.NewValidationError(idField, "item has no string id")
	}
	pk, ok := doc.Lookup(pkAttr).StringValueOK()
	if !ok {
		return nil, "", errors.NewValidationError(pkAttr, "item has no string partition key value")
	}
	if pk != partitionKey {
		return nil, "", errors.NewValidationError(pkAttr, fmt.Sprintf("item value %q does not match partition key %q", pk, partitionKey))
	}
	return doc, id, nil
}

func (c *container) ReadItem(ctx context.Context, id, partitionKey string, out any) (*datastore.ItemResponse, error) {
	diag, err := c.call(ctx, "ReadItem", func(ctx context.Context, pkAttr string) (int, error) {
		err := c.coll.FindOne(ctx, c.filter(pkAttr, id, partitionKey)).Decode(out)
		if err != nil {
			classified := classify(err, "Item", id, partitionKey)
			return statusCode(classified), classified
		}
		return 200, nil
	})
	if err != nil {
		return nil, err
	}
	return &datastore.ItemResponse{ID: id, PartitionKey: partitionKey, Diagnostics: diag}, nil
}

func (c *container) CreateItem(ctx context.Context, partitionKey string, item any) (*datastore.ItemResponse, error) {
	var id string
	diag, err := c.call(ctx, "CreateItem", func(ctx context.Context, pkAttr string) (int, error) {
		doc, docID, err := document(item, pkAttr, partitionKey)
		if err != nil {
			return 400, err
		}
		id = docID
		if _, err := c.coll.InsertOne(ctx, doc); err != nil {
			classified := classify(err, "Item", docID, partitionKey)
			return statusCode(classified), classified
		}
		return 201, nil
	})
	if err != nil {
		return nil, err
	}
	return &datastore.ItemResponse{ID: id, PartitionKey: partitionKey, Diagnostics: diag}, nil
}

func (c *container) ReplaceItem(ctx context.Context, id, partitionKey string, item any) (*datastore.ItemResponse, error) {
	diag, err := c.call(ctx, "ReplaceItem", func(ctx context.Context, pkAttr string) (int, error) {
		doc, docID, err := document(item, pkAttr, partitionKey)
		if err != nil {
			return 400, err
		}
		if docID != id {
			return 400, errors.NewValidationError(idField, "replacement must keep the id")
		}
		res, err := c.coll.ReplaceOne(ctx, c.filter(pkAttr, id, partitionKey), doc)
		if err != nil {
			classified := classify(err, "Item", id, partitionKey)
			return statusCode(classified), classified
		}
		if res.MatchedCount == 0 {
			return 404, errors.NewNotFoundError("Item", id, partitionKey)
		}
		return 200, nil
	})
	if err != nil {
		return nil, err
	}
	return &datastore.ItemResponse{ID: id, PartitionKey: partitionKey, Diagnostics: diag}, nil
}

func (c *container) DeleteItem(ctx context.Context, id, partitionKey string) (*datastore.ItemResponse, error) {
	diag, err := c.call(ctx, "DeleteItem", func(ctx context.Context, pkAttr string) (int, error) {
		res, err := c.coll.DeleteOne(ctx, c.filter(pkAttr, id, partitionKey))
		if err != nil {
			classified := classify(err, "Item", id, partitionKey)
			return statusCode(classified), classified
		}
		if res.DeletedCount == 0 {
			return 404, errors.NewNotFoundError("Item", id, partitionKey)
		}
		return 204, nil
	})
	if err != nil {
		return nil, err
	}
	return &datastore.ItemResponse{ID: id, PartitionKey: partitionKey, Diagnostics: diag}, nil
}

func (c *container) Delete(ctx context.Context) (*datastore.ContainerResponse, error) {
	const op = "DeleteContainer"
	diag := storagemodels.BeginDiagnostics(op)
	diag.Detail = c.namespace()
	ctx, cancel := c.client.withTimeout(ctx)
	defer cancel()

	// Drop succeeds on a missing collection, so check first to report NotFound.
	names, err := c.coll.Database().ListCollectionNames(ctx, bson.D{{Key: "name", Value: c.id}})
	if err != nil {
		classified := classify(err, "Container", c.id, "")
		return nil, datastore.NewOperationError(op, diag.Complete(statusCode(classified)), classified)
	}
	if len(names) == 0 {
		err := errors.NewNotFoundError("Container", c.id, "")
		return nil, datastore.NewOperationError(op, diag.Complete(404), err)
	}
	if err := c.coll.Drop(ctx); err != nil {
		classified := classify(err, "Container", c.id, "")
		return nil, datastore.NewOperationError(op, diag.Complete(statusCode(classified)), classified)
	}

	props := datastore.ContainerProperties{ID: c.id}
	c.mu.Lock()
	if c.pkAttr != "" {
		props.PartitionKeyPath = "/" + c.pkAttr
	}
	c.mu.Unlock()
	return &datastore.ContainerResponse{Container: c, Properties: props, Diagnostics: diag.Complete(204)}, nil
}

func (c *container) Query(q storagemodels.QueryDefinition) datastore.Pager {
	return &pager{container: c, query: q, more: true}
}

// pager reads pages off a single cursor, looking one document ahead to know
// whether another page follows.
type pager struct {
	container *container
	query     storagemodels.QueryDefinition
	cursor    *mongod.Cursor
	lookahead bson.Raw
	page      int
	more      bool
}

func (p *pager) HasMorePages() bool {
	return p.more
}

func (p *pager) pageSize() int {
	if p.query.PageSize > 0 {
		return int(p.query.PageSize)
	}
	if p.container.client.pageSize > 0 {
		return int(p.container.client.pageSize)
	}
	return 100
}

func (p *pager) open(ctx context.Context) error {
	if err := p.query.Validate(); err != nil {
		return err
	}
	pkAttr, err := p.container.partitionKeyAttr(ctx)
	if err != nil {
		return err
	}
	opts := options.Find().
		SetBatchSize(int32(p.pageSize())).
		SetSort(bson.D{{Key: pkAttr, Value: 1}, {Key: idField, Value: 1}})
	cur, err := p.container.coll.Find(ctx, bson.D{{Key: p.query.Field, Value: p.query.Value}}, opts)
	if err != nil {
		return classify(err, "Container", p.container.id, "")
	}
	p.cursor = cur
	return nil
}

func (p *pager) nextDoc(ctx context.Context) (bson.Raw, error) {
	if p.lookahead != nil {
		doc := p.lookahead
		p.lookahead = nil
		return doc, nil
	}
	if p.cursor.Next(ctx) {
		return cloneRaw(p.cursor.Current), nil
	}
	if err := p.cursor.Err(); err != nil {
		return nil, classify(err, "Container", p.container.id, "")
	}
	return nil, nil
}

func (p *pager) NextPage(ctx context.Context) (*datastore.FeedResponse, error) {
	const op = "QueryPage"
	diag := storagemodels.BeginDiagnostics(op)
	diag.Detail = p.query.Text()
	fail := func(err error) (*datastore.FeedResponse, error) {
		if p.cursor != nil {
			_ = p.cursor.Close(ctx)
		}
		p.more = false
		return nil, datastore.NewOperationError(op, diag.Complete(statusCode(err)), err)
	}
	if !p.more {
		return nil, datastore.NewOperationError(op, diag.Complete(400), errors.NewValidationError("pager", "no more pages"))
	}

	ctx, cancel := p.container.client.withTimeout(ctx)
	defer cancel()

	if p.cursor == nil {
		if err := p.open(ctx); err != nil {
			return fail(err)
		}
	}

	size := p.pageSize()
	batch := make([]bson.Raw, 0, size)
	for len(batch) < size {
		doc, err := p.nextDoc(ctx)
		if err != nil {
			return fail(err)
		}
		if doc == nil {
			break
		}
		batch = append(batch, doc)
	}
	next, err := p.nextDoc(ctx)
	if err != nil {
		return fail(err)
	}
	p.lookahead = next
	p.more = next != nil
	if !p.more {
		_ = p.cursor.Close(ctx)
	}
	p.page++

	meta := storagemodels.PageMeta{PageNumber: p.page, ItemCount: len(batch), HasMore: p.more}
	return datastore.NewFeedResponse(meta, diag.Complete(200), func(out any) error {
		return decodeBatch(batch, out)
	}), nil
}

func cloneRaw(raw bson.Raw) bson.Raw {
	out := make(bson.Raw, len(raw))
	copy(out, raw)
	return out
}

// decodeBatch appends each document to the slice out points to.
func decodeBatch(batch []bson.Raw, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Slice {
		return errors.NewValidationError("out", "must be a pointer to a slice")
	}
	slice := rv.Elem()
	elemType := slice.Type().Elem()
	for _, raw := range batch {
		elem := reflect.New(elemType)
		if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
			return fmt.Errorf("failed to decode document: %w", err)
		}
		slice.Set(reflect.Append(slice, elem.Elem()))
	}
	return nil
}
