/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/suparena/familystore/datastore"
	"github.com/suparena/familystore/errors"
	"github.com/suparena/familystore/storagemodels"
)

const defaultPageSize = 100

type itemKey struct {
	pk string
	id string
}

type containerState struct {
	props  datastore.ContainerProperties
	pkAttr string
	items  map[itemKey][]byte
}

type container struct {
	client     *Client
	databaseID string
	id         string
}

func (ct *container) ID() string { return ct.id }

// document round-trips item through JSON and returns the encoded form along
// with its id and partition key value.
func (s *containerState) document(item any) ([]byte, string, string, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, "", "", errors.NewValidationError("item", err.Error())
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, "", "", errors.NewValidationError("item", "must encode to a JSON object")
	}
	id, _ := fields["id"].(string)
	if id == "" {
		return nil, "", "", errors.NewValidationError("id", "item has no id")
	}
	pk, ok := fields[s.pkAttr]
	if !ok {
		return nil, "", "", errors.NewValidationError(s.pkAttr, "item has no partition key value")
	}
	return raw, id, fmt.Sprint(pk), nil
}

func (ct *container) point(ctx context.Context, op Op, charge float64, fn func(s *containerState, diag *storagemodels.Diagnostics) (*datastore.ItemResponse, error)) (*datastore.ItemResponse, error) {
	c := ct.client
	diag := storagemodels.BeginDiagnostics(string(op))
	c.mu.Lock()
	defer c.mu.Unlock()

	fail := func(err error) (*datastore.ItemResponse, error) {
		return nil, datastore.NewOperationError(string(op), diag.Complete(statusOf(err)), err)
	}
	if err := c.begin(ctx, op); err != nil {
		return fail(err)
	}
	s, err := c.lookup(ct.databaseID, ct.id)
	if err != nil {
		return fail(err)
	}
	diag.RequestCharge = charge
	resp, err := fn(s, &diag)
	if err != nil {
		return fail(err)
	}
	return resp, nil
}

func (ct *container) ReadItem(ctx context.Context, id, partitionKey string, out any) (*datastore.ItemResponse, error) {
	return ct.point(ctx, OpReadItem, ReadCharge, func(s *containerState, diag *storagemodels.Diagnostics) (*datastore.ItemResponse, error) {
		raw, ok := s.items[itemKey{pk: partitionKey, id: id}]
		if !ok {
			return nil, errors.NewNotFoundError("Item", id, partitionKey)
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("decode item %s: %w", id, err)
		}
		return &datastore.ItemResponse{ID: id, PartitionKey: partitionKey, Diagnostics: diag.Complete(200)}, nil
	})
}

func (ct *container) CreateItem(ctx context.Context, partitionKey string, item any) (*datastore.ItemResponse, error) {
	return ct.point(ctx, OpCreateItem, WriteCharge, func(s *containerState, diag *storagemodels.Diagnostics) (*datastore.ItemResponse, error) {
		raw, id, pk, err := s.document(item)
		if err != nil {
			return nil, err
		}
		if pk != partitionKey {
			return nil, errors.NewValidationError(s.pkAttr, fmt.Sprintf("item value %q does not match partition key %q", pk, partitionKey))
		}
		key := itemKey{pk: pk, id: id}
		if _, exists := s.items[key]; exists {
			return nil, errors.NewAlreadyExistsError("Item", id, pk)
		}
		s.items[key] = raw
		return &datastore.ItemResponse{ID: id, PartitionKey: pk, Diagnostics: diag.Complete(201)}, nil
	})
}

func (ct *container) ReplaceItem(ctx context.Context, id, partitionKey string, item any) (*datastore.ItemResponse, error) {
	return ct.point(ctx, OpReplaceItem, WriteCharge, func(s *containerState, diag *storagemodels.Diagnostics) (*datastore.ItemResponse, error) {
		raw, docID, pk, err := s.document(item)
		if err != nil {
			return nil, err
		}
		if docID != id || pk != partitionKey {
			return nil, errors.NewValidationError("id", "replacement must keep the id and partition key")
		}
		key := itemKey{pk: pk, id: id}
		if _, exists := s.items[key]; !exists {
			return nil, errors.NewNotFoundError("Item", id, pk)
		}
		s.items[key] = raw
		return &datastore.ItemResponse{ID: id, PartitionKey: pk, Diagnostics: diag.Complete(200)}, nil
	})
}

func (ct *container) DeleteItem(ctx context.Context, id, partitionKey string) (*datastore.ItemResponse, error) {
	return ct.point(ctx, OpDeleteItem, WriteCharge, func(s *containerState, diag *storagemodels.Diagnostics) (*datastore.ItemResponse, error) {
		key := itemKey{pk: partitionKey, id: id}
		if _, exists := s.items[key]; !exists {
			return nil, errors.NewNotFoundError("Item", id, partitionKey)
		}
		delete(s.items, key)
		return &datastore.ItemResponse{ID: id, PartitionKey: partitionKey, Diagnostics: diag.Complete(204)}, nil
	})
}

func (ct *container) Delete(ctx context.Context) (*datastore.ContainerResponse, error) {
	c := ct.client
	diag := storagemodels.BeginDiagnostics(string(OpDeleteContainer))
	c.mu.Lock()
	defer c.mu.Unlock()

	fail := func(err error) (*datastore.ContainerResponse, error) {
		return nil, datastore.NewOperationError(string(OpDeleteContainer), diag.Complete(statusOf(err)), err)
	}
	if err := c.begin(ctx, OpDeleteContainer); err != nil {
		return fail(err)
	}
	s, err := c.lookup(ct.databaseID, ct.id)
	if err != nil {
		return fail(err)
	}
	delete(c.databases[ct.databaseID].containers, ct.id)
	c.removeDatabaseIfEmpty(ct.databaseID)

	diag.RequestCharge = WriteCharge
	return &datastore.ContainerResponse{
		Container:   ct,
		Properties:  s.props,
		Diagnostics: diag.Complete(204),
	}, nil
}

func (ct *container) Query(q storagemodels.QueryDefinition) datastore.Pager {
	return &pager{container: ct, query: q, more: true}
}

// pager snapshots the matching records on the first page and serves the rest
// of the pages from the snapshot.
type pager struct {
	container *container
	query     storagemodels.QueryDefinition
	matches   [][]byte
	loaded    bool
	offset    int
	page      int
	more      bool
}

func (p *pager) HasMorePages() bool {
	return p.more
}

func (p *pager) NextPage(ctx context.Context) (*datastore.FeedResponse, error) {
	c := p.container.client
	diag := storagemodels.BeginDiagnostics(string(OpQueryPage))
	diag.Detail = p.query.Text()

	c.mu.Lock()
	defer c.mu.Unlock()

	fail := func(err error) (*datastore.FeedResponse, error) {
		return nil, datastore.NewOperationError(string(OpQueryPage), diag.Complete(statusOf(err)), err)
	}
	if !p.more {
		return fail(errors.NewValidationError("pager", "no more pages"))
	}
	if err := c.begin(ctx, OpQueryPage); err != nil {
		return fail(err)
	}
	if !p.loaded {
		if err := p.query.Validate(); err != nil {
			return fail(err)
		}
		s, err := c.lookup(p.container.databaseID, p.container.id)
		if err != nil {
			return fail(err)
		}
		matches, err := s.match(p.query)
		if err != nil {
			return fail(err)
		}
		p.matches = matches
		p.loaded = true
	}

	size := int(p.query.PageSize)
	if size <= 0 {
		size = int(c.pageSize)
	}
	if size <= 0 {
		size = defaultPageSize
	}
	end := p.offset + size
	if end > len(p.matches) {
		end = len(p.matches)
	}
	batch := p.matches[p.offset:end]
	p.offset = end
	p.page++
	p.more = p.offset < len(p.matches)

	diag.RequestCharge = QueryCharge
	meta := storagemodels.PageMeta{PageNumber: p.page, ItemCount: len(batch), HasMore: p.more}
	return datastore.NewFeedResponse(meta, diag.Complete(200), func(out any) error {
		return decodeBatch(batch, out)
	}), nil
}

// match returns the encoded records whose field equals the query value, ordered
// by partition key then id.
func (s *containerState) match(q storagemodels.QueryDefinition) ([][]byte, error) {
	keys := make([]itemKey, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].pk != keys[j].pk {
			return keys[i].pk < keys[j].pk
		}
		return keys[i].id < keys[j].id
	})

	var out [][]byte
	for _, k := range keys {
		raw := s.items[k]
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode item %s: %w", k.id, err)
		}
		if v, ok := fields[q.Field]; ok && fmt.Sprint(v) == q.Value {
			out = append(out, raw)
		}
	}
	return out, nil
}

func decodeBatch(batch [][]byte, out any) error {
	msgs := make([]json.RawMessage, len(batch))
	for i, raw := range batch {
		msgs[i] = raw
	}
	joined, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	return json.Unmarshal(joined, out)
}
