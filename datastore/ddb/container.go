/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/familystore/datastore"
	"github.com/suparena/familystore/errors"
	"github.com/suparena/familystore/storagemodels"
)

const idAttr = "id"

type container struct {
	client *Client
	db     *database
	id     string
	table  string

	mu     sync.Mutex
	pkAttr string
}

func (c *container) ID() string { return c.id }

// partitionKeyAttr resolves the table's HASH key, describing the table the
// first time a handle obtained through Database.Container is used.
func (c *container) partitionKeyAttr(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pkAttr != "" {
		return c.pkAttr, nil
	}
	out, err := c.client.api.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: aws.String(c.table)})
	if err != nil {
		return "", err
	}
	for _, k := range out.Table.KeySchema {
		if k.KeyType == types.KeyTypeHash && k.AttributeName != nil {
			c.pkAttr = *k.AttributeName
			return c.pkAttr, nil
		}
	}
	return "", errors.NewStoreError(errors.ErrInvalidInput, "", fmt.Sprintf("table %s has no hash key", c.table))
}

func (c *container) key(pkAttr, id, partitionKey string) map[string]types.AttributeValue {
	key := map[string]types.AttributeValue{
		pkAttr: &types.AttributeValueMemberS{Value: partitionKey},
	}
	if pkAttr != idAttr {
		key[idAttr] = &types.AttributeValueMemberS{Value: id}
	}
	return key
}

// call runs one item operation and fills the diagnostics common to all of them.
func (c *container) call(ctx context.Context, op string, fn func(ctx context.Context, pkAttr string, diag *storagemodels.Diagnostics) (int, error)) (storagemodels.Diagnostics, error) {
	diag := storagemodels.BeginDiagnostics(op)
	diag.Detail = c.table
	ctx, cancel := c.client.withTimeout(ctx)
	defer cancel()

	pkAttr, err := c.partitionKeyAttr(ctx)
	if err != nil {
		classified := classify(err, c.table)
		diag.RequestID = requestID(err)
		diag = diag.Complete(statusCode(err, classified))
		return diag, datastore.NewOperationError(op, diag, classified)
	}
	status, err := fn(ctx, pkAttr, &diag)
	if err != nil {
		if diag.RequestID == "" {
			diag.RequestID = requestID(err)
		}
		diag = diag.Complete(status)
		return diag, datastore.NewOperationError(op, diag, err)
	}
	return diag.Complete(status), nil
}

func (c *container) ReadItem(ctx context.Context, id, partitionKey string, out any) (*datastore.ItemResponse, error) {
	diag, err := c.call(ctx, "ReadItem", func(ctx context.Context, pkAttr string, diag *storagemodels.Diagnostics) (int, error) {
		res, err := c.client.api.GetItem(ctx, &sdk.GetItemInput{
			TableName:              aws.String(c.table),
			Key:                    c.key(pkAttr, id, partitionKey),
			ConsistentRead:         aws.Bool(c.client.opts.ConsistentRead),
			ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
		})
		if err != nil {
			classified := classify(err, c.table)
			return statusCode(err, classified), classified
		}
		diag.RequestID = requestIDFrom(res.ResultMetadata)
		diag.RequestCharge = consumed(res.ConsumedCapacity)
		if res.Item == nil {
			return 404, errors.NewNotFoundError("Item", id, partitionKey)
		}
		if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
			return 500, fmt.Errorf("failed to unmarshal item: %w", err)
		}
		return 200, nil
	})
	if err != nil {
		return nil, err
	}
	return &datastore.ItemResponse{ID: id, PartitionKey: partitionKey, Diagnostics: diag}, nil
}

// marshalItem encodes item and checks it carries the expected keys.
func marshalItem(item any, pkAttr, partitionKey string) (map[string]types.AttributeValue, string, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, "", errors.NewValidationError("item", err.Error())
	}
	idVal, ok := av[idAttr].(*types.AttributeValueMemberS)
	if !ok || idVal.Value == "" {
		return nil, "", errors.NewValidationError(idAttr, "item has no string id")
	}
	pkVal, ok := av[pkAttr].(*types.AttributeValueMemberS)
	if !ok {
		return nil, "", errors.NewValidationError(pkAttr, "item has no string partition key value")
	}
	if pkVal.Value != partitionKey {
		return nil, "", errors.NewValidationError(pkAttr, fmt.Sprintf("item value %q does not match partition key %q", pkVal.Value, partitionKey))
	}
	return av, idVal.Value, nil
}

// put writes item under condition, mapping a failed condition to onConditionFailed.
// A non-empty wantID must match the item's id.
func (c *container) put(ctx context.Context, op, condition, wantID, partitionKey string, item any, okStatus int, onConditionFailed func(id string) error) (*datastore.ItemResponse, error) {
	var id string
	diag, err := c.call(ctx, op, func(ctx context.Context, pkAttr string, diag *storagemodels.Diagnostics) (int, error) {
		av, itemID, err := marshalItem(item, pkAttr, partitionKey)
		if err != nil {
			return 400, err
		}
		if wantID != "" && itemID != wantID {
			return 400, errors.NewValidationError(idAttr, "replacement must keep the id")
		}
		id = itemID
		res, err := c.client.api.PutItem(ctx, &sdk.PutItemInput{
			TableName:                aws.String(c.table),
			Item:                     av,
			ConditionExpression:      aws.String(condition),
			ExpressionAttributeNames: map[string]string{"#pk": pkAttr},
			ReturnConsumedCapacity:   types.ReturnConsumedCapacityTotal,
		})
		if err != nil {
			classified := classify(err, c.table)
			if errors.IsConditionFailed(classified) {
				classified = onConditionFailed(itemID)
			}
			return statusCode(err, classified), classified
		}
		diag.RequestID = requestIDFrom(res.ResultMetadata)
		diag.RequestCharge = consumed(res.ConsumedCapacity)
		return okStatus, nil
	})
	if err != nil {
		return nil, err
	}
	return &datastore.ItemResponse{ID: id, PartitionKey: partitionKey, Diagnostics: diag}, nil
}

func (c *container) CreateItem(ctx context.Context, partitionKey string, item any) (*datastore.ItemResponse, error) {
	return c.put(ctx, "CreateItem", "attribute_not_exists(#pk)", "", partitionKey, item, 201, func(id string) error {
		return errors.NewAlreadyExistsError("Item", id, partitionKey)
	})
}

func (c *container) ReplaceItem(ctx context.Context, id, partitionKey string, item any) (*datastore.ItemResponse, error) {
	return c.put(ctx, "ReplaceItem", "attribute_exists(#pk)", id, partitionKey, item, 200, func(string) error {
		return errors.NewNotFoundError("Item", id, partitionKey)
	})
}

func (c *container) DeleteItem(ctx context.Context, id, partitionKey string) (*datastore.ItemResponse, error) {
	diag, err := c.call(ctx, "DeleteItem", func(ctx context.Context, pkAttr string, diag *storagemodels.Diagnostics) (int, error) {
		res, err := c.client.api.DeleteItem(ctx, &sdk.DeleteItemInput{
			TableName:                aws.String(c.table),
			Key:                      c.key(pkAttr, id, partitionKey),
			ConditionExpression:      aws.String("attribute_exists(#pk)"),
			ExpressionAttributeNames: map[string]string{"#pk": pkAttr},
			ReturnConsumedCapacity:   types.ReturnConsumedCapacityTotal,
		})
		if err != nil {
			classified := classify(err, c.table)
			if errors.IsConditionFailed(classified) {
				classified = errors.NewNotFoundError("Item", id, partitionKey)
			}
			return statusCode(err, classified), classified
		}
		diag.RequestID = requestIDFrom(res.ResultMetadata)
		diag.RequestCharge = consumed(res.ConsumedCapacity)
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
	diag.Detail = c.table
	ctx, cancel := c.client.withTimeout(ctx)
	defer cancel()

	res, err := c.client.api.DeleteTable(ctx, &sdk.DeleteTableInput{TableName: aws.String(c.table)})
	if err != nil {
		classified := classify(err, c.table)
		diag.RequestID = requestID(err)
		return nil, datastore.NewOperationError(op, diag.Complete(statusCode(err, classified)), classified)
	}
	diag.RequestID = requestIDFrom(res.ResultMetadata)

	waiter := sdk.NewTableNotExistsWaiter(c.client.api)
	if err := waiter.Wait(ctx, &sdk.DescribeTableInput{TableName: aws.String(c.table)}, c.client.opts.TableWaitTimeout); err != nil {
		return nil, datastore.NewOperationError(op, diag.Complete(500), classify(err, c.table))
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
