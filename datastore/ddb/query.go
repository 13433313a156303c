/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/familystore/datastore"
	"github.com/suparena/familystore/errors"
	"github.com/suparena/familystore/storagemodels"
)

type pageOutput struct {
	items    []map[string]types.AttributeValue
	capacity *types.ConsumedCapacity
	reqID    string
}

// pager adapts the SDK Query or Scan paginator. An equality on the partition
// key becomes a Query; anything else is a filtered Scan.
type pager struct {
	container *container
	query     storagemodels.QueryDefinition
	next      func(ctx context.Context) (pageOutput, bool, error)
	page      int
	more      bool
}

func (p *pager) HasMorePages() bool {
	return p.more
}

func (p *pager) init(ctx context.Context) error {
	if err := p.query.Validate(); err != nil {
		return err
	}
	pkAttr, err := p.container.partitionKeyAttr(ctx)
	if err != nil {
		return classify(err, p.container.table)
	}

	c := p.container
	limit := p.query.PageSize
	if limit <= 0 {
		limit = c.client.opts.PageSize
	}
	var limitPtr *int32
	if limit > 0 {
		limitPtr = aws.Int32(limit)
	}
	names := map[string]string{"#f": p.query.Field}
	values := map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: p.query.Value}}

	if p.query.Field == pkAttr {
		qp := sdk.NewQueryPaginator(c.client.api, &sdk.QueryInput{
			TableName:                 aws.String(c.table),
			KeyConditionExpression:    aws.String("#f = :v"),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			ConsistentRead:            aws.Bool(c.client.opts.ConsistentRead),
			Limit:                     limitPtr,
			ReturnConsumedCapacity:    types.ReturnConsumedCapacityTotal,
		})
		p.next = func(ctx context.Context) (pageOutput, bool, error) {
			out, err := qp.NextPage(ctx)
			if err != nil {
				return pageOutput{}, false, err
			}
			return pageOutput{items: out.Items, capacity: out.ConsumedCapacity, reqID: requestIDFrom(out.ResultMetadata)}, qp.HasMorePages(), nil
		}
		return nil
	}

	sp := sdk.NewScanPaginator(c.client.api, &sdk.ScanInput{
		TableName:                 aws.String(c.table),
		FilterExpression:          aws.String("#f = :v"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConsistentRead:            aws.Bool(c.client.opts.ConsistentRead),
		Limit:                     limitPtr,
		ReturnConsumedCapacity:    types.ReturnConsumedCapacityTotal,
	})
	p.next = func(ctx context.Context) (pageOutput, bool, error) {
		out, err := sp.NextPage(ctx)
		if err != nil {
			return pageOutput{}, false, err
		}
		return pageOutput{items: out.Items, capacity: out.ConsumedCapacity, reqID: requestIDFrom(out.ResultMetadata)}, sp.HasMorePages(), nil
	}
	return nil
}

func (p *pager) NextPage(ctx context.Context) (*datastore.FeedResponse, error) {
	const op = "QueryPage"
	diag := storagemodels.BeginDiagnostics(op)
	diag.Detail = p.query.Text()
	fail := func(raw, err error) (*datastore.FeedResponse, error) {
		diag.RequestID = requestID(raw)
		return nil, datastore.NewOperationError(op, diag.Complete(statusCode(raw, err)), err)
	}
	if !p.more {
		return fail(nil, errors.NewValidationError("pager", "no more pages"))
	}

	ctx, cancel := p.container.client.withTimeout(ctx)
	defer cancel()

	if p.next == nil {
		if err := p.init(ctx); err != nil {
			return fail(nil, err)
		}
	}
	out, more, err := p.next(ctx)
	if err != nil {
		return fail(err, classify(err, p.container.table))
	}
	p.page++
	p.more = more

	diag.RequestID = out.reqID
	diag.RequestCharge = consumed(out.capacity)
	meta := storagemodels.PageMeta{PageNumber: p.page, ItemCount: len(out.items), HasMore: more}
	items := out.items
	return datastore.NewFeedResponse(meta, diag.Complete(200), func(dst any) error {
		if err := attributevalue.UnmarshalListOfMaps(items, dst); err != nil {
			return fmt.Errorf("failed to unmarshal page: %w", err)
		}
		return nil
	}), nil
}
