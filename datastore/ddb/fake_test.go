/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI is a small in-memory DynamoDB covering the calls the backend makes.
type fakeAPI struct {
	mu     sync.Mutex
	tables map[string]*fakeTable
	// errs injects a failure for the named call.
	errs  map[string]error
	calls map[string]int
}

type fakeTable struct {
	hash  string
	rng   string
	items map[string]map[string]types.AttributeValue
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		tables: make(map[string]*fakeTable),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeAPI) enter(call string) error {
	f.calls[call]++
	return f.errs[call]
}

func sval(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (t *fakeTable) keyOf(item map[string]types.AttributeValue) string {
	k := sval(item[t.hash])
	if t.rng != "" {
		k += "|" + sval(item[t.rng])
	}
	return k
}

var capacity = &types.ConsumedCapacity{CapacityUnits: aws.Float64(1)}

func (f *fakeAPI) ListTables(ctx context.Context, in *sdk.ListTablesInput, _ ...func(*sdk.Options)) (*sdk.ListTablesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListTables"); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.tables))
	for name := range f.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return &sdk.ListTablesOutput{TableNames: names}, nil
}

func (f *fakeAPI) CreateTable(ctx context.Context, in *sdk.CreateTableInput, _ ...func(*sdk.Options)) (*sdk.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateTable"); err != nil {
		return nil, err
	}
	name := aws.ToString(in.TableName)
	if _, ok := f.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists: " + name)}
	}
	t := &fakeTable{items: make(map[string]map[string]types.AttributeValue)}
	for _, k := range in.KeySchema {
		if k.KeyType == types.KeyTypeHash {
			t.hash = aws.ToString(k.AttributeName)
		} else {
			t.rng = aws.ToString(k.AttributeName)
		}
	}
	f.tables[name] = t
	return &sdk.CreateTableOutput{}, nil
}

func (f *fakeAPI) DescribeTable(ctx context.Context, in *sdk.DescribeTableInput, _ ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DescribeTable"); err != nil {
		return nil, err
	}
	t, ok := f.tables[aws.ToString(in.TableName)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	schema := []types.KeySchemaElement{{AttributeName: aws.String(t.hash), KeyType: types.KeyTypeHash}}
	if t.rng != "" {
		schema = append(schema, types.KeySchemaElement{AttributeName: aws.String(t.rng), KeyType: types.KeyTypeRange})
	}
	return &sdk.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
		KeySchema:   schema,
	}}, nil
}

func (f *fakeAPI) DeleteTable(ctx context.Context, in *sdk.DeleteTableInput, _ ...func(*sdk.Options)) (*sdk.DeleteTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteTable"); err != nil {
		return nil, err
	}
	name := aws.ToString(in.TableName)
	if _, ok := f.tables[name]; !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	delete(f.tables, name)
	return &sdk.DeleteTableOutput{}, nil
}

func (f *fakeAPI) table(name *string) (*fakeTable, error) {
	t, ok := f.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	return t, nil
}

func (f *fakeAPI) GetItem(ctx context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetItem"); err != nil {
		return nil, err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	return &sdk.GetItemOutput{Item: t.items[t.keyOf(in.Key)], ConsumedCapacity: capacity}, nil
}

func (f *fakeAPI) PutItem(ctx context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("PutItem"); err != nil {
		return nil, err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	key := t.keyOf(in.Item)
	_, exists := t.items[key]
	cond := aws.ToString(in.ConditionExpression)
	if strings.HasPrefix(cond, "attribute_not_exists") && exists || strings.HasPrefix(cond, "attribute_exists") && !exists {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	t.items[key] = in.Item
	return &sdk.PutItemOutput{ConsumedCapacity: capacity}, nil
}

func (f *fakeAPI) DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteItem"); err != nil {
		return nil, err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	key := t.keyOf(in.Key)
	if _, ok := t.items[key]; !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	delete(t.items, key)
	return &sdk.DeleteItemOutput{ConsumedCapacity: capacity}, nil
}

// page returns the matching items after start, at most limit of them, and the
// key to continue from.
func (t *fakeTable) page(attr, value string, start map[string]types.AttributeValue, limit *int32) ([]map[string]types.AttributeValue, map[string]types.AttributeValue) {
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	startKey := ""
	if start != nil {
		startKey = t.keyOf(start)
	}
	var out []map[string]types.AttributeValue
	for i, k := range keys {
		if startKey != "" && k <= startKey {
			continue
		}
		item := t.items[k]
		if sval(item[attr]) == value {
			out = append(out, item)
		}
		if limit != nil && int32(len(out)) == *limit {
			for _, rest := range keys[i+1:] {
				if sval(t.items[rest][attr]) == value {
					return out, map[string]types.AttributeValue{t.hash: item[t.hash], t.rng: item[t.rng]}
				}
			}
			return out, nil
		}
	}
	return out, nil
}

func (f *fakeAPI) Query(ctx context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Query"); err != nil {
		return nil, err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	items, last := t.page(in.ExpressionAttributeNames["#f"], sval(in.ExpressionAttributeValues[":v"]), in.ExclusiveStartKey, in.Limit)
	return &sdk.QueryOutput{Items: items, Count: int32(len(items)), LastEvaluatedKey: last, ConsumedCapacity: capacity}, nil
}

func (f *fakeAPI) Scan(ctx context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Scan"); err != nil {
		return nil, err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	items, last := t.page(in.ExpressionAttributeNames["#f"], sval(in.ExpressionAttributeValues[":v"]), in.ExclusiveStartKey, in.Limit)
	return &sdk.ScanOutput{Items: items, Count: int32(len(items)), LastEvaluatedKey: last, ConsumedCapacity: capacity}, nil
}
