/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go/middleware"

	"github.com/suparena/familystore"
	"github.com/suparena/familystore/datastore"
	"github.com/suparena/familystore/errors"
	"github.com/suparena/familystore/storagemodels"
)

// API is the subset of *dynamodb.Client the backend calls.
type API interface {
	sdk.ListTablesAPIClient
	sdk.DescribeTableAPIClient
	sdk.QueryAPIClient
	sdk.ScanAPIClient
	CreateTable(ctx context.Context, params *sdk.CreateTableInput, optFns ...func(*sdk.Options)) (*sdk.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *sdk.DeleteTableInput, optFns ...func(*sdk.Options)) (*sdk.DeleteTableOutput, error)
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
}

// Options tune the backend.
type Options struct {
	// Region is used when the connection string names none.
	Region string
	// PageSize is the default Limit of query pages. Zero leaves it to DynamoDB.
	PageSize int32
	// ConsistentRead makes ReadItem and partition queries strongly consistent.
	ConsistentRead bool
	// RequestTimeout bounds every call. Zero means no bound beyond ctx.
	RequestTimeout time.Duration
	// TableWaitTimeout bounds waiting for a table to become active or be removed.
	TableWaitTimeout time.Duration
}

// Option configures Options.
type Option func(*Options)

func WithRegion(region string) Option {
	return func(o *Options) { o.Region = region }
}

func WithPageSize(n int32) Option {
	return func(o *Options) { o.PageSize = n }
}

func WithConsistentRead(v bool) Option {
	return func(o *Options) { o.ConsistentRead = v }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) { o.RequestTimeout = d }
}

func WithTableWaitTimeout(d time.Duration) Option {
	return func(o *Options) { o.TableWaitTimeout = d }
}

func defaultOptions() Options {
	return Options{TableWaitTimeout: 2 * time.Minute}
}

// Client implements datastore.Client on DynamoDB. A database is a table name
// prefix and each container is the table "<database>-<container>". Database
// ids may not contain '-', so no database sees another one's tables.
type Client struct {
	api  API
	opts Options
}

var _ datastore.Client = (*Client)(nil)

// New loads the AWS configuration described by connectionString and returns a Client.
func New(ctx context.Context, connectionString string, opts ...Option) (*Client, error) {
	info, err := ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithAppID(familystore.UserAgent()),
	}
	region := info.Region
	if region == "" {
		region = o.Region
	}
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	if info.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(info.AccessKey, info.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	api := sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if info.Endpoint != "" {
			o.BaseEndpoint = aws.String(info.Endpoint)
		}
	})
	return &Client{api: api, opts: o}, nil
}

// NewFromAPI wraps an existing DynamoDB client.
func NewFromAPI(api API, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{api: api, opts: o}
}

func (c *Client) CreateDatabaseIfNotExists(ctx context.Context, id string) (*datastore.DatabaseResponse, error) {
	diag := storagemodels.BeginDiagnostics("CreateDatabase")
	if err := validateDatabaseID(id); err != nil {
		return nil, datastore.NewOperationError("CreateDatabase", diag.Complete(400), err)
	}
	db := &database{client: c, id: id}
	tables, listDiag, err := db.tables(ctx)
	if err != nil {
		listDiag.Operation = "CreateDatabase"
		return nil, datastore.NewOperationError("CreateDatabase", listDiag, err)
	}
	created := len(tables) == 0
	status := 200
	if created {
		status = 201
	}
	diag.RequestID = listDiag.RequestID
	diag.Detail = "namespace " + db.prefix()
	return &datastore.DatabaseResponse{Database: db, Created: created, Diagnostics: diag.Complete(status)}, nil
}

func (c *Client) Database(id string) datastore.Database {
	return &database{client: c, id: id}
}

// Close is a no-op; the AWS client holds no connections that need releasing.
func (c *Client) Close(ctx context.Context) error {
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.RequestTimeout > 0 {
		return context.WithTimeout(ctx, c.opts.RequestTimeout)
	}
	return ctx, func() {}
}

type database struct {
	client *Client
	id     string
}

func (d *database) ID() string { return d.id }

// validateDatabaseID accepts the table name characters other than the
// namespace separator.
func validateDatabaseID(id string) error {
	if id == "" {
		return errors.NewValidationError("id", "database id is required")
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return errors.NewValidationError("id", fmt.Sprintf("database id %q may only contain letters, digits, '_' and '.'", id))
		}
	}
	return nil
}

func (d *database) prefix() string { return d.id + "-" }

func (d *database) tableName(container string) string { return d.prefix() + container }

func (d *database) Container(id string) datastore.Container {
	return &container{client: d.client, db: d, id: id, table: d.tableName(id)}
}

// tables lists every table in the database namespace.
func (d *database) tables(ctx context.Context) ([]string, storagemodels.Diagnostics, error) {
	diag := storagemodels.BeginDiagnostics("ListContainers")
	if err := validateDatabaseID(d.id); err != nil {
		return nil, diag.Complete(400), err
	}
	ctx, cancel := d.client.withTimeout(ctx)
	defer cancel()

	var names []string
	p := sdk.NewListTablesPaginator(d.client.api, &sdk.ListTablesInput{})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			classified := classify(err, d.prefix()+"*")
			diag.RequestID = requestID(err)
			return nil, diag.Complete(statusCode(err, classified)), classified
		}
		diag.RequestID = requestIDFrom(out.ResultMetadata)
		for _, name := range out.TableNames {
			if strings.HasPrefix(name, d.prefix()) {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, diag.Complete(200), nil
}

func (d *database) ContainerIDs(ctx context.Context) ([]string, storagemodels.Diagnostics, error) {
	names, diag, err := d.tables(ctx)
	if err != nil {
		return nil, diag, datastore.NewOperationError("ListContainers", diag, err)
	}
	ids := make([]string, len(names))
	for i, name := range names {
		ids[i] = strings.TrimPrefix(name, d.prefix())
	}
	return ids, diag, nil
}

func (d *database) CreateContainerIfNotExists(ctx context.Context, props datastore.ContainerProperties) (*datastore.ContainerResponse, error) {
	const op = "CreateContainer"
	diag := storagemodels.BeginDiagnostics(op)
	fail := func(raw, err error) (*datastore.ContainerResponse, error) {
		diag.RequestID = requestID(raw)
		return nil, datastore.NewOperationError(op, diag.Complete(statusCode(raw, err)), err)
	}

	if err := validateDatabaseID(d.id); err != nil {
		return fail(nil, err)
	}
	if props.ID == "" {
		return fail(nil, errors.NewValidationError("id", "container id is required"))
	}
	pkAttr, err := storagemodels.PartitionKeyAttribute(props.PartitionKeyPath)
	if err != nil {
		return fail(nil, err)
	}

	table := d.tableName(props.ID)
	diag.Detail = table
	ctx, cancel := d.client.withTimeout(ctx)
	defer cancel()

	out, err := d.client.api.CreateTable(ctx, createTableInput(table, pkAttr))
	created := true
	if err != nil {
		classified := classify(err, table)
		if !stderrors.Is(classified, errors.ErrConflict) {
			return fail(err, classified)
		}
		created = false
	} else {
		diag.RequestID = requestIDFrom(out.ResultMetadata)
	}

	waiter := sdk.NewTableExistsWaiter(d.client.api)
	if err := waiter.Wait(ctx, &sdk.DescribeTableInput{TableName: aws.String(table)}, d.client.opts.TableWaitTimeout); err != nil {
		return fail(err, classify(err, table))
	}

	status := 200
	if created {
		status = 201
	}
	ct := &container{client: d.client, db: d, id: props.ID, table: table, pkAttr: pkAttr}
	return &datastore.ContainerResponse{
		Container:   ct,
		Properties:  props,
		Created:     created,
		Diagnostics: diag.Complete(status),
	}, nil
}

// createTableInput keys the table on the partition key attribute with id as
// the sort key, so (id, partition key) addresses one record.
func createTableInput(table, pkAttr string) *sdk.CreateTableInput {
	input := &sdk.CreateTableInput{
		TableName:   aws.String(table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(pkAttr), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(pkAttr), KeyType: types.KeyTypeHash},
		},
	}
	if pkAttr != idAttr {
		input.AttributeDefinitions = append(input.AttributeDefinitions,
			types.AttributeDefinition{AttributeName: aws.String(idAttr), AttributeType: types.ScalarAttributeTypeS})
		input.KeySchema = append(input.KeySchema,
			types.KeySchemaElement{AttributeName: aws.String(idAttr), KeyType: types.KeyTypeRange})
	}
	return input
}

func requestIDFrom(md middleware.Metadata) string {
	id, _ := awsmiddleware.GetRequestIDMetadata(md)
	return id
}

func consumed(cc *types.ConsumedCapacity) float64 {
	if cc == nil || cc.CapacityUnits == nil {
		return 0
	}
	return *cc.CapacityUnits
}
