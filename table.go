package dynoitem

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrItemNotFound is returned when an item is not found in DynamoDB operations.
var ErrItemNotFound = errors.New("item not found")

const (
	// MaxBatchSize is the maximum number of items allowed in a DynamoDB batch operation.
	MaxBatchSize = 25
)

// DynamoDBClient interface for easier testing and connection management.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Table contains DynamoDB table configuration.
type Table struct {
	TableName string
}

// NewTable creates a new Table with the given name.
func NewTable(tableName string) *Table {
	return &Table{TableName: tableName}
}

// MarshalPut marshals the record into a dynamodb put item input request.
func (t *Table) MarshalPut(v any) (*dynamodb.PutItemInput, error) {
	item, err := MarshalItem(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	return &dynamodb.PutItemInput{
		TableName: aws.String(t.TableName),
		Item:      item,
	}, nil
}

// MarshalBatchPut marshals the records into batch write put requests. Since
// there is a limit on how many requests can be contained in a single input,
// the requests are chunked in sizes of 25 or less.
func (t *Table) MarshalBatchPut(vs ...any) ([]*dynamodb.BatchWriteItemInput, error) {
	var batches []*dynamodb.BatchWriteItemInput

	for i := 0; i < len(vs); i += MaxBatchSize {
		end := min(i+MaxBatchSize, len(vs))

		var writeRequests []types.WriteRequest
		for _, v := range vs[i:end] {
			item, err := MarshalItem(v)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal item: %w", err)
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		batches = append(batches, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				t.TableName: writeRequests,
			},
		})
	}

	return batches, nil
}

// MarshalPutItem wraps an already-encoded item into a put item request.
func (t *Table) MarshalPutItem(item Item) *dynamodb.PutItemInput {
	return &dynamodb.PutItemInput{
		TableName: aws.String(t.TableName),
		Item:      item,
	}
}

// MarshalGet marshals the record's key attributes into a get item request.
// Only the partition and sort key fields of v are consulted.
func (t *Table) MarshalGet(v any) (*dynamodb.GetItemInput, error) {
	key, err := MarshalKey(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}
	return t.MarshalGetKey(key), nil
}

// MarshalGetKey wraps an already-built key into a get item request.
func (t *Table) MarshalGetKey(key Item) *dynamodb.GetItemInput {
	return &dynamodb.GetItemInput{
		TableName: aws.String(t.TableName),
		Key:       key,
	}
}

// MarshalDelete marshals the record's key attributes into a delete item request.
func (t *Table) MarshalDelete(v any) (*dynamodb.DeleteItemInput, error) {
	key, err := MarshalKey(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}
	return &dynamodb.DeleteItemInput{
		TableName: aws.String(t.TableName),
		Key:       key,
	}, nil
}

// Put encodes v and stores it in the table.
func (t *Table) Put(ctx context.Context, client DynamoDBClient, v any) error {
	input, err := t.MarshalPut(v)
	if err != nil {
		return err
	}
	if _, err := client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

// Get looks up the item keyed by v's key attributes and decodes it into out.
// Returns ErrItemNotFound when no item exists under that key.
func (t *Table) Get(ctx context.Context, client DynamoDBClient, v any, out any) error {
	input, err := t.MarshalGet(v)
	if err != nil {
		return err
	}
	result, err := client.GetItem(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to get item: %w", err)
	}
	if result.Item == nil {
		return ErrItemNotFound
	}
	return UnmarshalItem(result.Item, out)
}

// Delete removes the item keyed by v's key attributes.
func (t *Table) Delete(ctx context.Context, client DynamoDBClient, v any) error {
	input, err := t.MarshalDelete(v)
	if err != nil {
		return err
	}
	if _, err := client.DeleteItem(ctx, input); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// BatchPut encodes the records and writes them in chunks of MaxBatchSize.
// Unprocessed items reported by the service are retried once per batch.
func (t *Table) BatchPut(ctx context.Context, client DynamoDBClient, vs ...any) error {
	batches, err := t.MarshalBatchPut(vs...)
	if err != nil {
		return err
	}
	for _, batch := range batches {
		result, err := client.BatchWriteItem(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to batch write items: %w", err)
		}
		if len(result.UnprocessedItems) > 0 {
			retry := &dynamodb.BatchWriteItemInput{RequestItems: result.UnprocessedItems}
			if _, err := client.BatchWriteItem(ctx, retry); err != nil {
				return fmt.Errorf("failed to batch write unprocessed items: %w", err)
			}
		}
	}
	return nil
}

// UnmarshalList decodes each item in items into a new T and appends the
// results to out. Each item decodes independently; the first failure aborts
// with that item's error.
func UnmarshalList[T any](items []Item, out *[]T) error {
	for i, item := range items {
		var value T
		if err := UnmarshalItem(item, &value); err != nil {
			return fmt.Errorf("failed to unmarshal item %d: %w", i, err)
		}
		*out = append(*out, value)
	}
	return nil
}
