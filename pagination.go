package dynoitem

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// QueryPager follows a query's last evaluated key across pages, in the style
// of the SDK service paginators. Each page's items decode independently of
// any other page.
type QueryPager struct {
	client    DynamoDBClient
	input     *dynamodb.QueryInput
	nextKey   Item
	firstPage bool
}

// NewQueryPager creates a pager over the given query input. The input's
// ExclusiveStartKey, if set, positions the first page.
func NewQueryPager(client DynamoDBClient, input *dynamodb.QueryInput) *QueryPager {
	return &QueryPager{
		client:    client,
		input:     input,
		nextKey:   input.ExclusiveStartKey,
		firstPage: true,
	}
}

// HasMorePages reports whether another page is available.
func (p *QueryPager) HasMorePages() bool {
	return p.firstPage || len(p.nextKey) > 0
}

// NextPage fetches the next page of results.
func (p *QueryPager) NextPage(ctx context.Context) (*dynamodb.QueryOutput, error) {
	if !p.HasMorePages() {
		return nil, fmt.Errorf("no more pages available")
	}

	input := *p.input
	input.ExclusiveStartKey = p.nextKey

	output, err := p.client.Query(ctx, &input)
	if err != nil {
		return nil, err
	}

	p.firstPage = false
	p.nextKey = output.LastEvaluatedKey
	return output, nil
}

// ScanPager follows a scan's last evaluated key across pages.
type ScanPager struct {
	client    DynamoDBClient
	input     *dynamodb.ScanInput
	nextKey   Item
	firstPage bool
}

// NewScanPager creates a pager over the given scan input.
func NewScanPager(client DynamoDBClient, input *dynamodb.ScanInput) *ScanPager {
	return &ScanPager{
		client:    client,
		input:     input,
		nextKey:   input.ExclusiveStartKey,
		firstPage: true,
	}
}

// HasMorePages reports whether another page is available.
func (p *ScanPager) HasMorePages() bool {
	return p.firstPage || len(p.nextKey) > 0
}

// NextPage fetches the next page of results.
func (p *ScanPager) NextPage(ctx context.Context) (*dynamodb.ScanOutput, error) {
	if !p.HasMorePages() {
		return nil, fmt.Errorf("no more pages available")
	}

	input := *p.input
	input.ExclusiveStartKey = p.nextKey

	output, err := p.client.Scan(ctx, &input)
	if err != nil {
		return nil, err
	}

	p.firstPage = false
	p.nextKey = output.LastEvaluatedKey
	return output, nil
}

// MarshalCursor converts a last evaluated key into an opaque string cursor
// that clients can hold across processes. A nil or empty key yields an empty
// cursor, signaling the end of results.
func MarshalCursor(lastKey Item) (string, error) {
	if len(lastKey) == 0 {
		return "", nil
	}
	data, err := MarshalItemJSON(lastKey)
	if err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// UnmarshalCursor converts a cursor back into an exclusive start key. An
// empty cursor yields a nil key, starting from the beginning.
func UnmarshalCursor(cursor string) (Item, error) {
	if cursor == "" {
		return nil, nil
	}
	data, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cursor: %w", err)
	}
	item, err := UnmarshalItemJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cursor: %w", err)
	}
	return item, nil
}
