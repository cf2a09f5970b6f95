package dynoitem

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Query describes a key-condition query against a table or index. The
// partition key attribute name comes from the schema's key projection; sort
// key conditions and filters are composed with the SDK expression builder.
type Query struct {
	Keys           *KeyProjection                 // Key attribute names for the target schema
	PartitionValue any                            // Required partition key value
	SortCondition  expression.KeyConditionBuilder // Optional condition on the sort key
	Filter         expression.ConditionBuilder    // Optional filter on non-key attributes
	Limit          int                            // Maximum number of items to return
	StartKey       Item                           // Exclusive start key for pagination
	SortDescending bool                           // Scan direction (default: false)
	IndexName      string                         // Optional secondary index
}

// MarshalQuery builds the dynamodb query input for the table.
func (q *Query) MarshalQuery(t *Table) (*dynamodb.QueryInput, error) {
	if q.Keys == nil {
		return nil, fmt.Errorf("query requires a key projection")
	}

	// The condition value must encode exactly as stored items do, so the
	// partition value goes through the key field's codec rather than the
	// expression builder's default marshaling.
	partition, err := q.Keys.PartitionValue(q.PartitionValue)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal partition value: %w", err)
	}
	keyCondition := expression.Key(q.Keys.PartitionName()).Equal(expression.Value(partition))
	if q.SortCondition.IsSet() {
		keyCondition = keyCondition.And(q.SortCondition)
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCondition)
	if q.Filter.IsSet() {
		builder = builder.WithFilter(q.Filter)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(t.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!q.SortDescending),
	}

	if q.Filter.IsSet() {
		input.FilterExpression = expr.Filter()
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(int32(q.Limit))
	}
	if q.StartKey != nil {
		input.ExclusiveStartKey = q.StartKey
	}
	if q.IndexName != "" {
		input.IndexName = aws.String(q.IndexName)
	}

	return input, nil
}

// Scan describes a full-table or index scan with an optional filter.
type Scan struct {
	Filter    expression.ConditionBuilder // Optional filter on attributes
	Limit     int                         // Maximum number of items to return
	StartKey  Item                        // Exclusive start key for pagination
	IndexName string                      // Optional secondary index
}

// MarshalScan builds the dynamodb scan input for the table.
func (s *Scan) MarshalScan(t *Table) (*dynamodb.ScanInput, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(t.TableName),
	}

	if s.Filter.IsSet() {
		expr, err := expression.NewBuilder().WithFilter(s.Filter).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build expression: %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	if s.Limit > 0 {
		input.Limit = aws.Int32(int32(s.Limit))
	}
	if s.StartKey != nil {
		input.ExclusiveStartKey = s.StartKey
	}
	if s.IndexName != "" {
		input.IndexName = aws.String(s.IndexName)
	}

	return input, nil
}
