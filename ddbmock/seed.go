package ddbmock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nisimpson/dynoitem"
)

// Seeder persists fixture data into a table for tests.
type Seeder struct {
	client dynoitem.DynamoDBClient
	table  *dynoitem.Table
}

// NewSeeder creates a Seeder targeting the named table.
func NewSeeder(client dynoitem.DynamoDBClient, tableName string) *Seeder {
	return &Seeder{
		client: client,
		table:  dynoitem.NewTable(tableName),
	}
}

// SeedValues encodes the records and writes them to the table in batches.
func (s *Seeder) SeedValues(ctx context.Context, vs ...any) error {
	return s.table.BatchPut(ctx, s.client, vs...)
}

// SeedItems writes already-encoded items to the table, one put per item.
// Returns the number of items saved and any error generated.
func (s *Seeder) SeedItems(ctx context.Context, items ...dynoitem.Item) (int, error) {
	count := 0
	for i, item := range items {
		input := s.table.MarshalPutItem(item)
		if _, err := s.client.PutItem(ctx, input); err != nil {
			return count, fmt.Errorf("failed to seed item %d: %w", i, err)
		}
		count++
	}
	return count, nil
}

// SeedFromJSON reads fixture data from a reader and persists it to the
// table. The document is expected to be a JSON array of items in the wire
// format, e.g.
//
//	[
//	  {"id": {"S": "u1"}, "score": {"N": "42"}},
//	  {"id": {"S": "u2"}, "score": {"N": "7"}}
//	]
//
// Returns the number of items saved and any error generated.
func (s *Seeder) SeedFromJSON(ctx context.Context, r io.Reader) (int, error) {
	var docs []json.RawMessage
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&docs); err != nil {
		return 0, fmt.Errorf("failed to parse JSON document: %w", err)
	}

	items := make([]dynoitem.Item, 0, len(docs))
	for i, doc := range docs {
		item, err := dynoitem.UnmarshalItemJSON(doc)
		if err != nil {
			return 0, fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}
		items = append(items, item)
	}

	return s.SeedItems(ctx, items...)
}
