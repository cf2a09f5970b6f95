package ddbmock

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynoitem"
)

func TestSeedValues(t *testing.T) {
	mock := NewMockClient(t)

	var written int
	mock.BatchWriteItemFunc = func(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
		written += len(params.RequestItems["widgets"])
		return &dynamodb.BatchWriteItemOutput{}, nil
	}

	seeder := NewSeeder(mock, "widgets")
	err := seeder.SeedValues(context.Background(),
		widget{ID: "w1", Name: "gear"},
		widget{ID: "w2", Name: "sprocket"},
	)
	if err != nil {
		t.Fatalf("SeedValues failed: %v", err)
	}
	if written != 2 {
		t.Errorf("Expected 2 items written, got %d", written)
	}
}

func TestSeedFromJSON(t *testing.T) {
	mock := NewMockClient(t)

	var names []string
	mock.PutFunc = func(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
		names = append(names, params.Item["name"].(*types.AttributeValueMemberS).Value)
		return &dynamodb.PutItemOutput{}, nil
	}

	doc := `[
		{"id": {"S": "w1"}, "name": {"S": "gear"}},
		{"id": {"S": "w2"}, "name": {"S": "sprocket"}}
	]`

	seeder := NewSeeder(mock, "widgets")
	count, err := seeder.SeedFromJSON(context.Background(), strings.NewReader(doc))
	if err != nil {
		t.Fatalf("SeedFromJSON failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 items seeded, got %d", count)
	}
	if len(names) != 2 {
		t.Errorf("Expected 2 puts, got %d", len(names))
	}
}

func TestSeedFromJSONMalformed(t *testing.T) {
	mock := NewMockClient(t)
	seeder := NewSeeder(mock, "widgets")

	cases := map[string]string{
		"not an array":   `{"id": {"S": "w1"}}`,
		"unknown member": `[{"id": {"X": "w1"}}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := seeder.SeedFromJSON(context.Background(), strings.NewReader(doc)); err == nil {
				t.Error("Expected error for malformed fixture document")
			}
		})
	}
}

func TestSeedItems(t *testing.T) {
	mock := NewMockClient(t)

	puts := 0
	mock.PutFunc = func(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
		puts++
		if *params.TableName != "widgets" {
			t.Errorf("Expected table widgets, got %s", *params.TableName)
		}
		return &dynamodb.PutItemOutput{}, nil
	}

	seeder := NewSeeder(mock, "widgets")
	count, err := seeder.SeedItems(context.Background(),
		dynoitem.Item{"id": &types.AttributeValueMemberS{Value: "w1"}},
	)
	if err != nil {
		t.Fatalf("SeedItems failed: %v", err)
	}
	if count != 1 || puts != 1 {
		t.Errorf("Expected 1 item seeded, got count=%d puts=%d", count, puts)
	}
}
