package dynoitem

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeClient implements DynamoDBClient with overridable operations. Calls on
// unset operations return empty outputs.
type fakeClient struct {
	putFunc    func(context.Context, *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	getFunc    func(context.Context, *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	deleteFunc func(context.Context, *dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error)
	batchFunc  func(context.Context, *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error)
	queryFunc  func(context.Context, *dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
	scanFunc   func(context.Context, *dynamodb.ScanInput) (*dynamodb.ScanOutput, error)
}

func (f *fakeClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.putFunc == nil {
		return &dynamodb.PutItemOutput{}, nil
	}
	return f.putFunc(ctx, params)
}

func (f *fakeClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getFunc == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return f.getFunc(ctx, params)
}

func (f *fakeClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if f.deleteFunc == nil {
		return &dynamodb.DeleteItemOutput{}, nil
	}
	return f.deleteFunc(ctx, params)
}

func (f *fakeClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if f.batchFunc == nil {
		return &dynamodb.BatchWriteItemOutput{}, nil
	}
	return f.batchFunc(ctx, params)
}

func (f *fakeClient) Query(ctx context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.queryFunc == nil {
		return &dynamodb.QueryOutput{}, nil
	}
	return f.queryFunc(ctx, params)
}

func (f *fakeClient) Scan(ctx context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.scanFunc == nil {
		return &dynamodb.ScanOutput{}, nil
	}
	return f.scanFunc(ctx, params)
}

func TestNewTable(t *testing.T) {
	table := NewTable("test-table")
	if table.TableName != "test-table" {
		t.Errorf("Expected table name 'test-table', got %s", table.TableName)
	}
}

func TestMarshalPut(t *testing.T) {
	table := NewTable("users")
	input, err := table.MarshalPut(testUser{ID: "u1", Tags: []string{"a"}, Score: 1})
	if err != nil {
		t.Fatalf("MarshalPut failed: %v", err)
	}
	if *input.TableName != "users" {
		t.Errorf("Expected table users, got %s", *input.TableName)
	}
	if s := input.Item["id"].(*types.AttributeValueMemberS); s.Value != "u1" {
		t.Errorf("Expected item id u1, got %s", s.Value)
	}
}

func TestMarshalGet(t *testing.T) {
	table := NewTable("users")
	input, err := table.MarshalGet(testUser{ID: "u1", Score: 9})
	if err != nil {
		t.Fatalf("MarshalGet failed: %v", err)
	}
	if len(input.Key) != 1 {
		t.Fatalf("Expected key-only attributes, got %d", len(input.Key))
	}
	if s := input.Key["id"].(*types.AttributeValueMemberS); s.Value != "u1" {
		t.Errorf("Expected key id u1, got %s", s.Value)
	}
}

func TestMarshalDelete(t *testing.T) {
	table := NewTable("users")
	input, err := table.MarshalDelete(testUser{ID: "u1"})
	if err != nil {
		t.Fatalf("MarshalDelete failed: %v", err)
	}
	if len(input.Key) != 1 {
		t.Errorf("Expected key-only attributes, got %d", len(input.Key))
	}
}

func TestMarshalBatchPut(t *testing.T) {
	table := NewTable("users")

	records := make([]any, 30)
	for i := range records {
		records[i] = testUser{ID: "u", Tags: []string{}, Score: i}
	}

	batches, err := table.MarshalBatchPut(records...)
	if err != nil {
		t.Fatalf("MarshalBatchPut failed: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("Expected 2 batches, got %d", len(batches))
	}
	if got := len(batches[0].RequestItems["users"]); got != MaxBatchSize {
		t.Errorf("Expected first batch of %d, got %d", MaxBatchSize, got)
	}
	if got := len(batches[1].RequestItems["users"]); got != 5 {
		t.Errorf("Expected second batch of 5, got %d", got)
	}
}

func TestTablePutGetDelete(t *testing.T) {
	table := NewTable("users")
	user := testUser{ID: "u1", Tags: []string{"a"}, Score: 3}

	stored := make(map[string]Item)
	client := &fakeClient{
		putFunc: func(_ context.Context, params *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			id := params.Item["id"].(*types.AttributeValueMemberS).Value
			stored[id] = params.Item
			return &dynamodb.PutItemOutput{}, nil
		},
		getFunc: func(_ context.Context, params *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
			id := params.Key["id"].(*types.AttributeValueMemberS).Value
			return &dynamodb.GetItemOutput{Item: stored[id]}, nil
		},
		deleteFunc: func(_ context.Context, params *dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) {
			id := params.Key["id"].(*types.AttributeValueMemberS).Value
			delete(stored, id)
			return &dynamodb.DeleteItemOutput{}, nil
		},
	}

	ctx := context.Background()

	if err := table.Put(ctx, client, user); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var decoded testUser
	if err := table.Get(ctx, client, testUser{ID: "u1"}, &decoded); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !reflect.DeepEqual(decoded, user) {
		t.Errorf("Expected %+v, got %+v", user, decoded)
	}

	if err := table.Delete(ctx, client, testUser{ID: "u1"}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	err := table.Get(ctx, client, testUser{ID: "u1"}, &decoded)
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}
}

func TestTableBatchPutRetriesUnprocessed(t *testing.T) {
	table := NewTable("users")

	calls := 0
	client := &fakeClient{
		batchFunc: func(_ context.Context, params *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
			calls++
			if calls == 1 {
				return &dynamodb.BatchWriteItemOutput{
					UnprocessedItems: params.RequestItems,
				}, nil
			}
			return &dynamodb.BatchWriteItemOutput{}, nil
		},
	}

	err := table.BatchPut(context.Background(), client, testUser{ID: "u1", Tags: []string{}})
	if err != nil {
		t.Fatalf("BatchPut failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected unprocessed items to be retried once, got %d calls", calls)
	}
}

func TestUnmarshalList(t *testing.T) {
	items := []Item{
		{"id": strAttr("u1"), "tags": &types.AttributeValueMemberL{}, "score": numAttr("1")},
		{"id": strAttr("u2"), "tags": &types.AttributeValueMemberL{}, "score": numAttr("2")},
	}

	var users []testUser
	if err := UnmarshalList(items, &users); err != nil {
		t.Fatalf("UnmarshalList failed: %v", err)
	}
	if len(users) != 2 || users[1].ID != "u2" {
		t.Errorf("Unexpected result %+v", users)
	}

	t.Run("first failure aborts", func(t *testing.T) {
		bad := []Item{{"id": numAttr("1")}}
		var out []testUser
		if err := UnmarshalList(bad, &out); err == nil {
			t.Error("Expected error for a malformed item")
		}
	})
}
