package dynoitem

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestMarshalItemJSON(t *testing.T) {
	item := Item{
		"id":    strAttr("u1"),
		"score": numAttr("42"),
		"tags": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			strAttr("a"),
			strAttr("b"),
		}},
	}

	data, err := MarshalItemJSON(item)
	if err != nil {
		t.Fatalf("MarshalItemJSON failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	want := map[string]any{
		"id":    map[string]any{"S": "u1"},
		"score": map[string]any{"N": "42"},
		"tags": map[string]any{"L": []any{
			map[string]any{"S": "a"},
			map[string]any{"S": "b"},
		}},
	}
	if !reflect.DeepEqual(decoded, want) {
		t.Errorf("Expected %v, got %v", want, decoded)
	}
}

func TestAttributeJSONRoundTrip(t *testing.T) {
	values := map[string]types.AttributeValue{
		"string":     strAttr("hello"),
		"number":     numAttr("1.5"),
		"bool":       boolAttr(true),
		"null":       &types.AttributeValueMemberNULL{Value: true},
		"binary":     &types.AttributeValueMemberB{Value: []byte{1, 2}},
		"string set": &types.AttributeValueMemberSS{Value: []string{"a", "b"}},
		"number set": &types.AttributeValueMemberNS{Value: []string{"1", "2"}},
		"binary set": &types.AttributeValueMemberBS{Value: [][]byte{{1}, {2}}},
		"list": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			numAttr("1"),
			boolAttr(false),
		}},
		"map": &types.AttributeValueMemberM{Value: Item{
			"nested": strAttr("deep"),
		}},
	}

	for name, av := range values {
		t.Run(name, func(t *testing.T) {
			data, err := MarshalAttributeJSON(av)
			if err != nil {
				t.Fatalf("MarshalAttributeJSON failed: %v", err)
			}
			decoded, err := UnmarshalAttributeJSON(data)
			if err != nil {
				t.Fatalf("UnmarshalAttributeJSON failed: %v", err)
			}
			if !reflect.DeepEqual(decoded, av) {
				t.Errorf("Expected %v, got %v", av, decoded)
			}
		})
	}
}

func TestUnmarshalItemJSON(t *testing.T) {
	data := []byte(`{"id":{"S":"u1"},"tags":{"L":[{"S":"a"},{"S":"b"}]},"score":{"N":"42"}}`)

	item, err := UnmarshalItemJSON(data)
	if err != nil {
		t.Fatalf("UnmarshalItemJSON failed: %v", err)
	}

	var user testUser
	if err := UnmarshalItem(item, &user); err != nil {
		t.Fatalf("UnmarshalItem failed: %v", err)
	}
	want := testUser{ID: "u1", Tags: []string{"a", "b"}, Score: 42}
	if !reflect.DeepEqual(user, want) {
		t.Errorf("Expected %+v, got %+v", want, user)
	}
}

func TestUnmarshalAttributeJSONErrors(t *testing.T) {
	cases := map[string]string{
		"unknown member":   `{"X":"oops"}`,
		"multiple members": `{"S":"a","N":"1"}`,
		"empty object":     `{}`,
		"not an object":    `"just a string"`,
		"wrong value type": `{"BOOL":"yes"}`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := UnmarshalAttributeJSON([]byte(doc)); err == nil {
				t.Errorf("Expected error for %s", doc)
			}
		})
	}
}
