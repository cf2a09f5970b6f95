package dynoitem

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Wire JSON support: attribute values serialize to the single-key object
// shape the service itself speaks, e.g. {"S":"text"}, {"N":"42"},
// {"L":[{"S":"a"}]}. Binary members use standard base64. This is the format
// used for fixtures and pagination cursors.

// MarshalItemJSON encodes an item into its wire JSON representation, a JSON
// object of attribute name to attribute value.
func MarshalItemJSON(item Item) ([]byte, error) {
	obj, err := itemJSON(item)
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

// MarshalAttributeJSON encodes a single attribute value into wire JSON.
func MarshalAttributeJSON(av types.AttributeValue) ([]byte, error) {
	obj, err := attrJSON(av)
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

// UnmarshalItemJSON decodes a wire JSON object into an item.
func UnmarshalItemJSON(data []byte) (Item, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse item document: %w", err)
	}
	item := make(Item, len(raw))
	for name, msg := range raw {
		av, err := attrFromJSON(msg)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		item[name] = av
	}
	return item, nil
}

// UnmarshalAttributeJSON decodes a single wire JSON attribute value.
func UnmarshalAttributeJSON(data []byte) (types.AttributeValue, error) {
	return attrFromJSON(data)
}

func itemJSON(item Item) (map[string]any, error) {
	obj := make(map[string]any, len(item))
	for name, av := range item {
		v, err := attrJSON(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		obj[name] = v
	}
	return obj, nil
}

func attrJSON(av types.AttributeValue) (map[string]any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return map[string]any{"S": v.Value}, nil
	case *types.AttributeValueMemberN:
		return map[string]any{"N": v.Value}, nil
	case *types.AttributeValueMemberB:
		return map[string]any{"B": v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return map[string]any{"BOOL": v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return map[string]any{"NULL": v.Value}, nil
	case *types.AttributeValueMemberSS:
		return map[string]any{"SS": v.Value}, nil
	case *types.AttributeValueMemberNS:
		return map[string]any{"NS": v.Value}, nil
	case *types.AttributeValueMemberBS:
		return map[string]any{"BS": v.Value}, nil
	case *types.AttributeValueMemberL:
		elems := make([]any, len(v.Value))
		for i, elem := range v.Value {
			obj, err := attrJSON(elem)
			if err != nil {
				return nil, err
			}
			elems[i] = obj
		}
		return map[string]any{"L": elems}, nil
	case *types.AttributeValueMemberM:
		obj, err := itemJSON(v.Value)
		if err != nil {
			return nil, err
		}
		return map[string]any{"M": obj}, nil
	}
	return nil, fmt.Errorf("unknown attribute value type %T", av)
}

func attrFromJSON(data []byte) (types.AttributeValue, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse attribute value: %w", err)
	}
	if len(raw) != 1 {
		return nil, fmt.Errorf("attribute value must hold exactly one member, got %d", len(raw))
	}

	for member, msg := range raw {
		switch member {
		case "S":
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberS{Value: s}, nil
		case "N":
			var n string
			if err := json.Unmarshal(msg, &n); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberN{Value: n}, nil
		case "B":
			var b []byte
			if err := json.Unmarshal(msg, &b); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberB{Value: b}, nil
		case "BOOL":
			var b bool
			if err := json.Unmarshal(msg, &b); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberBOOL{Value: b}, nil
		case "NULL":
			var b bool
			if err := json.Unmarshal(msg, &b); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberNULL{Value: b}, nil
		case "SS":
			var members []string
			if err := json.Unmarshal(msg, &members); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberSS{Value: members}, nil
		case "NS":
			var members []string
			if err := json.Unmarshal(msg, &members); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberNS{Value: members}, nil
		case "BS":
			var members [][]byte
			if err := json.Unmarshal(msg, &members); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberBS{Value: members}, nil
		case "L":
			var elems []json.RawMessage
			if err := json.Unmarshal(msg, &elems); err != nil {
				return nil, err
			}
			list := make([]types.AttributeValue, len(elems))
			for i, elem := range elems {
				av, err := attrFromJSON(elem)
				if err != nil {
					return nil, err
				}
				list[i] = av
			}
			return &types.AttributeValueMemberL{Value: list}, nil
		case "M":
			var nested map[string]json.RawMessage
			if err := json.Unmarshal(msg, &nested); err != nil {
				return nil, err
			}
			values := make(Item, len(nested))
			for name, elem := range nested {
				av, err := attrFromJSON(elem)
				if err != nil {
					return nil, err
				}
				values[name] = av
			}
			return &types.AttributeValueMemberM{Value: values}, nil
		default:
			return nil, fmt.Errorf("unknown attribute value member %q", member)
		}
	}
	return nil, fmt.Errorf("empty attribute value")
}
