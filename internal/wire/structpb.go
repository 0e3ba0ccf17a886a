package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts an envelope into a google.protobuf.Struct through its
// JSON form. Numbers travel as doubles, which is exact for status codes.
func ToStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return s, nil
}

// FromStruct decodes s into v, the inverse of ToStruct.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return fmt.Errorf("decode envelope: nil struct")
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	return nil
}
