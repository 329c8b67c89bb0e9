// Package schema describes tool inputs and outputs as JSON Schema and applies
// the declared defaults of an output schema to a model response.
//
// The same JSONSchema value is sent to the agent model as the parameter
// description of a tool, validated against incoming arguments, rendered into
// tool prompts as the expected reply shape, and used to fill in fields the
// model left out.
package schema

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Type names used in JSONSchema.Type.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// JSONSchema is a typed subset of JSON Schema, enough to describe tool
// parameters and tool results.
type JSONSchema struct {
	// Type is one of the Type* constants.
	Type string `json:"type"`
	// Description explains what a field is for. The agent model reads it.
	Description string `json:"description,omitempty"`
	// Properties describes the fields of an object.
	Properties map[string]*JSONSchema `json:"properties,omitempty"`
	// Required lists the object fields that must be present.
	Required []string `json:"required,omitempty"`
	// Items describes the elements of an array.
	Items *JSONSchema `json:"items,omitempty"`
	// Enum restricts a string to a closed set of values.
	Enum []string `json:"enum,omitempty"`
	// Default is the neutral value used when the field is absent.
	Default any `json:"default,omitempty"`
}

// Object returns an object schema with the given properties.
func Object(props map[string]*JSONSchema, required ...string) *JSONSchema {
	return &JSONSchema{Type: TypeObject, Properties: props, Required: required}
}

// String returns a string schema.
func String(description string) *JSONSchema {
	return &JSONSchema{Type: TypeString, Description: description}
}

// Enum returns a string schema restricted to values.
func Enum(description string, values ...string) *JSONSchema {
	return &JSONSchema{Type: TypeString, Description: description, Enum: values}
}

// Number returns a number schema.
func Number(description string) *JSONSchema {
	return &JSONSchema{Type: TypeNumber, Description: description}
}

// Boolean returns a boolean schema.
func Boolean(description string) *JSONSchema {
	return &JSONSchema{Type: TypeBoolean, Description: description}
}

// Array returns an array schema whose elements follow items.
func Array(items *JSONSchema, description string) *JSONSchema {
	return &JSONSchema{Type: TypeArray, Description: description, Items: items}
}

// Strings is shorthand for an array of strings.
func Strings(description string) *JSONSchema {
	return Array(&JSONSchema{Type: TypeString}, description)
}

// WithDefault sets the default value and returns s.
func (s *JSONSchema) WithDefault(v any) *JSONSchema {
	s.Default = v
	return s
}

// PropertyNames returns the object's property names in sorted order.
func (s *JSONSchema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Zero returns the neutral value for s: its declared default when there is
// one, otherwise an empty array, an object with every property set to its own
// zero value, an empty string, 0 or false. Every call returns a fresh value.
func (s *JSONSchema) Zero() any {
	if s == nil {
		return nil
	}
	if s.Default != nil {
		return clone(s.Default)
	}
	switch s.Type {
	case TypeArray:
		return []any{}
	case TypeObject:
		obj := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			obj[name] = prop.Zero()
		}
		return obj
	case TypeString:
		return ""
	case TypeNumber, TypeInteger:
		return float64(0)
	case TypeBoolean:
		return false
	}
	return nil
}

// Fill replaces v with s.Zero() when v is nil. When v is an object and s
// declares properties, each missing or null property is filled the same way,
// recursively. Values that are present are never changed: arrays, strings,
// numbers and unknown fields come back as they went in.
func (s *JSONSchema) Fill(v any) any {
	if s == nil {
		return v
	}
	if v == nil {
		return s.Zero()
	}
	obj, ok := v.(map[string]any)
	if !ok || s.Type != TypeObject {
		return v
	}
	for name, prop := range s.Properties {
		obj[name] = prop.Fill(obj[name])
	}
	return obj
}

// Skeleton renders the shape of s as indented JSON with sorted keys. Tool
// prompts end with it so the model knows exactly which fields to return.
// String leaves show their description or enum values.
func (s *JSONSchema) Skeleton() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.example()); err != nil {
		return "{}"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func (s *JSONSchema) example() any {
	if s == nil {
		return nil
	}
	switch s.Type {
	case TypeObject:
		obj := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			obj[name] = prop.example()
		}
		return obj
	case TypeArray:
		if s.Items == nil {
			return []any{}
		}
		return []any{s.Items.example()}
	case TypeString:
		if len(s.Enum) > 0 {
			return strings.Join(s.Enum, "|")
		}
		if s.Description != "" {
			return s.Description
		}
		return "string"
	case TypeNumber, TypeInteger:
		if s.Default != nil {
			return s.Default
		}
		return 0
	case TypeBoolean:
		return false
	}
	return nil
}

// clone deep-copies a JSON-compatible value. Numbers come back as float64 so
// defaults look exactly like values decoded from a model response.
func clone(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
