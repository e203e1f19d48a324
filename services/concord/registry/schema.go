// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import (
	"strings"
	"time"
)

// FieldType is the closed set of payload field types.
//
// Compatibility comparisons operate on this enum rather than raw
// strings, so cosmetic naming differences between agents ("str" vs
// "string") never register as type changes.
type FieldType int

const (
	// FieldTypeUnknown is any type name this system does not model.
	// Unknown types are excluded from type-change detection, so an
	// unrecognized name can never produce a false breaking change.
	FieldTypeUnknown FieldType = iota

	// FieldTypeString is a UTF-8 string.
	FieldTypeString

	// FieldTypeInt is an integer number.
	FieldTypeInt

	// FieldTypeFloat is a floating-point number.
	FieldTypeFloat

	// FieldTypeBool is a boolean.
	FieldTypeBool

	// FieldTypeList is an ordered collection.
	FieldTypeList

	// FieldTypeMap is a string-keyed mapping.
	FieldTypeMap
)

// fieldTypeNames maps FieldType values to their canonical names.
var fieldTypeNames = map[FieldType]string{
	FieldTypeUnknown: "unknown",
	FieldTypeString:  "string",
	FieldTypeInt:     "int",
	FieldTypeFloat:   "float",
	FieldTypeBool:    "bool",
	FieldTypeList:    "list",
	FieldTypeMap:     "map",
}

// String returns the canonical name of the field type.
func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseFieldType maps free-form type names onto the closed enum.
// Common aliases from several ecosystems are accepted; anything else
// resolves to FieldTypeUnknown.
func ParseFieldType(s string) FieldType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "str", "string", "text":
		return FieldTypeString
	case "int", "integer", "long":
		return FieldTypeInt
	case "float", "double", "number":
		return FieldTypeFloat
	case "bool", "boolean":
		return FieldTypeBool
	case "list", "array", "slice":
		return FieldTypeList
	case "map", "dict", "object":
		return FieldTypeMap
	default:
		return FieldTypeUnknown
	}
}

// MarshalText implements encoding.TextMarshaler so FieldType
// serializes as its canonical name.
func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, accepting the
// same aliases as ParseFieldType.
func (t *FieldType) UnmarshalText(text []byte) error {
	*t = ParseFieldType(string(text))
	return nil
}

// SchemaField describes one field of a payload.
type SchemaField struct {
	// Name is the field name within the payload.
	Name string `json:"name"`

	// Type is the field's type kind.
	Type FieldType `json:"type"`

	// Required indicates the field must be present.
	Required bool `json:"required"`

	// Default is the value used when an optional field is absent.
	Default any `json:"default,omitempty"`

	// Description is free-form documentation.
	Description string `json:"description,omitempty"`
}

// MethodSchema describes one callable method of an agent.
type MethodSchema struct {
	// Name is the method name.
	Name string `json:"name"`

	// Input maps field name to its schema for the request payload.
	Input map[string]SchemaField `json:"input,omitempty"`

	// Output maps field name to its schema for the response payload.
	Output map[string]SchemaField `json:"output,omitempty"`

	// Description is free-form documentation.
	Description string `json:"description,omitempty"`
}

// EventSchema describes the payload an agent emits on a topic, or
// the payload a subscriber expects to receive there.
type EventSchema struct {
	// Name is the topic name the event travels on.
	Name string `json:"name"`

	// Payload maps field name to its schema.
	Payload map[string]SchemaField `json:"payload,omitempty"`

	// Description is free-form documentation.
	Description string `json:"description,omitempty"`
}

// AgentSchema is the unversioned body of a contract: what the agent
// accepts and emits. Registering it under a version produces a
// Contract.
type AgentSchema struct {
	// Methods maps method name to its schema.
	Methods map[string]MethodSchema `json:"methods,omitempty"`

	// Publishes maps topic name to the event emitted there.
	Publishes map[string]EventSchema `json:"publishes,omitempty"`

	// Subscribes maps topic name to the payload shape the agent
	// expects on that topic. An entry with an empty payload declares
	// interest without constraining the shape.
	Subscribes map[string]EventSchema `json:"subscribes,omitempty"`

	// Description is free-form documentation.
	Description string `json:"description,omitempty"`
}

// Contract is a versioned agent schema. Unique per (agent, version);
// immutable once registered except by idempotent re-registration of
// the same pair.
type Contract struct {
	// AgentName identifies the agent this contract describes.
	AgentName string `json:"agent_name"`

	// Version is the contract version.
	Version Version `json:"version"`

	// Methods maps method name to its schema.
	Methods map[string]MethodSchema `json:"methods,omitempty"`

	// Publishes maps topic name to the emitted event schema.
	Publishes map[string]EventSchema `json:"publishes,omitempty"`

	// Subscribes maps topic name to the expected payload schema.
	Subscribes map[string]EventSchema `json:"subscribes,omitempty"`

	// Description is free-form documentation.
	Description string `json:"description,omitempty"`

	// RegisteredAt is when this contract version was registered.
	RegisteredAt time.Time `json:"registered_at"`
}

// Schema returns the unversioned schema body of the contract.
func (c *Contract) Schema() AgentSchema {
	return AgentSchema{
		Methods:     c.Methods,
		Publishes:   c.Publishes,
		Subscribes:  c.Subscribes,
		Description: c.Description,
	}
}

// ContractKey returns the storage key for an (agent, version) pair,
// formatted "{agent}_{version}".
func ContractKey(agent string, version Version) string {
	return agent + "_" + version.String()
}
