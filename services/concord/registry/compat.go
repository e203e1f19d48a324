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
	"fmt"
	"sort"
)

// Severity classifies a compatibility issue.
type Severity string

const (
	// SeverityBreaking means a consumer built against the previous
	// contract will malfunction.
	SeverityBreaking Severity = "breaking"

	// SeverityWarning means behavior may change but nothing is
	// structurally broken.
	SeverityWarning Severity = "warning"

	// SeverityInfo is advisory only.
	SeverityInfo Severity = "info"
)

// CompatLevel summarizes the overall relationship of two contracts.
type CompatLevel string

const (
	// CompatFull means the contracts are fully interoperable.
	CompatFull CompatLevel = "full"

	// CompatBackward means the producer carries non-breaking
	// differences the consumer tolerates.
	CompatBackward CompatLevel = "backward"

	// CompatBreaking means at least one breaking issue exists.
	CompatBreaking CompatLevel = "breaking"

	// CompatUnknown means one side lacks a contract to compare.
	CompatUnknown CompatLevel = "unknown"
)

// Issue kinds reported by compatibility validation.
const (
	IssueMissingContract = "missing_contract"
	IssueMissingField    = "missing_field"
	IssueOptionalField   = "required_field_now_optional"
	IssueTypeChanged     = "field_type_changed"
	IssueUndeclaredField = "undeclared_field"
	IssueMethodRemoved   = "method_removed"
	IssueOutputFieldLost = "output_field_removed"
	IssueRequiredInput   = "required_input_added"
)

// CompatIssue is a single finding from compatibility validation.
type CompatIssue struct {
	// Severity is the issue's severity.
	Severity Severity `json:"severity"`

	// Kind names the issue category (one of the Issue* constants).
	Kind string `json:"kind"`

	// Topic is the affected topic, when applicable.
	Topic string `json:"topic,omitempty"`

	// Field is the affected field, when applicable.
	Field string `json:"field,omitempty"`

	// Description is a human-readable explanation.
	Description string `json:"description"`
}

// CompatibilityResult is the outcome of validating a producer
// contract against a consumer contract.
type CompatibilityResult struct {
	// Compatible is false when any breaking issue exists.
	Compatible bool `json:"compatible"`

	// Level summarizes the relationship.
	Level CompatLevel `json:"level"`

	// Issues lists every finding, breaking and otherwise.
	Issues []CompatIssue `json:"issues"`
}

// checkTopicCompatibility compares the producer's emitted payload on
// one topic against the consumer's expected payload there.
//
// Description:
//
//	The consumer's expectation is authoritative: every field it
//	expects must exist on the producer side with a compatible shape.
//	Producer fields the consumer never declared are harmless — extra
//	fields never break a reader — unless closedSchemas is set, in
//	which case they are reported as warnings.
//
// Breaking conditions per field:
//
//   - expected field absent from the producer payload
//   - field required by the consumer but now optional at the producer
//   - type change between two known types
func checkTopicCompatibility(topic string, produced, expected EventSchema, closedSchemas bool) []CompatIssue {
	var issues []CompatIssue

	expectedNames := make([]string, 0, len(expected.Payload))
	for name := range expected.Payload {
		expectedNames = append(expectedNames, name)
	}
	sort.Strings(expectedNames)

	for _, name := range expectedNames {
		want := expected.Payload[name]
		got, ok := produced.Payload[name]
		if !ok {
			issues = append(issues, CompatIssue{
				Severity:    SeverityBreaking,
				Kind:        IssueMissingField,
				Topic:       topic,
				Field:       name,
				Description: fmt.Sprintf("topic %s: consumer expects field %q which the producer no longer emits", topic, name),
			})
			continue
		}
		if want.Required && !got.Required {
			issues = append(issues, CompatIssue{
				Severity:    SeverityBreaking,
				Kind:        IssueOptionalField,
				Topic:       topic,
				Field:       name,
				Description: fmt.Sprintf("topic %s: field %q is required by the consumer but optional at the producer", topic, name),
			})
		}
		if want.Type != got.Type && want.Type != FieldTypeUnknown && got.Type != FieldTypeUnknown {
			issues = append(issues, CompatIssue{
				Severity:    SeverityBreaking,
				Kind:        IssueTypeChanged,
				Topic:       topic,
				Field:       name,
				Description: fmt.Sprintf("topic %s: field %q changed type from %s to %s", topic, name, want.Type, got.Type),
			})
		}
	}

	if closedSchemas {
		producedNames := make([]string, 0, len(produced.Payload))
		for name := range produced.Payload {
			producedNames = append(producedNames, name)
		}
		sort.Strings(producedNames)

		for _, name := range producedNames {
			if _, declared := expected.Payload[name]; !declared && len(expected.Payload) > 0 {
				issues = append(issues, CompatIssue{
					Severity:    SeverityWarning,
					Kind:        IssueUndeclaredField,
					Topic:       topic,
					Field:       name,
					Description: fmt.Sprintf("topic %s: producer emits field %q the consumer never declared (closed-schema mode)", topic, name),
				})
			}
		}
	}

	return issues
}

// summarizeIssues derives the Compatible flag and Level from a list
// of issues. Any breaking issue forces Compatible=false.
func summarizeIssues(issues []CompatIssue) CompatibilityResult {
	result := CompatibilityResult{Compatible: true, Level: CompatFull, Issues: issues}
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityBreaking:
			result.Compatible = false
			result.Level = CompatBreaking
		case SeverityWarning:
			if result.Level == CompatFull {
				result.Level = CompatBackward
			}
		}
	}
	return result
}
