// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package migration

import (
	"fmt"
	"strings"
)

// Template generates a skeleton migration source file for the given
// agent and version pair. The output is a starting point for a human
// author: the forward, backward, and validate bodies are stubbed with
// identity behavior and must be filled in before registration.
func Template(agent, from, to string) string {
	ident := identifier(agent)
	var b strings.Builder
	fmt.Fprintf(&b, "// Migration for agent %q: %s -> %s.\n", agent, from, to)
	b.WriteString("//\n")
	b.WriteString("// Fill in the forward and backward transforms before registering.\n")
	b.WriteString("// Backward must undo forward so that rollback restores the\n")
	b.WriteString("// original payload.\n\n")
	fmt.Fprintf(&b, "var %sMigration = migration.MustNew(\n", ident)
	fmt.Fprintf(&b, "\t%q, %q, %q,\n", agent, from, to)
	b.WriteString("\tfunc(p migration.Payload) (migration.Payload, error) {\n")
	b.WriteString("\t\t// TODO: forward transform\n")
	b.WriteString("\t\treturn p, nil\n")
	b.WriteString("\t},\n")
	b.WriteString("\tfunc(p migration.Payload) (migration.Payload, error) {\n")
	b.WriteString("\t\t// TODO: backward transform\n")
	b.WriteString("\t\treturn p, nil\n")
	b.WriteString("\t},\n")
	b.WriteString("\tfunc(p migration.Payload) (bool, error) {\n")
	b.WriteString("\t\treturn true, nil\n")
	b.WriteString("\t},\n")
	fmt.Fprintf(&b, "\t\"migrate %s from %s to %s\",\n", agent, from, to)
	b.WriteString(")\n")
	return b.String()
}

// identifier lowercases an agent name and strips characters that are
// not legal in a Go identifier.
func identifier(agent string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(agent) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-' || r == '.' || r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "agent"
	}
	s := b.String()
	if s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}
