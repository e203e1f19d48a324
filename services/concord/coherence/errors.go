// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package coherence tracks observed cross-agent interactions and
// computes consistency measures over them: schema drift, coherence
// metrics, incoherent dependency paths, update recommendations, and
// an annotated visualization graph. The tracker is a continuously
// appended log plus pure read-side computations; absence of evidence
// always resolves to maximally-optimistic defaults.
package coherence

import "errors"

// ErrNoGraph is returned by path analysis when no dependency graph
// has been supplied.
var ErrNoGraph = errors.New("coherence: no dependency graph configured")
