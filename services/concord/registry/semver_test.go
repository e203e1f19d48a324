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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{"1.0.0", Version{1, 0, 0}, false},
		{"0.0.0", Version{0, 0, 0}, false},
		{"10.20.30", Version{10, 20, 30}, false},
		{"1.0", Version{}, true},
		{"1.0.0.0", Version{}, true},
		{"v1.0.0", Version{}, true},
		{"1.0.0-rc1", Version{}, true},
		{"a.b.c", Version{}, true},
		{"", Version{}, true},
		{"1 .0.0", Version{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseVersion(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidVersion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "1.2.3", Version{1, 2, 3}.String())
	assert.Equal(t, "0.0.0", Version{}.String())
}

func TestVersionCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.1.0", "1.0.9", 1},
		{"1.0.1", "1.0.2", -1},
		{"0.9.0", "0.10.0", -1}, // numeric, not lexicographic
	}

	for _, tt := range tests {
		a := MustParseVersion(tt.a)
		b := MustParseVersion(tt.b)
		assert.Equal(t, tt.want, a.Compare(b), "%s vs %s", tt.a, tt.b)
		assert.Equal(t, -tt.want, b.Compare(a))
	}
}

func TestVersionBumps(t *testing.T) {
	v := Version{1, 2, 3}
	assert.Equal(t, Version{2, 0, 0}, v.BumpMajor())
	assert.Equal(t, Version{1, 3, 0}, v.BumpMinor())
	assert.Equal(t, Version{1, 2, 4}, v.BumpPatch())
}

func TestSortVersions(t *testing.T) {
	versions := []Version{
		MustParseVersion("2.0.0"),
		MustParseVersion("1.0.0"),
		MustParseVersion("1.10.0"),
		MustParseVersion("1.2.0"),
	}
	SortVersions(versions)

	got := make([]string, len(versions))
	for i, v := range versions {
		got[i] = v.String()
	}
	assert.Equal(t, []string{"1.0.0", "1.2.0", "1.10.0", "2.0.0"}, got)
}

func TestMustParseVersionPanics(t *testing.T) {
	assert.Panics(t, func() { MustParseVersion("bogus") })
}

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		in   string
		want FieldType
	}{
		{"str", FieldTypeString},
		{"string", FieldTypeString},
		{"STRING", FieldTypeString},
		{"int", FieldTypeInt},
		{"integer", FieldTypeInt},
		{"float", FieldTypeFloat},
		{"number", FieldTypeFloat},
		{"bool", FieldTypeBool},
		{"boolean", FieldTypeBool},
		{"list", FieldTypeList},
		{"array", FieldTypeList},
		{"map", FieldTypeMap},
		{"dict", FieldTypeMap},
		{"object", FieldTypeMap},
		{"quaternion", FieldTypeUnknown},
		{"", FieldTypeUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseFieldType(tt.in), "input %q", tt.in)
	}
}

func TestFieldTypeTextRoundTrip(t *testing.T) {
	for _, ft := range []FieldType{
		FieldTypeString, FieldTypeInt, FieldTypeFloat,
		FieldTypeBool, FieldTypeList, FieldTypeMap, FieldTypeUnknown,
	} {
		text, err := ft.MarshalText()
		require.NoError(t, err)

		var back FieldType
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, ft, back)
	}
}
