// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "testing"

func TestParseNullInt64(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantVal   int64
	}{
		{name: "empty string", input: "", wantValid: false},
		{name: "zero", input: "0", wantValid: false},
		{name: "positive", input: "42", wantValid: true, wantVal: 42},
		{name: "negative", input: "-7", wantValid: true, wantVal: -7},
		{name: "not a number", input: "abc", wantValid: false},
		{name: "float", input: "3.14", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNullInt64(tt.input)
			if got.Valid != tt.wantValid {
				t.Errorf("ParseNullInt64(%q).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if got.Valid && got.Int64 != tt.wantVal {
				t.Errorf("ParseNullInt64(%q).Int64 = %d, want %d", tt.input, got.Int64, tt.wantVal)
			}
		})
	}
}

func TestNullStringFromValue(t *testing.T) {
	if got := NullStringFromValue(""); got.Valid {
		t.Errorf("NullStringFromValue(\"\") should be invalid, got %+v", got)
	}
	if got := NullStringFromValue("hello"); !got.Valid || got.String != "hello" {
		t.Errorf("NullStringFromValue(\"hello\") = %+v, want valid \"hello\"", got)
	}
}
