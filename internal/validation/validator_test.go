// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package validation

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	ID     string  `json:"id" validate:"required,source_id"`
	Lat    float64 `json:"lat" validate:"latitude"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon" validate:"gtfield=MinLon"`
	Mode   string  `json:"mode" validate:"omitempty,oneof=fast slow"`
}

func TestValidateStruct_Valid(t *testing.T) {
	s := sample{ID: "traffic-camera", Lat: 1.3, MinLon: 103.6, MaxLon: 104.0, Mode: "fast"}
	if err := ValidateStruct(&s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateStruct_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		wantTag string
	}{
		{"missing id", sample{MaxLon: 1}, "required"},
		{"bad id", sample{ID: "Traffic_Camera", MaxLon: 1}, "source_id"},
		{"bad latitude", sample{ID: "psi", Lat: 91, MaxLon: 1}, "latitude"},
		{"inverted bbox", sample{ID: "psi", MinLon: 104, MaxLon: 103}, "gtfield"},
		{"bad mode", sample{ID: "psi", MaxLon: 1, Mode: "medium"}, "oneof"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.in)
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if len(verr.Fields) != 1 {
				t.Fatalf("expected 1 field error, got %d: %v", len(verr.Fields), verr)
			}
			if verr.Fields[0].Tag != tt.wantTag {
				t.Errorf("tag = %q, want %q", verr.Fields[0].Tag, tt.wantTag)
			}
		})
	}
}

func TestValidateStruct_UsesWireNames(t *testing.T) {
	err := ValidateStruct(&sample{ID: "psi", MinLon: 2, MaxLon: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "max_lon") {
		t.Errorf("message should use json field name, got %q", err.Error())
	}
}
