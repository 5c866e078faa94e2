// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

package validation

import (
	"strings"
	"testing"
)

type predictRequest struct {
	UserID   string  `validate:"required,uuid_shaped"`
	MovieIDs []int64 `validate:"required,min=1,max=500"`
}

func manyIDs(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return ids
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		req       predictRequest
		wantErr   bool
		wantField string
	}{
		{
			name:    "valid request",
			req:     predictRequest{UserID: "4f9c6e2a-1b3d-4c5e-8f7a-9b0c1d2e3f4a", MovieIDs: []int64{1, 2, 3}},
			wantErr: false,
		},
		{
			name:      "missing user id",
			req:       predictRequest{MovieIDs: []int64{1}},
			wantErr:   true,
			wantField: "UserID",
		},
		{
			name:      "user id not a uuid",
			req:       predictRequest{UserID: "user-42", MovieIDs: []int64{1}},
			wantErr:   true,
			wantField: "UserID",
		},
		{
			name:      "empty movie list",
			req:       predictRequest{UserID: "4f9c6e2a-1b3d-4c5e-8f7a-9b0c1d2e3f4a", MovieIDs: []int64{}},
			wantErr:   true,
			wantField: "MovieIDs",
		},
		{
			name:      "oversized movie list",
			req:       predictRequest{UserID: "4f9c6e2a-1b3d-4c5e-8f7a-9b0c1d2e3f4a", MovieIDs: manyIDs(501)},
			wantErr:   true,
			wantField: "MovieIDs",
		},
		{
			name:    "exactly 500 movies accepted",
			req:     predictRequest{UserID: "4f9c6e2a-1b3d-4c5e-8f7a-9b0c1d2e3f4a", MovieIDs: manyIDs(500)},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.req)
			if (verr != nil) != tt.wantErr {
				t.Fatalf("ValidateStruct() error = %v, wantErr %v", verr, tt.wantErr)
			}
			if verr == nil {
				return
			}

			apiErr := verr.ToAPIError()
			if apiErr.Code != "VALIDATION_ERROR" {
				t.Errorf("ToAPIError().Code = %q, want VALIDATION_ERROR", apiErr.Code)
			}
			if tt.wantField != "" && !strings.Contains(verr.Error(), tt.wantField) {
				t.Errorf("error %q does not mention field %s", verr.Error(), tt.wantField)
			}
		})
	}
}

func TestToAPIErrorMultipleFields(t *testing.T) {
	req := predictRequest{UserID: "nope", MovieIDs: nil}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation failure")
	}
	if len(verr.Errors()) < 2 {
		t.Fatalf("expected at least 2 field errors, got %d", len(verr.Errors()))
	}

	apiErr := verr.ToAPIError()
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("multi-error APIError missing fields detail")
	}
}
