// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package efb

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGeocodingErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := &GeocodingError{
		Type:    ErrorTypeNetworkError,
		Message: "geocoding request failed",
		Err:     cause,
	}

	if !errors.Is(err, cause) {
		t.Error("GeocodingError does not unwrap to its cause")
	}

	if got := err.Error(); got != "geocoding request failed: connection refused" {
		t.Errorf("Error() = %q", got)
	}

	bare := &GeocodingError{Type: ErrorTypeNotFound, Message: "address not found"}
	if got := bare.Error(); got != "address not found" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsAddressNotFound(t *testing.T) {
	err := &GeocodingError{Type: ErrorTypeNotFound, Message: "no results"}
	if !IsAddressNotFound(err) {
		t.Error("IsAddressNotFound() = false for a not-found error")
	}

	wrapped := fmt.Errorf("geocoding: %w", err)
	if !IsAddressNotFound(wrapped) {
		t.Error("IsAddressNotFound() = false for a wrapped not-found error")
	}

	if IsAddressNotFound(errors.New("boom")) {
		t.Error("IsAddressNotFound() = true for an unrelated error")
	}
}

func TestIsRateLimitError(t *testing.T) {
	if !IsRateLimitError(&GeocodingError{Type: ErrorTypeRateLimit}) {
		t.Error("IsRateLimitError() = false for a rate-limit error")
	}

	// string matching catches provider errors that were not classified
	if !IsRateLimitError(errors.New("upstream said: too many requests")) {
		t.Error("IsRateLimitError() = false for an unclassified throttle message")
	}

	if IsRateLimitError(errors.New("boom")) {
		t.Error("IsRateLimitError() = true for an unrelated error")
	}
}

func TestIsTimeoutError(t *testing.T) {
	if !IsTimeoutError(&GeocodingError{Type: ErrorTypeTimeout}) {
		t.Error("IsTimeoutError() = false for a timeout error")
	}

	if !IsTimeoutError(errors.New("context deadline exceeded")) {
		t.Error("IsTimeoutError() = false for a deadline message")
	}
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusForbidden, ErrorTypeQuotaExceeded},
		{http.StatusBadRequest, ErrorTypeInvalidRequest},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusBadGateway, ErrorTypeNetworkError},
		{http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		if got := ClassifyHTTPError(tt.status); got.Type != tt.want {
			t.Errorf("ClassifyHTTPError(%d).Type = %v, want %v", tt.status, got.Type, tt.want)
		}
	}
}
