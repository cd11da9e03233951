package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsValidation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "client required", err: ErrClientRequired, want: true},
		{name: "joined validation errors", err: errors.Join(ErrItemsRequired, ErrItemQtyInvalid), want: true},
		{name: "wrapped", err: fmt.Errorf("create order: %w", ErrProductNameRequired), want: true},
		{name: "locked is not validation", err: ErrOrderLocked, want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidation(tt.err); got != tt.want {
				t.Errorf("IsValidation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUpstream(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unavailable", err: ErrUpstreamUnavailable, want: true},
		{name: "wrapped unsupported", err: fmt.Errorf("list orders: %w", ErrUpstreamUnsupported), want: true},
		{name: "rejected", err: ErrUpstreamRejected, want: true},
		{name: "validation", err: ErrClientRequired, want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUpstream(tt.err); got != tt.want {
				t.Errorf("IsUpstream() = %v, want %v", got, tt.want)
			}
		})
	}
}
