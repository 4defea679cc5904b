package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"
)

func TestIsContextCanceled(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "direct context.Canceled",
			err:      context.Canceled,
			expected: true,
		},
		{
			name:     "wrapped context.Canceled",
			err:      fmt.Errorf("wrapped: %w", context.Canceled),
			expected: true,
		},
		{
			name:     "string contains context canceled",
			err:      errors.New("Head \"http://example.com\": context canceled"),
			expected: true,
		},
		{
			name:     "deadline exceeded",
			err:      context.DeadlineExceeded,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsContextCanceled(tt.err); got != tt.expected {
				t.Errorf("IsContextCanceled(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestIsClientDisconnect(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, true},
		{"broken pipe", fmt.Errorf("write: %w", syscall.EPIPE), true},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsClientDisconnect(tt.err); got != tt.expected {
				t.Errorf("IsClientDisconnect(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}
