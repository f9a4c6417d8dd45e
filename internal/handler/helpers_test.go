package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{3 * time.Second, "3s"},
		{59 * time.Second, "59s"},
		{2*time.Minute + 3*time.Second, "2m 3s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
		{25 * time.Hour, "25h 0m 0s"},
		{1500 * time.Millisecond, "2s"},
		{0, "0s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatRemaining(tt.d), "duration %v", tt.d)
	}
}
