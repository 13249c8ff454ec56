package qris

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransaction_Expired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{"fresh", 5 * time.Minute, false},
		{"at boundary", 30 * time.Minute, false},
		{"expired", 31 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &Transaction{RequestedAt: now.Add(-tt.age)}
			assert.Equal(t, tt.want, tr.Expired(now, 30*time.Minute))
		})
	}
}
