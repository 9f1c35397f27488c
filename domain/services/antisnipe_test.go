package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAntiSnipeService_ShouldExtend(t *testing.T) {
	roundEndsAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	window := 30 * time.Second

	s := NewAntiSnipeService()

	cases := []struct {
		name           string
		bidAt          time.Time
		extensionsUsed int
		maxExtensions  int
		want           bool
	}{
		{"bid right at the wire", roundEndsAt.Add(-5 * time.Second), 0, 5, true},
		{"bid exactly at window edge", roundEndsAt.Add(-window), 0, 5, true},
		{"bid well before window", roundEndsAt.Add(-time.Minute), 0, 5, false},
		{"bid after round already ended", roundEndsAt.Add(time.Second), 0, 5, false},
		{"budget exhausted", roundEndsAt.Add(-5 * time.Second), 5, 5, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.ShouldExtend(tc.bidAt, roundEndsAt, window, tc.extensionsUsed, tc.maxExtensions)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAntiSnipeService_NewEndTime(t *testing.T) {
	s := NewAntiSnipeService()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	got := s.NewEndTime(base, 15*time.Second)
	assert.Equal(t, base.Add(15*time.Second), got)
}
