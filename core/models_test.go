package core

import (
	"testing"
	"time"
)

func TestDocumentIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "test content",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "This is a much longer piece of content that should still hash consistently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := DocumentIDFromContent(tt.content)
			id2 := DocumentIDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("DocumentIDFromContent() produced different IDs for same content: %s vs %s", id1, id2)
			}
			if len(id1) != 32 {
				t.Errorf("DocumentIDFromContent() length = %d, want 32", len(id1))
			}
		})
	}
}

func TestDocumentIDFromContent_Different(t *testing.T) {
	id1 := DocumentIDFromContent("content1")
	id2 := DocumentIDFromContent("content2")

	if id1 == id2 {
		t.Errorf("DocumentIDFromContent() produced same ID for different content")
	}
}

func TestNewRecordID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewRecordID()
		if _, ok := seen[id]; ok {
			t.Fatalf("NewRecordID() returned duplicate %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestCollection_Accepts(t *testing.T) {
	c := &Collection{Name: "metadata", Dimensions: 768}

	tests := []struct {
		name string
		dims int
		want bool
	}{
		{name: "narrower vector", dims: 128, want: true},
		{name: "exact width", dims: 768, want: true},
		{name: "wider vector", dims: 1536, want: false},
		{name: "zero width", dims: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Accepts(tt.dims); got != tt.want {
				t.Errorf("Accepts(%d) = %v, want %v", tt.dims, got, tt.want)
			}
		})
	}
}

func TestMonotonicClock_StrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 6789, time.UTC)
	clock := &MonotonicClock{now: func() time.Time { return fixed }}

	first := clock.Now()
	second := clock.Now()
	third := clock.Now()

	if !first.Equal(fixed.Truncate(time.Microsecond)) {
		t.Errorf("first = %v, want %v", first, fixed.Truncate(time.Microsecond))
	}
	if !second.After(first) || !third.After(second) {
		t.Errorf("timestamps not strictly increasing: %v, %v, %v", first, second, third)
	}
	if third.Sub(first) != 2*time.Microsecond {
		t.Errorf("expected 1µs bumps, got spread %v", third.Sub(first))
	}
}

func TestMonotonicClock_ClockGoesBackwards(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := &MonotonicClock{now: func() time.Time { return now }}

	first := clock.Now()
	now = now.Add(-time.Hour)
	second := clock.Now()

	if !second.After(first) {
		t.Errorf("second = %v not after first = %v", second, first)
	}
}

func TestMonotonicClock_UTC(t *testing.T) {
	clock := NewMonotonicClock()
	if loc := clock.Now().Location(); loc != time.UTC {
		t.Errorf("location = %v, want UTC", loc)
	}
}
