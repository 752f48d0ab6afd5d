package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: DefaultLimit},
		{in: -5, want: DefaultLimit},
		{in: 10, want: 10},
		{in: MaxLimit, want: MaxLimit},
		{in: MaxLimit + 50, want: MaxLimit},
	}
	for _, tt := range tests {
		if got := NormalizeLimit(tt.in); got != tt.want {
			t.Fatalf("NormalizeLimit(%d) = %d want %d", tt.in, got, tt.want)
		}
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("LimitWithBuffer(10) = %d want 11", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{
		CreatedAt: time.Date(2025, 6, 1, 12, 30, 0, 123456789, time.UTC),
		ID:        uuid.New(),
	}

	parsed, err := ParseCursor(EncodeCursor(original))
	if err != nil {
		t.Fatalf("ParseCursor returned error: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected parsed cursor")
	}
	if !parsed.CreatedAt.Equal(original.CreatedAt) {
		t.Fatalf("expected %s got %s", original.CreatedAt, parsed.CreatedAt)
	}
	if parsed.ID != original.ID {
		t.Fatalf("expected %s got %s", original.ID, parsed.ID)
	}
}

func TestParseCursorEmptyReturnsNil(t *testing.T) {
	cursor, err := ParseCursor("   ")
	if err != nil {
		t.Fatalf("ParseCursor returned error: %v", err)
	}
	if cursor != nil {
		t.Fatal("blank cursor must parse to nil")
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"not-base64!", "bm8tcGlwZQ==", "MjAyNXxub3QtYS11dWlk"} {
		if _, err := ParseCursor(raw); err == nil {
			t.Fatalf("expected error for cursor %q", raw)
		}
	}
}
