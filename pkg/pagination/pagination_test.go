package pagination

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	t.Parallel()

	original := Cursor{
		CreatedAt: time.Date(2026, time.August, 20, 14, 5, 9, 123456789, time.UTC),
		ID:        uuid.New(),
	}

	encoded := EncodeCursor(original)
	if strings.ContainsAny(encoded, "+/=") {
		t.Fatalf("cursor token is not url-safe: %q", encoded)
	}

	parsed, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected cursor")
	}
	if !parsed.CreatedAt.Equal(original.CreatedAt) || parsed.ID != original.ID {
		t.Fatalf("round trip mismatch: %+v vs %+v", parsed, original)
	}
}

func TestParseCursorEmpty(t *testing.T) {
	t.Parallel()

	parsed, err := ParseCursor("  ")
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if parsed != nil {
		t.Fatalf("expected nil cursor, got %+v", parsed)
	}
}

func TestParseCursorInvalid(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"not-base64!", "bm8tcGlwZQ=="} {
		if _, err := ParseCursor(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func TestNormalizeLimit(t *testing.T) {
	t.Parallel()

	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("unexpected default: %d", got)
	}
	if got := NormalizeLimit(-4); got != DefaultLimit {
		t.Fatalf("unexpected default for negative: %d", got)
	}
	if got := NormalizeLimit(MaxLimit + 50); got != MaxLimit {
		t.Fatalf("unexpected cap: %d", got)
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("unexpected buffered limit: %d", got)
	}
}
