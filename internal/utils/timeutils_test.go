package utils

import (
	"testing"
	"time"
)

func TestParseRFC3339(t *testing.T) {
	got, err := ParseRFC3339(" 2024-03-01T10:15:30.250Z ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 3, 1, 10, 15, 30, 250_000_000, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if FormatRFC3339(got) != "2024-03-01T10:15:30.25Z" {
		t.Fatalf("unexpected format: %s", FormatRFC3339(got))
	}
}

func TestParseRFC3339Rejects(t *testing.T) {
	for _, value := range []string{"", "2024-03-01 10:15:30", "yesterday"} {
		if _, err := ParseRFC3339(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}
