package main

import (
	"strings"
	"testing"
)

func TestStatusLabel(t *testing.T) {
	if got := statusLabel("queued"); got != "Queued" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := statusLabel("drive_link"); got != "Drive Link" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0c5b9e54-1111-2222-3333-444455556666"); got != "0c5b9e54" {
		t.Fatalf("unexpected short id %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("expected short ids unchanged, got %q", got)
	}
}

func TestRelativeTimeHandlesEmptyValue(t *testing.T) {
	if got := relativeTime(""); got != "-" {
		t.Fatalf("expected dash for empty value, got %q", got)
	}
	if got := relativeTime("not-a-time"); got != "-" {
		t.Fatalf("expected dash for malformed value, got %q", got)
	}
	if got := relativeTime("2025-01-01T00:00:00Z"); got == "-" {
		t.Fatal("expected a relative phrase for a valid timestamp")
	}
}

func TestOrDash(t *testing.T) {
	if orDash("  ") != "-" || orDash("") != "-" {
		t.Fatal("expected dash for blank values")
	}
	if orDash("value") != "value" {
		t.Fatal("expected non-blank values unchanged")
	}
}

func TestRenderTableIncludesHeadersAndRows(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Status"},
		[][]string{{"abc", "Queued"}, {"def"}},
		[]columnAlignment{alignLeft, alignLeft},
	)
	for _, want := range []string{"ID", "Status", "abc", "Queued", "def"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table output:\n%s", want, out)
		}
	}
}
