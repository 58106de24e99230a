package utils

import (
	"testing"
	"time"
)

func TestParseRemoteTime(t *testing.T) {
	cases := []struct {
		input string
		want  time.Time
	}{
		{"2026-03-15T10:30:00Z", time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2026-03-15T10:30:00", time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2026-03-15 10:30:00", time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"3/15/2026 10:30:00 AM", time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2026-03-15", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"  2026-03-15  ", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := ParseRemoteTime(c.input)
		if err != nil {
			t.Fatalf("ParseRemoteTime(%q): %v", c.input, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("ParseRemoteTime(%q) = %v, want %v", c.input, got, c.want)
		}
	}

	for _, bad := range []string{"", "yesterday", "15-03-2026"} {
		if _, err := ParseRemoteTime(bad); err == nil {
			t.Fatalf("ParseRemoteTime(%q): expected error", bad)
		}
	}
}

func TestParseDecimal(t *testing.T) {
	got, err := ParseDecimal("  19.9500 ")
	if err != nil {
		t.Fatalf("ParseDecimal: %v", err)
	}
	if got.String() != "19.95" {
		t.Fatalf("ParseDecimal = %s, want 19.95", got)
	}

	zero, err := ParseDecimal("")
	if err != nil {
		t.Fatalf("ParseDecimal empty: %v", err)
	}
	if !zero.IsZero() {
		t.Fatalf("ParseDecimal empty = %s, want 0", zero)
	}

	if _, err := ParseDecimal("12,50"); err == nil {
		t.Fatal("ParseDecimal(12,50): expected error")
	}
}

func TestNilIfEmpty(t *testing.T) {
	if NilIfEmpty("") != nil {
		t.Fatal("NilIfEmpty(\"\") != nil")
	}
	if p := NilIfEmpty("abc"); p == nil || *p != "abc" {
		t.Fatalf("NilIfEmpty(abc) = %v", p)
	}
	if NilIfEmpty(0) != nil {
		t.Fatal("NilIfEmpty(0) != nil")
	}
}

func TestDereferencePtr(t *testing.T) {
	v := 7
	if got := DereferencePtr(&v); got != 7 {
		t.Fatalf("DereferencePtr(&7) = %d", got)
	}
	if got := DereferencePtr[int](nil); got != 0 {
		t.Fatalf("DereferencePtr(nil) = %d", got)
	}
	if got := DereferencePtr(nil, 42); got != 42 {
		t.Fatalf("DereferencePtr(nil, 42) = %d", got)
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("UniqueSlice = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("UniqueSlice = %v, want %v", got, want)
		}
	}
}

func TestNormalizePhoneNumber(t *testing.T) {
	if got := NormalizePhoneNumber("(212) 555-0123", "US"); got != "+12125550123" {
		t.Fatalf("NormalizePhoneNumber = %q", got)
	}
	if got := NormalizePhoneNumber("not a phone", "US"); got != "not a phone" {
		t.Fatalf("unparseable input should pass through, got %q", got)
	}
	if got := NormalizePhoneNumber("   ", "US"); got != "" {
		t.Fatalf("blank input = %q, want empty", got)
	}
}
