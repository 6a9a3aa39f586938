package textmap

import (
	"errors"
	"testing"
)

func mustMapper(t *testing.T, spans []Span) *Mapper {
	t.Helper()
	m, err := NewMapper(spans)
	if err != nil {
		t.Fatalf("NewMapper failed: %v", err)
	}
	return m
}

func TestNewMapper_RejectsBadSpans(t *testing.T) {
	tests := []struct {
		name  string
		spans []Span
	}{
		{
			name:  "negative length",
			spans: []Span{{Source: OffsetRange{10, 5}, Generated: OffsetRange{0, 5}}},
		},
		{
			name: "source overlap",
			spans: []Span{
				{Source: OffsetRange{0, 10}, Generated: OffsetRange{0, 10}},
				{Source: OffsetRange{5, 15}, Generated: OffsetRange{10, 20}},
			},
		},
		{
			name: "generated out of order",
			spans: []Span{
				{Source: OffsetRange{0, 10}, Generated: OffsetRange{10, 20}},
				{Source: OffsetRange{20, 30}, Generated: OffsetRange{0, 10}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMapper(tt.spans); !errors.Is(err, ErrSpanOrder) {
				t.Errorf("NewMapper error = %v, want ErrSpanOrder", err)
			}
		})
	}
}

func TestToGeneratedOffset(t *testing.T) {
	m := mustMapper(t, []Span{
		{Source: OffsetRange{5, 15}, Generated: OffsetRange{0, 10}},
	})

	tests := []struct {
		name   string
		source int
		want   int
		ok     bool
	}{
		{"inside span", 8, 3, true},
		{"span start", 5, 0, true},
		{"last contained offset", 14, 9, true},
		{"half-open end excluded", 15, 0, false},
		{"gap before span", 2, 0, false},
		{"gap after span", 20, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.ToGeneratedOffset(tt.source)
			if ok != tt.ok {
				t.Fatalf("ToGeneratedOffset(%d) ok = %v, want %v", tt.source, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ToGeneratedOffset(%d) = %d, want %d", tt.source, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	m := mustMapper(t, []Span{
		{Source: OffsetRange{5, 15}, Generated: OffsetRange{0, 10}},
		{Source: OffsetRange{20, 30}, Generated: OffsetRange{10, 20}},
	})

	for src := 5; src < 15; src++ {
		gen, ok := m.ToGeneratedOffset(src)
		if !ok {
			t.Fatalf("ToGeneratedOffset(%d) not ok", src)
		}
		back, ok := m.ToSourceOffset(gen)
		if !ok {
			t.Fatalf("ToSourceOffset(%d) not ok", gen)
		}
		if back != src {
			t.Errorf("round trip %d -> %d -> %d", src, gen, back)
		}
	}
}

func TestMonotonicMapping(t *testing.T) {
	m := mustMapper(t, []Span{
		{Source: OffsetRange{0, 10}, Generated: OffsetRange{5, 15}},
		{Source: OffsetRange{12, 20}, Generated: OffsetRange{20, 28}},
	})

	prev := -1
	for src := 0; src < 20; src++ {
		gen, ok := m.ToGeneratedOffset(src)
		if !ok {
			continue
		}
		if gen < prev {
			t.Errorf("mapping not monotonic: source %d -> %d after %d", src, gen, prev)
		}
		prev = gen
	}
}

func TestBoundaryPrefersFollowingSpan(t *testing.T) {
	// Spans adjacent in source space: offset 10 is the end of the first
	// and the start of the second; it must resolve to the second.
	m := mustMapper(t, []Span{
		{Source: OffsetRange{0, 10}, Generated: OffsetRange{0, 10}},
		{Source: OffsetRange{10, 20}, Generated: OffsetRange{30, 40}},
	})

	got, ok := m.ToGeneratedOffset(10)
	if !ok {
		t.Fatal("ToGeneratedOffset(10) not ok")
	}
	if got != 30 {
		t.Errorf("ToGeneratedOffset(10) = %d, want 30 (start of following span)", got)
	}
}

func TestZeroLengthSpan(t *testing.T) {
	m := mustMapper(t, []Span{
		{Source: OffsetRange{5, 5}, Generated: OffsetRange{0, 4}},
		{Source: OffsetRange{10, 20}, Generated: OffsetRange{4, 14}},
	})

	// Only the exact insertion point maps.
	if got, ok := m.ToGeneratedOffset(5); !ok || got != 0 {
		t.Errorf("ToGeneratedOffset(5) = %d, %v; want 0, true", got, ok)
	}
	if _, ok := m.ToGeneratedOffset(6); ok {
		t.Error("ToGeneratedOffset(6) should have no mapping")
	}
}

func TestZeroLengthLosesToFollowingSpan(t *testing.T) {
	m := mustMapper(t, []Span{
		{Source: OffsetRange{10, 10}, Generated: OffsetRange{0, 4}},
		{Source: OffsetRange{10, 20}, Generated: OffsetRange{4, 14}},
	})

	got, ok := m.ToGeneratedOffset(10)
	if !ok {
		t.Fatal("ToGeneratedOffset(10) not ok")
	}
	if got != 4 {
		t.Errorf("ToGeneratedOffset(10) = %d, want 4 (non-empty span wins)", got)
	}
}

func TestToGeneratedRange(t *testing.T) {
	m := mustMapper(t, []Span{
		{Source: OffsetRange{0, 10}, Generated: OffsetRange{0, 10}},
		{Source: OffsetRange{20, 30}, Generated: OffsetRange{10, 20}},
	})

	tests := []struct {
		name string
		in   OffsetRange
		want OffsetRange
		fit  RangeFit
		ok   bool
	}{
		{"inside one span", OffsetRange{2, 8}, OffsetRange{2, 8}, Exact, true},
		{"caret", OffsetRange{4, 4}, OffsetRange{4, 4}, Exact, true},
		{"crosses gap", OffsetRange{5, 25}, OffsetRange{5, 15}, Clipped, true},
		{"starts in gap", OffsetRange{12, 25}, OffsetRange{10, 15}, Clipped, true},
		{"entirely in gap", OffsetRange{12, 18}, OffsetRange{}, Clipped, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fit, ok := m.ToGeneratedRange(tt.in)
			if ok != tt.ok {
				t.Fatalf("ToGeneratedRange(%v) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if !ok {
				return
			}
			if got != tt.want || fit != tt.fit {
				t.Errorf("ToGeneratedRange(%v) = %v, %v; want %v, %v", tt.in, got, fit, tt.want, tt.fit)
			}
		})
	}
}

func TestToSourceRange(t *testing.T) {
	m := mustMapper(t, []Span{
		{Source: OffsetRange{5, 15}, Generated: OffsetRange{0, 10}},
	})

	got, fit, ok := m.ToSourceRange(OffsetRange{2, 6})
	if !ok || fit != Exact {
		t.Fatalf("ToSourceRange ok=%v fit=%v, want true, Exact", ok, fit)
	}
	if want := (OffsetRange{7, 11}); got != want {
		t.Errorf("ToSourceRange = %v, want %v", got, want)
	}
}
