// Package textmap translates offsets, positions, and ranges between an
// embedded (generated) document and the host (source) document it was
// derived from, given the list of spans that tie the two together.
package textmap

import (
	"errors"
	"fmt"
	"sort"
)

// OffsetRange is a half-open byte range [Start, End).
type OffsetRange struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the range.
func (r OffsetRange) Len() int { return r.End - r.Start }

// Contains reports whether off falls inside the range. A zero-length range
// is an insertion point and contains only its exact offset.
func (r OffsetRange) Contains(off int) bool {
	if r.Start == r.End {
		return off == r.Start
	}
	return off >= r.Start && off < r.End
}

// Span declares that the content of Generated is derived verbatim from the
// content of Source in the host document.
type Span struct {
	Source    OffsetRange
	Generated OffsetRange
}

// RangeFit describes how completely a mapped range covered the query.
type RangeFit int

const (
	// Exact means the queried range was fully contained in mapped spans.
	Exact RangeFit = iota
	// Clipped means the queried range crossed a gap between spans; the
	// result covers only the parts with a mapping.
	Clipped
)

// ErrSpanOrder is returned by NewMapper when spans are unsorted or overlap
// in either coordinate space.
var ErrSpanOrder = errors.New("mapped spans must be sorted and non-overlapping in both coordinate spaces")

// Mapper translates offsets between the source and generated coordinate
// spaces of one embedded document.
//
// Offsets in gaps between spans (content with no 1:1 correspondence, such
// as synthesized boilerplate) have no mapping; lookups there report false
// rather than failing.
type Mapper struct {
	spans []Span
}

// NewMapper validates spans and builds a Mapper over a private copy of them.
func NewMapper(spans []Span) (*Mapper, error) {
	for i, s := range spans {
		if s.Source.End < s.Source.Start || s.Generated.End < s.Generated.Start {
			return nil, fmt.Errorf("%w: span %d has negative length", ErrSpanOrder, i)
		}
		if i == 0 {
			continue
		}
		prev := spans[i-1]
		if s.Source.Start < prev.Source.End || s.Generated.Start < prev.Generated.End {
			return nil, fmt.Errorf("%w: span %d overlaps span %d", ErrSpanOrder, i, i-1)
		}
	}
	cp := make([]Span, len(spans))
	copy(cp, spans)
	return &Mapper{spans: cp}, nil
}

// Spans returns a copy of the mapper's spans.
func (m *Mapper) Spans() []Span {
	cp := make([]Span, len(m.spans))
	copy(cp, m.spans)
	return cp
}

func sourceSide(s Span) OffsetRange    { return s.Source }
func generatedSide(s Span) OffsetRange { return s.Generated }

// ToGeneratedOffset maps a source offset into the generated document.
func (m *Mapper) ToGeneratedOffset(off int) (int, bool) {
	return m.mapOffset(off, sourceSide, generatedSide)
}

// ToSourceOffset maps a generated offset back into the source document.
func (m *Mapper) ToSourceOffset(off int) (int, bool) {
	return m.mapOffset(off, generatedSide, sourceSide)
}

// mapOffset finds the span whose `from` side contains off and carries the
// offset delta over to the `to` side. Ranges are left-closed right-open, so
// an offset sitting exactly on a boundary resolves to the following span.
func (m *Mapper) mapOffset(off int, from, to func(Span) OffsetRange) (int, bool) {
	i := sort.Search(len(m.spans), func(i int) bool { return from(m.spans[i]).End > off })
	if i < len(m.spans) && from(m.spans[i]).Contains(off) {
		s := m.spans[i]
		return to(s).Start + (off - from(s).Start), true
	}

	// Zero-length spans have End == off rather than End > off, so the
	// search above walks past them. An insertion point matches only its
	// exact offset, and loses to a non-empty following span.
	j := sort.Search(len(m.spans), func(i int) bool { return from(m.spans[i]).End >= off })
	for ; j < len(m.spans) && from(m.spans[j]).Start <= off; j++ {
		r := from(m.spans[j])
		if r.Start == off && r.End == off {
			return to(m.spans[j]).Start, true
		}
	}
	return 0, false
}

// ToGeneratedRange maps a source range into the generated document.
// The RangeFit reports whether the result was clipped to span coverage.
func (m *Mapper) ToGeneratedRange(r OffsetRange) (OffsetRange, RangeFit, bool) {
	return m.mapRange(r, sourceSide, generatedSide)
}

// ToSourceRange maps a generated range back into the source document.
func (m *Mapper) ToSourceRange(r OffsetRange) (OffsetRange, RangeFit, bool) {
	return m.mapRange(r, generatedSide, sourceSide)
}

// mapRange unions the per-span sub-mappings of r. The result is Exact only
// when every byte of r lies inside some span; otherwise it is Clipped.
func (m *Mapper) mapRange(r OffsetRange, from, to func(Span) OffsetRange) (OffsetRange, RangeFit, bool) {
	if r.Start >= r.End {
		// A caret maps like a single offset.
		off, ok := m.mapOffset(r.Start, from, to)
		if !ok {
			return OffsetRange{}, Clipped, false
		}
		return OffsetRange{Start: off, End: off}, Exact, true
	}

	var out OffsetRange
	found := false
	covered := 0
	for _, s := range m.spans {
		fr := from(s)
		lo := max(r.Start, fr.Start)
		hi := min(r.End, fr.End)
		if lo >= hi {
			continue
		}
		base := to(s).Start
		mapped := OffsetRange{Start: base + (lo - fr.Start), End: base + (hi - fr.Start)}
		if !found {
			out = mapped
			found = true
		} else {
			out.Start = min(out.Start, mapped.Start)
			out.End = max(out.End, mapped.End)
		}
		covered += hi - lo
	}
	if !found {
		return OffsetRange{}, Clipped, false
	}
	fit := Exact
	if covered != r.Len() {
		fit = Clipped
	}
	return out, fit, true
}
