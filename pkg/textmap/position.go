package textmap

import (
	"sort"

	"go.lsp.dev/protocol"
)

// lineIndex records the byte offset of every line start so that byte
// offsets and line/character positions can be converted both ways.
// Characters are byte columns within a line.
type lineIndex struct {
	starts []int
	size   int
}

func newLineIndex(text string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{starts: starts, size: len(text)}
}

// offset converts a position to a byte offset. Positions past the end of a
// line or past the last line have no offset.
func (ix *lineIndex) offset(p protocol.Position) (int, bool) {
	line := int(p.Line)
	if line < 0 || line >= len(ix.starts) {
		return 0, false
	}
	off := ix.starts[line] + int(p.Character)
	lineEnd := ix.size
	if line+1 < len(ix.starts) {
		lineEnd = ix.starts[line+1]
	}
	if off > lineEnd {
		return 0, false
	}
	return off, true
}

// position converts a byte offset to a position.
func (ix *lineIndex) position(off int) (protocol.Position, bool) {
	if off < 0 || off > ix.size {
		return protocol.Position{}, false
	}
	line := sort.Search(len(ix.starts), func(i int) bool { return ix.starts[i] > off }) - 1
	return protocol.Position{
		Line:      uint32(line),
		Character: uint32(off - ix.starts[line]),
	}, true
}

// PositionMapper layers line/character translation on top of a Mapper using
// the text of both documents.
type PositionMapper struct {
	mapper    *Mapper
	source    *lineIndex
	generated *lineIndex
}

// NewPositionMapper binds m to the source and generated document texts.
func NewPositionMapper(m *Mapper, sourceText, generatedText string) *PositionMapper {
	return &PositionMapper{
		mapper:    m,
		source:    newLineIndex(sourceText),
		generated: newLineIndex(generatedText),
	}
}

// Mapper returns the underlying offset mapper.
func (pm *PositionMapper) Mapper() *Mapper { return pm.mapper }

// ToGeneratedPosition maps a source position into the generated document.
func (pm *PositionMapper) ToGeneratedPosition(p protocol.Position) (protocol.Position, bool) {
	off, ok := pm.source.offset(p)
	if !ok {
		return protocol.Position{}, false
	}
	gen, ok := pm.mapper.ToGeneratedOffset(off)
	if !ok {
		return protocol.Position{}, false
	}
	return pm.generated.position(gen)
}

// ToSourcePosition maps a generated position back into the source document.
func (pm *PositionMapper) ToSourcePosition(p protocol.Position) (protocol.Position, bool) {
	off, ok := pm.generated.offset(p)
	if !ok {
		return protocol.Position{}, false
	}
	src, ok := pm.mapper.ToSourceOffset(off)
	if !ok {
		return protocol.Position{}, false
	}
	return pm.source.position(src)
}

// ToGeneratedRange maps a source range into the generated document.
func (pm *PositionMapper) ToGeneratedRange(r protocol.Range) (protocol.Range, RangeFit, bool) {
	return pm.mapPositionRange(r, pm.source, pm.generated, pm.mapper.ToGeneratedRange)
}

// ToSourceRange maps a generated range back into the source document.
func (pm *PositionMapper) ToSourceRange(r protocol.Range) (protocol.Range, RangeFit, bool) {
	return pm.mapPositionRange(r, pm.generated, pm.source, pm.mapper.ToSourceRange)
}

func (pm *PositionMapper) mapPositionRange(
	r protocol.Range,
	from, to *lineIndex,
	mapRange func(OffsetRange) (OffsetRange, RangeFit, bool),
) (protocol.Range, RangeFit, bool) {
	start, ok := from.offset(r.Start)
	if !ok {
		return protocol.Range{}, Clipped, false
	}
	end, ok := from.offset(r.End)
	if !ok {
		return protocol.Range{}, Clipped, false
	}
	mapped, fit, ok := mapRange(OffsetRange{Start: start, End: end})
	if !ok {
		return protocol.Range{}, Clipped, false
	}
	sp, ok := to.position(mapped.Start)
	if !ok {
		return protocol.Range{}, Clipped, false
	}
	ep, ok := to.position(mapped.End)
	if !ok {
		return protocol.Range{}, Clipped, false
	}
	return protocol.Range{Start: sp, End: ep}, fit, true
}
