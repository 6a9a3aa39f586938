package mdhost

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/albertocavalcante/virtdoc/pkg/registry"
	"github.com/albertocavalcante/virtdoc/pkg/textmap"
)

// Fence delimiters. The info string is the language ID; anything after the
// first word (titles, attributes) is ignored.
var (
	fenceOpen  = regexp.MustCompile("^```+\\s*([A-Za-z0-9_+.#-]*)")
	fenceClose = regexp.MustCompile("^```+\\s*$")
)

// buildTree wraps a markdown document in a root embedded node whose
// children are its fenced code blocks. The root maps the whole document
// onto itself; each fence maps its body verbatim.
func buildTree(text string, version int32) *registry.EmbeddedNode {
	return &registry.EmbeddedNode{
		ID:         "root",
		LanguageID: LanguageID,
		Version:    version,
		Text:       text,
		Spans: []textmap.Span{{
			Source:    textmap.OffsetRange{Start: 0, End: len(text)},
			Generated: textmap.OffsetRange{Start: 0, End: len(text)},
		}},
		Children: scanFences(text, version),
	}
}

// scanFences extracts fenced code blocks line by line, tracking byte
// offsets so each block's span covers exactly its body in the document.
// Node IDs are fence-N in document order, unique within the file.
func scanFences(text string, version int32) []*registry.EmbeddedNode {
	var nodes []*registry.EmbeddedNode

	off := 0
	inFence := false
	lang := ""
	bodyStart := 0
	count := 0

	for _, line := range strings.Split(text, "\n") {
		switch {
		case !inFence:
			if m := fenceOpen.FindStringSubmatch(line); m != nil {
				inFence = true
				lang = m[1]
				bodyStart = off + len(line) + 1
			}
		case fenceClose.MatchString(line):
			bodyEnd := off
			if bodyEnd < bodyStart {
				bodyEnd = bodyStart
			}
			count++
			body := text[bodyStart:bodyEnd]
			nodes = append(nodes, &registry.EmbeddedNode{
				ID:         fmt.Sprintf("fence-%d", count),
				LanguageID: lang,
				Version:    version,
				Text:       body,
				Spans: []textmap.Span{{
					Source:    textmap.OffsetRange{Start: bodyStart, End: bodyEnd},
					Generated: textmap.OffsetRange{Start: 0, End: len(body)},
				}},
			})
			inFence = false
		}
		off += len(line) + 1
	}

	// An unterminated fence contributes nothing.
	return nodes
}
