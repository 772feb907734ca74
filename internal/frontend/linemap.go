package frontend

import "sort"

// LineIndex maps byte offsets into a source file to 0-based line/column
// pairs, counted in UTF-16 code units to match the TypeScript compiler's own
// line map. Every stage that needs a file/line/column triple goes through
// this type so position computation never drifts between stages.
type LineIndex struct {
	lineStarts []int // byte offset of the first byte of each line
	utf16Units []int // count of UTF-16 code units per line, for column conversion
	lines      [][]byte
}

// NewLineIndex builds the index for one file's content.
func NewLineIndex(content []byte) *LineIndex {
	idx := &LineIndex{lineStarts: []int{0}}
	start := 0
	for i, b := range content {
		if b == '\n' {
			idx.lines = append(idx.lines, content[start:i+1])
			idx.lineStarts = append(idx.lineStarts, i+1)
			start = i + 1
		}
	}
	idx.lines = append(idx.lines, content[start:])
	idx.utf16Units = make([]int, len(idx.lines))
	for i, line := range idx.lines {
		idx.utf16Units[i] = utf16Len(line)
	}
	return idx
}

// Position converts a byte offset to a (line, col) pair, 0-based, with col
// in UTF-16 code units.
func (idx *LineIndex) Position(byteOffset int) (line, col int) {
	// binary search for the last lineStart <= byteOffset
	line = sort.Search(len(idx.lineStarts), func(i int) bool {
		return idx.lineStarts[i] > byteOffset
	}) - 1
	if line < 0 {
		line = 0
	}
	if line >= len(idx.lines) {
		line = len(idx.lines) - 1
	}
	lineBytes := idx.lines[line]
	rel := byteOffset - idx.lineStarts[line]
	if rel < 0 {
		rel = 0
	}
	if rel > len(lineBytes) {
		rel = len(lineBytes)
	}
	col = utf16Len(lineBytes[:rel])
	return line, col
}

// LineCount returns the number of lines in the indexed file.
func (idx *LineIndex) LineCount() int {
	return len(idx.lines)
}

// utf16Len counts UTF-16 code units in a UTF-8 byte slice without a full
// decode-to-rune round trip: ASCII and BMP runes are one unit, and runes
// above the BMP (4-byte UTF-8 sequences) are a surrogate pair (two units).
func utf16Len(b []byte) int {
	n := 0
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			i++
		case c < 0xE0:
			i += 2
		case c < 0xF0:
			i += 3
		default:
			i += 4
			n++ // surrogate pair: one extra unit
		}
		n++
	}
	return n
}
