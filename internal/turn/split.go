package turn

import "strings"

// defaultSplitThreshold is how much buffered text accumulates before the
// in-progress message is closed out at a safe boundary.
const defaultSplitThreshold = 4096

// safeSplitPoint returns the index at which buffered markdown can be closed
// and a new message opened without breaking a construct, or -1 when no safe
// boundary exists. Paragraph breaks are preferred, then line breaks; never
// inside a fenced code block.
func safeSplitPoint(text string) int {
	if split := lastBreakOutsideFence(text, "\n\n"); split >= 0 {
		return split
	}
	return lastBreakOutsideFence(text, "\n")
}

// lastBreakOutsideFence finds the last occurrence of sep that is not inside
// a ``` fence. Returns the index just past the separator, or -1.
func lastBreakOutsideFence(text, sep string) int {
	for from := len(text); from > 0; {
		idx := strings.LastIndex(text[:from], sep)
		if idx < 0 {
			return -1
		}
		if !insideFence(text, idx) {
			return idx + len(sep)
		}
		from = idx
	}
	return -1
}

// insideFence reports whether position pos falls within an unclosed ```
// fence. An odd number of fence markers before pos means the fence is open.
func insideFence(text string, pos int) bool {
	fences := 0
	for i := 0; i+2 < pos; i++ {
		if text[i] == '`' && text[i+1] == '`' && text[i+2] == '`' {
			// Only count fences at line starts, as markdown renderers do.
			if i == 0 || text[i-1] == '\n' {
				fences++
			}
			i += 2
		}
	}
	return fences%2 == 1
}
