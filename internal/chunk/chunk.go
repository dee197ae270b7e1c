// Package chunk splits long responses into transport-sized pieces without
// breaking fenced code blocks.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TelegramMaxLength is Telegram's per-message character limit.
const TelegramMaxLength = 4096

var codeBlockRe = regexp.MustCompile("(?s)```.*?```")

// Split divides content into chunks of at most maxLen characters.
// It never splits inside a fenced code block when the block fits in one
// chunk, and prefers paragraph, then newline, then space boundaries.
func Split(content string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = TelegramMaxLength
	}
	if len(content) <= maxLen {
		return []string{content}
	}

	blocks := codeBlockRe.FindAllStringIndex(content, -1)

	var chunks []string
	pos := 0
	for pos < len(content) {
		end := pos + maxLen
		if end >= len(content) {
			chunks = append(chunks, content[pos:])
			break
		}

		if start, stop, ok := blockAround(blocks, end); ok {
			switch {
			case start > pos:
				// Cut before the code block starts.
				end = start
			case stop-pos <= maxLen:
				// The whole block fits in this chunk.
				end = stop
			default:
				// Oversized block: split at a newline inside it.
				if nl := strings.LastIndex(content[pos:end], "\n"); nl > maxLen/2 {
					end = pos + nl + 1
				}
			}
		} else {
			end = breakAt(content, pos, end, maxLen)
		}

		end = runeAligned(content, pos, end)
		chunks = append(chunks, content[pos:end])
		pos = end
	}
	return chunks
}

// runeAligned backs a byte cut off to the nearest rune boundary so a chunk
// never ends mid-rune. If backing off would make the chunk empty, the cut
// advances past the rune instead.
func runeAligned(content string, pos, end int) int {
	for end > pos && end < len(content) && !utf8.RuneStart(content[end]) {
		end--
	}
	if end == pos {
		_, n := utf8.DecodeRuneInString(content[pos:])
		end = pos + n
	}
	return end
}

// blockAround returns the code block that a cut at offset would bisect.
func blockAround(blocks [][]int, offset int) (start, stop int, ok bool) {
	for _, b := range blocks {
		if b[0] < offset && offset <= b[1] {
			return b[0], b[1], true
		}
	}
	return 0, 0, false
}

// breakAt finds the best break position in content[pos:end], preferring
// paragraph breaks, then newlines, then spaces. Breaks in the second half
// only, so chunks stay reasonably full.
func breakAt(content string, pos, end, maxLen int) int {
	window := content[pos:end]
	if i := strings.LastIndex(window, "\n\n"); i > maxLen/2 {
		return pos + i + 2
	}
	if i := strings.LastIndex(window, "\n"); i > maxLen/2 {
		return pos + i + 1
	}
	if i := strings.LastIndex(window, " "); i > maxLen/2 {
		return pos + i + 1
	}
	return end
}
