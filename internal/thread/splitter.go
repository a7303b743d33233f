// Package thread splits free text into the ordered, length-bounded chunks that become the posts
// of a thread.
//
// Lengths are counted in Unicode code points after NFC normalisation, so a precomposed "ü"
// and "u" + combining diaeresis both count as one character. Normalisation only affects
// counting: chunks are always byte-for-byte slices of the input.
package thread

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxLength is the post length limit of Bluesky.
const DefaultMaxLength = 300

// Chunk is one post of a thread.
type Chunk struct {
	Index int
	Text  string
}

// Split trims text and cuts it into chunks of at most maxLen characters, trimming the remainder
// after every cut. Whitespace-only input yields an empty slice. A maxLen of zero or less means
// no limit.
func Split(text string, maxLen int) []string {
	remaining := strings.TrimSpace(text)
	chunks := []string{}

	if remaining == "" {
		return chunks
	}
	if maxLen <= 0 {
		return append(chunks, remaining)
	}

	for remaining != "" {
		cut := prefixEnd(remaining, maxLen)
		chunks = append(chunks, remaining[:cut])
		remaining = strings.TrimSpace(remaining[cut:])
	}

	return chunks
}

// SplitChunks is Split with each chunk's position attached.
func SplitChunks(text string, maxLen int) []Chunk {
	parts := Split(text, maxLen)
	chunks := make([]Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = Chunk{Index: i, Text: part}
	}
	return chunks
}

// Length returns the length of s as the splitter counts it.
func Length(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}

// prefixEnd returns the byte offset just past the longest prefix of s whose length is at most n.
// Cuts fall on normalisation boundaries so a base letter is never separated from its combining
// marks. A single segment longer than n is cut at rune boundaries.
func prefixEnd(s string, n int) int {
	end, count := 0, 0
	for end < len(s) {
		size := norm.NFC.NextBoundaryInString(s[end:], true)
		if size <= 0 {
			size = len(s) - end
		}
		segment := s[end : end+size]
		segmentLen := utf8.RuneCountInString(norm.NFC.String(segment))
		if count+segmentLen > n {
			if end == 0 {
				return runePrefixEnd(segment, n)
			}
			break
		}
		count += segmentLen
		end += size
	}
	return end
}

// runePrefixEnd returns the byte offset just past the first n runes of s.
func runePrefixEnd(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}
