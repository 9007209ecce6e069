// internal/rag/chunker.go
// Package rag implements the ingest and retrieval pipeline: chunking,
// batch embedding, vector/graph indexing, entity extraction, and hybrid
// retrieval composed from vector search and graph context.
package rag

import (
	"strings"

	"github.com/ChenJellay/helix/internal/appconfig"
	"github.com/ChenJellay/helix/internal/util"
)

// charsPerChunkToken converts a profile's token-based chunk limit into a
// character window.
const charsPerChunkToken = 4

// minOverlap is the floor for chunk overlap in characters.
const minOverlap = 16

// separators in priority order: paragraph break, line break, sentence
// terminator, space, raw character.
var separators = []string{"\n\n", "\n", ". ", " "}

// Chunk is one bounded, contiguous slice of a document's text.
type Chunk struct {
	Index int
	Text  string
}

// ChunkSizeFor derives the character window and overlap from a profile.
func ChunkSizeFor(profile appconfig.ModelProfile) (size, overlap int) {
	size = profile.ChunkTokenLimit * charsPerChunkToken
	overlap = util.Max(minOverlap, size/8)
	return size, overlap
}

// ChunkText splits text into overlapping segments of at most size characters,
// preferring the coarsest boundary that still respects the window. Text
// shorter than size yields exactly one chunk equal to the input.
func ChunkText(text string, size, overlap int) []Chunk {
	if size <= 0 || text == "" {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []Chunk{{Index: 0, Text: text}}
	}

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: string(runes[start:])})
			break
		}
		cut := start + boundary(runes[start:end])
		chunks = append(chunks, Chunk{Index: len(chunks), Text: string(runes[start:cut])})

		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

// boundary returns the cut offset within window, preferring the coarsest
// separator found past the window midpoint and falling back to a raw cut.
func boundary(window []rune) int {
	text := string(window)
	mid := len(window) / 2
	for _, sep := range separators {
		if idx := strings.LastIndex(text, sep); idx >= 0 {
			// Index is in bytes; count the runes up to it.
			runeIdx := len([]rune(text[:idx]))
			if runeIdx > mid {
				return runeIdx + len([]rune(sep))
			}
		}
	}
	return len(window)
}
