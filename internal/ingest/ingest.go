// Package ingest turns raw blobs into documents and retrievable chunks.
package ingest

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/tjfontaine/uda/internal/core/domain"
)

// DefaultChunkSize is the maximum chunk length in characters.
const DefaultChunkSize = 400

// ErrLengthMismatch is returned by BatchIngest when blobs and uris differ in length.
var ErrLengthMismatch = errors.New("ingest: blobs and uris differ in length")

// Document identifies an ingested source.
type Document struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	SourceURI string `json:"source_uri"`
}

// Section is a contiguous piece of document text.
type Section struct {
	ID       string            `json:"id"`
	Heading  string            `json:"heading,omitempty"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Normalized is a document with its sections.
type Normalized struct {
	Document Document  `json:"document"`
	Sections []Section `json:"sections"`
}

// Chunk is a retrievable slice of a section.
type Chunk struct {
	DocID     string `json:"doc_id"`
	Heading   string `json:"heading,omitempty"`
	Text      string `json:"text"`
	SourceURI string `json:"source_uri"`
	Hash      uint64 `json:"hash"`
}

// Evidence converts the chunk to a corpus document.
func (c Chunk) Evidence(index int, tags []string) domain.EvidenceItem {
	return domain.EvidenceItem{
		DocID:        fmt.Sprintf("%s#%d", c.DocID, index),
		Heading:      c.Heading,
		Text:         c.Text,
		SourceURI:    c.SourceURI,
		SecurityTags: tags,
	}
}

// NormalizeDocument decodes blob as plain text, dropping invalid UTF-8, and
// returns it as a single untitled section keyed by sourceURI.
func NormalizeDocument(blob []byte, sourceURI string) Normalized {
	text := strings.ToValidUTF8(string(blob), "")
	return Normalized{
		Document: Document{
			ID:        sourceURI,
			Type:      "text/plain",
			SourceURI: sourceURI,
		},
		Sections: []Section{{
			ID:       sourceURI + "#0",
			Text:     text,
			Metadata: map[string]string{},
		}},
	}
}

// BatchIngest normalizes blobs[i] under uris[i], preserving order.
func BatchIngest(blobs [][]byte, uris []string) ([]Normalized, error) {
	if len(blobs) != len(uris) {
		return nil, fmt.Errorf("%w: %d blobs, %d uris", ErrLengthMismatch, len(blobs), len(uris))
	}
	out := make([]Normalized, len(blobs))
	for i := range blobs {
		out[i] = NormalizeDocument(blobs[i], uris[i])
	}
	return out, nil
}

// ChunkSections splits each section into consecutive pieces of at most
// maxLen characters. Empty sections produce no chunks. maxLen <= 0 means
// DefaultChunkSize.
func ChunkSections(doc Normalized, maxLen int) []Chunk {
	if maxLen <= 0 {
		maxLen = DefaultChunkSize
	}
	var chunks []Chunk
	for _, sec := range doc.Sections {
		runes := []rune(sec.Text)
		for i := 0; i < len(runes); i += maxLen {
			part := string(runes[i:min(i+maxLen, len(runes))])
			chunks = append(chunks, Chunk{
				DocID:     doc.Document.ID,
				Heading:   sec.Heading,
				Text:      part,
				SourceURI: doc.Document.SourceURI,
				Hash:      hashText(part),
			})
		}
	}
	return chunks
}

func hashText(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// Evidence chunks every document and converts the chunks to corpus entries.
// Chunk indexes restart at zero for each document.
func Evidence(docs []Normalized, maxLen int, tags []string) []domain.EvidenceItem {
	var out []domain.EvidenceItem
	for _, doc := range docs {
		for i, c := range ChunkSections(doc, maxLen) {
			out = append(out, c.Evidence(i, tags))
		}
	}
	return out
}
