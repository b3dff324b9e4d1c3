package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeDocument(t *testing.T) {
	got := NormalizeDocument([]byte("hello \xff world"), "file://a.txt")
	want := Normalized{
		Document: Document{ID: "file://a.txt", Type: "text/plain", SourceURI: "file://a.txt"},
		Sections: []Section{{ID: "file://a.txt#0", Text: "hello  world", Metadata: map[string]string{}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NormalizeDocument mismatch (-want +got):\n%s", diff)
	}
}

func TestBatchIngest(t *testing.T) {
	docs, err := BatchIngest([][]byte{[]byte("one"), []byte("two")}, []string{"u1", "u2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 || docs[0].Document.ID != "u1" || docs[1].Sections[0].Text != "two" {
		t.Errorf("unexpected result: %+v", docs)
	}

	if _, err := BatchIngest([][]byte{[]byte("one")}, nil); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestChunkSections(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   []string
	}{
		{name: "empty", text: "", maxLen: 4, want: nil},
		{name: "shorter than max", text: "abc", maxLen: 4, want: []string{"abc"}},
		{name: "exact split", text: "abcdefgh", maxLen: 4, want: []string{"abcd", "efgh"}},
		{name: "remainder", text: "abcdefghi", maxLen: 4, want: []string{"abcd", "efgh", "i"}},
		{name: "runes not bytes", text: "ééééé", maxLen: 2, want: []string{"éé", "éé", "é"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NormalizeDocument([]byte(tt.text), "u")
			var got []string
			for _, c := range ChunkSections(doc, tt.maxLen) {
				if c.DocID != "u" || c.SourceURI != "u" {
					t.Errorf("chunk provenance = %q/%q, want u/u", c.DocID, c.SourceURI)
				}
				if c.Hash != hashText(c.Text) {
					t.Errorf("chunk hash mismatch for %q", c.Text)
				}
				got = append(got, c.Text)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("chunks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChunkSections_DefaultSize(t *testing.T) {
	doc := NormalizeDocument([]byte(strings.Repeat("x", 1000)), "u")
	chunks := ChunkSections(doc, 0)
	if len(chunks) != 3 {
		t.Fatalf("len = %d, want 3", len(chunks))
	}
	if len(chunks[0].Text) != DefaultChunkSize || len(chunks[2].Text) != 200 {
		t.Errorf("unexpected chunk sizes: %d, %d", len(chunks[0].Text), len(chunks[2].Text))
	}
}

func TestChunk_Evidence(t *testing.T) {
	c := Chunk{DocID: "u", Heading: "H", Text: "t", SourceURI: "s"}
	ev := c.Evidence(3, []string{"public"})
	if ev.DocID != "u#3" || ev.SourceURI != "s" || ev.Heading != "H" || ev.SecurityTags[0] != "public" {
		t.Errorf("unexpected evidence: %+v", ev)
	}
}

func TestEvidence(t *testing.T) {
	docs, err := BatchIngest(
		[][]byte{[]byte("abcdef"), []byte(""), []byte("xyz")},
		[]string{"file://a.txt", "file://empty.txt", "file://b.txt"},
	)
	if err != nil {
		t.Fatalf("BatchIngest() error = %v", err)
	}

	got := Evidence(docs, 4, []string{"internal"})
	var ids []string
	for _, ev := range got {
		ids = append(ids, ev.DocID)
		if len(ev.SecurityTags) != 1 || ev.SecurityTags[0] != "internal" {
			t.Errorf("%s tags = %v", ev.DocID, ev.SecurityTags)
		}
	}
	want := []string{"file://a.txt#0", "file://a.txt#1", "file://b.txt#0"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("evidence ids mismatch (-want +got):\n%s", diff)
	}
}
