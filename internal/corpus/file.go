package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tjfontaine/uda/internal/core/domain"
)

// File is the on-disk corpus format.
//
//	documents:
//	  - doc_id: doc-1
//	    heading: UDA Overview
//	    text: Universal Data Assistant provides precise, cited answers using RAG.
//	    source_uri: internal://docs/uda/overview.md
//	    security_tags: [public]
type File struct {
	Documents []domain.EvidenceItem `yaml:"documents"`
}

// LoadFile reads a corpus file.
func LoadFile(path string) ([]domain.EvidenceItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: read %q: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("corpus: parse %q: %w", path, err)
	}
	for i, d := range f.Documents {
		if d.DocID == "" {
			return nil, fmt.Errorf("corpus: %q: document %d has no doc_id", path, i)
		}
	}
	return f.Documents, nil
}

// SaveFile writes docs to path, creating parent directories.
func SaveFile(path string, docs []domain.EvidenceItem) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("corpus: create dir: %w", err)
	}
	data, err := yaml.Marshal(File{Documents: docs})
	if err != nil {
		return fmt.Errorf("corpus: marshal: %w", err)
	}
	return writeAtomic(path, data)
}

// writeAtomic replaces path through a temp file in the same directory, so a
// reader never observes a truncated corpus.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("corpus: write %q: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("corpus: write %q: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("corpus: write %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("corpus: write %q: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("corpus: replace %q: %w", path, err)
	}
	return nil
}

// LoadInto replaces the store contents with the file's documents, keeping the
// built-in seed documents first.
func LoadInto(s *Store, path string) (int, error) {
	docs, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	s.Replace(append(Seed(), docs...))
	return len(docs), nil
}

// WithoutSources returns docs minus every entry whose SourceURI is in uris.
// Re-ingesting a source drops its old chunks first, so a shrunken file leaves
// no stale trailing chunks behind.
func WithoutSources(docs []domain.EvidenceItem, uris []string) []domain.EvidenceItem {
	drop := make(map[string]bool, len(uris))
	for _, u := range uris {
		drop[u] = true
	}
	out := make([]domain.EvidenceItem, 0, len(docs))
	for _, d := range docs {
		if d.SourceURI != "" && drop[d.SourceURI] {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Merge returns existing with add applied: entries sharing a DocID are
// replaced in place, new ones are appended in order.
func Merge(existing, add []domain.EvidenceItem) []domain.EvidenceItem {
	out := cloneDocs(existing)
	index := make(map[string]int, len(out))
	for i, d := range out {
		index[d.DocID] = i
	}
	for _, d := range add {
		if i, ok := index[d.DocID]; ok {
			out[i] = d
			continue
		}
		index[d.DocID] = len(out)
		out = append(out, d)
	}
	return out
}
