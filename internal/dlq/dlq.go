// Package dlq is the append-only dead-letter queue for escalated requests.
//
// Items are stored one JSON object per line. The file is never rewritten:
// there is no delete, ack, or compaction. Readers re-scan from the start.
package dlq

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"github.com/tjfontaine/uda/internal/core/ports"
)

// DefaultFile is the queue file name inside the storage directory.
const DefaultFile = "dlq.jsonl"

// Record is one decoded queue line.
type Record = map[string]any

// ErrNotObject is returned when an item does not encode to a JSON object.
var ErrNotObject = errors.New("dlq: item must encode to a JSON object")

// Queue appends to and streams from a JSONL file.
type Queue struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// Open creates the parent directory and the queue file if needed.
func Open(path string) (*Queue, error) {
	if path == "" {
		return nil, fmt.Errorf("dlq: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("dlq: create dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("dlq: open: %w", err)
	}
	return &Queue{path: path, f: f}, nil
}

// Path returns the queue file path.
func (q *Queue) Path() string { return q.path }

// Enqueue appends item as a single newline-terminated JSON line. The line is
// written with one call so concurrent appenders never interleave.
func (q *Queue) Enqueue(ctx context.Context, item any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("dlq: enqueue: %w", err)
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("dlq: marshal: %w", err)
	}
	if len(data) == 0 || data[0] != '{' {
		return ErrNotObject
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.f == nil {
		return fmt.Errorf("dlq: enqueue: %w", os.ErrClosed)
	}
	if _, err := q.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("dlq: enqueue: %w", err)
	}
	return nil
}

// Stream yields every committed item from the start of the file. Blank lines
// are skipped. A trailing line without a newline is still being written and
// is not yielded. Each call to the returned sequence re-reads the file.
func (q *Queue) Stream(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		f, err := os.Open(q.path)
		if err != nil {
			yield(nil, fmt.Errorf("dlq: open: %w", err))
			return
		}
		defer f.Close()

		rd := bufio.NewReader(f)
		lineNo := 0
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			line, err := rd.ReadBytes('\n')
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("dlq: read: %w", err))
				return
			}
			lineNo++

			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			var rec Record
			if err := json.Unmarshal(line, &rec); err != nil {
				if !yield(nil, fmt.Errorf("dlq: parse line %d: %w", lineNo, err)) {
					return
				}
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Close releases the append handle. Streams stay usable.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.f == nil {
		return nil
	}
	err := q.f.Close()
	q.f = nil
	return err
}

// Collect reads up to limit records from q, skipping malformed lines.
// limit <= 0 reads everything.
func Collect(ctx context.Context, q ports.DeadLetterQueue, limit int) ([]Record, error) {
	out := []Record{}
	for rec, err := range q.Stream(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

var _ ports.DeadLetterQueue = (*Queue)(nil)
