package domain

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyFeed is returned when the feed holds no non-blank line.
	ErrEmptyFeed = errors.New("feed is empty")

	// ErrNoHeader is returned when the first non-blank line names no recognized column.
	ErrNoHeader = errors.New("feed has no recognizable header row")
)

// FieldDelimiter separates cells in the feed.
const FieldDelimiter = ';'

// maxLineBytes bounds a single feed line.
const maxLineBytes = 1 << 20

// FeedOptions controls locale-dependent parsing. It is fixed per deployment.
type FeedOptions struct {
	DecimalComma bool
}

// ParseFeed normalizes a whole feed. Only a missing header fails the batch;
// blank lines are skipped, unnamed rows are dropped, and malformed cells are
// recorded as issues while the rest of their row is kept.
//
// Each physical line is one row. Quotes carry no meaning: a '"' in a cell is
// kept as part of its value and never joins lines or delimiters.
func ParseFeed(text string, opts FeedOptions) (Batch, error) {
	sc := bufio.NewScanner(strings.NewReader(strings.TrimPrefix(text, "\ufeff")))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	batch := Batch{ParsedAt: clock.Now()}
	var header *Header

	line := 0
	for sc.Scan() {
		line++
		fields := strings.Split(strings.TrimSuffix(sc.Text(), "\r"), string(FieldDelimiter))

		if header == nil {
			if isBlank(fields) {
				batch.BlankLines++
				continue
			}
			h, err := NewHeader(fields, opts.DecimalComma)
			if err != nil {
				return Batch{}, fmt.Errorf("line %d: %w", line, err)
			}
			header = &h
			batch.Header = h.Names()
			continue
		}

		row, ok := header.Normalize(line, fields)
		if !ok {
			batch.BlankLines++
			continue
		}
		batch.Issues = append(batch.Issues, row.Issues...)

		if row.Record.Name == "" {
			batch.SkippedRows++
			batch.Issues = append(batch.Issues, Issue{Line: line, Reason: "row has no name"})
			continue
		}
		batch.Records = append(batch.Records, row.Record)
	}
	if err := sc.Err(); err != nil {
		return Batch{}, fmt.Errorf("read feed line %d: %w", line+1, err)
	}

	if header == nil {
		return Batch{}, ErrEmptyFeed
	}
	return batch, nil
}
