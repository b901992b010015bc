package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Stream names used in errors and metrics.
const (
	StreamAuthors = "authors"
	StreamBooks   = "books"
	StreamReviews = "reviews"
)

var (
	ErrNotObject    = errors.New("line is not a JSON object")
	ErrTrailingData = errors.New("unexpected data after JSON object")
	ErrInvalidUTF8  = errors.New("line is not valid UTF-8")
)

// LineError reports an input line that could not be decoded.
type LineError struct {
	Stream string
	Line   int
	Err    error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.Stream, e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Reader yields one Record per non-blank input line.
type Reader struct {
	stream string
	br     *bufio.Reader
	line   int
}

// NewReader reads JSON lines for the named stream from r.
func NewReader(stream string, r io.Reader) *Reader {
	return &Reader{stream: stream, br: bufio.NewReaderSize(r, 1<<20)}
}

// Stream returns the stream name.
func (r *Reader) Stream() string { return r.stream }

// Line returns the number of the last line read.
func (r *Reader) Line() int { return r.line }

// Next returns the next record, or io.EOF once the input is exhausted.
// Whitespace-only lines are skipped.
func (r *Reader) Next() (Record, error) {
	for {
		raw, err := r.br.ReadBytes('\n')
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, &LineError{Stream: r.stream, Line: r.line + 1, Err: err}
		}
		r.line++
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, &LineError{Stream: r.stream, Line: r.line, Err: err}
		}

		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 {
			continue
		}
		if !utf8.Valid(trimmed) {
			return nil, &LineError{Stream: r.stream, Line: r.line, Err: ErrInvalidUTF8}
		}

		rec, derr := decode(trimmed)
		if derr != nil {
			return nil, &LineError{Stream: r.stream, Line: r.line, Err: derr}
		}
		return rec, nil
	}
}

func decode(line []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrNotObject
	}
	var rest any
	if err := dec.Decode(&rest); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return Record(obj), nil
}
