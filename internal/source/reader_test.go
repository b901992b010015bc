package source

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r *Reader) []Record {
	t.Helper()
	var out []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestReader_Next(t *testing.T) {
	input := `{"author_id": "1", "name": "Alan Moore"}

{"author_id": "2", "name": "Neil Gaiman"}
{"author_id": "3", "name": "No Trailing Newline"}`

	r := NewReader(StreamAuthors, strings.NewReader(input))
	records := readAll(t, r)

	require.Len(t, records, 3)
	name, ok := records[1].String("name")
	assert.True(t, ok)
	assert.Equal(t, "Neil Gaiman", name)
	assert.Equal(t, 4, r.Line())
}

func TestReader_MalformedLine(t *testing.T) {
	input := "{\"author_id\": \"1\", \"name\": \"A\"}\n{not json}\n"

	r := NewReader(StreamBooks, strings.NewReader(input))
	_, err := r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	require.Error(t, err)

	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, StreamBooks, lineErr.Stream)
	assert.Equal(t, 2, lineErr.Line)
	assert.Contains(t, err.Error(), "books line 2")
}

func TestReader_RejectsNonObjects(t *testing.T) {
	for _, line := range []string{"null", "[1, 2]", `"text"`, `{"a": 1} {"b": 2}`} {
		t.Run(line, func(t *testing.T) {
			_, err := NewReader(StreamReviews, strings.NewReader(line)).Next()
			var lineErr *LineError
			assert.True(t, errors.As(err, &lineErr))
		})
	}
}

func TestReader_InvalidUTF8(t *testing.T) {
	input := "{\"book_id\": \"b1\", \"title\": \"ok\"}\n{\"book_id\": \"b2\", \"title\": \"bad\xff\xfeutf\"}\n"

	r := NewReader(StreamBooks, strings.NewReader(input))
	_, err := r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	assert.ErrorIs(t, err, ErrInvalidUTF8)
	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Line)
}

func TestReader_Empty(t *testing.T) {
	_, err := NewReader(StreamAuthors, strings.NewReader("")).Next()
	assert.Equal(t, io.EOF, err)
}

func TestRecord_Accessors(t *testing.T) {
	r := NewReader(StreamBooks, strings.NewReader(
		`{"s": "x", "empty": "", "n": 4, "f": 4.0, "frac": 4.5, "str_num": "4", "list": [{"id": "a"}, 3, {"id": "b"}]}`,
	))
	rec, err := r.Next()
	require.NoError(t, err)

	s, ok := rec.NonEmpty("s")
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	_, ok = rec.NonEmpty("empty")
	assert.False(t, ok)
	assert.Nil(t, rec.Optional("empty"))
	assert.Nil(t, rec.Optional("missing"))
	assert.Equal(t, "x", *rec.Optional("s"))

	_, ok = rec.String("n")
	assert.False(t, ok, "number is not a string")

	n, ok := rec.Int("n")
	assert.True(t, ok)
	assert.Equal(t, int64(4), n)

	n, ok = rec.Int("f")
	assert.True(t, ok)
	assert.Equal(t, int64(4), n)

	_, ok = rec.Int("frac")
	assert.False(t, ok)
	_, ok = rec.Int("str_num")
	assert.False(t, ok)

	list := rec.Records("list")
	require.Len(t, list, 2)
	id, _ := list[1].String("id")
	assert.Equal(t, "b", id)
	assert.Nil(t, rec.Records("s"))
}
