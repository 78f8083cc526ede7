// converter/records.go
package converter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/jszwec/csvutil"
)

const maxLineBytes = 16 << 20

// splitLines reads one record per line, splitting on the delimiter with no
// quote handling. FEC pipe files never quote, and a literal '"' is data.
type splitLines struct {
	sc    *bufio.Scanner
	sep   string
	line  int
	field int
}

func newSplitLines(r io.Reader, comma rune) *splitLines {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &splitLines{sc: sc, sep: string(comma)}
}

// Read implements csvutil.Reader. Blank lines are skipped.
func (s *splitLines) Read() ([]string, error) {
	for s.sc.Scan() {
		s.line++
		text := strings.TrimSuffix(s.sc.Text(), "\r")
		if text == "" {
			continue
		}
		return strings.Split(text, s.sep), nil
	}
	if err := s.sc.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", s.line+1, err)
	}
	return nil, io.EOF
}

// newRecordReader returns a quote-aware reader for comma-separated input and
// a plain splitter for every other delimiter.
func newRecordReader(r io.Reader, comma rune) csvutil.Reader {
	if comma != ',' {
		return newSplitLines(r, comma)
	}
	cr := csv.NewReader(bufio.NewReader(r))
	cr.Comma = comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1 // counts are checked against the header by the caller
	return cr
}

// batchReader yields record batches in the source schema.
type batchReader interface {
	Next() bool
	Record() arrow.Record
	Err() error
	Release()
}

// splitBatches builds record batches from splitLines. Empty fields are
// nulls; numeric fields are parsed according to the schema.
type splitBatches struct {
	lines   *splitLines
	bld     *array.RecordBuilder
	schema  *arrow.Schema
	chunk   int
	current arrow.Record
	err     error
}

func newSplitBatches(r io.Reader, comma rune, schema *arrow.Schema, chunk int, mem memory.Allocator) *splitBatches {
	return &splitBatches{
		lines:  newSplitLines(r, comma),
		bld:    array.NewRecordBuilder(mem, schema),
		schema: schema,
		chunk:  chunk,
	}
}

func (b *splitBatches) Next() bool {
	if b.current != nil {
		b.current.Release()
		b.current = nil
	}
	if b.err != nil {
		return false
	}

	n := 0
	for n < b.chunk {
		fields, err := b.lines.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			b.err = err
			return false
		}
		if len(fields) != len(b.schema.Fields()) {
			b.err = fmt.Errorf("record on line %d: %d fields, want %d: %w", b.lines.line, len(fields), len(b.schema.Fields()), csv.ErrFieldCount)
			return false
		}
		if err := b.appendRow(fields); err != nil {
			b.err = fmt.Errorf("record on line %d: %w", b.lines.line, err)
			return false
		}
		n++
	}
	if n == 0 {
		return false
	}
	b.current = b.bld.NewRecord()
	return true
}

func (b *splitBatches) appendRow(fields []string) error {
	for i, v := range fields {
		switch fb := b.bld.Field(i).(type) {
		case *array.StringBuilder:
			if v == "" {
				fb.AppendNull()
			} else {
				fb.Append(v)
			}
		case *array.Int64Builder:
			if v == "" {
				fb.AppendNull()
				continue
			}
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return fmt.Errorf("column %s: %w", b.schema.Field(i).Name, err)
			}
			fb.Append(n)
		case *array.Float64Builder:
			if v == "" {
				fb.AppendNull()
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("column %s: %w", b.schema.Field(i).Name, err)
			}
			fb.Append(f)
		default:
			return fmt.Errorf("column %s: unsupported type %s", b.schema.Field(i).Name, b.schema.Field(i).Type)
		}
	}
	return nil
}

func (b *splitBatches) Record() arrow.Record { return b.current }

func (b *splitBatches) Err() error { return b.err }

func (b *splitBatches) Release() {
	if b.current != nil {
		b.current.Release()
		b.current = nil
	}
	b.bld.Release()
}
