// converter/options.go
package converter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet/compress"

	"github.com/ibis-project/ibis-examples/config"
	"github.com/ibis-project/ibis-examples/models"
)

const defaultChunkRows = 65536

// Options describes the layout of the delimited source and the shape of the
// columnar output.
type Options struct {
	Delimiter   string            // "|", ",", "\t" or "auto"
	Header      []string          // positional names for every source column
	Columns     []string          // projection, in output order
	ColumnTypes map[string]string // "string" (default), "int64" or "float64"
	Compression string            // "zstd", "snappy", "gzip" or "none"
	ChunkRows   int
}

// OptionsFromConfig builds converter options from the campaign section.
func OptionsFromConfig(c config.CampaignConfig) Options {
	return Options{
		Delimiter:   c.Delimiter,
		Header:      c.Header,
		Columns:     c.Columns,
		ColumnTypes: c.ColumnTypes,
		Compression: c.Compression,
		ChunkRows:   c.ChunkRows,
	}
}

func (o Options) chunkRows() int {
	if o.ChunkRows <= 0 {
		return defaultChunkRows
	}
	return o.ChunkRows
}

func (o Options) codec() (compress.Compression, error) {
	switch strings.ToLower(o.Compression) {
	case "", "zstd":
		return compress.Codecs.Zstd, nil
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "none":
		return compress.Codecs.Uncompressed, nil
	}
	return compress.Codecs.Uncompressed, fmt.Errorf("unsupported compression codec %q", o.Compression)
}

func arrowType(name string) (arrow.DataType, error) {
	switch name {
	case "", "string":
		return arrow.BinaryTypes.String, nil
	case "int64":
		return arrow.PrimitiveTypes.Int64, nil
	case "float64":
		return arrow.PrimitiveTypes.Float64, nil
	}
	return nil, fmt.Errorf("unsupported column type %q", name)
}

// schemas returns the full positional source schema, the projected output
// schema, and for each output column the index of its source column.
func (o Options) schemas() (*arrow.Schema, *arrow.Schema, []int, error) {
	if len(o.Header) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: header is empty", models.ErrSchema)
	}

	fields := make([]arrow.Field, len(o.Header))
	index := make(map[string]int, len(o.Header))
	for i, name := range o.Header {
		dt, err := arrowType(o.ColumnTypes[name])
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: column %s: %w", models.ErrSchema, name, err)
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
		index[name] = i
	}

	outFields := make([]arrow.Field, len(o.Columns))
	projection := make([]int, len(o.Columns))
	for i, name := range o.Columns {
		j, ok := index[name]
		if !ok {
			return nil, nil, nil, fmt.Errorf("%w: column %q not found", models.ErrSchema, name)
		}
		outFields[i] = fields[j]
		projection[i] = j
	}
	return arrow.NewSchema(fields, nil), arrow.NewSchema(outFields, nil), projection, nil
}

// resolveDelimiter turns the configured delimiter into a rune, sniffing the
// first line of srcPath when it is "auto".
func (o Options) resolveDelimiter(srcPath string) (rune, error) {
	switch o.Delimiter {
	case "|":
		return '|', nil
	case ",":
		return ',', nil
	case "\t":
		return '\t', nil
	case "", "auto":
		return SniffDelimiter(srcPath)
	}
	return 0, fmt.Errorf("unsupported delimiter %q", o.Delimiter)
}

// SniffDelimiter picks '|' when the first line of path contains a pipe, then
// tab, and falls back to ','.
func SniffDelimiter(path string) (rune, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to open %s: %w", models.ErrFilesystem, path, err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: failed to read %s: %w", models.ErrFilesystem, path, err)
	}
	switch {
	case strings.ContainsRune(line, '|'):
		return '|', nil
	case strings.ContainsRune(line, '\t'):
		return '\t', nil
	}
	return ',', nil
}
