// converter/parquet.go
package converter

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ibis-project/ibis-examples/models"
	"github.com/ibis-project/ibis-examples/utils"
)

// Converter turns a headerless delimited file into a compressed Parquet file
// holding only the projected columns.
type Converter struct {
	Opts Options
	Mem  memory.Allocator
}

// New returns a Converter using the default allocator.
func New(opts Options) *Converter {
	return &Converter{Opts: opts, Mem: memory.DefaultAllocator}
}

// Convert loads srcPath, names its columns positionally from the header,
// keeps the projected columns in projection order and writes them to destPath.
// Every row must have as many columns as the header. Comma-separated input is
// read with quote handling; pipe and tab input is split verbatim.
func (c *Converter) Convert(ctx context.Context, srcPath, destPath string) error {
	srcSchema, outSchema, projection, err := c.Opts.schemas()
	if err != nil {
		return err
	}
	codec, err := c.Opts.codec()
	if err != nil {
		return err
	}
	comma, err := c.Opts.resolveDelimiter(srcPath)
	if err != nil {
		return err
	}
	if err := CheckLayout(srcPath, comma, c.Opts.Header); err != nil {
		return err
	}

	mem := c.Mem
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s: %w", models.ErrFilesystem, srcPath, err)
	}
	defer src.Close()

	var rdr batchReader
	if comma == ',' {
		rdr = csv.NewReader(src, srcSchema,
			csv.WithComma(comma),
			csv.WithHeader(false),
			csv.WithLazyQuotes(true),
			csv.WithNullReader(true, ""),
			csv.WithChunk(c.Opts.chunkRows()),
			csv.WithAllocator(mem),
		)
	} else {
		rdr = newSplitBatches(src, comma, srcSchema, c.Opts.chunkRows(), mem)
	}
	defer rdr.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithAllocator(mem),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	var rows int64
	err = utils.WriteFileAtomic(destPath, func(w io.Writer) error {
		fw, err := pqarrow.NewFileWriter(outSchema, w, props, arrowProps)
		if err != nil {
			return fmt.Errorf("failed to create parquet writer for %s: %w", destPath, err)
		}

		for rdr.Next() {
			if err := ctx.Err(); err != nil {
				fw.Close()
				return err
			}
			rec := rdr.Record()
			proj := project(outSchema, rec, projection)
			err := fw.Write(proj)
			proj.Release()
			if err != nil {
				fw.Close()
				return fmt.Errorf("failed to write parquet row group to %s: %w", destPath, err)
			}
			rows += rec.NumRows()
		}
		if err := rdr.Err(); err != nil {
			fw.Close()
			return fmt.Errorf("%w: failed to read %s: %w", models.ErrSchema, srcPath, err)
		}
		if err := fw.Close(); err != nil {
			return fmt.Errorf("failed to finalize parquet file %s: %w", destPath, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Converter: Wrote %d rows x %d columns to %s\n", rows, len(projection), destPath)
	return nil
}

// project builds a record over the selected source columns without copying them.
func project(schema *arrow.Schema, rec arrow.Record, projection []int) arrow.Record {
	cols := make([]arrow.Array, len(projection))
	for i, j := range projection {
		cols[i] = rec.Column(j)
	}
	return array.NewRecord(schema, cols, rec.NumRows())
}
