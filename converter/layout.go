// converter/layout.go
package converter

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jszwec/csvutil"

	"github.com/ibis-project/ibis-examples/models"
)

func openDecoder(f io.Reader, comma rune, header []string) (*csvutil.Decoder, error) {
	dec, err := csvutil.NewDecoder(newRecordReader(f, comma), header...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder: %w", err)
	}
	return dec, nil
}

// CheckLayout decodes the first record of srcPath against header and reports
// a schema error when the column counts differ. An empty file passes.
func CheckLayout(srcPath string, comma rune, header []string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s: %w", models.ErrFilesystem, srcPath, err)
	}
	defer f.Close()

	dec, err := openDecoder(f, comma, header)
	if err != nil {
		return err
	}

	var first models.Contribution
	err = dec.Decode(&first)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.Is(err, csvutil.ErrFieldCount):
		return fmt.Errorf("%w: %s has %d columns, header has %d", models.ErrSchema, srcPath, len(dec.Record()), len(header))
	}
	return fmt.Errorf("%w: failed to decode first record of %s: %w", models.ErrSchema, srcPath, err)
}

// Preview decodes up to n contributions from the head of srcPath.
func Preview(srcPath string, opts Options, n int) ([]models.Contribution, error) {
	comma, err := opts.resolveDelimiter(srcPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", models.ErrFilesystem, srcPath, err)
	}
	defer f.Close()

	dec, err := openDecoder(f, comma, opts.Header)
	if err != nil {
		return nil, err
	}

	var rows []models.Contribution
	for len(rows) < n {
		var c models.Contribution
		if err := dec.Decode(&c); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, csvutil.ErrFieldCount) {
				return rows, fmt.Errorf("%w: record %d of %s has %d columns, header has %d", models.ErrSchema, len(rows)+1, srcPath, len(dec.Record()), len(opts.Header))
			}
			return rows, fmt.Errorf("failed to decode contribution %d: %w", len(rows)+1, err)
		}
		rows = append(rows, c)
	}
	return rows, nil
}
