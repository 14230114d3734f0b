// Package snapshot reads and writes sighting tables as delimited flat files.
//
// A snapshot is written whole: rows go to a temporary file in the target
// directory which is then renamed over the destination, so readers see either
// the previous file or the new one. Paths ending in ".zst" are zstd-compressed.
package snapshot

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Column names of the sighting table.
const (
	ColDatetime  = "datetime"
	ColLatitude  = "latitude"
	ColLongitude = "longitude"
	ColCity      = "city"
	ColShape     = "ufo_shape"
	ColDuration  = "encounter_duration"
	ColCluster   = "cluster"
)

// RequiredColumns must be present in every sighting table.
var RequiredColumns = []string{ColDatetime, ColLatitude, ColLongitude, ColCity, ColShape, ColDuration}

// ErrMissingColumn is returned when a table lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Table is a header plus rows of string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the position of name in the header, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Require checks that every named column is present.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if t.Column(n) < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// ReadTable loads a delimited file. Short rows are padded with empty cells,
// long rows are truncated to the header width, and stray quotes are tolerated.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if isCompressed(path) {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}
	return decodeTable(r)
}

func decodeTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("read snapshot header: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	t := &Table{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, fitWidth(rec, len(header)))
	}
	return t, nil
}

func fitWidth(rec []string, width int) []string {
	if len(rec) == width {
		return rec
	}
	out := make([]string, width)
	copy(out, rec)
	return out
}

// WriteTable atomically replaces path with the given table.
func WriteTable(path string, t *Table) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	var w io.Writer = bw
	var enc *zstd.Encoder
	if isCompressed(path) {
		enc, err = zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return fmt.Errorf("create zstd writer: %w", err)
		}
		w = enc
	}

	if err = encodeTable(w, t); err != nil {
		return err
	}
	if enc != nil {
		if err = enc.Close(); err != nil {
			return fmt.Errorf("close zstd writer: %w", err)
		}
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func encodeTable(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write snapshot rows: %w", err)
	}
	return nil
}

func isCompressed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zst")
}
