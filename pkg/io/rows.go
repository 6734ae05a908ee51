package io

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/phylocite/phylocite/pkg/errors"
)

// WriteRows writes one comma-separated line per row. An empty row produces
// an empty line.
func WriteRows(w io.Writer, rows [][]int) error {
	bw := bufio.NewWriter(w)
	var line []byte
	for _, row := range rows {
		line = line[:0]
		for i, v := range row {
			if i > 0 {
				line = append(line, ',')
			}
			line = strconv.AppendInt(line, int64(v), 10)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "write rows")
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "flush rows")
	}
	return nil
}

// ReadRows reads comma-separated integer rows. Empty lines are kept as
// empty rows; a trailing newline does not start a new row.
func ReadRows(r io.Reader) ([][]int, error) {
	var rows [][]int
	err := eachLine(r, func(line int, text string) error {
		row, err := parseInts(line, text)
		if err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

// ReadParentage reads a parentage file. Every parent id must be smaller than
// the id of its row; violations fail with CYCLIC_REFERENCE.
func ReadParentage(r io.Reader) ([][]int, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	for child, parents := range rows {
		for _, p := range parents {
			if p < 0 {
				return nil, errors.AtRow(errors.ErrCodeMalformedInput, child+1,
					"negative parent id %d", p)
			}
			if p >= child {
				return nil, errors.AtRow(errors.ErrCodeCyclicReference, child+1,
					"parent %d is not older than child %d", p, child)
			}
		}
	}
	return rows, nil
}

// ReadPhenomes reads a phenome file. Trait ids must be non-negative.
func ReadPhenomes(r io.Reader) ([][]int, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	for i, traits := range rows {
		for _, t := range traits {
			if t < 0 || int64(t) > math.MaxUint32 {
				return nil, errors.AtRow(errors.ErrCodeMalformedInput, i+1,
					"trait id %d out of range", t)
			}
		}
	}
	return rows, nil
}

// WriteFinalCounts writes the final citation-count vector as a single row.
func WriteFinalCounts(w io.Writer, counts []int) error {
	return WriteRows(w, [][]int{counts})
}

// ReadFinalCounts reads a single-row count file.
func ReadFinalCounts(r io.Reader) ([]int, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return []int{}, nil
	case 1:
		return rows[0], nil
	}
	return nil, errors.AtRow(errors.ErrCodeMalformedInput, 2, "final counts must be a single row")
}

// ReadKeywordWeights reads one weight per line. Blank lines are skipped.
func ReadKeywordWeights(r io.Reader) ([]float64, error) {
	var weights []float64
	err := eachLine(r, func(line int, text string) error {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
		// Tolerate a trailing separator from spreadsheet exports.
		text = strings.TrimSuffix(text, ",")
		w, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return errors.AtRow(errors.ErrCodeMalformedInput, line, "invalid keyword weight %q", text)
		}
		weights = append(weights, w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return weights, nil
}

func eachLine(r io.Reader, fn func(line int, text string) error) error {
	br := bufio.NewReader(r)
	for line := 1; ; line++ {
		text, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return errors.Wrap(errors.ErrCodeIO, err, "read line %d", line)
		}
		if err == io.EOF && text == "" {
			return nil
		}
		text = strings.TrimRight(text, "\r\n")
		if ferr := fn(line, text); ferr != nil {
			return ferr
		}
		if err == io.EOF {
			return nil
		}
	}
}

func parseInts(line int, text string) ([]int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []int{}, nil
	}
	fields := strings.Split(text, ",")
	row := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.AtRow(errors.ErrCodeMalformedInput, line, "%q is not an integer id", f)
		}
		row = append(row, v)
	}
	return row, nil
}

// CreateFile opens path for writing, calls fn and closes the file. Failures
// to create or close are IO_FAILURE errors.
func CreateFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(errors.ErrCodeIO, cerr, "close %s", path)
		}
	}()
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// OpenFile opens path for reading, calls fn and closes the file.
func OpenFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
