package io

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"

	perrors "github.com/phylocite/phylocite/pkg/errors"
	"github.com/phylocite/phylocite/pkg/phylo"
)

func TestRowsRoundTrip(t *testing.T) {
	rows := [][]int{{}, {0}, {0}, {1, 2}}
	var buf bytes.Buffer
	if err := WriteRows(&buf, rows); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}
	if got, want := buf.String(), "\n0\n0\n1,2\n"; got != want {
		t.Errorf("WriteRows = %q, want %q", got, want)
	}

	got, err := ReadParentage(&buf)
	if err != nil {
		t.Fatalf("ReadParentage: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("read %d rows, want %d", len(got), len(rows))
	}
	for i := range rows {
		if len(got[i]) != len(rows[i]) {
			t.Errorf("row %d = %v, want %v", i, got[i], rows[i])
		}
	}
}

func TestReadRowsNoTrailingNewline(t *testing.T) {
	got, err := ReadRows(strings.NewReader("1,2\r\n3"))
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(got) != 2 || got[1][0] != 3 || got[0][1] != 2 {
		t.Errorf("ReadRows = %v", got)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		read  func(string) error
		input string
		code  perrors.Code
		row   int
	}{
		{
			name:  "non-integer",
			read:  func(s string) error { _, err := ReadParentage(strings.NewReader(s)); return err },
			input: "\n0\nx\n",
			code:  perrors.ErrCodeMalformedInput,
			row:   3,
		},
		{
			name:  "parent not older",
			read:  func(s string) error { _, err := ReadParentage(strings.NewReader(s)); return err },
			input: "\n1\n",
			code:  perrors.ErrCodeCyclicReference,
			row:   2,
		},
		{
			name:  "negative parent",
			read:  func(s string) error { _, err := ReadParentage(strings.NewReader(s)); return err },
			input: "\n-1\n",
			code:  perrors.ErrCodeMalformedInput,
			row:   2,
		},
		{
			name:  "negative trait",
			read:  func(s string) error { _, err := ReadPhenomes(strings.NewReader(s)); return err },
			input: "1,2\n3,-4\n",
			code:  perrors.ErrCodeMalformedInput,
			row:   2,
		},
		{
			name:  "bad weight",
			read:  func(s string) error { _, err := ReadKeywordWeights(strings.NewReader(s)); return err },
			input: "0.5\n\nabc\n",
			code:  perrors.ErrCodeMalformedInput,
			row:   3,
		},
		{
			name:  "multi-row final counts",
			read:  func(s string) error { _, err := ReadFinalCounts(strings.NewReader(s)); return err },
			input: "1,2\n3\n",
			code:  perrors.ErrCodeMalformedInput,
			row:   2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(tt.input)
			if got := perrors.GetCode(err); got != tt.code {
				t.Fatalf("code = %q, want %q (err %v)", got, tt.code, err)
			}
			row, ok := perrors.Row(err)
			if !ok || row != tt.row {
				t.Errorf("row = %d, %v, want %d", row, ok, tt.row)
			}
		})
	}
}

func TestReadKeywordWeights(t *testing.T) {
	got, err := ReadKeywordWeights(strings.NewReader("1\n0.5,\n\n2.25\n"))
	if err != nil {
		t.Fatalf("ReadKeywordWeights: %v", err)
	}
	want := []float64{1, 0.5, 2.25}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("weight[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFinalCounts(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFinalCounts(&buf, []int{3, 0, 1}); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFinalCounts(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 3 || got[2] != 1 {
		t.Errorf("ReadFinalCounts = %v", got)
	}
}

func TestFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phenomes.csv")
	err := CreateFile(path, func(w io.Writer) error { return WriteRows(w, [][]int{{1, 2}, {3}}) })
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	var rows [][]int
	err = OpenFile(path, func(r io.Reader) error {
		var err error
		rows, err = ReadPhenomes(r)
		return err
	})
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("rows = %v", rows)
	}

	err = OpenFile(filepath.Join(t.TempDir(), "missing.csv"), func(io.Reader) error { return nil })
	if !perrors.Is(err, perrors.ErrCodeIO) {
		t.Errorf("missing file code = %q, want IO_FAILURE", perrors.GetCode(err))
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("missing file should wrap os.ErrNotExist")
	}
}

func TestWriteAnalysisJSON(t *testing.T) {
	phenomes := []*roaring.Bitmap{
		roaring.BitmapOf(1), roaring.BitmapOf(1), roaring.BitmapOf(1, 2),
	}
	a, err := phylo.Analyze(context.Background(), [][]int{{}, {0}, {0, 1}}, phenomes, 1)
	if err != nil {
		t.Fatal(err)
	}
	m := a.Metrics(phylo.MetricsConfig{NumTraits: 1, NumKeywords: 3})

	var buf bytes.Buffer
	if err := WriteAnalysisJSON(&buf, a, AnalysisOptions{Closures: true, Metrics: &m}); err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Nodes        int                   `json:"nodes"`
		Descendants  [][]uint32            `json:"descendants"`
		Interactions [][]phylo.Interaction `json:"inheritance_interactions"`
		Metrics      phylo.Metrics         `json:"metrics"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Nodes != 3 {
		t.Errorf("nodes = %d, want 3", doc.Nodes)
	}
	if len(doc.Descendants[0]) != 2 {
		t.Errorf("descendants[0] = %v, want [1 2]", doc.Descendants[0])
	}
	if len(doc.Interactions[0]) != 2 {
		t.Errorf("interactions[0] = %v", doc.Interactions[0])
	}
	if doc.Metrics.Transmissions != 3 {
		t.Errorf("transmissions = %d, want 3", doc.Metrics.Transmissions)
	}
}
