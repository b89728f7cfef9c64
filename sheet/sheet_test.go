package sheet

import (
	"bytes"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func sample() *Table {
	return New(
		[]string{"조사연도", "학교", "재학률", "대학코드"},
		[][]string{
			{"2023", "가대학교", "90.1", "0001"},
			{"2024", "나대학교", "", "0002"},
			{"2024", "가대학교"}, // short row is padded
		},
	)
}

func TestNewPadsRows(t *testing.T) {
	tbl := sample()
	for i, row := range tbl.Rows {
		if len(row) != 4 {
			t.Errorf("row %d has %d cells, want 4", i, len(row))
		}
	}
}

func TestSelectKeepsExistingColumns(t *testing.T) {
	got := sample().Select("학교", "없는열", "조사연도")
	want := []string{"학교", "조사연도"}
	if diff := cmp.Diff(want, got.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if got.Rows[0][0] != "가대학교" || got.Rows[0][1] != "2023" {
		t.Errorf("first row = %v", got.Rows[0])
	}
}

func TestDropAndRenameDoNotMutate(t *testing.T) {
	orig := sample()
	dropped := orig.Drop("대학코드")
	renamed := orig.Rename("학교", "school")
	if orig.Has("school") || !orig.Has("대학코드") {
		t.Fatalf("original table changed: %v", orig.Columns)
	}
	if dropped.Has("대학코드") {
		t.Errorf("Drop kept column: %v", dropped.Columns)
	}
	if !renamed.Has("school") {
		t.Errorf("Rename missing column: %v", renamed.Columns)
	}
	if got := orig.Rename("missing", "x"); !cmp.Equal(got.Columns, orig.Columns) {
		t.Errorf("Rename of absent column changed header: %v", got.Columns)
	}
}

func TestMapColumnCopiesRows(t *testing.T) {
	orig := sample()
	mapped := orig.MapColumn("학교", func(s string) string { return s + "!" })
	if orig.Rows[0][1] != "가대학교" {
		t.Errorf("original row mutated: %v", orig.Rows[0])
	}
	if mapped.Rows[0][1] != "가대학교!" {
		t.Errorf("mapped = %v", mapped.Rows[0])
	}
}

func TestFilterAndUnique(t *testing.T) {
	tbl := sample()
	y := tbl.Index("조사연도")
	got := tbl.Filter(func(r []string) bool { return r[y] == "2024" })
	if got.Len() != 2 {
		t.Fatalf("Len = %d, want 2", got.Len())
	}
	if diff := cmp.Diff([]string{"가대학교", "나대학교"}, tbl.Unique("학교")); diff != "" {
		t.Errorf("Unique mismatch (-want +got):\n%s", diff)
	}
	if tbl.Unique("없는열") == nil || len(tbl.Unique("없는열")) != 0 {
		t.Errorf("Unique of absent column should be empty")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := sample().Select("학교", "재학률").WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	want := "학교,재학률\n가대학교,90.1\n나대학교,\n가대학교,\n"
	if got := buf.String(); got != want {
		t.Errorf("csv = %q, want %q", got, want)
	}
}

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadXLSX(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{},
		{" 조사연도 ", "학교", "재학률"},
		{2023, "가 대학교", 91.5},
		{},
		{2024, "나대학교"},
	})
	tbl, err := ReadXLSX(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"조사연도", "학교", "재학률"}, tbl.Columns); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	want := [][]string{
		{"2023", "가 대학교", "91.5"},
		{"2024", "나대학교", ""},
	}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReadXLSXIgnoresNumberFormats(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	s := f.GetSheetName(0)
	cells := []struct {
		cell   string
		value  any
		numFmt int
	}{
		{"A1", "조사연도", 0},
		{"B1", "재학률", 0},
		{"C1", "충원율", 0},
		{"A2", 2023, 3},    // #,##0
		{"B2", 85.347, 2},  // 0.00
		{"C2", 0.8534, 10}, // 0.00%
	}
	for _, c := range cells {
		if err := f.SetCellValue(s, c.cell, c.value); err != nil {
			t.Fatal(err)
		}
		if c.numFmt == 0 {
			continue
		}
		style, err := f.NewStyle(&excelize.Style{NumFmt: c.numFmt})
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetCellStyle(s, c.cell, c.cell, style); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "formatted.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	tbl, err := ReadXLSX(path)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"2023", "85.347", "0.8534"}}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReadXLSXEmpty(t *testing.T) {
	path := writeWorkbook(t, nil)
	if _, err := ReadXLSX(path); !errors.Is(err, ErrEmptySheet) {
		t.Errorf("err = %v, want ErrEmptySheet", err)
	}
}

func TestWriteXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := WriteXLSX(sample(), path); err != nil {
		t.Fatal(err)
	}
	got, err := ReadXLSX(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(sample().Rows, got.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestCacheLoadsOncePerPath(t *testing.T) {
	c := NewCache[*Table]()
	var mu sync.Mutex
	calls := map[string]int{}
	load := func(path string) (*Table, error) {
		mu.Lock()
		calls[path]++
		mu.Unlock()
		return sample(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Load("a.xlsx", load); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	first, _ := c.Load("a.xlsx", load)
	second, _ := c.Load("a.xlsx", load)
	if first != second {
		t.Errorf("cache returned different values for the same path")
	}
	if _, err := c.Load("b.xlsx", load); err != nil {
		t.Fatal(err)
	}
	if calls["a.xlsx"] != 1 || calls["b.xlsx"] != 1 {
		t.Errorf("calls = %v, want one per path", calls)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if c.Misses() != 2 {
		t.Errorf("Misses = %d, want 2", c.Misses())
	}
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	c := NewCache[*Table]()
	boom := errors.New("boom")
	fail := true
	load := func(string) (*Table, error) {
		if fail {
			return nil, boom
		}
		return sample(), nil
	}
	if _, err := c.Load("x", load); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	fail = false
	tbl, err := c.Load("x", load)
	if err != nil || tbl == nil {
		t.Fatalf("second load = %v, %v", tbl, err)
	}
}
