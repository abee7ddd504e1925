package db

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
	"student-roster-go/models"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("failed to write row %d: %v", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to write workbook: %v", err)
	}
	return buf
}

func TestImportStudentsFromExcel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := Seed(ctx, s, 0); err != nil {
		t.Fatal(err)
	}

	buf := workbook(t, [][]interface{}{
		{"Name", "Year", "Section"},
		{"Amy", "3rd Year", "Michael"},
		{"Ben", "4th Year"},
		{"Cara", "1st Year", "Raphael"},
	})

	res, err := ImportStudentsFromExcel(ctx, s, buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Imported != 2 || res.Skipped != 1 {
		t.Errorf("got %+v, want 2 imported and 1 skipped", res)
	}

	got, err := s.Get(ctx, 4)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Cara" || got.Section != "Raphael" {
		t.Errorf("unexpected student %+v", *got)
	}
}

func TestImportStudentsFromExcelRejectsGarbage(t *testing.T) {
	s := NewMemoryStore()
	_, err := ImportStudentsFromExcel(context.Background(), s, bytes.NewBufferString("not a workbook"))
	if !errors.Is(err, ErrBadWorkbook) {
		t.Errorf("got %v, want ErrBadWorkbook", err)
	}
	if n, _ := s.Count(context.Background()); n != 0 {
		t.Errorf("got %d students after failed import, want 0", n)
	}
}

func TestExportStudentsToExcel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := Seed(ctx, s, 0); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := ExportStudentsToExcel(ctx, s, &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("exported workbook does not open: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"ID", "Name", "Year", "Section"},
		{"1", "John Doe", "1st Year", "Zechariah"},
		{"2", "Jane Smith", "2nd Year", "Gabriel"},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Errorf("row %d col %d: got %q, want %q", i, j, rows[i][j], want[i][j])
			}
		}
	}
}

// failAfterStore accepts n adds and then fails every add.
type failAfterStore struct {
	*MemoryStore
	n int
}

var errStoreDown = errors.New("store down")

func (s *failAfterStore) Add(ctx context.Context, in models.NewStudent) (*models.Student, error) {
	if s.n == 0 {
		return nil, errStoreDown
	}
	s.n--
	return s.MemoryStore.Add(ctx, in)
}

func TestImportStudentsFromExcelStoreFailure(t *testing.T) {
	ctx := context.Background()
	s := &failAfterStore{MemoryStore: NewMemoryStore(), n: 1}

	buf := workbook(t, [][]interface{}{
		{"Name", "Year", "Section"},
		{"Amy", "3rd Year", "Michael"},
		{"Ben", "4th Year", "Uriel"},
	})

	res, err := ImportStudentsFromExcel(ctx, s, buf)
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("got %v, want the store error", err)
	}
	if errors.Is(err, ErrBadWorkbook) {
		t.Error("store failure reported as a bad workbook")
	}
	if res.Imported != 1 {
		t.Errorf("got %d imported before the failure, want 1", res.Imported)
	}
}
