package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"student-roster-go/models"
)

// ExcelContentType is the MIME type of .xlsx workbooks
const ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportHeader = []interface{}{"ID", "Name", "Year", "Section"}

// ErrBadWorkbook wraps every import failure caused by the uploaded file
// itself. Store failures during an import are returned unwrapped.
var ErrBadWorkbook = errors.New("unreadable workbook")

// ImportResult summarises a spreadsheet import
type ImportResult struct {
	Imported int `json:"imported_count"`
	Skipped  int `json:"skipped_count"`
}

// ImportStudentsFromExcel reads the first sheet of an .xlsx workbook and adds
// one student per row. The first row is a header. Columns are Name, Year and
// Section; rows with fewer than three cells are skipped. The whole sheet is
// read before the first add, so a bad file adds nothing. A store failure
// stops the import; rows added before it remain and are counted in the result.
func ImportStudentsFromExcel(ctx context.Context, s Store, file io.Reader) (ImportResult, error) {
	var res ImportResult

	f, err := excelize.OpenReader(file)
	if err != nil {
		logrus.WithError(err).Error("Error opening Excel reader")
		return res, fmt.Errorf("%w: failed to open excel file: %v", ErrBadWorkbook, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing excel file")
		}
	}()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return res, fmt.Errorf("%w: excel file does not contain any sheets", ErrBadWorkbook)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return res, fmt.Errorf("%w: failed to get rows from sheet %s: %v", ErrBadWorkbook, sheetName, err)
	}

	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 3 || strings.TrimSpace(row[0]) == "" {
			logrus.Debugf("Skipping row %d: %v", i+1, row)
			res.Skipped++
			continue
		}
		if _, err := s.Add(ctx, models.NewStudentOf(row[0], row[1], row[2])); err != nil {
			return res, fmt.Errorf("failed to add student from row %d: %w", i+1, err)
		}
		res.Imported++
	}

	logrus.Infof("Imported %d students from sheet %s (%d skipped)", res.Imported, sheetName, res.Skipped)
	return res, nil
}

// ExportStudentsToExcel writes every student in s as an .xlsx workbook to w.
func ExportStudentsToExcel(ctx context.Context, s Store, w io.Writer) error {
	students, err := s.List(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing excel file")
		}
	}()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, st := range students {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{st.ID, st.Name, st.Year, st.Section}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write student %d: %w", st.ID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
