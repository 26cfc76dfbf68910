package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/scolarite-api/internal/calculator"
	"github.com/noah-isme/scolarite-api/internal/dto"
)

const absenceSheetName = "Absences"

// absenceColumns is the expected column order when the header row is not recognised.
var absenceColumns = []string{"nom", "prenom", "cne", "niveau", "heuresabsence", "heurestotal", "module"}

var blacklistHeader = []interface{}{"Nom", "Prénom", "CNE", "Niveau", "Heures d'absence", "Heures totales", "Module", "Taux (%)", "Sévérité"}

type absenceSheetRow struct {
	Number  int
	Request dto.AbsenceRequest
	Err     error
}

// parseAbsenceSheet reads the first sheet of an XLSX workbook. The first row is
// a header; blank rows are ignored.
func parseAbsenceSheet(r io.Reader) ([]absenceSheetRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	defer func() { _ = f.Close() }()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidSpreadsheet)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrInvalidSpreadsheet, sheetName)
	}

	index := columnIndex(rows[0])
	parsed := make([]absenceSheetRow, 0, len(rows)-1)
	for i, row := range rows {
		if i == 0 || isBlankRow(row) {
			continue
		}
		req, err := rowToAbsenceRequest(row, index)
		parsed = append(parsed, absenceSheetRow{Number: i + 1, Request: req, Err: err})
	}

	return parsed, nil
}

// columnIndex maps column names to positions using the header row, falling back
// to the default order for any column the header does not name.
func columnIndex(header []string) map[string]int {
	index := make(map[string]int, len(absenceColumns))
	for position, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		for _, column := range absenceColumns {
			if key == column {
				index[column] = position
			}
		}
	}
	for position, column := range absenceColumns {
		if _, ok := index[column]; !ok {
			index[column] = position
		}
	}
	return index
}

func rowToAbsenceRequest(row []string, index map[string]int) (dto.AbsenceRequest, error) {
	cell := func(column string) string {
		position := index[column]
		if position < len(row) {
			return strings.TrimSpace(row[position])
		}
		return ""
	}

	req := dto.AbsenceRequest{
		LastName:  cell("nom"),
		FirstName: cell("prenom"),
		CNE:       cell("cne"),
		Level:     strings.ToUpper(cell("niveau")),
		Module:    cell("module"),
	}

	absent, err := parseHours(cell("heuresabsence"))
	if err != nil {
		return req, fmt.Errorf("heuresAbsence: %w", err)
	}
	if absent != nil {
		req.HoursAbsent = *absent
	}

	total, err := parseHours(cell("heurestotal"))
	if err != nil {
		return req, fmt.Errorf("heuresTotal: %w", err)
	}
	req.HoursTotal = total

	return req, nil
}

func parseHours(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, errors.New("not a number")
	}
	return &value, nil
}

func isBlankRow(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

// writeBlacklistWorkbook renders blacklisted records as an XLSX workbook.
func writeBlacklistWorkbook(blacklist dto.BlacklistResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), absenceSheetName); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(absenceSheetName, "A1", &blacklistHeader); err != nil {
		return nil, err
	}

	for i, item := range blacklist.Items {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			item.LastName,
			item.FirstName,
			item.CNE,
			item.Level,
			item.HoursAbsent,
			item.HoursTotal,
			item.Module,
			item.RatePercent,
			string(item.Severity),
		}
		if err := f.SetSheetRow(absenceSheetName, cellRef, &row); err != nil {
			return nil, err
		}
	}

	footer, err := excelize.CoordinatesToCellName(1, len(blacklist.Items)+3)
	if err != nil {
		return nil, err
	}
	summary := []interface{}{"Seuil (%)", calculator.Percent(blacklist.Threshold), "Total", blacklist.Total}
	if err := f.SetSheetRow(absenceSheetName, footer, &summary); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
