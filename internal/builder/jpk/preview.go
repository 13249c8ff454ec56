package jpk

import (
	"fmt"

	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/xuri/excelize/v2"
)

const (
	EvidenceSheet    = "Ewidencja"
	DeclarationSheet = "Deklaracja"
)

// Preview renders the aggregated values of r as a workbook for review before
// submission: one row per evidence line, then the declaration positions.
func Preview(r Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", EvidenceSheet); err != nil {
		return nil, previewError(err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, previewError(err)
	}

	fields := usedFields(r.Rows)
	header := []interface{}{"Dokument", "Data", "Kontrahent", "Strona"}
	for _, n := range fields {
		header = append(header, fmt.Sprintf("K_%d", n))
	}
	if err := setRow(f, EvidenceSheet, 1, header); err != nil {
		return nil, previewError(err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(EvidenceSheet, "A1", last, bold); err != nil {
		return nil, previewError(err)
	}
	for i, row := range r.Rows {
		values := []interface{}{row.Record.Name, day(row.Record.IssueDate), row.Record.Partner.Name, string(row.Side)}
		for _, n := range fields {
			values = append(values, row.Fields.Get(n).InexactFloat64())
		}
		if err := setRow(f, EvidenceSheet, i+2, values); err != nil {
			return nil, previewError(err)
		}
	}
	if err := f.SetColWidth(EvidenceSheet, "A", "C", 24); err != nil {
		return nil, previewError(err)
	}

	if HasDeclaration(r.Variant, r.Month) && len(r.Declaration) > 0 {
		if _, err := f.NewSheet(DeclarationSheet); err != nil {
			return nil, previewError(err)
		}
		if err := setRow(f, DeclarationSheet, 1, []interface{}{"Pozycja", "Kwota"}); err != nil {
			return nil, previewError(err)
		}
		if err := f.SetCellStyle(DeclarationSheet, "A1", "B1", bold); err != nil {
			return nil, previewError(err)
		}
		for i, n := range r.Declaration.Fields() {
			row := []interface{}{fmt.Sprintf("P_%d", n), r.Declaration.Get(n).IntPart()}
			if err := setRow(f, DeclarationSheet, i+2, row); err != nil {
				return nil, previewError(err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, previewError(err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func usedFields(rows []Row) []int {
	return Totals(rows).Fields()
}

func previewError(err error) error {
	return shared.NewError(shared.KindSerialization, "failed to render JPK preview", err)
}
