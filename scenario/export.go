package scenario

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/katalvlaran/lvlca/inventory"
)

// DefaultSheet is the worksheet written by WriteExcel.
const DefaultSheet = "scenarios"

// records renders t with the required header followed by the scenarios.
// NaN cells are empty; ReadCSV and ReadExcel accept the result.
func records(t *Table) [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append(slices.Clone(Columns), t.Scenarios...))
	for _, r := range t.Rows {
		rec := make([]string, 0, len(Columns)+len(t.Scenarios))
		rec = append(rec, sideCells(r.From)...)
		rec = append(rec, sideCells(r.To)...)
		rec = append(rec, string(r.FlowType))
		for _, v := range r.Values {
			if math.IsNaN(v) {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		out = append(out, rec)
	}

	return out
}

func sideCells(s Side) []string {
	cats, key := "", ""
	if len(s.Categories) > 0 {
		cats = inventory.FormatTuple(s.Categories)
	}
	if !s.Key.IsZero() {
		key = s.Key.String()
	}
	db := s.Database
	if db == "" {
		db = s.Key.Database
	}

	return []string{s.Name, s.ReferenceProduct, s.Location, cats, db, key}
}

// WriteCSV writes t as a comma separated table.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records(t)); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}

	return nil
}

// WriteExcel writes t to a new workbook with one worksheet.
func WriteExcel(w io.Writer, t *Table, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheet
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("WriteExcel: %w", err)
	}
	for i, rec := range records(t) {
		row := make([]interface{}, len(rec))
		for j, c := range rec {
			row[j] = c
		}
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("WriteExcel: %w", err)
		}
		if err = f.SetSheetRow(sheet, cellName, &row); err != nil {
			return fmt.Errorf("WriteExcel: %w", err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("WriteExcel: %w", err)
	}

	return nil
}

// Template returns a table with one row per exchange of the given
// activities and one column per name. Every cell holds the stored amount,
// ready to be edited.
func Template(prov inventory.Provider, activities []inventory.Key, names []string) (*Table, error) {
	t := &Table{Source: "template", Scenarios: slices.Clone(names)}
	line := 2
	for _, act := range activities {
		to, err := prov.Node(act)
		if err != nil {
			return nil, fmt.Errorf("Template: %w", err)
		}
		xs, err := prov.Exchanges(act, inventory.In)
		if err != nil {
			return nil, fmt.Errorf("Template: %w", err)
		}
		for _, x := range xs {
			from, err := prov.Node(x.Input)
			if err != nil {
				return nil, fmt.Errorf("Template: %w", err)
			}
			values := make([]float64, len(names))
			for i := range values {
				values[i] = x.Amount
			}
			t.Rows = append(t.Rows, Row{
				Line:     line,
				From:     nodeSide(from),
				To:       nodeSide(to),
				FlowType: x.Type,
				Values:   values,
			})
			line++
		}
	}

	return t, nil
}

func nodeSide(n inventory.Node) Side {
	return Side{
		Name:             n.Name,
		ReferenceProduct: n.ReferenceProduct,
		Location:         n.Location,
		Categories:       slices.Clone(n.Categories),
		Database:         n.Key.Database,
		Key:              n.Key,
	}
}
