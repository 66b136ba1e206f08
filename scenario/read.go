package scenario

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/katalvlaran/lvlca/inventory"
)

// ReadFile reads a CSV (.csv, .txt) or Excel (.xlsx, .xlsm) scenario
// table. sheet selects the Excel worksheet ("" = first).
func ReadFile(path, sheet string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadCSV(f, path)
	case ".xlsx", ".xlsm":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadExcel(f, sheet, path)
	}

	return nil, newOffenderError(ErrWrongFileType, []Offender{{Detail: path}})
}

// ReadCSV reads a delimited scenario table. The delimiter is ';' when the
// header line contains one and ',' otherwise.
func ReadCSV(r io.Reader, source string) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ReadCSV %s: %w", source, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	header, _, _ := bytes.Cut(data, []byte("\n"))
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	if bytes.IndexByte(header, ';') >= 0 {
		cr.Comma = ';'
	}
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ReadCSV %s: %w: %w", source, ErrWrongFileType, err)
	}

	return fromRecords(records, source)
}

// ReadExcel reads a scenario table from an Excel workbook.
func ReadExcel(r io.Reader, sheet, source string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ReadExcel %s: %w: %w", source, ErrWrongFileType, err)
	}
	defer f.Close()
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, newOffenderError(ErrWrongFileType, []Offender{{Detail: source + ": workbook has no sheets"}})
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("ReadExcel %s: %w: %w", source, ErrWrongFileType, err)
	}

	return fromRecords(rows, source)
}

// fromRecords converts raw cells into a Table.
//
// Rules:
//   - the first record is the header and must contain every Columns entry;
//   - other non-empty headers not starting with '#' are scenarios;
//   - records whose first cell starts with '*' and blank records are skipped;
//   - empty scenario cells are NaN; non-numeric cells fail the table.
func fromRecords(records [][]string, source string) (*Table, error) {
	if len(records) == 0 {
		return nil, newOffenderError(ErrWrongFileType, []Offender{{Detail: source + ": empty table"}})
	}
	pos := make(map[string]int)
	t := &Table{Source: source}
	var scen []int
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		switch {
		case h == "" || strings.HasPrefix(h, "#"):
		case isRequired(h):
			pos[h] = i
		default:
			t.Scenarios = append(t.Scenarios, h)
			scen = append(scen, i)
		}
	}
	var missing []Offender
	for _, c := range Columns {
		if _, ok := pos[c]; !ok {
			missing = append(missing, Offender{Line: 1, Detail: "missing column " + strconv.Quote(c)})
		}
	}
	if len(missing) > 0 {
		return nil, newOffenderError(ErrWrongFileType, missing)
	}

	var nonNumeric, badKeys, badTypes []Offender
	for n, rec := range records[1:] {
		line := n + 2
		if blank(rec) || strings.HasPrefix(strings.TrimSpace(cell(rec, 0)), "*") {
			continue
		}
		row := Row{Line: line, Values: nanRow(len(scen))}
		var err error
		if row.From, err = side(rec, pos, ColFromName, ColFromProduct, ColFromLocation, ColFromCategories, ColFromDatabase, ColFromKey); err != nil {
			badKeys = append(badKeys, Offender{Line: line, Detail: err.Error()})
			continue
		}
		if row.To, err = side(rec, pos, ColToName, ColToProduct, ColToLocation, ColToCategories, ColToDatabase, ColToKey); err != nil {
			badKeys = append(badKeys, Offender{Line: line, Detail: err.Error()})
			continue
		}
		if ft := strings.TrimSpace(cell(rec, pos[ColFlowType])); ft != "" {
			row.FlowType = inventory.ExchangeType(strings.ToLower(ft))
			if !row.FlowType.Valid() {
				badTypes = append(badTypes, Offender{Line: line, Detail: fmt.Sprintf("invalid flow type %q", ft)})
				continue
			}
		}
		for s, col := range scen {
			raw := strings.TrimSpace(cell(rec, col))
			if raw == "" {
				continue
			}
			v, perr := strconv.ParseFloat(raw, 64)
			if perr != nil || math.IsInf(v, 0) {
				nonNumeric = append(nonNumeric, Offender{Line: line, Detail: fmt.Sprintf("%s = %q", t.Scenarios[s], raw)})
				continue
			}
			row.Values[s] = v
		}
		t.Rows = append(t.Rows, row)
	}
	if len(badKeys) > 0 {
		return nil, newOffenderError(inventory.ErrInvalidKey, badKeys)
	}
	if len(badTypes) > 0 {
		return nil, newOffenderError(ErrInvalidFlowType, badTypes)
	}
	if len(nonNumeric) > 0 {
		return nil, newOffenderError(ErrExchangeDataNonNumeric, nonNumeric)
	}

	return t, nil
}

func side(rec []string, pos map[string]int, name, product, location, categories, database, key string) (Side, error) {
	s := Side{
		Name:             strings.TrimSpace(cell(rec, pos[name])),
		ReferenceProduct: strings.TrimSpace(cell(rec, pos[product])),
		Location:         strings.TrimSpace(cell(rec, pos[location])),
		Database:         strings.TrimSpace(cell(rec, pos[database])),
	}
	if raw := strings.TrimSpace(cell(rec, pos[categories])); raw != "" {
		cats, err := inventory.ParseTuple(raw)
		if err != nil {
			return Side{}, fmt.Errorf("%s: %w", categories, err)
		}
		s.Categories = cats
	}
	if raw := strings.TrimSpace(cell(rec, pos[key])); raw != "" {
		k, err := inventory.ParseKey(raw)
		if err != nil {
			return Side{}, fmt.Errorf("%s: %w", key, err)
		}
		s.Key = k
	}

	return s, nil
}

func isRequired(h string) bool {
	for _, c := range Columns {
		if c == h {
			return true
		}
	}

	return false
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}

	return ""
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}
