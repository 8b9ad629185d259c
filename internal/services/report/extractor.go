package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"StockCast/internal/domain/models"
)

// MenuItemSection is the header that opens the per-item sales table.
const MenuItemSection = "SALES BY MENU ITEM"

// Result is the outcome of extracting one report.
type Result struct {
	Records      []models.SalesRecord
	Skipped      int
	SectionFound bool
}

// Empty reports whether the report yielded no usable data for its date.
func (r Result) Empty() bool { return len(r.Records) == 0 }

// Extractor turns one raw daily report into sales records.
type Extractor struct {
	section string
}

func NewExtractor() *Extractor {
	return &Extractor{section: MenuItemSection}
}

// Extract decodes payload according to format and reads the menu item section.
// Unparseable rows are counted in Result.Skipped; only an undecodable container
// is returned as an error.
func (e *Extractor) Extract(payload []byte, date time.Time, format models.ReportFormat) (Result, error) {
	rows, err := decodeRows(payload, format)
	if err != nil {
		return Result{}, err
	}
	return e.ExtractRows(rows, date), nil
}

// ExtractRows scans already-decoded rows.
func (e *Extractor) ExtractRows(rows [][]string, date time.Time) Result {
	var res Result
	day := models.Day(date)

	start := -1
	for i, row := range rows {
		if first, ok := firstCell(row); ok && strings.EqualFold(first, e.section) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return res
	}
	res.SectionFound = true

	for _, row := range rows[start:] {
		if isBlank(row) || isSectionHeader(row) {
			break
		}
		rec, ok := parseRow(row, day)
		if !ok {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

func decodeRows(payload []byte, format models.ReportFormat) ([][]string, error) {
	switch format {
	case models.ReportCSV:
		r := csv.NewReader(bytes.NewReader(payload))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		r.TrimLeadingSpace = true
		rows, err := r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("decode csv: %w", err)
		}
		return rows, nil
	case models.ReportXLSX:
		f, err := excelize.OpenReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer f.Close()
		rows, err := f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("read xlsx rows: %w", err)
		}
		return rows, nil
	default:
		return nil, errors.New("unsupported report format: " + string(format))
	}
}

func parseRow(row []string, day time.Time) (models.SalesRecord, bool) {
	if len(row) < 3 {
		return models.SalesRecord{}, false
	}
	name := strings.TrimSpace(row[0])
	if name == "" {
		return models.SalesRecord{}, false
	}
	sales, err := ParseAmount(row[1])
	if err != nil || sales.IsNegative() {
		return models.SalesRecord{}, false
	}
	qty, err := ParseQuantity(row[2])
	if err != nil || qty < 0 {
		return models.SalesRecord{}, false
	}
	return models.SalesRecord{Date: day, ItemName: name, Quantity: qty, Sales: sales}, true
}

// ParseAmount parses a currency cell such as "$1,234.50" or "12.50 €".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) || r == ',' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.New("empty amount")
	}
	return decimal.NewFromString(s)
}

// ParseQuantity parses an integer cell, truncating any fractional part.
func ParseQuantity(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, errors.New("empty quantity")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return int(d.IntPart()), nil
}

func firstCell(row []string) (string, bool) {
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			return c, true
		}
	}
	return "", false
}

func isBlank(row []string) bool {
	_, ok := firstCell(row)
	return !ok
}

// isSectionHeader matches rows holding a single text label in any case,
// e.g. "VOIDS" or "Sales by Category". Labels with digits or currency
// symbols are data, not headers.
func isSectionHeader(row []string) bool {
	var label string
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			if label != "" {
				return false
			}
			label = c
		}
	}
	if label == "" {
		return false
	}
	hasLetter := false
	for _, r := range label {
		switch {
		case unicode.IsDigit(r), unicode.Is(unicode.Sc, r):
			return false
		case unicode.IsLetter(r):
			hasLetter = true
		}
	}
	return hasLetter
}
