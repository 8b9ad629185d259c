package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used in blob names and API payloads.
const DateLayout = "2006-01-02"

// SalesRecord is one (date, item) sales observation.
type SalesRecord struct {
	Date     time.Time       `json:"date"`
	ItemName string          `json:"item_name"`
	Quantity int             `json:"quantity"`
	Sales    decimal.Decimal `json:"sales"`
}

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type recordKey struct {
	date int64
	item string
}

// HistoricalDataset is an immutable, date-ordered set of sales records with at
// most one record per (date, item).
type HistoricalDataset struct {
	records []SalesRecord
	byItem  map[string][]int
	items   []string
	builtAt time.Time
}

// NewHistoricalDataset sorts records by date then item and sums duplicates
// sharing the same (date, item) pair.
func NewHistoricalDataset(records []SalesRecord, builtAt time.Time) *HistoricalDataset {
	merged := make(map[recordKey]int, len(records))
	out := make([]SalesRecord, 0, len(records))
	for _, r := range records {
		r.Date = Day(r.Date)
		k := recordKey{date: r.Date.Unix(), item: r.ItemName}
		if i, ok := merged[k]; ok {
			out[i].Quantity += r.Quantity
			out[i].Sales = out[i].Sales.Add(r.Sales)
			continue
		}
		merged[k] = len(out)
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ItemName < out[j].ItemName
	})

	ds := &HistoricalDataset{
		records: out,
		byItem:  make(map[string][]int),
		builtAt: builtAt,
	}
	for i, r := range out {
		if _, ok := ds.byItem[r.ItemName]; !ok {
			ds.items = append(ds.items, r.ItemName)
		}
		ds.byItem[r.ItemName] = append(ds.byItem[r.ItemName], i)
	}
	sort.Strings(ds.items)
	return ds
}

// Len returns the number of records.
func (d *HistoricalDataset) Len() int { return len(d.records) }

// BuiltAt returns the time the dataset was assembled.
func (d *HistoricalDataset) BuiltAt() time.Time { return d.builtAt }

// Records returns a copy of all records in date order.
func (d *HistoricalDataset) Records() []SalesRecord {
	out := make([]SalesRecord, len(d.records))
	copy(out, d.records)
	return out
}

// Items returns the distinct item names, sorted.
func (d *HistoricalDataset) Items() []string {
	out := make([]string, len(d.items))
	copy(out, d.items)
	return out
}

// ItemSeries returns the item's records in ascending date order.
func (d *HistoricalDataset) ItemSeries(item string) []SalesRecord {
	idx := d.byItem[item]
	out := make([]SalesRecord, 0, len(idx))
	for _, i := range idx {
		out = append(out, d.records[i])
	}
	return out
}

// MaxDate returns the latest date in the dataset, or the zero time when empty.
func (d *HistoricalDataset) MaxDate() time.Time {
	if len(d.records) == 0 {
		return time.Time{}
	}
	return d.records[len(d.records)-1].Date
}

// MeanQuantity returns the item's mean daily quantity, 0 when absent.
func (d *HistoricalDataset) MeanQuantity(item string) float64 {
	idx := d.byItem[item]
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += float64(d.records[i].Quantity)
	}
	return sum / float64(len(idx))
}

// Tail returns the item's last n records as parallel ascending series.
func (d *HistoricalDataset) Tail(item string, n int) HistoricalSeries {
	series := d.ItemSeries(item)
	if n > 0 && len(series) > n {
		series = series[len(series)-n:]
	}
	out := HistoricalSeries{
		ItemName:   item,
		Dates:      make([]string, 0, len(series)),
		Quantities: make([]int, 0, len(series)),
		Sales:      make([]float64, 0, len(series)),
	}
	for _, r := range series {
		out.Dates = append(out.Dates, r.Date.Format(DateLayout))
		out.Quantities = append(out.Quantities, r.Quantity)
		out.Sales = append(out.Sales, r.Sales.InexactFloat64())
	}
	return out
}

// HistoricalSeries is an item's recent history as parallel arrays.
type HistoricalSeries struct {
	ItemName   string    `json:"item_name"`
	Dates      []string  `json:"dates"`
	Quantities []int     `json:"quantities"`
	Sales      []float64 `json:"sales"`
}

// ReportBlob identifies one dated raw report in a report source.
type ReportBlob struct {
	Name   string
	Date   time.Time
	Format ReportFormat
}

// ReportFormat is the container format of a raw report payload.
type ReportFormat string

const (
	ReportCSV  ReportFormat = "csv"
	ReportXLSX ReportFormat = "xlsx"
)
