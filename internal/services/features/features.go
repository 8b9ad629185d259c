package features

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"StockCast/internal/domain/models"
)

const (
	ColDayOfWeek = "day_of_week"
	ColMonth     = "month"
	ColWeekend   = "is_weekend"
	ColPrevDay   = "qty_prev_day"
	ColPrevWeek  = "qty_prev_week"
)

// Group is a keyword-defined bucket of items.
type Group struct {
	Name    string
	Keyword string
}

// Config selects rolling windows, lags and groups.
type Config struct {
	Windows    []int
	Lags       []int
	FillWindow int
	Groups     []Group
}

func DefaultConfig() Config {
	return Config{
		Windows:    []int{3, 7, 14},
		Lags:       []int{1, 7},
		FillWindow: 7,
		Groups: []Group{
			{Name: "burgers", Keyword: "burger"},
			{Name: "combos", Keyword: "combo"},
			{Name: "meals", Keyword: "meal"},
		},
	}
}

// Engine derives per-row feature vectors from a dataset. It holds no state
// between calls.
type Engine struct {
	cfg  Config
	base []string
}

func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if len(cfg.Windows) == 0 {
		cfg.Windows = def.Windows
	}
	if len(cfg.Lags) == 0 {
		cfg.Lags = def.Lags
	}
	if cfg.FillWindow <= 0 {
		cfg.FillWindow = def.FillWindow
	}
	if cfg.Groups == nil {
		cfg.Groups = def.Groups
	}

	base := []string{ColDayOfWeek, ColMonth, ColWeekend}
	for _, w := range cfg.Windows {
		base = append(base, avgColumn(w))
	}
	for _, w := range cfg.Windows {
		base = append(base, stdColumn(w))
	}
	for _, l := range cfg.Lags {
		base = append(base, lagColumn(l))
	}
	return &Engine{cfg: cfg, base: base}
}

// BaseColumns lists the calendar, rolling and lag columns in matrix order.
func (e *Engine) BaseColumns() []string {
	out := make([]string, len(e.base))
	copy(out, e.base)
	return out
}

func avgColumn(w int) string { return fmt.Sprintf("qty_%dday_avg", w) }
func stdColumn(w int) string { return fmt.Sprintf("qty_%dday_std", w) }

func lagColumn(l int) string {
	switch l {
	case 1:
		return ColPrevDay
	case 7:
		return ColPrevWeek
	default:
		return fmt.Sprintf("qty_lag_%d", l)
	}
}

// GroupMeanColumn and GroupStdColumn name the per-group feature pair.
func GroupMeanColumn(group string) string { return "group_" + group + "_mean" }
func GroupStdColumn(group string) string  { return "group_" + group + "_std" }

// GroupsFor returns the groups whose keyword occurs in item, case-insensitively.
func (e *Engine) GroupsFor(item string) []Group {
	lower := strings.ToLower(item)
	var out []Group
	for _, g := range e.cfg.Groups {
		if strings.Contains(lower, strings.ToLower(g.Keyword)) {
			out = append(out, g)
		}
	}
	return out
}

// ItemFeatures is the filled feature matrix of one item, rows in date order.
type ItemFeatures struct {
	Item    string
	Columns []string
	Dates   []time.Time
	X       [][]float64
	Y       []float64
}

// Validate checks the matrix is complete and aligned with the target.
func (f *ItemFeatures) Validate() error {
	if len(f.X) != len(f.Y) || len(f.X) != len(f.Dates) {
		return fmt.Errorf("%w: %d feature rows for %d targets", models.ErrFeatureIntegrityViolation, len(f.X), len(f.Y))
	}
	for i, row := range f.X {
		if len(row) != len(f.Columns) {
			return fmt.Errorf("%w: row %d has %d values for %d columns", models.ErrFeatureIntegrityViolation, i, len(row), len(f.Columns))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: column %s undefined at row %d", models.ErrFeatureIntegrityViolation, f.Columns[j], i)
			}
		}
	}
	return nil
}

type groupStat struct {
	mean float64
	std  float64
}

// Set is the result of one derivation pass over a dataset.
type Set struct {
	engine      *Engine
	items       map[string]*ItemFeatures
	order       []string
	columnMeans map[string]float64
	groupLatest map[string]groupStat
}

// Derive computes features for every item of ds. The result depends only on ds.
func (e *Engine) Derive(ds *models.HistoricalDataset) *Set {
	set := &Set{
		engine:      e,
		items:       make(map[string]*ItemFeatures),
		columnMeans: make(map[string]float64),
		groupLatest: make(map[string]groupStat),
	}
	if ds == nil || ds.Len() == 0 {
		return set
	}

	items := ds.Items()
	groupByDate := e.groupStats(ds, items)
	for name, byDate := range groupByDate {
		set.groupLatest[name] = latestStat(byDate)
	}

	// Rows keep NaN holes until every item is built so that the dataset-wide
	// column means cover all defined values.
	for _, item := range items {
		series := ds.ItemSeries(item)
		qty := make([]float64, len(series))
		dates := make([]time.Time, len(series))
		for i, r := range series {
			qty[i] = float64(r.Quantity)
			dates[i] = r.Date
		}

		cols := e.BaseColumns()
		groups := e.GroupsFor(item)
		for _, g := range groups {
			cols = append(cols, GroupMeanColumn(g.Name), GroupStdColumn(g.Name))
		}

		X := make([][]float64, len(series))
		base := e.seriesColumns(qty)
		for i := range series {
			row := make([]float64, 0, len(cols))
			row = append(row, calendar(dates[i])...)
			for _, col := range base {
				row = append(row, col[i])
			}
			for _, g := range groups {
				st, ok := groupByDate[g.Name][dates[i].Unix()]
				if !ok {
					st = groupStat{mean: math.NaN(), std: math.NaN()}
				}
				row = append(row, st.mean, st.std)
			}
			X[i] = row
		}

		set.items[item] = &ItemFeatures{Item: item, Columns: cols, Dates: dates, X: X, Y: qty}
		set.order = append(set.order, item)
	}

	set.computeColumnMeans()
	for _, f := range set.items {
		for _, row := range f.X {
			for j, v := range row {
				if math.IsNaN(v) {
					row[j] = set.columnMean(f.Columns[j])
				}
			}
		}
	}
	return set
}

// seriesColumns returns the rolling and lag columns over qty in BaseColumns
// order (calendar excluded), holes filled from each column's trailing window.
func (e *Engine) seriesColumns(qty []float64) [][]float64 {
	var cols [][]float64
	for _, w := range e.cfg.Windows {
		cols = append(cols, rollingMean(qty, w))
	}
	for _, w := range e.cfg.Windows {
		cols = append(cols, rollingStd(qty, w))
	}
	for _, l := range e.cfg.Lags {
		cols = append(cols, lag(qty, l))
	}
	for i, c := range cols {
		cols[i] = fillFromRolling(c, e.cfg.FillWindow)
	}
	return cols
}

func (e *Engine) groupStats(ds *models.HistoricalDataset, items []string) map[string]map[int64]groupStat {
	out := make(map[string]map[int64]groupStat)
	for _, g := range e.cfg.Groups {
		byDate := make(map[int64][]float64)
		member := false
		for _, item := range items {
			if !strings.Contains(strings.ToLower(item), strings.ToLower(g.Keyword)) {
				continue
			}
			member = true
			for _, r := range ds.ItemSeries(item) {
				k := r.Date.Unix()
				byDate[k] = append(byDate[k], float64(r.Quantity))
			}
		}
		if !member {
			continue
		}
		stats := make(map[int64]groupStat, len(byDate))
		for k, vals := range byDate {
			stats[k] = groupStat{mean: mean(vals), std: sampleStd(vals)}
		}
		out[g.Name] = stats
	}
	return out
}

func latestStat(byDate map[int64]groupStat) groupStat {
	var latest int64
	first := true
	for k := range byDate {
		if first || k > latest {
			latest, first = k, false
		}
	}
	if first {
		return groupStat{mean: math.NaN(), std: math.NaN()}
	}
	return byDate[latest]
}

func (s *Set) computeColumnMeans() {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, item := range s.order {
		f := s.items[item]
		for _, row := range f.X {
			for j, v := range row {
				if math.IsNaN(v) {
					continue
				}
				sums[f.Columns[j]] += v
				counts[f.Columns[j]]++
			}
		}
	}
	for col, n := range counts {
		s.columnMeans[col] = sums[col] / float64(n)
	}
}

// columnMean falls back to the dataset-wide mean, then to 0.
func (s *Set) columnMean(col string) float64 {
	if v, ok := s.columnMeans[col]; ok {
		return v
	}
	return 0
}

// Item returns the features of one item.
func (s *Set) Item(name string) (*ItemFeatures, bool) {
	f, ok := s.items[name]
	return f, ok
}

// Items lists items in sorted order.
func (s *Set) Items() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// ColumnMean returns the dataset-wide mean of col, 0 when col is never defined.
func (s *Set) ColumnMean(col string) float64 { return s.columnMean(col) }

// Vectors flattens the set into one FeatureVector per (item, date) row,
// ordered by item then date.
func (s *Set) Vectors() []models.FeatureVector {
	var out []models.FeatureVector
	for _, item := range s.order {
		f := s.items[item]
		for i, row := range f.X {
			vals := make([]float64, len(row))
			copy(vals, row)
			out = append(out, models.FeatureVector{ItemName: item, Date: f.Dates[i], Names: f.Columns, Values: vals})
		}
	}
	return out
}

// NextRow derives the feature row for date from a running quantity history.
// The history is extended with a provisional observation for date carrying
// its last value; group columns carry the latest observed group statistics.
// Values are returned in the order of columns.
func (s *Set) NextRow(item string, history []float64, date time.Time, columns []string) ([]float64, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: empty history for %s", models.ErrInsufficientHistory, item)
	}
	e := s.engine
	extended := make([]float64, len(history)+1)
	copy(extended, history)
	extended[len(history)] = history[len(history)-1]
	last := len(extended) - 1

	values := make(map[string]float64, len(columns))
	cal := calendar(date)
	values[ColDayOfWeek], values[ColMonth], values[ColWeekend] = cal[0], cal[1], cal[2]
	for i, col := range e.seriesColumns(extended) {
		values[e.base[3+i]] = col[last]
	}
	for _, g := range e.GroupsFor(item) {
		st, ok := s.groupLatest[g.Name]
		if !ok {
			continue
		}
		values[GroupMeanColumn(g.Name)] = st.mean
		values[GroupStdColumn(g.Name)] = st.std
	}

	row := make([]float64, len(columns))
	for i, col := range columns {
		v, ok := values[col]
		if !ok || math.IsNaN(v) {
			v = s.columnMean(col)
		}
		row[i] = v
	}
	return row, nil
}

// DeriveFeatures is the flat per-row form of Derive.
func (e *Engine) DeriveFeatures(ds *models.HistoricalDataset) []models.FeatureVector {
	return e.Derive(ds).Vectors()
}

func calendar(d time.Time) []float64 {
	dow := (int(d.Weekday()) + 6) % 7
	weekend := 0.0
	if dow >= 5 {
		weekend = 1
	}
	return []float64{float64(dow), float64(d.Month()), weekend}
}

func rollingMean(x []float64, w int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = mean(x[max(0, i-w+1) : i+1])
	}
	return out
}

func rollingStd(x []float64, w int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = sampleStd(x[max(0, i-w+1) : i+1])
	}
	return out
}

func lag(x []float64, l int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i-l >= 0 {
			out[i] = x[i-l]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// fillFromRolling replaces NaN entries with the rolling mean of the column's
// defined values over the trailing window.
func fillFromRolling(col []float64, w int) []float64 {
	out := make([]float64, len(col))
	for i, v := range col {
		if !math.IsNaN(v) {
			out[i] = v
			continue
		}
		out[i] = mean(col[max(0, i-w+1) : i+1])
	}
	return out
}

// mean ignores NaN values and returns NaN when none remain.
func mean(x []float64) float64 {
	defined := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) == 0 {
		return math.NaN()
	}
	return stat.Mean(defined, nil)
}

func sampleStd(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.StdDev(x, nil)
}
