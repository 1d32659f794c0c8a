// Package plot turns the series of a rendered O3AS chart into export rows.
//
// Two plot types carry CSV support: the zonal-mean time series (tco3_zm),
// where rows are x-axis years, and the return-year box plot (tco3_return),
// where rows are regions.
package plot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/o3as/o3as-export-server/format"
	"github.com/tidwall/gjson"
)

const (
	ZonalMean  = "tco3_zm"
	ReturnYear = "tco3_return"

	// CategoryColumn holds the x value (year or region) of every row.
	CategoryColumn = "category"
)

var (
	ErrUnsupportedPlot = errors.New("plot has no csv support")
	ErrInvalidChart    = errors.New("invalid chart data")
)

// Chart is the series state of a rendered chart. A nil point is a gap.
type Chart struct {
	Series         [][]*float64
	SeriesX        [][]interface{}
	CategoryLabels []string
	SeriesNames    []string
}

// BuildTable lays out the chart as rows ready for format.GenerateCSV.
func BuildTable(plotID string, chart Chart) (format.Table, error) {
	switch plotID {
	case ZonalMean:
		return zonalMeanRows(chart), nil
	case ReturnYear:
		return returnYearRows(chart), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlot, plotID)
	}
}

func zonalMeanRows(chart Chart) format.Table {
	length := 0
	for _, xs := range chart.SeriesX {
		if len(xs) > length {
			length = len(xs)
		}
	}

	table := make(format.Table, 0, length)
	for line := 0; line < length; line++ {
		r := format.NewRecord()
		r.Set(CategoryColumn, at(chart.SeriesX, 0, line))
		for i, name := range chart.SeriesNames {
			r.Set(name, point(chart.Series, i, line))
		}
		table = append(table, r)
	}
	return table
}

func returnYearRows(chart Chart) format.Table {
	table := make(format.Table, 0, len(chart.CategoryLabels))
	for region, label := range chart.CategoryLabels {
		r := format.NewRecord()
		r.Set(CategoryColumn, label)
		for i, name := range chart.SeriesNames {
			// the box series of the box plot has no name
			if name == "" {
				continue
			}
			r.Set(name, point(chart.Series, i, region))
		}
		table = append(table, r)
	}
	return table
}

func at(values [][]interface{}, i, j int) interface{} {
	if i >= len(values) || j >= len(values[i]) {
		return nil
	}
	return values[i][j]
}

// point returns the value rounded to two decimals. Zero stays a bare 0 and
// gaps stay empty.
func point(series [][]*float64, i, j int) interface{} {
	if i >= len(series) || j >= len(series[i]) || series[i][j] == nil {
		return nil
	}
	v := *series[i][j]
	if v == 0 {
		return 0
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FileName is the download name for a plot titled title.
func FileName(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "plot"
	}
	return title + ".csv"
}

// ParseChart reads a chart from its JSON form:
//
//	{"series": [[1.5, null]], "seriesX": [[1960, 1961]],
//	 "categoryLabels": ["Antarctic(Oct)"], "seriesNames": ["ERA5"]}
func ParseChart(text string) (Chart, error) {
	if !gjson.Valid(text) {
		return Chart{}, fmt.Errorf("%w: not valid JSON", ErrInvalidChart)
	}
	doc := gjson.Parse(text)
	if !doc.IsObject() {
		return Chart{}, fmt.Errorf("%w: expected an object", ErrInvalidChart)
	}

	var chart Chart
	for _, s := range doc.Get("series").Array() {
		points := make([]*float64, 0)
		for _, p := range s.Array() {
			if p.Type != gjson.Number {
				points = append(points, nil)
				continue
			}
			v := p.Float()
			points = append(points, &v)
		}
		chart.Series = append(chart.Series, points)
	}
	for _, xs := range doc.Get("seriesX").Array() {
		values := make([]interface{}, 0)
		for _, x := range xs.Array() {
			values = append(values, format.ValueOf(x))
		}
		chart.SeriesX = append(chart.SeriesX, values)
	}
	for _, label := range doc.Get("categoryLabels").Array() {
		chart.CategoryLabels = append(chart.CategoryLabels, label.String())
	}
	for _, name := range doc.Get("seriesNames").Array() {
		chart.SeriesNames = append(chart.SeriesNames, name.String())
	}

	if len(chart.SeriesNames) > len(chart.Series) {
		return Chart{}, fmt.Errorf("%w: %d series names for %d series", ErrInvalidChart, len(chart.SeriesNames), len(chart.Series))
	}
	return chart, nil
}
