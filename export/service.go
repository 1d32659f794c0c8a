// Package export produces CSV documents from records, charts and query
// results, memoizing them in the rendered-export cache.
package export

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"
	"github.com/o3as/o3as-export-server/cache"
	"github.com/o3as/o3as-export-server/format"
	"github.com/o3as/o3as-export-server/observability"
	"github.com/o3as/o3as-export-server/plot"
	"github.com/o3as/o3as-export-server/setops"
)

const (
	KindRecords = "records"
	KindPlot    = "plot"
	KindQuery   = "query"
)

// Options narrow the exported columns and enable the scalar check.
type Options struct {
	Include []string
	Exclude []string
	// Strict rejects nested objects and arrays instead of writing them as JSON.
	Strict bool
}

// key encodes the options for the cache. Nil and empty lists share a key
// because SelectColumns treats them alike.
func (o Options) key() string {
	b, _ := json.Marshal(struct {
		Include []string `json:"i,omitempty"`
		Exclude []string `json:"e,omitempty"`
		Strict  bool     `json:"s,omitempty"`
	}{o.Include, o.Exclude, o.Strict})
	return string(b)
}

type Result struct {
	CSV      string
	Columns  []string
	Rows     int
	FileName string
	Cached   bool
}

type Service struct {
	cache   *cache.Cache[Result]
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService wires the exporter. A nil cache disables memoization.
func NewService(c *cache.Cache[Result], metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{cache: c, metrics: metrics, logger: logger}
}

// Records exports a JSON array of objects.
func (s *Service) Records(payload []byte, opts Options) (Result, error) {
	key := cache.Key(KindRecords, append([]byte(opts.key()+"\x1d"), payload...))
	if res, ok := s.lookup(key); ok {
		return res, nil
	}

	table, err := format.ParseTable(string(payload))
	if err != nil {
		s.observe(KindRecords, Result{}, err)
		return Result{}, err
	}

	res, err := s.render(KindRecords, table, opts)
	if err != nil {
		return Result{}, err
	}
	res.FileName = "export.csv"
	s.store(key, res)
	return res, nil
}

// Plot exports the series of a rendered chart.
func (s *Service) Plot(plotID, title string, chart []byte) (Result, error) {
	key := cache.Key(KindPlot, []byte(plotID+"\x1d"+title+"\x1d"+string(chart)))
	if res, ok := s.lookup(key); ok {
		return res, nil
	}

	c, err := plot.ParseChart(string(chart))
	if err != nil {
		s.observe(KindPlot, Result{}, err)
		return Result{}, err
	}
	table, err := plot.BuildTable(plotID, c)
	if err != nil {
		s.observe(KindPlot, Result{}, err)
		return Result{}, err
	}

	res, err := s.render(KindPlot, table, Options{})
	if err != nil {
		return Result{}, err
	}
	res.FileName = plot.FileName(title)
	s.store(key, res)
	return res, nil
}

// Table exports rows that are already in memory, such as query results.
func (s *Service) Table(kind string, table format.Table, opts Options) (Result, error) {
	return s.render(kind, table, opts)
}

func (s *Service) render(kind string, table format.Table, opts Options) (Result, error) {
	if opts.Strict {
		if err := format.CheckScalars(table); err != nil {
			s.observe(kind, Result{}, err)
			return Result{}, err
		}
	}

	all := format.Columns(table)
	columns := format.SelectColumns(all, opts.Include, opts.Exclude)
	if !setops.Equal(all, columns) {
		s.logger.Debug("columns filtered", "kind", kind, "dropped", setops.Not(all, columns))
	}

	var sb strings.Builder
	if err := format.WriteCSV(&sb, columns, table); err != nil {
		s.observe(kind, Result{}, err)
		return Result{}, err
	}

	res := Result{
		CSV:     sb.String(),
		Columns: columns,
		Rows:    len(table),
	}
	s.observe(kind, res, nil)
	return res, nil
}

func (s *Service) lookup(key string) (Result, bool) {
	if s.cache == nil {
		return Result{}, false
	}
	res, ok := s.cache.Get(key)
	if s.metrics != nil {
		s.metrics.ObserveCache(ok)
	}
	if ok {
		res.Cached = true
	}
	return res, ok
}

func (s *Service) store(key string, res Result) {
	if s.cache != nil {
		s.cache.Set(key, res)
	}
}

func (s *Service) observe(kind string, res Result, err error) {
	if s.metrics != nil {
		s.metrics.ObserveExport(kind, res.Rows, res.CSV, err)
	}
	if err != nil {
		s.logger.Warn("export failed", "kind", kind, "error", err)
		return
	}
	s.logger.Debug("export generated", "kind", kind, "rows", res.Rows, "columns", len(res.Columns), "bytes", len(res.CSV))
}

// IsInputError reports whether err was caused by the caller's data rather
// than by the server.
func IsInputError(err error) bool {
	return errors.Is(err, format.ErrDeserialize) ||
		errors.Is(err, format.ErrNonScalar) ||
		errors.Is(err, plot.ErrInvalidChart) ||
		errors.Is(err, plot.ErrUnsupportedPlot)
}
