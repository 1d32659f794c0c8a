package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/o3as/o3as-export-server/export"
	"github.com/o3as/o3as-export-server/format"
	"github.com/o3as/o3as-export-server/plot"
	"github.com/o3as/o3as-export-server/store"
	"github.com/tidwall/gjson"
)

const noDatabase = "Database connection not established"

func (s *MCPServer) handleToolsList(req *Request) *Response {
	columnList := map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "string"},
	}

	tools := []map[string]interface{}{
		{
			"name":        "generate_csv",
			"description": "Convert records into quoted CSV. The header is the union of record keys in first-seen order",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"records": map[string]interface{}{
						"type":        []string{"array", "string"},
						"description": "Array of flat objects, or the same array serialized as a JSON string",
					},
					"include": columnList,
					"exclude": columnList,
					"strict": map[string]interface{}{
						"type":        "boolean",
						"default":     false,
						"description": "Reject nested objects and arrays instead of writing them as JSON",
					},
				},
				"required": []string{"records"},
			},
		},
		{
			"name":        "plot_csv",
			"description": "Export the series of a rendered O3AS chart as CSV",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"plot_id": map[string]interface{}{
						"type": "string",
						"enum": []string{plot.ZonalMean, plot.ReturnYear},
					},
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Plot title, used for the file name",
					},
					"chart": map[string]interface{}{
						"type":        "object",
						"description": "Chart state with series, seriesX, categoryLabels and seriesNames",
					},
				},
				"required": []string{"plot_id", "chart"},
			},
		},
		{
			"name":        "query",
			"description": "Run a read-only SQL query against the O3AS database",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The SQL query to execute",
					},
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"json", "table", "csv", "markdown"},
						"default":     "table",
						"description": "Output format for results",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			"name":        "schema",
			"description": "Get the schema of a database table",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"table": map[string]interface{}{
						"type":        "string",
						"description": "The name of the table",
					},
				},
				"required": []string{"table"},
			},
		},
		{
			"name":        "tables",
			"description": "List all tables in the database",
			"inputSchema": map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": tools,
		},
	}
}

func (s *MCPServer) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "Invalid params")
	}

	var resp *Response
	switch params.Name {
	case "generate_csv":
		resp = s.handleGenerateCSVTool(req.ID, params.Arguments)
	case "plot_csv":
		resp = s.handlePlotCSVTool(req.ID, params.Arguments)
	case "query":
		resp = s.handleQueryTool(ctx, req.ID, params.Arguments)
	case "schema":
		resp = s.handleSchemaTool(ctx, req.ID, params.Arguments)
	case "tables":
		resp = s.handleTablesTool(ctx, req.ID)
	default:
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("Unknown tool: %s", params.Name))
	}

	if s.metrics != nil {
		outcome := "success"
		if resp.Error != nil {
			outcome = "error"
		}
		s.metrics.ToolCalls.WithLabelValues(params.Name, outcome).Inc()
	}
	return resp
}

func (s *MCPServer) handleGenerateCSVTool(id interface{}, args json.RawMessage) *Response {
	records := gjson.GetBytes(args, "records")

	var payload []byte
	switch {
	case records.Type == gjson.String:
		payload = []byte(records.String())
	case records.IsArray():
		payload = []byte(records.Raw)
	default:
		return errorResponse(id, codeInvalidParams, "records must be an array or a JSON string")
	}

	opts := export.Options{
		Include: stringList(gjson.GetBytes(args, "include")),
		Exclude: stringList(gjson.GetBytes(args, "exclude")),
		Strict:  gjson.GetBytes(args, "strict").Bool(),
	}

	res, err := s.exporter.Records(payload, opts)
	if err != nil {
		return exportError(id, err)
	}

	return textResult(id,
		fmt.Sprintf("Generated CSV with %d columns and %d rows%s.", len(res.Columns), res.Rows, cachedNote(res.Cached)),
		res.CSV,
	)
}

func (s *MCPServer) handlePlotCSVTool(id interface{}, args json.RawMessage) *Response {
	plotID := gjson.GetBytes(args, "plot_id").String()
	if plotID == "" {
		return errorResponse(id, codeInvalidParams, "plot_id parameter is required")
	}
	chart := gjson.GetBytes(args, "chart")
	if !chart.IsObject() {
		return errorResponse(id, codeInvalidParams, "chart parameter must be an object")
	}

	res, err := s.exporter.Plot(plotID, gjson.GetBytes(args, "title").String(), []byte(chart.Raw))
	if err != nil {
		return exportError(id, err)
	}

	return textResult(id,
		fmt.Sprintf("Exported %s as %s (%d rows%s).", plotID, res.FileName, res.Rows, cachedNote(res.Cached)),
		res.CSV,
	)
}

func (s *MCPServer) handleQueryTool(ctx context.Context, id interface{}, args json.RawMessage) *Response {
	if s.db == nil {
		return errorResponse(id, codeInternalError, noDatabase)
	}

	query := gjson.GetBytes(args, "query").String()
	if query == "" {
		return errorResponse(id, codeInvalidParams, "Query parameter is required")
	}
	if store.MultipleStatements(query) {
		return errorResponse(id, codeInvalidParams, "Multiple statements are not allowed; the query tool runs a single read-only statement")
	}
	if !store.IsReadOnly(query) {
		return errorResponse(id, codeInvalidParams,
			fmt.Sprintf("%s statements are not allowed; the query tool is read-only", store.Statement(query)))
	}

	// Get format preference
	outputFormat := gjson.GetBytes(args, "format").String()
	if outputFormat == "" {
		outputFormat = "table"
	}

	start := time.Now()
	cached := false

	var results format.Table
	if s.queryCache != nil {
		results, cached = s.queryCache.Get(query)
		if s.metrics != nil {
			s.metrics.ObserveCache(cached)
		}
	}

	if !cached {
		var err error
		results, err = s.db.Query(ctx, query)
		if s.metrics != nil {
			s.metrics.QueryLatency.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			return errorResponse(id, codeInternalError, fmt.Sprintf("Query failed: %v", err))
		}
		if s.queryCache != nil {
			s.queryCache.Set(query, results)
		}
	} else {
		s.logger.Debug("cache hit for query", "query", query)
	}

	formattedOutput, err := s.formatResults(results, outputFormat)
	if err != nil {
		return errorResponse(id, codeInternalError, fmt.Sprintf("Formatting failed: %v", err))
	}

	return textResult(id,
		fmt.Sprintf("Query executed in %dms%s. %d rows returned.",
			time.Since(start).Milliseconds(), cachedNote(cached), len(results)),
		formattedOutput,
	)
}

func (s *MCPServer) handleSchemaTool(ctx context.Context, id interface{}, args json.RawMessage) *Response {
	if s.db == nil {
		return errorResponse(id, codeInternalError, noDatabase)
	}

	table := gjson.GetBytes(args, "table").String()
	if table == "" {
		return errorResponse(id, codeInvalidParams, "Table parameter is required")
	}

	schema, err := s.db.Schema(ctx, table)
	if err != nil {
		return errorResponse(id, codeInternalError, fmt.Sprintf("Failed to get schema: %v", err))
	}

	columns := format.Columns(schema)
	return textResult(id,
		fmt.Sprintf("Schema for table '%s':", table),
		format.NewTableFormatter(columns, schema).Render(),
	)
}

func (s *MCPServer) handleTablesTool(ctx context.Context, id interface{}) *Response {
	if s.db == nil {
		return errorResponse(id, codeInternalError, noDatabase)
	}

	tables, err := s.db.Tables(ctx)
	if err != nil {
		return errorResponse(id, codeInternalError, fmt.Sprintf("Failed to get tables: %v", err))
	}

	var tableList strings.Builder
	for _, table := range tables {
		fmt.Fprintf(&tableList, "- %s\n", table)
	}

	return textResult(id,
		fmt.Sprintf("Found %d tables:", len(tables)),
		tableList.String(),
	)
}

func (s *MCPServer) formatResults(results format.Table, outputFormat string) (string, error) {
	columns := format.Columns(results)

	switch outputFormat {
	case "csv":
		res, err := s.exporter.Table(export.KindQuery, results, export.Options{})
		return res.CSV, err
	case "table":
		if len(results) == 0 {
			return "No results", nil
		}
		return format.NewTableFormatter(columns, results).Render(), nil
	case "markdown":
		if len(results) == 0 {
			return "No results", nil
		}
		return format.FormatMarkdown(columns, results), nil
	default:
		return format.FormatJSON(columns, results)
	}
}

func exportError(id interface{}, err error) *Response {
	if export.IsInputError(err) {
		return errorResponse(id, codeInvalidParams, err.Error())
	}
	return errorResponse(id, codeInternalError, err.Error())
}

// stringList reads a list of column names, dropping blank ones.
func stringList(r gjson.Result) []string {
	var out []string
	for _, v := range r.Array() {
		if name := strings.TrimSpace(v.String()); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func cachedNote(cached bool) string {
	if cached {
		return " (cached)"
	}
	return ""
}
