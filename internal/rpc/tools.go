package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/logrelay/logrelay/internal/model"
)

// toolDescriptor mirrors the MCP tool-listing shape: name, a short
// description, and a JSON Schema for its input.
type toolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

var toolDescriptors = []toolDescriptor{
	{Name: "query_logs", Description: "Query stored log records by source, severity, category, time range, and session.", InputSchema: filterSchema(false)},
	{Name: "search_logs", Description: "Full-text search log message bodies, further restricted by the same filters as query_logs.", InputSchema: filterSchema(true)},
	{Name: "tail_logs", Description: "Return the most recent log records for a source.", InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source":       map[string]any{"type": "string"},
			"count":        map[string]any{"type": "integer"},
			"session_id":   map[string]any{"type": "string"},
			"instance_id":  map[string]any{"type": "string"},
			"all_sessions": map[string]any{"type": "boolean"},
		},
	}},
	{Name: "get_stats", Description: "Compute aggregate statistics, optionally scoped to a source and a time window.", InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source": map[string]any{"type": "string"},
			"since":  map[string]any{"type": "number"},
		},
	}},
	{Name: "get_categories", Description: "List distinct categories seen for a source.", InputSchema: map[string]any{
		"type":       "object",
		"properties": map[string]any{"source": map[string]any{"type": "string"}},
	}},
	{Name: "get_sessions", Description: "List session summaries for a source, most recent first.", InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source": map[string]any{"type": "string"},
			"limit":  map[string]any{"type": "integer"},
		},
	}},
	{Name: "clear_logs", Description: "Delete records for a source, optionally only those before a given emit time.", InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source":           map[string]any{"type": "string"},
			"before_emit_time": map[string]any{"type": "number"},
		},
	}},
	{Name: "add_file_source", Description: "Begin tailing a file as a new log source.", InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":         map[string]any{"type": "string"},
			"display_name": map[string]any{"type": "string"},
		},
		"required": []string{"path"},
	}},
	{Name: "remove_source", Description: "Stop and forget a file-tail source by id.", InputSchema: map[string]any{
		"type":       "object",
		"properties": map[string]any{"id": map[string]any{"type": "string"}},
		"required":   []string{"id"},
	}},
	{Name: "list_sources", Description: "List every known file-tail source and its running state.", InputSchema: map[string]any{
		"type": "object",
	}},
}

func filterSchema(withQuery bool) map[string]any {
	props := map[string]any{
		"source":           map[string]any{"type": "string"},
		"min_severity":     map[string]any{"type": "string"},
		"category":         map[string]any{"type": "string"},
		"emit_time_from":   map[string]any{"type": "number"},
		"emit_time_to":     map[string]any{"type": "number"},
		"session_id":       map[string]any{"type": "string"},
		"instance_id":      map[string]any{"type": "string"},
		"all_sessions":     map[string]any{"type": "boolean"},
		"limit":            map[string]any{"type": "integer"},
		"offset":           map[string]any{"type": "integer"},
	}
	if withQuery {
		props["query"] = map[string]any{"type": "string"}
	}
	return map[string]any{"type": "object", "properties": props}
}

func (d *Dispatcher) registerTools() {
	d.methods["tools/list"] = d.handleToolsList
	d.methods["tools/call"] = d.handleToolsCall
}

func (d *Dispatcher) handleToolsList(ctx context.Context, params json.RawMessage) (any, *Error) {
	return map[string]any{"tools": toolDescriptors}, nil
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, params json.RawMessage) (any, *Error) {
	var call toolCallParams
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, invalidParams(err)
	}

	impl, ok := toolImpls[call.Name]
	if !ok {
		return nil, &Error{Code: CodeInvalidParams, Message: "unknown tool: " + call.Name}
	}

	result, err := impl(ctx, d, call.Arguments)
	if err != nil {
		return map[string]any{
			"content": []map[string]any{{"type": "text", "text": err.Error()}},
			"isError": true,
		}, nil
	}
	return toolResult(result), nil
}

func toolResult(v any) map[string]any {
	text, err := json.Marshal(v)
	if err != nil {
		text = []byte(`{}`)
	}
	return map[string]any{
		"content": []map[string]any{{"type": "text", "text": string(text)}},
		"isError": false,
	}
}

type toolImpl func(ctx context.Context, d *Dispatcher, args json.RawMessage) (any, error)

var toolImpls = map[string]toolImpl{
	"query_logs":      toolQueryLogs,
	"search_logs":     toolSearchLogs,
	"tail_logs":       toolTailLogs,
	"get_stats":       toolGetStats,
	"get_categories":  toolGetCategories,
	"get_sessions":    toolGetSessions,
	"clear_logs":      toolClearLogs,
	"add_file_source": toolAddFileSource,
	"remove_source":   toolRemoveSource,
	"list_sources":    toolListSources,
}

type filterArgs struct {
	Source         string   `json:"source"`
	Query          string   `json:"query"`
	MinSeverity    string   `json:"min_severity"`
	Category       string   `json:"category"`
	EmitTimeFrom   *float64 `json:"emit_time_from"`
	EmitTimeTo     *float64 `json:"emit_time_to"`
	SessionID      string   `json:"session_id"`
	InstanceID     string   `json:"instance_id"`
	AllSessions    bool     `json:"all_sessions"`
	Limit          int      `json:"limit"`
	Offset         int      `json:"offset"`
}

func (a filterArgs) toFilter() model.Filter {
	f := model.Filter{
		Source:       a.Source,
		Category:     a.Category,
		EmitTimeFrom: a.EmitTimeFrom,
		EmitTimeTo:   a.EmitTimeTo,
		SessionID:    a.SessionID,
		HasSession:   a.SessionID != "",
		InstanceID:   a.InstanceID,
		HasInstance:  a.InstanceID != "",
		AllSessions:  a.AllSessions,
		Limit:        a.Limit,
		Offset:       a.Offset,
	}
	if a.MinSeverity != "" {
		f.MinSeverity = model.ParseSeverity(a.MinSeverity)
		f.HasSeverity = true
	}
	return f.Normalize()
}

func toolQueryLogs(ctx context.Context, d *Dispatcher, args json.RawMessage) (any, error) {
	var a filterArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}
	records, err := d.store.Query(ctx, a.toFilter())
	if err != nil {
		return nil, err
	}
	return model.ToJSONValues(records), nil
}

func toolSearchLogs(ctx context.Context, d *Dispatcher, args json.RawMessage) (any, error) {
	var a filterArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}
	records, err := d.store.Search(ctx, a.Query, a.toFilter())
	if err != nil {
		return nil, err
	}
	return model.ToJSONValues(records), nil
}

func toolTailLogs(ctx context.Context, d *Dispatcher, args json.RawMessage) (any, error) {
	var a struct {
		Source      string `json:"source"`
		Count       int    `json:"count"`
		SessionID   string `json:"session_id"`
		InstanceID  string `json:"instance_id"`
		AllSessions bool   `json:"all_sessions"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}
	if a.Count <= 0 {
		a.Count = 50
	}
	f := model.Filter{
		Source:      a.Source,
		SessionID:   a.SessionID,
		HasSession:  a.SessionID != "",
		InstanceID:  a.InstanceID,
		HasInstance: a.InstanceID != "",
		AllSessions: a.AllSessions,
		Limit:       a.Count,
	}.Normalize()
	records, err := d.store.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return model.ToJSONValues(records), nil
}

func toolGetStats(ctx context.Context, d *Dispatcher, args json.RawMessage) (any, error) {
	var a struct {
		Source string   `json:"source"`
		Since  *float64 `json:"since"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}
	return d.store.Stats(ctx, model.StatsFilter{Source: a.Source, Since: a.Since})
}

func toolGetCategories(ctx context.Context, d *Dispatcher, args json.RawMessage) (any, error) {
	var a struct {
		Source string `json:"source"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}
	return d.store.Categories(ctx, a.Source)
}

func toolGetSessions(ctx context.Context, d *Dispatcher, args json.RawMessage) (any, error) {
	var a struct {
		Source string `json:"source"`
		Limit  int    `json:"limit"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}
	if a.Limit <= 0 {
		a.Limit = 20
	}
	summaries, err := d.store.Sessions(ctx, a.Source)
	if err != nil {
		return nil, err
	}
	if len(summaries) > a.Limit {
		summaries = summaries[:a.Limit]
	}
	return summaries, nil
}

func toolClearLogs(ctx context.Context, d *Dispatcher, args json.RawMessage) (any, error) {
	var a struct {
		Source         string   `json:"source"`
		BeforeEmitTime *float64 `json:"before_emit_time"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	count, err := d.store.Clear(ctx, a.Source, a.BeforeEmitTime)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"deleted": count,
		"message": fmt.Sprintf("deleted %d record(s)", count),
	}, nil
}

func toolAddFileSource(ctx context.Context, d *Dispatcher, args json.RawMessage) (any, error) {
	var a struct {
		Path        string `json:"path"`
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return d.sources.AddFile(ctx, a.Path, a.DisplayName)
}

func toolRemoveSource(ctx context.Context, d *Dispatcher, args json.RawMessage) (any, error) {
	var a struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ok := d.sources.Remove(a.ID)
	return map[string]any{"removed": ok}, nil
}

func toolListSources(ctx context.Context, d *Dispatcher, args json.RawMessage) (any, error) {
	return d.sources.List(), nil
}
