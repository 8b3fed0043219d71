package rpc_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logrelay/logrelay/internal/diag"
	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/internal/rpc"
	"github.com/logrelay/logrelay/internal/sourcemgr"
	"github.com/logrelay/logrelay/internal/store"
	"github.com/logrelay/logrelay/internal/store/sqlite"
)

func newDispatcher(t *testing.T) (*rpc.Dispatcher, store.Store) {
	t.Helper()
	st, err := sqlite.New(sqlite.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	sources := sourcemgr.New(st, diag.NewRegistry())
	return rpc.New(st, sources, diag.NewRegistry()), st
}

func call(t *testing.T, d *rpc.Dispatcher, method string, params any) *rpc.Response {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		require.NoError(t, err)
		raw = b
	}
	req := rpc.Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: method, Params: raw}
	reqBytes, err := json.Marshal(req)
	require.NoError(t, err)
	return d.Dispatch(context.Background(), reqBytes)
}

func TestInitializeReturnsServerInfo(t *testing.T) {
	d, _ := newDispatcher(t)
	resp := call(t, d, "initialize", nil)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)
	m := resp.Result.(map[string]any)
	assert.Equal(t, "logrelay", m["serverInfo"].(map[string]any)["name"])
}

func TestNotificationProducesNoResponse(t *testing.T) {
	d, _ := newDispatcher(t)
	req := rpc.Request{JSONRPC: "2.0", Method: "notifications/initialized"}
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	resp := d.Dispatch(context.Background(), raw)
	assert.Nil(t, resp)
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	d, _ := newDispatcher(t)
	resp := call(t, d, "bogus/method", nil)
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeMethodNotFound, resp.Error.Code)
}

func TestToolsListIncludesQueryLogs(t *testing.T) {
	d, _ := newDispatcher(t)
	resp := call(t, d, "tools/list", nil)
	require.Nil(t, resp.Error)
	m := resp.Result.(map[string]any)
	tools := m["tools"].([]any)
	var names []string
	for _, tool := range tools {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.Contains(t, names, "query_logs")
	assert.Contains(t, names, "add_file_source")
}

func TestToolsCallUnknownToolIsInvalidParams(t *testing.T) {
	d, _ := newDispatcher(t)
	resp := call(t, d, "tools/call", map[string]any{"name": "bogus_tool", "arguments": map[string]any{}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)
}

func TestToolsCallQueryLogsRoundTrip(t *testing.T) {
	d, st := newDispatcher(t)
	_, err := st.Insert(context.Background(), recordFor("client", "net", "hello"))
	require.NoError(t, err)

	resp := call(t, d, "tools/call", map[string]any{
		"name":      "query_logs",
		"arguments": map[string]any{"all_sessions": true},
	})
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]any)
	assert.False(t, result["isError"].(bool))
}

func TestToolsCallAddAndListAndRemoveSource(t *testing.T) {
	d, _ := newDispatcher(t)
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	addResp := call(t, d, "tools/call", map[string]any{
		"name":      "add_file_source",
		"arguments": map[string]any{"path": path, "display_name": "app"},
	})
	require.Nil(t, addResp.Error)
	addResult := addResp.Result.(map[string]any)
	require.False(t, addResult["isError"].(bool))

	listResp := call(t, d, "tools/call", map[string]any{"name": "list_sources", "arguments": map[string]any{}})
	require.Nil(t, listResp.Error)

	var content []map[string]any
	listResult := listResp.Result.(map[string]any)
	raw := listResult["content"].([]any)[0].(map[string]any)["text"].(string)
	require.NoError(t, json.Unmarshal([]byte(raw), &content))
	require.Len(t, content, 1)

	removeResp := call(t, d, "tools/call", map[string]any{
		"name":      "remove_source",
		"arguments": map[string]any{"id": content[0]["id"]},
	})
	require.Nil(t, removeResp.Error)
}

func TestResourcesReadCurrentSession(t *testing.T) {
	d, st := newDispatcher(t)
	_, err := st.Insert(context.Background(), recordFor("client", "net", "hello"))
	require.NoError(t, err)

	resp := call(t, d, "resources/read", map[string]any{"uri": "logs://current-session"})
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]any)
	contents := result["contents"].([]any)
	require.Len(t, contents, 1)

	var payload map[string]any
	raw := contents[0].(map[string]any)["text"].(string)
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	assert.Equal(t, "", payload["session_id"])
	assert.EqualValues(t, 1, payload["count"])
	logs := payload["logs"].([]any)
	require.Len(t, logs, 1)
	assert.Equal(t, "hello", logs[0].(map[string]any)["message"])
}

func TestResourcesReadUnknownURI(t *testing.T) {
	d, _ := newDispatcher(t)
	resp := call(t, d, "resources/read", map[string]any{"uri": "logs://nope"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)
}

func recordFor(source, category, message string) model.Record {
	return model.Record{Source: source, Category: category, Message: message}
}
