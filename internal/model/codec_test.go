package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logrelay/logrelay/internal/model"
)

func TestParseInboundDefaults(t *testing.T) {
	r, err := model.ParseInbound([]byte(`{"message":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, "unknown", r.Source)
	assert.Equal(t, "LogTemp", r.Category)
	assert.Equal(t, model.Log, r.Severity)
	assert.Equal(t, "hello", r.Message)
	assert.Zero(t, r.ID)
	assert.Zero(t, r.ReceiveTime)
}

func TestParseInboundFullPayload(t *testing.T) {
	raw := []byte(`{
		"source": "client",
		"category": "render",
		"verbosity": "Error",
		"message": "boom",
		"timestamp": 12.5,
		"frame": 42,
		"file": "main.cpp",
		"line": 7,
		"session_id": "s1",
		"instance_id": "i1"
	}`)
	r, err := model.ParseInbound(raw)
	require.NoError(t, err)
	assert.Equal(t, "client", r.Source)
	assert.Equal(t, "render", r.Category)
	assert.Equal(t, model.Error, r.Severity)
	assert.Equal(t, "boom", r.Message)
	assert.Equal(t, 12.5, r.EmitTime)
	require.NotNil(t, r.Frame)
	assert.EqualValues(t, 42, *r.Frame)
	assert.Equal(t, "main.cpp", r.File)
	require.NotNil(t, r.Line)
	assert.EqualValues(t, 7, *r.Line)
	assert.Equal(t, "s1", r.SessionID)
	assert.Equal(t, "i1", r.InstanceID)
}

func TestParseInboundIgnoresUnknownFields(t *testing.T) {
	r, err := model.ParseInbound([]byte(`{"message":"x","bogus_field":123}`))
	require.NoError(t, err)
	assert.Equal(t, "x", r.Message)
}

func TestParseInboundMalformedJSON(t *testing.T) {
	_, err := model.ParseInbound([]byte(`not json`))
	assert.Error(t, err)
}

func TestMarshalRecordEncodesVerbosityNameAndID(t *testing.T) {
	r := model.Record{
		ID:          1,
		Source:      "server",
		Category:    "net",
		Severity:    model.Warning,
		Message:     "retrying",
		EmitTime:    1.0,
		ReceiveTime: 2.0,
		SessionID:   "s1",
		InstanceID:  "i1",
	}
	raw, err := model.MarshalRecord(r)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"verbosity":"Warning"`)
	assert.Contains(t, string(raw), `"id":1`)
}

func TestToJSONValueOmitsAbsentOptionalFields(t *testing.T) {
	v := model.ToJSONValue(model.Record{Source: "s", Category: "c"})
	_, hasFrame := v["frame"]
	_, hasFile := v["file"]
	_, hasLine := v["line"]
	assert.False(t, hasFrame)
	assert.False(t, hasFile)
	assert.False(t, hasLine)
}
