package model

import "encoding/json"

// inboundRecord mirrors the ingest datagram/file-tail wire shape. Fields an emitter is not allowed to set (id, received_at) are
// simply absent from this type so they cannot be echoed back.
type inboundRecord struct {
	Source     string   `json:"source"`
	Category   string   `json:"category"`
	Verbosity  string   `json:"verbosity"`
	Message    string   `json:"message"`
	Timestamp  *float64 `json:"timestamp"`
	Frame      *int64   `json:"frame"`
	File       string   `json:"file"`
	Line       *int64   `json:"line"`
	SessionID  string   `json:"session_id"`
	InstanceID string   `json:"instance_id"`
}

// ParseInbound converts a raw ingest JSON payload into a Record. Missing
// required fields substitute the defaults in the ingest codec. receive_time and id
// are left zero; the store assigns them at insert.
func ParseInbound(raw []byte) (Record, error) {
	var in inboundRecord
	if err := json.Unmarshal(raw, &in); err != nil {
		return Record{}, err
	}

	r := Record{
		Source:     in.Source,
		Category:   in.Category,
		Severity:   ParseSeverity(in.Verbosity),
		Message:    in.Message,
		File:       in.File,
		SessionID:  in.SessionID,
		InstanceID: in.InstanceID,
		Frame:      in.Frame,
		Line:       in.Line,
	}
	if r.Source == "" {
		r.Source = "unknown"
	}
	if r.Category == "" {
		r.Category = "LogTemp"
	}
	if in.Timestamp != nil {
		r.EmitTime = *in.Timestamp
	}
	return r, nil
}

// outboundRecord is the JSON shape returned to RPC callers.
type outboundRecord struct {
	ID          int64   `json:"id"`
	Source      string  `json:"source"`
	Category    string  `json:"category"`
	Verbosity   string  `json:"verbosity"`
	Message     string  `json:"message"`
	Timestamp   float64 `json:"timestamp"`
	ReceiveTime float64 `json:"receive_time"`
	Frame       *int64  `json:"frame,omitempty"`
	File        string  `json:"file,omitempty"`
	Line        *int64  `json:"line,omitempty"`
	SessionID   string  `json:"session_id"`
	InstanceID  string  `json:"instance_id"`
}

// MarshalRecord serializes a Record for RPC responses.
func MarshalRecord(r Record) ([]byte, error) {
	return json.Marshal(outboundRecord{
		ID:          r.ID,
		Source:      r.Source,
		Category:    r.Category,
		Verbosity:   r.Severity.String(),
		Message:     r.Message,
		Timestamp:   r.EmitTime,
		ReceiveTime: r.ReceiveTime,
		Frame:       r.Frame,
		File:        r.File,
		Line:        r.Line,
		SessionID:   r.SessionID,
		InstanceID:  r.InstanceID,
	})
}

// ToJSONValue converts a Record into a plain map suitable for embedding in
// larger JSON structures (tool results, resource contents) without a
// second unmarshal round-trip.
func ToJSONValue(r Record) map[string]any {
	v := map[string]any{
		"id":           r.ID,
		"source":       r.Source,
		"category":     r.Category,
		"verbosity":    r.Severity.String(),
		"message":      r.Message,
		"timestamp":    r.EmitTime,
		"receive_time": r.ReceiveTime,
		"session_id":   r.SessionID,
		"instance_id":  r.InstanceID,
	}
	if r.Frame != nil {
		v["frame"] = *r.Frame
	}
	if r.File != "" {
		v["file"] = r.File
	}
	if r.Line != nil {
		v["line"] = *r.Line
	}
	return v
}

// ToJSONValues applies ToJSONValue across a slice of records.
func ToJSONValues(records []Record) []map[string]any {
	out := make([]map[string]any, len(records))
	for i, r := range records {
		out[i] = ToJSONValue(r)
	}
	return out
}
