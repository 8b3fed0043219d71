// Package model defines the log record schema, severity ordering, and
// the filter shape shared by the store, the ingestion plane, and the
// RPC dispatcher.
package model

import "encoding/json"

// Severity is an 8-level ordered enumeration. Lower ordinal is more severe.
type Severity int

const (
	NoLogging Severity = iota
	Fatal
	Error
	Warning
	Display
	Log
	Verbose
	VeryVerbose
)

// severityNames holds the canonical, case-sensitive spellings used on the wire.
var severityNames = [...]string{
	NoLogging:   "NoLogging",
	Fatal:       "Fatal",
	Error:       "Error",
	Warning:     "Warning",
	Display:     "Display",
	Log:         "Log",
	Verbose:     "Verbose",
	VeryVerbose: "VeryVerbose",
}

// String returns the canonical name, or "Unknown" for an out-of-range value.
func (s Severity) String() string {
	if s < NoLogging || s > VeryVerbose {
		return "Unknown"
	}
	return severityNames[s]
}

// ParseSeverity parses a case-sensitive verbosity name against the 7
// named levels Fatal..VeryVerbose (NoLogging is not an emittable
// verbosity). Unknown or empty names default to Log, matching the
// ingest parser's default.
func ParseSeverity(name string) Severity {
	for s := Fatal; s <= VeryVerbose; s++ {
		if severityNames[s] == name {
			return s
		}
	}
	return Log
}

// MarshalJSON renders the severity as its wire name rather than its
// ordinal.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Admits reports whether a record at this severity passes a "minimum
// severity" threshold of min: admitted when ordinal(s) <= ordinal(min).
func (s Severity) Admits(min Severity) bool {
	return s <= min
}

// Record is one immutable log entry.
type Record struct {
	ID          int64
	Source      string
	Category    string
	Severity    Severity
	Message     string
	EmitTime    float64
	ReceiveTime float64
	Frame       *int64
	File        string
	Line        *int64
	SessionID   string
	InstanceID  string
}

// SessionSummary aggregates the records sharing a session_id.
type SessionSummary struct {
	SessionID string   `json:"session_id"`
	FirstSeen float64  `json:"first_seen"`
	LastSeen  float64  `json:"last_seen"`
	LogCount  int64    `json:"log_count"`
	Instances []string `json:"instances"`
}

// Statistics is the aggregate view returned by Store.Stats.
type Statistics struct {
	Total          int64            `json:"total"`
	CountPerSource map[string]int64 `json:"count_per_source"`
	ErrorCount     int64            `json:"error_count"`
	WarningCount   int64            `json:"warning_count"`
	TopCategories  []CategoryCount  `json:"top_categories"`
	SessionCount   int64            `json:"session_count"`
	InstanceCount  int64            `json:"instance_count"`
	CurrentSession string           `json:"current_session"`
}

// CategoryCount is one entry of the top-20-categories-by-count list.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// SourceKind enumerates the emitter classes a SourceDescriptor can describe.
type SourceKind string

// FileTailer is the only source kind in use today.
const FileTailer SourceKind = "file-tailer"

// SourceDescriptor describes a registered ingestion source.
type SourceDescriptor struct {
	ID          string     `json:"id"`
	Kind        SourceKind `json:"kind"`
	DisplayName string     `json:"display_name"`
	Path        string     `json:"path"`
	Running     bool       `json:"running"`
}
