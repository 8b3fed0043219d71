package model

// Filter is an optional query predicate. Zero value means "no filter"
// for every field except Limit/Offset, which default as noted below.
type Filter struct {
	Source       string
	MinSeverity  Severity
	HasSeverity  bool // distinguishes "no severity filter" from NoLogging(0)
	Category     string
	EmitTimeFrom *float64
	EmitTimeTo   *float64
	SessionID    string
	HasSession   bool // distinguishes empty-string session_id from "unset"
	InstanceID   string
	HasInstance  bool
	AllSessions  bool
	Limit        int
	Offset       int
}

const defaultLimit = 100

// Normalize fills in the zero-value defaults described.
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// StatsFilter is the optional filter accepted by Store.Stats.
type StatsFilter struct {
	Source string
	Since  *float64
}
