package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/logrelay/logrelay/internal/model"
)

// datagramPayload mirrors the ingest datagram wire shape.
type datagramPayload struct {
	Source     string  `json:"source"`
	Category   string  `json:"category"`
	Verbosity  string  `json:"verbosity"`
	Message    string  `json:"message"`
	Timestamp  float64 `json:"timestamp"`
	SessionID  string  `json:"session_id"`
	InstanceID string  `json:"instance_id"`
}

// SenderStats contains statistics about sent records.
type SenderStats struct {
	TotalLogs int64
	Errors    int64
	StartTime time.Time
}

// Sender emits records as ingest datagrams over UDP.
type Sender struct {
	conn      *net.UDPConn
	startTime time.Time

	totalLogs atomic.Int64
	errors    atomic.Int64
}

// NewSender dials addr once and reuses the connection for every send.
func NewSender(addr string) (*Sender, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Sender{conn: conn, startTime: time.Now()}, nil
}

// Send encodes rec as an ingest datagram and writes it to the connection.
func (s *Sender) Send(ctx context.Context, rec model.Record) error {
	payload := datagramPayload{
		Source:     rec.Source,
		Category:   rec.Category,
		Verbosity:  rec.Severity.String(),
		Message:    rec.Message,
		Timestamp:  rec.EmitTime,
		SessionID:  rec.SessionID,
		InstanceID: rec.InstanceID,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		s.errors.Add(1)
		return err
	}

	if _, err := s.conn.Write(raw); err != nil {
		s.errors.Add(1)
		slog.Warn("send failed", "error", err)
		return err
	}

	s.totalLogs.Add(1)
	return nil
}

// Stats returns a snapshot of cumulative send outcomes.
func (s *Sender) Stats() SenderStats {
	return SenderStats{
		TotalLogs: s.totalLogs.Load(),
		Errors:    s.errors.Load(),
		StartTime: s.startTime,
	}
}

// Close releases the underlying socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}
