package loadgen

import (
	"testing"
	"time"

	"github.com/logrelay/logrelay/internal/model"
)

func TestGenerator_Next(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sources = 3
	cfg.Categories = 5

	gen := NewGenerator(cfg)

	for i := 0; i < 100; i++ {
		rec := gen.Next()

		if rec.Source == "" {
			t.Error("source should not be empty")
		}
		if rec.Category == "" {
			t.Error("category should not be empty")
		}
		if rec.Message == "" {
			t.Error("message should not be empty")
		}
		if rec.EmitTime == 0 {
			t.Error("emit time should not be zero")
		}
		if rec.SessionID == "" {
			t.Error("session id should not be empty")
		}
		if rec.InstanceID == "" {
			t.Error("instance id should not be empty")
		}
	}
}

func TestGenerator_SeverityDistribution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ErrorRate = 20

	gen := NewGenerator(cfg)

	var errorOrWorse int
	const iterations = 10000

	for i := 0; i < iterations; i++ {
		rec := gen.Next()
		if rec.Severity.Admits(model.Error) {
			errorOrWorse++
		}
	}

	rate := float64(errorOrWorse) / float64(iterations) * 100
	if rate < 10 || rate > 30 {
		t.Errorf("error-or-worse rate %.1f%% outside expected range (10-30%%)", rate)
	}
}

func TestGenerator_UniqueSources(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sources = 3
	cfg.Categories = 10

	gen := NewGenerator(cfg)

	sources := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		rec := gen.Next()
		sources[rec.Source] = true
	}

	if len(sources) > cfg.Sources {
		t.Errorf("expected at most %d sources, got %d", cfg.Sources, len(sources))
	}
}

func TestGenerator_SharesOneSessionAcrossRecords(t *testing.T) {
	gen := NewGenerator(DefaultConfig())

	first := gen.Next()
	for i := 0; i < 50; i++ {
		rec := gen.Next()
		if rec.SessionID != first.SessionID {
			t.Fatalf("expected all records to share session %q, got %q", first.SessionID, rec.SessionID)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid default", func(c *Config) {}, false},
		{"empty addr", func(c *Config) { c.Addr = "" }, true},
		{"zero rate", func(c *Config) { c.Rate = 0 }, true},
		{"negative rate", func(c *Config) { c.Rate = -1 }, true},
		{"zero duration", func(c *Config) { c.Duration = 0 }, true},
		{"zero sources", func(c *Config) { c.Sources = 0 }, true},
		{"zero categories", func(c *Config) { c.Categories = 0 }, true},
		{"error rate > 100", func(c *Config) { c.ErrorRate = 101 }, true},
		{"error rate < 0", func(c *Config) { c.ErrorRate = -1 }, true},
		{"valid high rate", func(c *Config) { c.Rate = 100000 }, false},
		{"valid long duration", func(c *Config) { c.Duration = 24 * time.Hour }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Addr != "127.0.0.1:9999" {
		t.Errorf("expected default addr 127.0.0.1:9999, got %s", cfg.Addr)
	}
	if cfg.Rate != 100 {
		t.Errorf("expected default rate 100, got %d", cfg.Rate)
	}
	if cfg.Duration != time.Minute {
		t.Errorf("expected default duration 1m, got %v", cfg.Duration)
	}
	if cfg.ErrorRate != 5 {
		t.Errorf("expected default error rate 5, got %d", cfg.ErrorRate)
	}
}
