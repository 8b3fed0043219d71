package loadgen

import (
	"errors"
	"flag"
	"time"
)

// Config holds synthetic-traffic generator configuration.
type Config struct {
	// Addr is the ingest datagram receiver's address.
	Addr string

	// Rate is the number of records per second to emit.
	Rate int

	// Duration is how long to run the generator.
	Duration time.Duration

	// Sources is the number of unique source names to generate.
	Sources int

	// Categories is the number of unique categories to generate.
	Categories int

	// ErrorRate is the percentage of records that should be Error or
	// worse (0-100).
	ErrorRate int

	// Verbose enables debug logging.
	Verbose bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:       "127.0.0.1:9999",
		Rate:       100,
		Duration:   time.Minute,
		Sources:    5,
		Categories: 20,
		ErrorRate:  5,
		Verbose:    false,
	}
}

// ParseFlags parses command-line flags into Config.
func ParseFlags() Config {
	cfg := DefaultConfig()

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "ingest datagram receiver address")
	flag.IntVar(&cfg.Rate, "rate", cfg.Rate, "records per second")
	flag.DurationVar(&cfg.Duration, "duration", cfg.Duration, "how long to run")
	flag.IntVar(&cfg.Sources, "sources", cfg.Sources, "number of unique source names")
	flag.IntVar(&cfg.Categories, "categories", cfg.Categories, "number of unique categories")
	flag.IntVar(&cfg.ErrorRate, "error-rate", cfg.ErrorRate, "percentage of error-or-worse records (0-100)")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "enable verbose logging")

	flag.Parse()
	return cfg
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr cannot be empty")
	}
	if c.Rate <= 0 {
		return errors.New("rate must be positive")
	}
	if c.Duration <= 0 {
		return errors.New("duration must be positive")
	}
	if c.Sources <= 0 {
		return errors.New("sources must be positive")
	}
	if c.Categories <= 0 {
		return errors.New("categories must be positive")
	}
	if c.ErrorRate < 0 || c.ErrorRate > 100 {
		return errors.New("error-rate must be between 0 and 100")
	}
	return nil
}
