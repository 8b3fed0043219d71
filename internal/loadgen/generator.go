package loadgen

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/logrelay/logrelay/internal/model"
)

// Predefined realistic source names.
var defaultSources = []string{
	"api-gateway",
	"auth-service",
	"worker-pool",
	"cache",
	"scheduler",
	"ingest",
	"billing",
	"notifier",
}

// Predefined category prefixes, combined with a random suffix to produce
// a spread of categories per source.
var categoryPrefixes = []string{
	"request",
	"db",
	"cache",
	"queue",
	"startup",
	"health",
	"auth",
	"retry",
}

// Realistic message templates by severity.
var messageTemplates = map[model.Severity][]string{
	model.Fatal: {
		"FATAL: unable to start listener on port %d",
		"PANIC: nil pointer dereference in handler",
		"FATAL: migration failed, incompatible schema",
	},
	model.Error: {
		"failed to connect to backend: connection refused",
		"request failed: status=500 error=\"internal server error\"",
		"timeout waiting for response: exceeded %dms",
		"invalid payload: missing required field",
		"circuit breaker opened for upstream-%d",
	},
	model.Warning: {
		"request took longer than expected: duration=%dms",
		"retry attempt %d for operation",
		"connection pool exhausted, waiting for connection",
		"rate limit approaching: current=%d",
		"certificate expires in %d days",
	},
	model.Display: {
		"server started successfully on port %d",
		"configuration reloaded",
		"connected to backend",
	},
	model.Log: {
		"request completed: status=200 duration=%dms",
		"job completed: processed %d items",
		"health check passed",
		"cache warmed with %d entries",
	},
	model.Verbose: {
		"processing request id=%d",
		"cache lookup for key=user:%d",
		"query executed in %dms",
	},
	model.VeryVerbose: {
		"entering processRequest",
		"exiting handleConnection",
		"checkpoint reached: %d",
	},
}

// Generator produces realistic synthetic log records.
type Generator struct {
	rng        *rand.Rand
	cfg        Config
	sources    []string
	categories []string
	sessionID  string
	instances  []string
}

// NewGenerator builds a generator. All records it emits share one
// session id and are spread across a handful of instance ids, mirroring
// a fleet of processes reporting into the same session.
func NewGenerator(cfg Config) *Generator {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	sources := make([]string, 0, cfg.Sources)
	for i := 0; i < cfg.Sources && i < len(defaultSources); i++ {
		sources = append(sources, defaultSources[i])
	}
	for i := len(sources); i < cfg.Sources; i++ {
		sources = append(sources, fmt.Sprintf("source-%d", i))
	}

	categories := make([]string, 0, cfg.Categories)
	for i := 0; i < cfg.Categories; i++ {
		prefix := categoryPrefixes[i%len(categoryPrefixes)]
		categories = append(categories, fmt.Sprintf("%s-%s", prefix, randomString(rng, 4)))
	}

	instances := make([]string, 3)
	for i := range instances {
		instances[i] = uuid.NewString()
	}

	return &Generator{
		rng:        rng,
		cfg:        cfg,
		sources:    sources,
		categories: categories,
		sessionID:  uuid.NewString(),
		instances:  instances,
	}
}

// Next generates the next synthetic record.
func (g *Generator) Next() model.Record {
	severity := g.randomSeverity()

	return model.Record{
		Source:     g.sources[g.rng.Intn(len(g.sources))],
		Category:   g.categories[g.rng.Intn(len(g.categories))],
		Severity:   severity,
		Message:    g.randomMessage(severity),
		EmitTime:   float64(time.Now().UnixNano()) / 1e9,
		SessionID:  g.sessionID,
		InstanceID: g.instances[g.rng.Intn(len(g.instances))],
	}
}

func (g *Generator) randomSeverity() model.Severity {
	roll := g.rng.Intn(100)

	switch {
	case roll < g.cfg.ErrorRate/2:
		return model.Fatal
	case roll < g.cfg.ErrorRate:
		return model.Error
	case roll < g.cfg.ErrorRate+10:
		return model.Warning
	case roll < g.cfg.ErrorRate+20:
		return model.Display
	case roll < g.cfg.ErrorRate+60:
		return model.Log
	case roll < g.cfg.ErrorRate+85:
		return model.Verbose
	default:
		return model.VeryVerbose
	}
}

func (g *Generator) randomMessage(severity model.Severity) string {
	templates := messageTemplates[severity]
	if len(templates) == 0 {
		templates = messageTemplates[model.Log]
	}
	template := templates[g.rng.Intn(len(templates))]
	return fmt.Sprintf(template, g.rng.Intn(10000))
}

func randomString(rng *rand.Rand, length int) string {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	result := make([]byte, length)
	for i := range result {
		result[i] = chars[rng.Intn(len(chars))]
	}
	return string(result)
}
