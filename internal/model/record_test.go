package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/logrelay/logrelay/internal/model"
)

func TestSeverityStringRoundTrip(t *testing.T) {
	for s := model.Fatal; s <= model.VeryVerbose; s++ {
		name := s.String()
		assert.NotEqual(t, "Unknown", name)
		assert.Equal(t, s, model.ParseSeverity(name))
	}
}

func TestSeverityStringOutOfRange(t *testing.T) {
	assert.Equal(t, "Unknown", model.Severity(-1).String())
	assert.Equal(t, "Unknown", model.Severity(99).String())
}

func TestParseSeverityDefaultsToLog(t *testing.T) {
	assert.Equal(t, model.Log, model.ParseSeverity(""))
	assert.Equal(t, model.Log, model.ParseSeverity("bogus"))
}

func TestParseSeverityRejectsNoLogging(t *testing.T) {
	assert.Equal(t, model.Log, model.ParseSeverity("NoLogging"))
}

func TestSeverityAdmits(t *testing.T) {
	assert.True(t, model.Fatal.Admits(model.Error))
	assert.True(t, model.Error.Admits(model.Error))
	assert.False(t, model.Warning.Admits(model.Error))
	assert.True(t, model.VeryVerbose.Admits(model.VeryVerbose))
}

func TestSeverityOrdinalOrdering(t *testing.T) {
	assert.Less(t, int(model.Fatal), int(model.Error))
	assert.Less(t, int(model.Error), int(model.Warning))
	assert.Less(t, int(model.Warning), int(model.Display))
	assert.Less(t, int(model.Display), int(model.Log))
	assert.Less(t, int(model.Log), int(model.Verbose))
	assert.Less(t, int(model.Verbose), int(model.VeryVerbose))
}
