package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/logrelay/logrelay/internal/model"
)

func TestFilterNormalizeDefaultsLimit(t *testing.T) {
	f := model.Filter{}.Normalize()
	assert.Equal(t, 100, f.Limit)
	assert.Equal(t, 0, f.Offset)
}

func TestFilterNormalizePreservesExplicitLimit(t *testing.T) {
	f := model.Filter{Limit: 5, Offset: 10}.Normalize()
	assert.Equal(t, 5, f.Limit)
	assert.Equal(t, 10, f.Offset)
}

func TestFilterNormalizeClampsNegativeOffset(t *testing.T) {
	f := model.Filter{Offset: -3}.Normalize()
	assert.Equal(t, 0, f.Offset)
}
