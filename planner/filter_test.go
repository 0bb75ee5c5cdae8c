package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMeasurementFilter(t *testing.T) {
	t.Run("no lists allows everything", func(t *testing.T) {
		f := NewMeasurementFilter(nil, nil)
		assert.True(t, f.Allows("cpu"))
		assert.True(t, f.Allows("memory"))
	})

	t.Run("include list restricts to named measurements", func(t *testing.T) {
		f := NewMeasurementFilter([]string{"cpu"}, nil)
		assert.True(t, f.Allows("cpu"))
		assert.False(t, f.Allows("memory"))
	})

	t.Run("exclude list removes named measurements", func(t *testing.T) {
		f := NewMeasurementFilter(nil, []string{"memory"})
		assert.True(t, f.Allows("cpu"))
		assert.False(t, f.Allows("memory"))
	})
}

func TestFieldFilter(t *testing.T) {
	t.Run("type restriction", func(t *testing.T) {
		f := NewFieldFilter(nil, nil, []string{"numeric"})
		assert.True(t, f.Allows("usage", "numeric"))
		assert.False(t, f.Allows("status", "string"))
	})

	t.Run("include combined with type restriction", func(t *testing.T) {
		f := NewFieldFilter([]string{"usage"}, nil, []string{"numeric"})
		assert.True(t, f.Allows("usage", "numeric"))
		assert.False(t, f.Allows("idle", "numeric"))
	})
}

func TestIsObsolete(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsObsolete(time.Time{}, now, 24*time.Hour))
	assert.False(t, IsObsolete(now.Add(-time.Hour), now, 24*time.Hour))
	assert.True(t, IsObsolete(now.Add(-48*time.Hour), now, 24*time.Hour))
}
